package codec

import (
	"fmt"

	"github.com/Harshitk-cp/prest/internal/domain"
)

func (e *Encoder) AltSet(s domain.AltSet) {
	e.Uint64(uint64(s))
}

func (d *Decoder) AltSet() domain.AltSet {
	return domain.AltSet(d.Uint64())
}

func (e *Encoder) Observation(o domain.ChoiceObservation) {
	e.AltSet(o.Menu)
	e.Option(o.Default != nil)
	if o.Default != nil {
		e.Uint32(uint32(*o.Default))
	}
	e.AltSet(o.Choice)
}

func (d *Decoder) Observation() domain.ChoiceObservation {
	var o domain.ChoiceObservation
	o.Menu = d.AltSet()
	if d.Option() {
		a := domain.Alt(d.Uint32())
		o.Default = &a
	}
	o.Choice = d.AltSet()
	return o
}

func (e *Encoder) Subject(s *domain.Subject) {
	e.Text(s.Name)
	e.Texts(s.Alternatives)
	e.Len(len(s.Choices))
	for _, c := range s.Choices {
		e.Observation(c)
	}
}

func (d *Decoder) Subject() *domain.Subject {
	s := &domain.Subject{
		Name:         d.Text(),
		Alternatives: d.Texts(),
	}
	n := d.Len()
	if d.Err() != nil {
		return s
	}
	s.Choices = make([]domain.ChoiceObservation, 0, Prealloc(n))
	for i := 0; i < n && d.Err() == nil; i++ {
		s.Choices = append(s.Choices, d.Observation())
	}
	d.truncated()
	if d.Err() != nil {
		return s
	}
	if len(s.Alternatives) > domain.MaxAlternatives {
		d.Fail(fmt.Errorf("%w: subject %q has %d", domain.ErrTooManyAlternatives, s.Name, len(s.Alternatives)))
		return s
	}
	for i, c := range s.Choices {
		if err := c.Validate(len(s.Alternatives)); err != nil {
			d.Fail(fmt.Errorf("subject %q observation %d: %w", s.Name, i, err))
			return s
		}
	}
	return s
}

// PackSubject encodes a subject into a standalone blob.
func PackSubject(s *domain.Subject) ([]byte, error) {
	return Marshal(func(e *Encoder) { e.Subject(s) })
}

func UnpackSubject(p []byte) (*domain.Subject, error) {
	var s *domain.Subject
	err := Unmarshal(p, func(d *Decoder) { s = d.Subject() })
	if err != nil {
		return nil, fmt.Errorf("unpack subject: %w", err)
	}
	return s, nil
}

// PackedSubject writes a subject as a length-prefixed blob.
func (e *Encoder) PackedSubject(s *domain.Subject) {
	p, err := PackSubject(s)
	if err != nil {
		e.Fail(err)
		return
	}
	e.Bytes(p)
}

func (d *Decoder) PackedSubject() *domain.Subject {
	p := d.Bytes()
	if d.Err() != nil {
		return nil
	}
	s, err := UnpackSubject(p)
	if err != nil {
		d.Fail(err)
		return nil
	}
	return s
}
