package ingest

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/Harshitk-cp/prest/internal/domain"
)

// DefaultKeyColumn is the subject key column used when none is configured.
const DefaultKeyColumn = "subject"

// CSVSource reads rows from comma-separated input. Rows may have any length;
// short rows are reported by the Grouper, not by the CSV reader.
type CSVSource struct {
	r *csv.Reader
}

func NewCSVSource(r io.Reader) *CSVSource {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	return &CSVSource{r: cr}
}

// Header reads the first record.
func (s *CSVSource) Header() ([]string, error) {
	h, err := s.r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("read header: %w", io.ErrUnexpectedEOF)
	}
	if err != nil {
		return nil, fmt.Errorf("read header: %w", err)
	}
	return h, nil
}

func (s *CSVSource) Next() ([]string, error) {
	return s.r.Read()
}

// ReadSubjects reads the CSV header from r and returns a Grouper over the remaining rows.
func ReadSubjects[S comparable, R any](
	r io.Reader,
	keyColumn string,
	alts *domain.Alternatives,
	subject RowDecoder[S],
	row RowDecoder[R],
) (*Grouper[S, R], error) {
	src := NewCSVSource(r)
	header, err := src.Header()
	if err != nil {
		return nil, err
	}
	return NewGrouper(src, header, keyColumn, alts, subject, row)
}

// Options configures ReadChoiceSubjects.
type Options struct {
	KeyColumn    string
	ForcedChoice bool
}

// ReadChoiceSubjects groups a choice-experiment CSV (key, menu, optional default,
// choice columns) into subjects, returning them in input order together with the
// final label table.
func ReadChoiceSubjects(r io.Reader, opts Options) ([]domain.Subject, []string, error) {
	key := opts.KeyColumn
	if key == "" {
		key = DefaultKeyColumn
	}

	alts := domain.NewAlternatives()
	g, err := ReadSubjects[struct{}, domain.ChoiceObservation](
		r, key, alts, NoSubjectData{}, ChoiceRowDecoder{ForcedChoice: opts.ForcedChoice},
	)
	if err != nil {
		return nil, nil, err
	}

	var subjects []domain.Subject
	for s, err := range g.All() {
		if err != nil {
			return nil, nil, err
		}
		subjects = append(subjects, domain.Subject{
			Name:         s.Name,
			Alternatives: s.Alternatives,
			Choices:      s.Rows,
		})
	}
	return subjects, alts.Snapshot(), nil
}
