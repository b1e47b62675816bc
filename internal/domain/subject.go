package domain

import "errors"

var (
	ErrUnknownAlternative = errors.New("menu names an alternative outside the subject's table")
	ErrDefaultNotInMenu   = errors.New("default is not in the menu")
	ErrChoiceNotInMenu    = errors.New("choice is not a subset of the menu")
)

// ChoiceObservation is one recorded decision: the offered menu, an optional
// default alternative and the chosen subset. An empty Choice is a deferral.
type ChoiceObservation struct {
	Menu    AltSet
	Default *Alt
	Choice  AltSet
}

// IsDeferral reports whether nothing was chosen.
func (o ChoiceObservation) IsDeferral() bool {
	return o.Choice.IsEmpty()
}

// Validate checks the observation against a subject with altCount alternatives.
func (o ChoiceObservation) Validate(altCount int) error {
	if !o.Menu.IsSubsetOf(FullSet(altCount)) {
		return ErrUnknownAlternative
	}
	if o.Default != nil && !o.Menu.Contains(*o.Default) {
		return ErrDefaultNotInMenu
	}
	if !o.Choice.IsSubsetOf(o.Menu) {
		return ErrChoiceNotInMenu
	}
	return nil
}

// Subject is the complete record of one experimental subject.
// Alternatives is a snapshot of the label table taken when the subject was closed,
// so it can include labels first seen in the following subject's rows.
type Subject struct {
	Name         string
	Alternatives []string
	Choices      []ChoiceObservation
}

// AltCount is the number of alternatives known to the subject.
func (s *Subject) AltCount() int {
	return len(s.Alternatives)
}

// SubjectStats summarizes a subject's observations.
type SubjectStats struct {
	Name          string `json:"name"`
	Observations  int    `json:"observations"`
	ActiveChoices int    `json:"active_choices"`
	Deferrals     int    `json:"deferrals"`
}

func Summarize(s *Subject) SubjectStats {
	stats := SubjectStats{Name: s.Name, Observations: len(s.Choices)}
	for _, c := range s.Choices {
		if c.IsDeferral() {
			stats.Deferrals++
		} else {
			stats.ActiveChoices++
		}
	}
	return stats
}
