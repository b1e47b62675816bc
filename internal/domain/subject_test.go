package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSummarize(t *testing.T) {
	def := Alt(1)
	s := &Subject{
		Name:         "alice",
		Alternatives: []string{"a", "b", "c"},
		Choices: []ChoiceObservation{
			{Menu: SetOf(0, 1), Choice: SetOf(0)},
			{Menu: SetOf(0, 1, 2), Default: &def, Choice: EmptySet()},
			{Menu: SetOf(1, 2), Choice: SetOf(1, 2)},
		},
	}

	assert.Equal(t, 3, s.AltCount())
	assert.True(t, s.Choices[1].IsDeferral())
	assert.Equal(t, SubjectStats{Name: "alice", Observations: 3, ActiveChoices: 2, Deferrals: 1}, Summarize(s))
}

func TestSummarize_NoObservations(t *testing.T) {
	assert.Equal(t, SubjectStats{Name: "empty"}, Summarize(&Subject{Name: "empty"}))
}

func TestChoiceObservation_Validate(t *testing.T) {
	in, out := Alt(0), Alt(2)
	tests := []struct {
		name    string
		obs     ChoiceObservation
		wantErr error
	}{
		{"active choice", ChoiceObservation{Menu: SetOf(0, 1), Default: &in, Choice: SetOf(1)}, nil},
		{"deferral", ChoiceObservation{Menu: SetOf(0, 1, 2), Choice: EmptySet()}, nil},
		{"unknown alternative", ChoiceObservation{Menu: SetOf(1, 3), Choice: SetOf(1)}, ErrUnknownAlternative},
		{"default outside menu", ChoiceObservation{Menu: SetOf(0, 1), Default: &out, Choice: SetOf(0)}, ErrDefaultNotInMenu},
		{"choice outside menu", ChoiceObservation{Menu: SetOf(0), Choice: SetOf(0, 1)}, ErrChoiceNotInMenu},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.obs.Validate(3)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}
