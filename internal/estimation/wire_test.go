package estimation

import (
	"encoding/json"
	"testing"

	"github.com/Harshitk-cp/prest/internal/codec"
	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/Harshitk-cp/prest/internal/theory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequest_RoundTrip(t *testing.T) {
	def := domain.Alt(1)
	req := &Request{
		Subjects: []domain.Subject{
			{
				Name:         "s1",
				Alternatives: []string{"a", "b", "c"},
				Choices: []domain.ChoiceObservation{
					{Menu: domain.SetOf(0, 1), Default: &def, Choice: domain.SetOf(1)},
					{Menu: domain.SetOf(0, 1, 2), Choice: domain.EmptySet()},
				},
			},
			{Name: "s2", Alternatives: []string{"a"}},
		},
		Theories:           theory.Catalog(),
		ForcedChoice:       true,
		DisableParallelism: false,
	}

	p, err := MarshalRequest(req)
	require.NoError(t, err)

	got, err := UnmarshalRequest(p)
	require.NoError(t, err)
	assert.Equal(t, req.Theories, got.Theories)
	assert.Equal(t, req.ForcedChoice, got.ForcedChoice)
	assert.Equal(t, req.DisableParallelism, got.DisableParallelism)
	require.Len(t, got.Subjects, 2)
	assert.Equal(t, req.Subjects[0], got.Subjects[0])
	assert.Equal(t, "s2", got.Subjects[1].Name)
	assert.Empty(t, got.Subjects[1].Choices)
}

func TestResponses_RoundTrip(t *testing.T) {
	resps := []Response{
		{
			SubjectName:  "s1",
			MinimalScore: 0.30000000005,
			BestInstances: []ScoredInstance{
				{Theory: theory.TopTwo{}, Score: 0.3, Instance: []byte{3, 2, 0, 1}},
				{Theory: theory.PreorderMaximization{Total: theory.FlagNo}, Score: 0.30000000005, Instance: []byte{0, 2, 3, 2}},
			},
		},
		{SubjectName: "s2", MinimalScore: 2},
	}

	p, err := MarshalResponses(resps)
	require.NoError(t, err)

	got, err := UnmarshalResponses(p)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, resps[0], got[0])
	assert.Equal(t, "s2", got[1].SubjectName)
	assert.Equal(t, 2.0, got[1].MinimalScore)
	assert.Empty(t, got[1].BestInstances)
}

func TestUnmarshalRequest_Errors(t *testing.T) {
	p, err := MarshalRequest(&Request{Theories: []theory.Theory{theory.TopTwo{}}})
	require.NoError(t, err)

	_, err = UnmarshalRequest(p[:len(p)-1])
	assert.Error(t, err)

	_, err = UnmarshalRequest(append(p, 0))
	assert.ErrorIs(t, err, codec.ErrTrailingBytes)

	bad := append([]byte(nil), p...)
	bad[len(bad)-1] = 7
	_, err = UnmarshalRequest(bad)
	assert.ErrorIs(t, err, codec.ErrInvalidBool)
}

func TestToJSON(t *testing.T) {
	resps := []Response{
		{
			SubjectName:  "s1",
			MinimalScore: 1,
			BestInstances: []ScoredInstance{
				{Theory: theory.TopTwo{}, Score: 1, Instance: []byte{0, 1}},
			},
		},
		{SubjectName: "s2"},
	}

	p, err := json.Marshal(ToJSON(resps))
	require.NoError(t, err)
	assert.JSONEq(t, `[
		{"subject":"s1","minimal_score":1,"best_instances":[{"theory":"top_two","score":1,"instance":"AAE="}]},
		{"subject":"s2","minimal_score":0,"best_instances":[]}
	]`, string(p))
}
