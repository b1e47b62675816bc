package ingest

import (
	"errors"
	"io"
	"strings"
	"testing"

	"github.com/Harshitk-cp/prest/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sliceSource struct {
	rows [][]string
	err  error
}

func (s *sliceSource) Next() ([]string, error) {
	if len(s.rows) == 0 {
		if s.err != nil {
			return nil, s.err
		}
		return nil, io.EOF
	}
	r := s.rows[0]
	s.rows = s.rows[1:]
	return r, nil
}

// groupDecoder reads a "group" subject-level column.
type groupDecoder struct{}

func (groupDecoder) Columns() []Column { return []Column{{Name: "group"}} }

func (groupDecoder) Decode(_ *domain.Alternatives, cells []string) (string, error) {
	if cells[0] == "bad" {
		return "", errors.New("bad group")
	}
	return cells[0], nil
}

var choiceHeader = []string{"subject", "menu", "choice"}

func newChoiceGrouper(t *testing.T, rows [][]string) *Grouper[struct{}, domain.ChoiceObservation] {
	t.Helper()
	g, err := NewGrouper[struct{}, domain.ChoiceObservation](
		&sliceSource{rows: rows}, choiceHeader, "subject", domain.NewAlternatives(),
		NoSubjectData{}, ChoiceRowDecoder{},
	)
	require.NoError(t, err)
	return g
}

func collectNames[S comparable, R any](g *Grouper[S, R]) ([]string, error) {
	var names []string
	for {
		s, err := g.Next()
		if errors.Is(err, io.EOF) {
			return names, nil
		}
		if err != nil {
			return names, err
		}
		names = append(names, s.Name)
	}
}

func TestGrouper_GroupsContiguousRows(t *testing.T) {
	g := newChoiceGrouper(t, [][]string{
		{"s1", "a,b", "a"},
		{"s1", "a,b,c", "a"},
		{"s2", "a,b", "b"},
		{"s3", "b,c", ""},
	})

	s1, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, "s1", s1.Name)
	assert.Len(t, s1.Rows, 2)
	assert.Equal(t, domain.SetOf(0, 1), s1.Rows[0].Menu)
	assert.Equal(t, domain.SetOf(0), s1.Rows[0].Choice)
	assert.Equal(t, domain.SetOf(0, 1, 2), s1.Rows[1].Menu)

	s2, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, "s2", s2.Name)

	s3, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, "s3", s3.Name)
	assert.True(t, s3.Rows[0].IsDeferral())

	_, err = g.Next()
	assert.ErrorIs(t, err, io.EOF)
	_, err = g.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestGrouper_EmptyInput(t *testing.T) {
	g := newChoiceGrouper(t, nil)
	_, err := g.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestGrouper_Discontiguous(t *testing.T) {
	g := newChoiceGrouper(t, [][]string{
		{"s1", "a,b", "a"},
		{"s1", "a,b,c", "a"},
		{"s2", "a,b", "a"},
		{"s1", "a,b", "b"},
	})

	names, err := collectNames(g)
	assert.Equal(t, []string{"s1"}, names)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSubjectDiscontiguous)

	var ce *ConsistencyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "s1", ce.Subject)
	assert.Equal(t, 4, ce.Row)

	// terminal
	_, again := g.Next()
	assert.Equal(t, err, again)
}

func TestGrouper_Inconsistent(t *testing.T) {
	g, err := NewGrouper[string, domain.ChoiceObservation](
		&sliceSource{rows: [][]string{
			{"s1", "g1", "a,b", "a"},
			{"s1", "g2", "a,b", "b"},
		}},
		[]string{"subject", "group", "menu", "choice"}, "subject", domain.NewAlternatives(),
		groupDecoder{}, ChoiceRowDecoder{},
	)
	require.NoError(t, err)

	_, err = g.Next()
	assert.ErrorIs(t, err, ErrSubjectInconsistent)

	var ce *ConsistencyError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, "s1", ce.Subject)
}

func TestGrouper_SubjectDataCarried(t *testing.T) {
	g, err := NewGrouper[string, domain.ChoiceObservation](
		&sliceSource{rows: [][]string{
			{"s1", "g1", "a,b", "a"},
			{"s1", "g1", "a,b", "b"},
			{"s2", "g2", "a,b", "b"},
		}},
		[]string{"subject", "group", "menu", "choice"}, "subject", domain.NewAlternatives(),
		groupDecoder{}, ChoiceRowDecoder{},
	)
	require.NoError(t, err)

	s1, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, "g1", s1.Data)
	s2, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, "g2", s2.Data)
}

func TestGrouper_ColumnOverlap(t *testing.T) {
	_, err := NewGrouper[domain.ChoiceObservation, domain.ChoiceObservation](
		&sliceSource{}, choiceHeader, "subject", domain.NewAlternatives(),
		ChoiceRowDecoder{}, ChoiceRowDecoder{},
	)
	assert.ErrorIs(t, err, ErrColumnOverlap)
}

func TestGrouper_MissingColumns(t *testing.T) {
	_, err := NewGrouper[struct{}, domain.ChoiceObservation](
		&sliceSource{}, []string{"menu", "choice"}, "subject", domain.NewAlternatives(),
		NoSubjectData{}, ChoiceRowDecoder{},
	)
	assert.ErrorIs(t, err, ErrNoKeyColumn)

	_, err = NewGrouper[struct{}, domain.ChoiceObservation](
		&sliceSource{}, []string{"subject", "menu"}, "subject", domain.NewAlternatives(),
		NoSubjectData{}, ChoiceRowDecoder{},
	)
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestGrouper_RowTooShort(t *testing.T) {
	g := newChoiceGrouper(t, [][]string{
		{"s1", "a,b", "a"},
		{"s1", "a,b"},
	})
	_, err := g.Next()
	assert.ErrorIs(t, err, ErrRowTooShort)
}

func TestGrouper_DecodeErrors(t *testing.T) {
	t.Run("row-level", func(t *testing.T) {
		g := newChoiceGrouper(t, [][]string{
			{"s1", "a,b", "c"},
		})
		_, err := g.Next()
		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, RoleRow, de.Role)
		assert.Equal(t, 1, de.Row)
		assert.ErrorIs(t, err, ErrChoiceNotInMenu)
	})

	t.Run("subject-level", func(t *testing.T) {
		g, err := NewGrouper[string, domain.ChoiceObservation](
			&sliceSource{rows: [][]string{{"s1", "bad", "a", "a"}}},
			[]string{"subject", "group", "menu", "choice"}, "subject", domain.NewAlternatives(),
			groupDecoder{}, ChoiceRowDecoder{},
		)
		require.NoError(t, err)
		_, err = g.Next()
		var de *DecodeError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, RoleSubject, de.Role)
	})

	t.Run("no partial subject after failure", func(t *testing.T) {
		g := newChoiceGrouper(t, [][]string{
			{"s1", "a,b", "a"},
			{"s1", "a,b", ",,"},
		})
		names, err := collectNames(g)
		assert.Empty(t, names)
		assert.ErrorIs(t, err, ErrEmptyAlternativeTag)
	})
}

func TestGrouper_StreamError(t *testing.T) {
	boom := errors.New("connection reset")
	g, err := NewGrouper[struct{}, domain.ChoiceObservation](
		&sliceSource{rows: [][]string{{"s1", "a", "a"}}, err: boom},
		choiceHeader, "subject", domain.NewAlternatives(),
		NoSubjectData{}, ChoiceRowDecoder{},
	)
	require.NoError(t, err)
	_, err = g.Next()
	assert.ErrorIs(t, err, boom)
}

func TestGrouper_AlternativeSnapshot(t *testing.T) {
	g := newChoiceGrouper(t, [][]string{
		{"s1", "a,b", "a"},
		{"s2", "c,d", "c"},
	})

	// s1 closes only after s2's first row has interned c and d.
	s1, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, s1.Alternatives)

	s2, err := g.Next()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, s2.Alternatives)
	assert.Equal(t, domain.SetOf(2, 3), s2.Rows[0].Menu)
}

func TestReadChoiceSubjects(t *testing.T) {
	input := strings.Join([]string{
		"subject,menu,default,choice",
		`s1,"a, b",,a`,
		`s1,"a,b,c",b,`,
		`s2,"b,c",,c`,
	}, "\n")

	subjects, alts, err := ReadChoiceSubjects(strings.NewReader(input), Options{})
	require.NoError(t, err)
	require.Len(t, subjects, 2)
	assert.Equal(t, []string{"a", "b", "c"}, alts)

	assert.Equal(t, "s1", subjects[0].Name)
	require.Len(t, subjects[0].Choices, 2)
	require.NotNil(t, subjects[0].Choices[1].Default)
	assert.Equal(t, domain.Alt(1), *subjects[0].Choices[1].Default)
	assert.True(t, subjects[0].Choices[1].IsDeferral())

	assert.Equal(t, "s2", subjects[1].Name)
}

func TestReadChoiceSubjects_ForcedChoice(t *testing.T) {
	input := "subject,menu,choice\ns1,\"a,b\",\n"
	_, _, err := ReadChoiceSubjects(strings.NewReader(input), Options{ForcedChoice: true})
	assert.ErrorIs(t, err, ErrDeferralNotAllowed)
}

func TestReadChoiceSubjects_CustomKey(t *testing.T) {
	input := "participant,menu,choice\np1,a,a\np2,a,a\n"
	subjects, _, err := ReadChoiceSubjects(strings.NewReader(input), Options{KeyColumn: "participant"})
	require.NoError(t, err)
	assert.Len(t, subjects, 2)

	_, _, err = ReadChoiceSubjects(strings.NewReader(input), Options{})
	assert.ErrorIs(t, err, ErrNoKeyColumn)
}

func TestParseAltSet(t *testing.T) {
	alts := domain.NewAlternatives("x")
	set, err := ParseAltSet(alts, " y , x ")
	require.NoError(t, err)
	assert.Equal(t, domain.SetOf(0, 1), set)
	assert.Equal(t, []string{"x", "y"}, alts.Snapshot())

	empty, err := ParseAltSet(alts, "   ")
	require.NoError(t, err)
	assert.True(t, empty.IsEmpty())
}
