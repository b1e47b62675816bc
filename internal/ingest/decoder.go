package ingest

import (
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/prest/internal/domain"
)

// Column names a column a decoder reads. Optional columns may be absent from the
// header; their cells are then decoded as empty strings.
type Column struct {
	Name     string
	Optional bool
}

// RowDecoder turns the cells of its columns, in the order Columns returns them,
// into a value. Decoding may intern new alternative labels into alts.
type RowDecoder[T any] interface {
	Columns() []Column
	Decode(alts *domain.Alternatives, cells []string) (T, error)
}

var (
	ErrChoiceNotInMenu     = domain.ErrChoiceNotInMenu
	ErrDefaultNotInMenu    = domain.ErrDefaultNotInMenu
	ErrMultipleDefaults    = errors.New("default must name a single alternative")
	ErrDeferralNotAllowed  = errors.New("empty choice is not allowed in forced-choice mode")
	ErrEmptyAlternativeTag = errors.New("empty alternative label")
)

// NoSubjectData is the subject-level decoder for files without subject-level columns.
type NoSubjectData struct{}

func (NoSubjectData) Columns() []Column {
	return nil
}

func (NoSubjectData) Decode(*domain.Alternatives, []string) (struct{}, error) {
	return struct{}{}, nil
}

// ParseAltSet decodes a comma-separated list of alternative labels, interning
// unseen labels into alts. Blank cells decode to the empty set.
func ParseAltSet(alts *domain.Alternatives, cell string) (domain.AltSet, error) {
	trimmed := strings.TrimSpace(cell)
	if trimmed == "" {
		return domain.EmptySet(), nil
	}

	var set domain.AltSet
	for _, part := range strings.Split(trimmed, ",") {
		label := strings.TrimSpace(part)
		if label == "" {
			return 0, ErrEmptyAlternativeTag
		}
		a, err := alts.Intern(label)
		if err != nil {
			return 0, err
		}
		set = set.Add(a)
	}
	return set, nil
}

const (
	ColumnMenu    = "menu"
	ColumnDefault = "default"
	ColumnChoice  = "choice"
)

// ChoiceRowDecoder decodes the menu, default and choice columns of one observation.
type ChoiceRowDecoder struct {
	ForcedChoice bool
}

func (ChoiceRowDecoder) Columns() []Column {
	return []Column{
		{Name: ColumnMenu},
		{Name: ColumnDefault, Optional: true},
		{Name: ColumnChoice},
	}
}

func (d ChoiceRowDecoder) Decode(alts *domain.Alternatives, cells []string) (domain.ChoiceObservation, error) {
	var obs domain.ChoiceObservation

	menu, err := ParseAltSet(alts, cells[0])
	if err != nil {
		return obs, &CellError{Column: ColumnMenu, Err: err}
	}

	def, err := ParseAltSet(alts, cells[1])
	if err != nil {
		return obs, &CellError{Column: ColumnDefault, Err: err}
	}

	choice, err := ParseAltSet(alts, cells[2])
	if err != nil {
		return obs, &CellError{Column: ColumnChoice, Err: err}
	}

	obs.Menu = menu
	obs.Choice = choice

	switch def.Size() {
	case 0:
	case 1:
		a := def.Alts()[0]
		if !menu.Contains(a) {
			return obs, &CellError{Column: ColumnDefault, Err: ErrDefaultNotInMenu}
		}
		obs.Default = &a
	default:
		return obs, &CellError{Column: ColumnDefault, Err: ErrMultipleDefaults}
	}

	if !choice.IsSubsetOf(menu) {
		return obs, &CellError{Column: ColumnChoice, Err: ErrChoiceNotInMenu}
	}
	if d.ForcedChoice && choice.IsEmpty() {
		return obs, &CellError{Column: ColumnChoice, Err: ErrDeferralNotAllowed}
	}
	return obs, nil
}

// CellError reports which column of a row failed to decode.
type CellError struct {
	Column string
	Err    error
}

func (e *CellError) Error() string {
	return fmt.Sprintf("column %q: %v", e.Column, e.Err)
}

func (e *CellError) Unwrap() error {
	return e.Err
}
