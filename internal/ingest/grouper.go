// Package ingest reconstructs per-subject records from row-ordered tabular input.
package ingest

import (
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"github.com/Harshitk-cp/prest/internal/domain"
)

var (
	ErrColumnOverlap        = errors.New("column claimed by both subject and row data")
	ErrNoKeyColumn          = errors.New("subject key column not found")
	ErrMissingColumn        = errors.New("required column not found")
	ErrRowTooShort          = errors.New("row too short")
	ErrSubjectInconsistent  = errors.New("subject-level data differs between rows of the same subject")
	ErrSubjectDiscontiguous = errors.New("rows of the subject are not contiguous")
)

// Role tells whether a decode failure happened in subject-level or row-level columns.
type Role string

const (
	RoleSubject Role = "subject"
	RoleRow     Role = "row"
)

// DecodeError is a per-cell parse failure at a given data row (1-based).
type DecodeError struct {
	Role Role
	Row  int
	Err  error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("row %d: invalid %s data: %v", e.Row, e.Role, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// ConsistencyError identifies the subject that broke a grouping invariant.
type ConsistencyError struct {
	Subject string
	Row     int
	Err     error
}

func (e *ConsistencyError) Error() string {
	return fmt.Sprintf("row %d: subject %q: %v", e.Row, e.Subject, e.Err)
}

func (e *ConsistencyError) Unwrap() error {
	return e.Err
}

// RowSource yields rows already split into cells. Next returns io.EOF after the last row.
type RowSource interface {
	Next() ([]string, error)
}

// Subject is a completed group of rows sharing a key.
type Subject[S any, R any] struct {
	Name         string
	Alternatives []string
	Data         S
	Rows         []R
}

// Layout maps decoder columns to header positions.
type Layout struct {
	Key     int
	Subject []int
	Row     []int
	width   int
}

// optionalMissing marks an optional column absent from the header.
const optionalMissing = -1

// NewLayout validates the column configuration against a header.
func NewLayout(header []string, keyColumn string, subjectCols, rowCols []Column) (*Layout, error) {
	positions := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.TrimSpace(h)
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	claimed := make(map[string]bool, len(subjectCols))
	for _, c := range subjectCols {
		claimed[c.Name] = true
	}
	for _, c := range rowCols {
		if claimed[c.Name] {
			return nil, fmt.Errorf("%w: %q", ErrColumnOverlap, c.Name)
		}
	}

	key, ok := positions[keyColumn]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoKeyColumn, keyColumn)
	}

	l := &Layout{Key: key, width: key + 1}
	resolve := func(cols []Column) ([]int, error) {
		out := make([]int, 0, len(cols))
		for _, c := range cols {
			ix, ok := positions[c.Name]
			if !ok {
				if c.Optional {
					out = append(out, optionalMissing)
					continue
				}
				return nil, fmt.Errorf("%w: %q", ErrMissingColumn, c.Name)
			}
			if ix+1 > l.width {
				l.width = ix + 1
			}
			out = append(out, ix)
		}
		return out, nil
	}

	var err error
	if l.Subject, err = resolve(subjectCols); err != nil {
		return nil, err
	}
	if l.Row, err = resolve(rowCols); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Layout) cells(row []string, ixs []int) []string {
	out := make([]string, len(ixs))
	for i, ix := range ixs {
		if ix != optionalMissing {
			out[i] = row[ix]
		}
	}
	return out
}

type groupState int

const (
	stateIdle groupState = iota
	stateOpen
	stateDone
)

// Grouper turns a row stream into completed subjects, in the order subjects first
// appear. Rows of one subject must be contiguous and agree on subject-level data.
// The first error is terminal; every later call to Next returns it again.
type Grouper[S comparable, R any] struct {
	src     RowSource
	layout  *Layout
	subject RowDecoder[S]
	row     RowDecoder[R]
	alts    *domain.Alternatives

	state   groupState
	current *Subject[S, R]
	closed  map[string]struct{}
	rowNum  int
	err     error
}

// NewGrouper validates the configuration against header before any row is read.
// alts is the label table shared by all decoders for this pass.
func NewGrouper[S comparable, R any](
	src RowSource,
	header []string,
	keyColumn string,
	alts *domain.Alternatives,
	subject RowDecoder[S],
	row RowDecoder[R],
) (*Grouper[S, R], error) {
	layout, err := NewLayout(header, keyColumn, subject.Columns(), row.Columns())
	if err != nil {
		return nil, err
	}
	return &Grouper[S, R]{
		src:     src,
		layout:  layout,
		subject: subject,
		row:     row,
		alts:    alts,
		closed:  make(map[string]struct{}),
	}, nil
}

// Next returns the next completed subject, or io.EOF once the input is exhausted.
func (g *Grouper[S, R]) Next() (*Subject[S, R], error) {
	if g.err != nil {
		return nil, g.err
	}
	if g.state == stateDone {
		return nil, io.EOF
	}

	for {
		cells, err := g.src.Next()
		if errors.Is(err, io.EOF) {
			g.state = stateDone
			if g.current == nil {
				return nil, io.EOF
			}
			return g.close(), nil
		}
		if err != nil {
			return nil, g.fail(fmt.Errorf("read row %d: %w", g.rowNum+1, err))
		}
		g.rowNum++

		if len(cells) < g.layout.width {
			return nil, g.fail(fmt.Errorf("%w: row %d has %d cells, need %d", ErrRowTooShort, g.rowNum, len(cells), g.layout.width))
		}

		key := cells[g.layout.Key]

		data, err := g.subject.Decode(g.alts, g.layout.cells(cells, g.layout.Subject))
		if err != nil {
			return nil, g.fail(&DecodeError{Role: RoleSubject, Row: g.rowNum, Err: err})
		}

		rowValue, err := g.row.Decode(g.alts, g.layout.cells(cells, g.layout.Row))
		if err != nil {
			return nil, g.fail(&DecodeError{Role: RoleRow, Row: g.rowNum, Err: err})
		}

		switch {
		case g.state == stateIdle:
			g.open(key, data, rowValue)

		case key == g.current.Name:
			if data != g.current.Data {
				return nil, g.fail(&ConsistencyError{Subject: key, Row: g.rowNum, Err: ErrSubjectInconsistent})
			}
			g.current.Rows = append(g.current.Rows, rowValue)

		default:
			if _, seen := g.closed[key]; seen {
				return nil, g.fail(&ConsistencyError{Subject: key, Row: g.rowNum, Err: ErrSubjectDiscontiguous})
			}
			done := g.close()
			g.open(key, data, rowValue)
			return done, nil
		}
	}
}

// All adapts Next to a range-over-func sequence. Iteration stops after the first error.
func (g *Grouper[S, R]) All() iter.Seq2[*Subject[S, R], error] {
	return func(yield func(*Subject[S, R], error) bool) {
		for {
			s, err := g.Next()
			if errors.Is(err, io.EOF) {
				return
			}
			if !yield(s, err) || err != nil {
				return
			}
		}
	}
}

// Alternatives returns the shared label table.
func (g *Grouper[S, R]) Alternatives() *domain.Alternatives {
	return g.alts
}

func (g *Grouper[S, R]) open(key string, data S, row R) {
	g.current = &Subject[S, R]{Name: key, Data: data, Rows: []R{row}}
	g.state = stateOpen
}

func (g *Grouper[S, R]) close() *Subject[S, R] {
	s := g.current
	s.Alternatives = g.alts.Snapshot()
	g.closed[s.Name] = struct{}{}
	g.current = nil
	return s
}

func (g *Grouper[S, R]) fail(err error) error {
	g.err = err
	g.state = stateDone
	g.current = nil
	return err
}
