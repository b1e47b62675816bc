// Package theory holds the fixed catalog of choice theories, their candidate
// instances, and the enumeration of every instance of a theory for a given
// number of alternatives.
package theory

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/Harshitk-cp/prest/internal/codec"
)

// Tag is the wire discriminator of a theory variant. The numeric order is the
// canonical presentation order.
type Tag uint8

const (
	TagPreorderMaximization Tag = iota
	TagUndominatedChoice
	TagTopTwo
	TagSequentiallyRationalizableChoice
)

// Flag is a tri-state parameter: unconstrained, required, or forbidden.
type Flag uint8

const (
	FlagAny Flag = iota
	FlagYes
	FlagNo
)

func (f Flag) String() string {
	switch f {
	case FlagYes:
		return "true"
	case FlagNo:
		return "false"
	default:
		return "any"
	}
}

// admits reports whether a structure with property has satisfies the flag.
func (f Flag) admits(has bool) bool {
	switch f {
	case FlagYes:
		return has
	case FlagNo:
		return !has
	default:
		return true
	}
}

// Theory is one variant of the closed theory catalog. Values are comparable with ==.
type Theory interface {
	Tag() Tag
	String() string
	encodeParams(e *codec.Encoder)
}

// PreorderMaximization chooses the greatest elements of the menu under a preorder.
type PreorderMaximization struct {
	Strict Flag
	Total  Flag
}

// UndominatedChoice chooses the menu elements no other menu element strictly beats.
type UndominatedChoice struct {
	Strict bool
}

// TopTwo chooses the two best menu elements under a linear order.
type TopTwo struct{}

// SequentiallyRationalizableChoice is in the catalog but has no instance space.
type SequentiallyRationalizableChoice struct{}

// StrictTotalPreorderMaximization is utility maximization over linear orders.
// It is the only theory that needs no precomputed preorders.
var StrictTotalPreorderMaximization Theory = PreorderMaximization{Strict: FlagYes, Total: FlagYes}

func (PreorderMaximization) Tag() Tag {
	return TagPreorderMaximization
}

func (UndominatedChoice) Tag() Tag {
	return TagUndominatedChoice
}

func (TopTwo) Tag() Tag {
	return TagTopTwo
}

func (SequentiallyRationalizableChoice) Tag() Tag {
	return TagSequentiallyRationalizableChoice
}

const (
	namePreorderMaximization             = "preorder_maximization"
	nameUndominatedChoice                = "undominated_choice"
	nameTopTwo                           = "top_two"
	nameSequentiallyRationalizableChoice = "sequentially_rationalizable_choice"
)

func (t PreorderMaximization) String() string {
	return fmt.Sprintf("%s{strict=%s,total=%s}", namePreorderMaximization, t.Strict, t.Total)
}

func (t UndominatedChoice) String() string {
	return fmt.Sprintf("%s{strict=%t}", nameUndominatedChoice, t.Strict)
}

func (TopTwo) String() string {
	return nameTopTwo
}

func (SequentiallyRationalizableChoice) String() string {
	return nameSequentiallyRationalizableChoice
}

func encodeFlag(e *codec.Encoder, f Flag) {
	e.Option(f != FlagAny)
	if f != FlagAny {
		e.Bool(f == FlagYes)
	}
}

func decodeFlag(d *codec.Decoder) Flag {
	if !d.Option() {
		return FlagAny
	}
	if d.Bool() {
		return FlagYes
	}
	return FlagNo
}

func (t PreorderMaximization) encodeParams(e *codec.Encoder) {
	encodeFlag(e, t.Strict)
	encodeFlag(e, t.Total)
}

func (t UndominatedChoice) encodeParams(e *codec.Encoder) {
	e.Bool(t.Strict)
}

func (TopTwo) encodeParams(*codec.Encoder) {}

func (SequentiallyRationalizableChoice) encodeParams(*codec.Encoder) {}

// Encode writes the tag byte followed by the variant's parameters.
func Encode(e *codec.Encoder, t Theory) {
	e.Uint8(uint8(t.Tag()))
	t.encodeParams(e)
}

// Decode reads a theory written by Encode.
func Decode(d *codec.Decoder) Theory {
	tag := Tag(d.Uint8())
	if d.Err() != nil {
		return nil
	}
	switch tag {
	case TagPreorderMaximization:
		return PreorderMaximization{Strict: decodeFlag(d), Total: decodeFlag(d)}
	case TagUndominatedChoice:
		return UndominatedChoice{Strict: d.Bool()}
	case TagTopTwo:
		return TopTwo{}
	case TagSequentiallyRationalizableChoice:
		return SequentiallyRationalizableChoice{}
	default:
		d.Fail(fmt.Errorf("%w: theory tag %d", codec.ErrInvalidTag, tag))
		return nil
	}
}

// Compare orders theories by tag, then by encoded parameters.
func Compare(a, b Theory) int {
	if a.Tag() != b.Tag() {
		if a.Tag() < b.Tag() {
			return -1
		}
		return 1
	}
	pa, _ := codec.Marshal(a.encodeParams)
	pb, _ := codec.Marshal(b.encodeParams)
	return bytes.Compare(pa, pb)
}

// Catalog lists one representative of every supported parameterization.
func Catalog() []Theory {
	return []Theory{
		StrictTotalPreorderMaximization,
		PreorderMaximization{Strict: FlagYes, Total: FlagAny},
		PreorderMaximization{Strict: FlagAny, Total: FlagYes},
		PreorderMaximization{Strict: FlagAny, Total: FlagAny},
		UndominatedChoice{Strict: true},
		UndominatedChoice{Strict: false},
		TopTwo{},
		SequentiallyRationalizableChoice{},
	}
}

var ErrInvalidTheory = errors.New("invalid theory")

// Parse reads the form produced by String, e.g. "preorder_maximization{strict=true,total=any}".
// Omitted parameters default to "any" (or false for boolean parameters).
func Parse(s string) (Theory, error) {
	name, params, err := splitTheory(strings.TrimSpace(s))
	if err != nil {
		return nil, err
	}

	switch name {
	case namePreorderMaximization:
		t := PreorderMaximization{}
		for k, v := range params {
			f, err := parseFlag(v)
			if err != nil {
				return nil, fmt.Errorf("%w: %s: %v", ErrInvalidTheory, s, err)
			}
			switch k {
			case "strict":
				t.Strict = f
			case "total":
				t.Total = f
			default:
				return nil, fmt.Errorf("%w: %s: unknown parameter %q", ErrInvalidTheory, s, k)
			}
		}
		return t, nil

	case nameUndominatedChoice:
		t := UndominatedChoice{}
		for k, v := range params {
			if k != "strict" {
				return nil, fmt.Errorf("%w: %s: unknown parameter %q", ErrInvalidTheory, s, k)
			}
			switch v {
			case "true":
				t.Strict = true
			case "false":
			default:
				return nil, fmt.Errorf("%w: %s: strict must be true or false", ErrInvalidTheory, s)
			}
		}
		return t, nil

	case nameTopTwo, nameSequentiallyRationalizableChoice:
		if len(params) > 0 {
			return nil, fmt.Errorf("%w: %s takes no parameters", ErrInvalidTheory, name)
		}
		if name == nameTopTwo {
			return TopTwo{}, nil
		}
		return SequentiallyRationalizableChoice{}, nil
	}
	return nil, fmt.Errorf("%w: unknown theory %q", ErrInvalidTheory, name)
}

func splitTheory(s string) (string, map[string]string, error) {
	open := strings.IndexByte(s, '{')
	if open < 0 {
		return s, nil, nil
	}
	if !strings.HasSuffix(s, "}") {
		return "", nil, fmt.Errorf("%w: %q: missing closing brace", ErrInvalidTheory, s)
	}
	name := s[:open]
	body := strings.TrimSpace(s[open+1 : len(s)-1])
	params := make(map[string]string)
	if body == "" {
		return name, params, nil
	}
	for _, kv := range strings.Split(body, ",") {
		k, v, ok := strings.Cut(kv, "=")
		if !ok {
			return "", nil, fmt.Errorf("%w: %q: parameter %q has no value", ErrInvalidTheory, s, kv)
		}
		params[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return name, params, nil
}

func parseFlag(v string) (Flag, error) {
	switch v {
	case "true":
		return FlagYes, nil
	case "false":
		return FlagNo, nil
	case "any", "":
		return FlagAny, nil
	}
	return FlagAny, fmt.Errorf("flag must be true, false or any, got %q", v)
}
