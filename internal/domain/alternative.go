package domain

import (
	"errors"
	"math/bits"
	"strings"
)

// MaxAlternatives is the largest number of distinct alternatives an AltSet can hold.
const MaxAlternatives = 64

var ErrTooManyAlternatives = errors.New("too many alternatives")

// Alt identifies an alternative within one ingestion run.
type Alt uint32

// AltSet is a bitset of alternatives.
type AltSet uint64

func EmptySet() AltSet {
	return 0
}

func Singleton(a Alt) AltSet {
	return AltSet(1) << a
}

func SetOf(alts ...Alt) AltSet {
	var s AltSet
	for _, a := range alts {
		s |= Singleton(a)
	}
	return s
}

// FullSet returns the set {0, ..., n-1}.
func FullSet(n int) AltSet {
	if n >= MaxAlternatives {
		return ^AltSet(0)
	}
	return AltSet(1)<<uint(n) - 1
}

func (s AltSet) Contains(a Alt) bool {
	return a < MaxAlternatives && s&Singleton(a) != 0
}

func (s AltSet) Add(a Alt) AltSet {
	return s | Singleton(a)
}

func (s AltSet) Intersect(o AltSet) AltSet {
	return s & o
}

func (s AltSet) IsSubsetOf(o AltSet) bool {
	return s&^o == 0
}

func (s AltSet) IsEmpty() bool {
	return s == 0
}

func (s AltSet) Size() int {
	return bits.OnesCount64(uint64(s))
}

// Alts returns the members in ascending order.
func (s AltSet) Alts() []Alt {
	out := make([]Alt, 0, s.Size())
	for rest := uint64(s); rest != 0; rest &= rest - 1 {
		out = append(out, Alt(bits.TrailingZeros64(rest)))
	}
	return out
}

// Format renders the set with the given labels, comma separated.
func (s AltSet) Format(labels []string) string {
	names := make([]string, 0, s.Size())
	for _, a := range s.Alts() {
		if int(a) < len(labels) {
			names = append(names, labels[a])
		}
	}
	return strings.Join(names, ",")
}

// Alternatives is the label interning table shared by all decoders of one ingestion pass.
// Ids are assigned in first-seen order and never reused.
type Alternatives struct {
	labels []string
	index  map[string]Alt
}

func NewAlternatives(labels ...string) *Alternatives {
	t := &Alternatives{index: make(map[string]Alt)}
	for _, l := range labels {
		_, _ = t.Intern(l)
	}
	return t
}

// Intern returns the id for label, assigning the next free id if the label is new.
func (t *Alternatives) Intern(label string) (Alt, error) {
	if t.index == nil {
		t.index = make(map[string]Alt)
	}
	if a, ok := t.index[label]; ok {
		return a, nil
	}
	if len(t.labels) >= MaxAlternatives {
		return 0, ErrTooManyAlternatives
	}
	a := Alt(len(t.labels))
	t.labels = append(t.labels, label)
	t.index[label] = a
	return a, nil
}

func (t *Alternatives) Len() int {
	return len(t.labels)
}

// Snapshot copies the current label table.
func (t *Alternatives) Snapshot() []string {
	out := make([]string, len(t.labels))
	copy(out, t.labels)
	return out
}
