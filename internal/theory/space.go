package theory

import (
	"errors"
	"fmt"

	"github.com/Harshitk-cp/prest/internal/domain"
)

// MaxPermutationAlternatives bounds the theories enumerated over linear orders.
const MaxPermutationAlternatives = 10

var ErrUnsupportedTheory = errors.New("theory has no instance space")

// Space enumerates the instances of catalog theories. Preorder-based theories
// read the precomputed cache, which must already hold the requested size.
// A Space holds no mutable state and may be used from many goroutines.
type Space struct {
	pre *Precomputed
}

func NewSpace(pre *Precomputed) *Space {
	return &Space{pre: pre}
}

// Traverse calls visit with every instance of t over altCount alternatives.
// The instance passed to visit is only valid for the duration of the call.
// Enumeration stops at the first error returned by visit.
func (s *Space) Traverse(t Theory, altCount int, visit func(Instance) error) error {
	switch t := t.(type) {
	case PreorderMaximization:
		if t.Strict == FlagYes && t.Total == FlagYes {
			return traversePermutations(altCount, ruleTop, visit)
		}
		return s.traversePreorders(altCount, ruleGreatest, func(p Preorder) bool {
			return t.Strict.admits(p.IsAntisymmetric()) && t.Total.admits(p.IsTotal())
		}, visit)

	case UndominatedChoice:
		return s.traversePreorders(altCount, ruleUndominated, func(p Preorder) bool {
			return !t.Strict || p.IsAntisymmetric()
		}, visit)

	case TopTwo:
		return traversePermutations(altCount, ruleTopTwo, visit)

	case SequentiallyRationalizableChoice:
		return fmt.Errorf("%w: %s", ErrUnsupportedTheory, t)

	default:
		return fmt.Errorf("%w: %v", ErrUnsupportedTheory, t)
	}
}

func (s *Space) traversePreorders(altCount int, r rule, keep func(Preorder) bool, visit func(Instance) error) error {
	if altCount > MaxPrecomputed {
		return fmt.Errorf("%w: %d exceeds the precomputation limit of %d", ErrTooManyAlternatives, altCount, MaxPrecomputed)
	}
	preorders, err := s.pre.Preorders(altCount)
	if err != nil {
		return err
	}

	inst := &PreorderInstance{rule: r}
	for _, p := range preorders {
		if !keep(p) {
			continue
		}
		inst.Preorder = p
		if err := visit(inst); err != nil {
			return err
		}
	}
	return nil
}

// traversePermutations walks every ranking of altCount alternatives with Heap's algorithm.
func traversePermutations(altCount int, r rule, visit func(Instance) error) error {
	if altCount > MaxPermutationAlternatives {
		return fmt.Errorf("%w: %d exceeds the linear-order limit of %d", ErrTooManyAlternatives, altCount, MaxPermutationAlternatives)
	}

	ranking := make([]domain.Alt, altCount)
	for i := range ranking {
		ranking[i] = domain.Alt(i)
	}
	inst := &LinearOrder{Ranking: ranking, rule: r}
	if err := visit(inst); err != nil {
		return err
	}

	c := make([]int, altCount)
	for i := 0; i < altCount; {
		if c[i] < i {
			if i%2 == 0 {
				ranking[0], ranking[i] = ranking[i], ranking[0]
			} else {
				ranking[c[i]], ranking[i] = ranking[i], ranking[c[i]]
			}
			if err := visit(inst); err != nil {
				return err
			}
			c[i]++
			i = 0
		} else {
			c[i] = 0
			i++
		}
	}
	return nil
}
