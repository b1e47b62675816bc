package theory

import (
	"errors"
	"fmt"

	"github.com/Harshitk-cp/prest/internal/domain"
)

var ErrDeferralInForcedChoice = errors.New("observed deferral in forced-choice mode")

// Instance is one concrete parameterization of a theory.
type Instance interface {
	// Predict returns the choice the instance makes from menu. Defaults do not
	// influence any theory in the catalog.
	Predict(menu domain.AltSet, def *domain.Alt) domain.AltSet
	// Score is the error of the instance's predictions against obs; lower is better.
	Score(forcedChoice bool, obs []domain.ChoiceObservation) (float64, error)
	// MarshalBinary serializes the instance: a rule byte, the alternative count,
	// then the rule's structure.
	MarshalBinary() ([]byte, error)
}

// rule identifies how an instance turns its structure into a choice.
type rule uint8

const (
	ruleGreatest rule = iota
	ruleUndominated
	ruleTop
	ruleTopTwo
)

// mismatches counts the observations whose observed choice differs from the prediction.
func mismatches(inst Instance, forcedChoice bool, obs []domain.ChoiceObservation) (float64, error) {
	var errs int
	for i, o := range obs {
		if forcedChoice && o.IsDeferral() {
			return 0, fmt.Errorf("observation %d: %w", i, ErrDeferralInForcedChoice)
		}
		if inst.Predict(o.Menu, o.Default) != o.Choice {
			errs++
		}
	}
	return float64(errs), nil
}

// PreorderInstance chooses from a menu by a preorder.
type PreorderInstance struct {
	Preorder Preorder
	rule     rule
}

func (p *PreorderInstance) Predict(menu domain.AltSet, _ *domain.Alt) domain.AltSet {
	if p.rule == ruleUndominated {
		return p.Preorder.Undominated(menu)
	}
	return p.Preorder.Greatest(menu)
}

func (p *PreorderInstance) Score(forcedChoice bool, obs []domain.ChoiceObservation) (float64, error) {
	return mismatches(p, forcedChoice, obs)
}

func (p *PreorderInstance) MarshalBinary() ([]byte, error) {
	n := p.Preorder.Size()
	out := make([]byte, 0, 2+n)
	out = append(out, byte(p.rule), byte(n))
	out = append(out, p.Preorder.up[:n]...)
	return out, nil
}

// LinearOrder chooses from a menu by a strict ranking, best first.
type LinearOrder struct {
	Ranking []domain.Alt
	rule    rule
}

func (l *LinearOrder) Predict(menu domain.AltSet, _ *domain.Alt) domain.AltSet {
	want := 1
	if l.rule == ruleTopTwo {
		want = 2
	}

	var choice domain.AltSet
	taken := 0
	for _, a := range l.Ranking {
		if taken == want {
			break
		}
		if menu.Contains(a) {
			choice = choice.Add(a)
			taken++
		}
	}
	return choice
}

func (l *LinearOrder) Score(forcedChoice bool, obs []domain.ChoiceObservation) (float64, error) {
	return mismatches(l, forcedChoice, obs)
}

func (l *LinearOrder) MarshalBinary() ([]byte, error) {
	out := make([]byte, 0, 2+len(l.Ranking))
	out = append(out, byte(l.rule), byte(len(l.Ranking)))
	for _, a := range l.Ranking {
		out = append(out, byte(a))
	}
	return out, nil
}
