package theory

import (
	"math/bits"

	"github.com/Harshitk-cp/prest/internal/domain"
)

// MaxPrecomputed is the largest number of alternatives for which preorders are
// precomputed. There are 9,535,241 preorders on seven labelled elements.
const MaxPrecomputed = 7

// Preorder is a reflexive, transitive relation on {0, ..., N-1}.
// up[i] has bit j set when i ≤ j, that is when j is at least as good as i.
type Preorder struct {
	n  uint8
	up [MaxPrecomputed]uint8
}

// Size is the number of alternatives the preorder ranks.
func (p Preorder) Size() int {
	return int(p.n)
}

func (p Preorder) leq(i, j int) bool {
	return p.up[i]>>uint(j)&1 == 1
}

// Upset returns the alternatives at least as good as a.
func (p Preorder) Upset(a domain.Alt) domain.AltSet {
	return domain.AltSet(p.up[a])
}

// IsAntisymmetric reports whether no two distinct alternatives are indifferent.
func (p Preorder) IsAntisymmetric() bool {
	for i := 0; i < int(p.n); i++ {
		for j := i + 1; j < int(p.n); j++ {
			if p.leq(i, j) && p.leq(j, i) {
				return false
			}
		}
	}
	return true
}

// IsTotal reports whether every pair of alternatives is comparable.
func (p Preorder) IsTotal() bool {
	for i := 0; i < int(p.n); i++ {
		for j := i + 1; j < int(p.n); j++ {
			if !p.leq(i, j) && !p.leq(j, i) {
				return false
			}
		}
	}
	return true
}

// Greatest returns the menu elements at least as good as every menu element.
// The result is empty when the menu has no greatest element.
func (p Preorder) Greatest(menu domain.AltSet) domain.AltSet {
	choice := menu
	for _, a := range menu.Alts() {
		if int(a) >= int(p.n) {
			return domain.EmptySet()
		}
		choice &= p.Upset(a)
	}
	return choice
}

// Undominated returns the menu elements not strictly beaten by any menu element.
func (p Preorder) Undominated(menu domain.AltSet) domain.AltSet {
	var choice domain.AltSet
	for _, x := range menu.Alts() {
		if int(x) >= int(p.n) {
			continue
		}
		dominated := false
		for _, y := range menu.Intersect(p.Upset(x)).Alts() {
			if !p.leq(int(y), int(x)) {
				dominated = true
				break
			}
		}
		if !dominated {
			choice = choice.Add(x)
		}
	}
	return choice
}

// extend generates every preorder on n+1 elements whose restriction to the first
// n elements is p. The new element x is placed above the down-set D and below
// the up-set U, which is transitive exactly when every d in D is below every u in U.
func (p Preorder) extend(visit func(Preorder)) {
	n := int(p.n)
	full := uint8(1)<<uint(n) - 1
	x := uint8(1) << uint(n)

	var upsets, downsets []uint8
	for s := 0; s <= int(full); s++ {
		set := uint8(s)
		if p.isUpset(set) {
			upsets = append(upsets, set)
		}
		if p.isDownset(set) {
			downsets = append(downsets, set)
		}
	}

	for _, d := range downsets {
		// every u in U must be above every element of D
		above := full
		for rest := d; rest != 0; rest &= rest - 1 {
			above &= p.up[bits.TrailingZeros8(rest)]
		}
		for _, u := range upsets {
			if u&^above != 0 {
				continue
			}
			q := Preorder{n: p.n + 1, up: p.up}
			for i := 0; i < n; i++ {
				if d>>uint(i)&1 == 1 {
					q.up[i] |= x
				}
			}
			q.up[n] = u | x
			visit(q)
		}
	}
}

func (p Preorder) isUpset(s uint8) bool {
	for rest := s; rest != 0; rest &= rest - 1 {
		if p.up[bits.TrailingZeros8(rest)]&^s != 0 {
			return false
		}
	}
	return true
}

func (p Preorder) isDownset(s uint8) bool {
	for i := 0; i < int(p.n); i++ {
		if s>>uint(i)&1 == 0 && p.up[i]&s != 0 {
			return false
		}
	}
	return true
}
