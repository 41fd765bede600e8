package fus

// Mask is the C2 consideration mask: a bitmap over solvable ids recording which solvables the SAT
// wrapper is allowed to consider at all (mirrors libsolv's pool->considered).  A bit set means the
// solvable is eligible; clear means it is invisible to the solver, as if it did not exist.
//
// The exclusion baseline (built once by [NewExclusionBaseline]) and the consideration mask used
// during a single solve attempt are both represented by Mask; the driver clones the baseline before
// each attempt and further narrows the clone (e.g. to disable non-default unrelated modules while
// trying one transaction), discarding the narrowed copy afterward. This clone-narrow-discard
// discipline is what spec.md's Design Notes call the "resolve context" pattern.
type Mask struct {
	bits []bool
}

// NewMask returns a [Mask] sized for n solvables, with every bit set (nothing excluded).
func NewMask(n int) *Mask {
	m := &Mask{bits: make([]bool, n)}
	m.SetAll()
	return m
}

// Clone returns an independent copy of m.
func (m *Mask) Clone() *Mask {
	cp := &Mask{bits: make([]bool, len(m.bits))}
	copy(cp.bits, m.bits)
	return cp
}

// CloneFrom replaces m's bits with a copy of other's, resizing m if necessary (mirrors libsolv's
// map_init_clone used to reset pool->considered from the exclusion baseline before every attempt).
func (m *Mask) CloneFrom(other *Mask) {
	if cap(m.bits) < len(other.bits) {
		m.bits = make([]bool, len(other.bits))
	}
	m.bits = m.bits[:len(other.bits)]
	copy(m.bits, other.bits)
}

// SetAll marks every solvable eligible.
func (m *Mask) SetAll() {
	for i := range m.bits {
		m.bits[i] = true
	}
}

// Set marks id eligible.
func (m *Mask) Set(id SolvableID) {
	m.grow(id)
	m.bits[id] = true
}

// Clear marks id ineligible.
func (m *Mask) Clear(id SolvableID) {
	m.grow(id)
	m.bits[id] = false
}

// Test reports whether id is currently eligible.
func (m *Mask) Test(id SolvableID) bool {
	if int(id) >= len(m.bits) {
		return false
	}
	return m.bits[id]
}

func (m *Mask) grow(id SolvableID) {
	if int(id) < len(m.bits) {
		return
	}
	grown := make([]bool, int(id)+1)
	copy(grown, m.bits)
	m.bits = grown
}
