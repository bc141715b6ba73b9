package domain

// PreferenceVector maps categories to non-negative affinity weights. It keeps
// an explicit category order (canonical categories first, then first-seen) so
// that ranking passes are reproducible regardless of map iteration order.
type PreferenceVector struct {
	weights map[Category]int
	order   []Category
}

// NewPreferenceVector builds a vector with all canonical categories at zero.
func NewPreferenceVector() *PreferenceVector {
	v := &PreferenceVector{weights: make(map[Category]int, len(CanonicalCategories))}
	for _, c := range CanonicalCategories {
		v.weights[c] = 0
		v.order = append(v.order, c)
	}
	return v
}

// Add accumulates weight for a category, registering unseen categories at the
// end of the iteration order. Negative weights are ignored.
func (v *PreferenceVector) Add(cat Category, weight int) {
	if v == nil || cat == "" || weight < 0 {
		return
	}
	if _, ok := v.weights[cat]; !ok {
		v.order = append(v.order, cat)
	}
	v.weights[cat] += weight
}

// Weight returns the accumulated weight for a category.
func (v *PreferenceVector) Weight(cat Category) int {
	if v == nil {
		return 0
	}
	return v.weights[cat]
}

// Categories returns the categories in deterministic iteration order.
func (v *PreferenceVector) Categories() []Category {
	if v == nil {
		return nil
	}
	out := make([]Category, len(v.order))
	copy(out, v.order)
	return out
}

// Clone returns an independent copy, safe for use across ranking passes while
// the original keeps accumulating.
func (v *PreferenceVector) Clone() *PreferenceVector {
	if v == nil {
		return NewPreferenceVector()
	}
	cp := &PreferenceVector{
		weights: make(map[Category]int, len(v.weights)),
		order:   make([]Category, len(v.order)),
	}
	for k, w := range v.weights {
		cp.weights[k] = w
	}
	copy(cp.order, v.order)
	return cp
}
