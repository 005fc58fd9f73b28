package gesture

// Debouncer turns the per-frame code stream into transitions.
//
// It is edge triggered with no smoothing window: every raw code is trusted as soon as it
// is seen, and a transition fires exactly when it differs from the previous stable code.
// A single noisy frame therefore produces two transitions (into the noise and back).
// The zero value starts in state None and is ready to use.
type Debouncer struct {
	last Code
}

// Stable returns the last code recorded by Update.
func (d *Debouncer) Stable() Code {
	return d.last
}

// Update records raw as the stable code and reports whether it changed.
func (d *Debouncer) Update(raw Code) (Transition, bool) {
	if raw == d.last {
		return Transition{}, false
	}
	t := Transition{Old: d.last, New: raw}
	d.last = raw
	return t, true
}
