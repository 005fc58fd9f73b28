package gesture

import "testing"

func TestDebouncer_InitialState(t *testing.T) {
	var d Debouncer

	if d.Stable() != None {
		t.Errorf("Stable() = %d, want 0", d.Stable())
	}

	if _, changed := d.Update(0); changed {
		t.Error("0 from initial state must not fire")
	}
}

func TestDebouncer_FiresOnlyOnChange(t *testing.T) {
	var d Debouncer

	raw := []Code{0, 0, 1, 1, 0, 2}
	var got []Transition
	for _, c := range raw {
		if tr, changed := d.Update(c); changed {
			got = append(got, tr)
		}
	}

	want := []Transition{{Old: 0, New: 1}, {Old: 1, New: 0}, {Old: 0, New: 2}}
	if len(got) != len(want) {
		t.Fatalf("transitions = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("transition %d = %v, want %v", i, got[i], want[i])
		}
	}
}

func TestDebouncer_HeldGestureFiresOnce(t *testing.T) {
	var d Debouncer

	const frames = 50
	events := 0
	for i := 0; i < frames; i++ {
		if _, changed := d.Update(3); changed {
			events++
		}
	}

	if events != 1 {
		t.Errorf("events = %d, want 1 for %d identical frames", events, frames)
	}
	if d.Stable() != 3 {
		t.Errorf("Stable() = %d, want 3", d.Stable())
	}
}

func TestDebouncer_FullyConnected(t *testing.T) {
	for from := None; from <= MaxCode; from++ {
		for to := None; to <= MaxCode; to++ {
			var d Debouncer
			d.Update(from)

			tr, changed := d.Update(to)
			if changed != (from != to) {
				t.Errorf("%d->%d: changed = %v", from, to, changed)
				continue
			}
			if changed && (tr.Old != from || tr.New != to) {
				t.Errorf("%d->%d: got transition %v", from, to, tr)
			}
			if d.Stable() != to {
				t.Errorf("%d->%d: Stable() = %d", from, to, d.Stable())
			}
		}
	}
}

func TestDebouncer_SingleNoisyFrame(t *testing.T) {
	var d Debouncer
	d.Update(2)

	// One glitch frame yields a transition out and one back.
	_, out := d.Update(4)
	_, back := d.Update(2)
	if !out || !back {
		t.Errorf("expected two transitions for a one-frame glitch, got out=%v back=%v", out, back)
	}
}

func TestTransition_String(t *testing.T) {
	if got := (Transition{Old: 1, New: 4}).String(); got != "1->4" {
		t.Errorf("String() = %q, want %q", got, "1->4")
	}
}
