// ABOUTME: Tests for shopping dot position math.
// ABOUTME: Covers drag clamping, API fraction round-trips, and default layout.
package tagging

import (
	"math"
	"testing"
)

func TestApplyDragDelta(t *testing.T) {
	// 50px right in a 400px container is a 12.5% move.
	got := ApplyDragDelta(Position{X: 20, Y: 40}, 50, 0, 400, 480)
	if got.X != 32.5 {
		t.Errorf("X: got %v, want 32.5", got.X)
	}
	if got.Y != 40 {
		t.Errorf("Y: got %v, want 40", got.Y)
	}
}

func TestApplyDragDeltaClampsToBounds(t *testing.T) {
	got := ApplyDragDelta(Position{X: 90, Y: 80}, 1000, 1000, 400, 400)
	if got.X != MaxX {
		t.Errorf("X: got %v, want %v", got.X, float64(MaxX))
	}
	if got.Y != MaxY {
		t.Errorf("Y: got %v, want %v", got.Y, float64(MaxY))
	}

	got = ApplyDragDelta(Position{X: 5, Y: 5}, -1000, -1000, 400, 400)
	if got.X != MinX || got.Y != MinY {
		t.Errorf("got %+v, want {%d %d}", got, MinX, MinY)
	}
}

func TestApplyDragDeltaIgnoresEmptyContainer(t *testing.T) {
	got := ApplyDragDelta(Position{X: 20, Y: 30}, 50, 50, 0, 0)
	if got.X != 20 || got.Y != 30 {
		t.Errorf("got %+v, want position unchanged", got)
	}
}

func TestFractionRoundTrip(t *testing.T) {
	for _, pct := range []float64{0, 2, 25, 33.3, 50, 83, 93, 100} {
		back := FromAPIFraction(ToAPIFraction(pct))
		if math.Abs(back-pct) > 1e-9 {
			t.Errorf("round trip %v: got %v", pct, back)
		}
	}
}

func TestFractionDefaultsOnMalformedInput(t *testing.T) {
	for _, bad := range []float64{math.NaN(), math.Inf(1), math.Inf(-1), -1} {
		if got := ToAPIFraction(bad); got != 0.5 {
			t.Errorf("ToAPIFraction(%v): got %v, want 0.5", bad, got)
		}
		if got := FromAPIFraction(bad); got != 50 {
			t.Errorf("FromAPIFraction(%v): got %v, want 50", bad, got)
		}
	}
}

func TestDefaultLayoutSpreadsItems(t *testing.T) {
	p0 := DefaultLayout(0)
	p1 := DefaultLayout(1)
	if p0 != (Position{X: 25, Y: 25}) {
		t.Errorf("item 0: got %+v", p0)
	}
	if p1 != (Position{X: 50, Y: 45}) {
		t.Errorf("item 1: got %+v", p1)
	}
	// Far items stay inside the drag bounds.
	p9 := DefaultLayout(9)
	if p9.X > MaxX || p9.Y > MaxY {
		t.Errorf("item 9 out of bounds: %+v", p9)
	}
}
