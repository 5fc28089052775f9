package vec

import (
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestMinMax(t *testing.T) {
	a := mgl64.Vec3{1, 5, -3}
	b := mgl64.Vec3{2, -5, 3}
	gotMin, gotMax := MinMax(a, b)
	wantMin := mgl64.Vec3{1, -5, -3}
	wantMax := mgl64.Vec3{2, 5, 3}
	if gotMin != wantMin || gotMax != wantMax {
		t.Errorf("MinMax(%v,%v) = %v,%v want %v,%v", a, b, gotMin, gotMax, wantMin, wantMax)
	}
}

func TestBoundsOf(t *testing.T) {
	if got := BoundsOf(nil); got != (Box{}) {
		t.Errorf("BoundsOf(nil) = %v want zero box", got)
	}
	pts := []mgl64.Vec3{{1, 2, 3}, {-1, 4, 0}, {0, 0, 10}}
	got := BoundsOf(pts)
	want := Box{Min: mgl64.Vec3{-1, 0, 0}, Max: mgl64.Vec3{1, 4, 10}}
	if got != want {
		t.Errorf("BoundsOf(%v) = %v want %v", pts, got, want)
	}
	if c := got.Center(); c != (mgl64.Vec3{0, 2, 5}) {
		t.Errorf("Center() = %v", c)
	}
	if h := got.HalfExtents(); h != (mgl64.Vec3{1, 2, 5}) {
		t.Errorf("HalfExtents() = %v", h)
	}
}

func TestLerp(t *testing.T) {
	a := mgl64.Vec3{0, 0, 0}
	b := mgl64.Vec3{2, 4, 8}
	if got := Lerp(a, b, 0.5); got != (mgl64.Vec3{1, 2, 4}) {
		t.Errorf("Lerp(%v,%v,0.5) = %v", a, b, got)
	}
	if got := Lerp(a, b, 0); got != a {
		t.Errorf("Lerp(%v,%v,0) = %v", a, b, got)
	}
}

func TestMinorAxis(t *testing.T) {
	tests := []struct {
		n    mgl64.Vec3
		want mgl64.Vec3
	}{
		{mgl64.Vec3{1, 0, 0}, mgl64.Vec3{0, 1, 0}},
		{mgl64.Vec3{0, 1, 0}, mgl64.Vec3{1, 0, 0}},
		{mgl64.Vec3{0, 0, 1}, mgl64.Vec3{0, 1, 0}},
		{mgl64.Vec3{0.1, 0.2, 0.97}, mgl64.Vec3{1, 0, 0}},
		{mgl64.Vec3{0.7, 0.7, 0.1}, mgl64.Vec3{0, 0, 1}},
	}
	for _, tc := range tests {
		got := MinorAxis(tc.n)
		if got != tc.want {
			t.Errorf("MinorAxis(%v) = %v want %v", tc.n, got, tc.want)
		}
		if l := got.Cross(tc.n).Len(); l == 0 {
			t.Errorf("MinorAxis(%v) is parallel to the normal", tc.n)
		}
	}
}
