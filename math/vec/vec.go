package vec

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Box is an axis aligned bounding box.
type Box struct {
	Min, Max mgl64.Vec3
}

// Sphere is a bounding sphere used for volume queries.
type Sphere struct {
	Center mgl64.Vec3
	Radius float64
}

func minmax(a, b float64) (float64, float64) {
	if a < b {
		return a, b
	}
	return b, a
}

// MinMax returns the component wise minimum and maximum of a and b
func MinMax(a, b mgl64.Vec3) (mgl64.Vec3, mgl64.Vec3) {
	var r, s mgl64.Vec3
	r[0], s[0] = minmax(a[0], b[0])
	r[1], s[1] = minmax(a[1], b[1])
	r[2], s[2] = minmax(a[2], b[2])
	return r, s
}

// BoundsOf returns the smallest box enclosing all points.
// An empty point list results in the zero box.
func BoundsOf(pts []mgl64.Vec3) Box {
	if len(pts) == 0 {
		return Box{}
	}
	b := Box{Min: pts[0], Max: pts[0]}
	for _, p := range pts[1:] {
		b.AddPoint(p)
	}
	return b
}

// AddPoint grows the box so that it contains p.
func (b *Box) AddPoint(p mgl64.Vec3) {
	for i := 0; i < 3; i++ {
		b.Min[i] = math.Min(b.Min[i], p[i])
		b.Max[i] = math.Max(b.Max[i], p[i])
	}
}

func (b Box) Center() mgl64.Vec3 {
	return b.Min.Add(b.Max).Mul(0.5)
}

// HalfExtents returns the vector from the center to the max corner.
func (b Box) HalfExtents() mgl64.Vec3 {
	return b.Max.Sub(b.Min).Mul(0.5)
}

// Lerp computes a weighted average between two points
func Lerp(a, b mgl64.Vec3, frac float64) mgl64.Vec3 {
	return a.Add(b.Sub(a).Mul(frac))
}

// MinorAxis returns the unit axis along which n has one of its smallest
// components. The result is never parallel to a non zero n.
func MinorAxis(n mgl64.Vec3) mgl64.Vec3 {
	a, b, c := math.Abs(n[0]), math.Abs(n[1]), math.Abs(n[2])
	axis := 0
	if b > c {
		if c < a {
			axis = 2
		}
	} else if b <= a {
		axis = 1
	}
	var r mgl64.Vec3
	r[axis] = 1
	return r
}
