// SPDX-License-Identifier: GPL-2.0-or-later

// Package plane provides planes in offset form and point/polygon
// classification against them.
package plane

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"bspvis/math/vec"
)

// Class is the side of a plane a point or polygon lies on.
type Class uint8

const (
	Front Class = iota
	Back
	On
	Spanning
)

func (c Class) String() string {
	switch c {
	case Front:
		return "front"
	case Back:
		return "back"
	case On:
		return "on"
	case Spanning:
		return "spanning"
	}
	return "unknown"
}

// Plane is the set of points p with Normal·p + Dist == 0.
// Normal is expected to be of unit length.
type Plane struct {
	Normal mgl64.Vec3
	Dist   float64
}

// FromPointNormal returns the plane through p with normal n.
func FromPointNormal(p, n mgl64.Vec3) Plane {
	return Plane{Normal: n, Dist: -n.Dot(p)}
}

// Distance returns the signed distance of p to the plane.
func (pl Plane) Distance(p mgl64.Vec3) float64 {
	return pl.Normal.Dot(p) + pl.Dist
}

// Neg returns the plane facing the opposite direction.
func (pl Plane) Neg() Plane {
	return Plane{Normal: pl.Normal.Mul(-1), Dist: -pl.Dist}
}

// Project returns p moved along the normal onto the plane.
func (pl Plane) Project(p mgl64.Vec3) mgl64.Vec3 {
	return p.Sub(pl.Normal.Mul(pl.Distance(p)))
}

// Intersect returns the point where the segment a-b crosses the plane.
// The caller guarantees that a and b lie on different sides.
func (pl Plane) Intersect(a, b mgl64.Vec3) mgl64.Vec3 {
	t := -pl.Distance(a) / pl.Normal.Dot(b.Sub(a))
	return vec.Lerp(a, b, t)
}

// ClassifyPoint returns Front, Back or On for p with the given epsilon.
func (pl Plane) ClassifyPoint(p mgl64.Vec3, eps float64) Class {
	d := pl.Distance(p)
	if d < -eps {
		return Back
	}
	if d > eps {
		return Front
	}
	return On
}

// ClassifyPolygon classifies a point list. Points on the plane count for
// both sides, so a polygon touching the plane from the front is Front.
func (pl Plane) ClassifyPolygon(pts []mgl64.Vec3, eps float64) Class {
	front, back, on := 0, 0, 0
	for _, p := range pts {
		switch pl.ClassifyPoint(p, eps) {
		case Front:
			front++
		case Back:
			back++
		default:
			on++
		}
	}
	switch {
	case on == len(pts):
		return On
	case back+on == len(pts):
		return Back
	case front+on == len(pts):
		return Front
	}
	return Spanning
}

// SphereSide returns 1 if the sphere reaches the front side, 2 if it reaches
// the back side and 3 if it straddles the plane.
func (pl Plane) SphereSide(center mgl64.Vec3, radius float64) int {
	d := pl.Distance(center)
	if d >= radius {
		return 1
	}
	if d <= -radius {
		return 2
	}
	return 3
}

// NearlyEqual reports whether both planes describe the same oriented plane
// under the tolerance.
func (pl Plane) NearlyEqual(o Plane, tol Tolerance) bool {
	for i := 0; i < 3; i++ {
		if math.Abs(pl.Normal[i]-o.Normal[i]) > tol.Normal {
			return false
		}
	}
	return DynamicEqual(pl.Dist, o.Dist, tol.Normal, tol.DistScale)
}

// DynamicEqual compares a and b with an epsilon that grows with their
// magnitude: |a-b| <= eps*scale*max(1,|a|,|b|).
func DynamicEqual(a, b, eps, scale float64) bool {
	m := math.Max(1, math.Max(math.Abs(a), math.Abs(b)))
	return math.Abs(a-b) <= eps*scale*m
}
