// SPDX-License-Identifier: GPL-2.0-or-later

// Package winding implements clipping of convex polygons against planes.
// Input point slices are never modified; callers may pass views into a
// shared vertex pool.
package winding

import (
	"github.com/go-gl/mathgl/mgl64"

	"bspvis/math/plane"
)

// Split cuts a convex polygon in two along p. Points on the plane are
// copied into both halves. A half without any points is returned as nil.
func Split(pts []mgl64.Vec3, p plane.Plane, eps float64) (front, back []mgl64.Vec3) {
	n := len(pts)
	if n == 0 {
		return nil, nil
	}
	class := make([]plane.Class, n)
	for i, v := range pts {
		class[i] = p.ClassifyPoint(v, eps)
	}
	for i, v := range pts {
		c := class[i]
		switch c {
		case plane.On:
			front = append(front, v)
			back = append(back, v)
			continue
		case plane.Front:
			front = append(front, v)
		case plane.Back:
			back = append(back, v)
		}
		j := (i + 1) % n
		nc := class[j]
		if nc == plane.On || nc == c {
			continue
		}
		x := p.Intersect(v, pts[j])
		front = append(front, x)
		back = append(back, x)
	}
	return front, back
}

// Clip returns the part of the polygon in front of p. The input slice is
// returned unchanged when it lies entirely in front. Coplanar polygons are
// kept only if keepOn is set. The result is nil when nothing remains.
func Clip(pts []mgl64.Vec3, p plane.Plane, eps float64, keepOn bool) []mgl64.Vec3 {
	switch p.ClassifyPolygon(pts, eps) {
	case plane.Front:
		return pts
	case plane.Back:
		return nil
	case plane.On:
		if keepOn {
			return pts
		}
		return nil
	}
	n := len(pts)
	out := make([]mgl64.Vec3, 0, n+1)
	for i, v := range pts {
		c := p.ClassifyPoint(v, eps)
		if c != plane.Back {
			out = append(out, v)
		}
		if c == plane.On {
			continue
		}
		j := (i + 1) % n
		nc := p.ClassifyPoint(pts[j], eps)
		if nc == plane.On || nc == c {
			continue
		}
		out = append(out, p.Intersect(v, pts[j]))
	}
	if len(out) < 3 {
		return nil
	}
	return out
}

// Normal returns the unnormalized face normal of the polygon's first
// three points.
func Normal(pts []mgl64.Vec3) mgl64.Vec3 {
	if len(pts) < 3 {
		return mgl64.Vec3{}
	}
	return pts[1].Sub(pts[0]).Cross(pts[2].Sub(pts[0]))
}
