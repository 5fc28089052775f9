// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"github.com/go-gl/mathgl/mgl64"

	"bspvis/math/plane"
	"bspvis/winding"
)

// buildPlanes assigns a shared plane to every face and snaps the face
// vertices onto it.
func (c *compiler) buildPlanes() {
	for i := range c.faces {
		f := &c.faces[i]
		pts := c.points(*f)
		sum := pts[0].Add(pts[1]).Add(pts[2])
		center := mgl64.Vec3{sum[0] / 3, sum[1] / 3, sum[2] / 3}
		p := plane.FromPointNormal(center, winding.Normal(pts).Normalize())
		f.plane = c.findPlane(p)
		p = c.d.Planes[f.plane]
		for k := range pts {
			pts[k] = p.Project(pts[k])
		}
	}
}

// findPlane returns the index of a plane matching p within the tolerance,
// adding p if none does.
func (c *compiler) findPlane(p plane.Plane) int {
	for i, q := range c.d.Planes {
		if q.NearlyEqual(p, c.tol) {
			return i
		}
	}
	c.d.Planes = append(c.d.Planes, p)
	return len(c.d.Planes) - 1
}
