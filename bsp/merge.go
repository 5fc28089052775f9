// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"log/slog"

	"bspvis/math/vec"
	"bspvis/mesh"
)

// triangles with a smaller doubled area carry no usable plane
const minDoubleArea = 1e-9

// merge copies every placed triangle into the vertex pool. It reports
// false if no triangle was found.
func (c *compiler) merge(instances []mesh.Instance) bool {
	skipped := 0
	for _, in := range instances {
		for _, t := range in.World() {
			if t[1].Sub(t[0]).Cross(t[2].Sub(t[0])).Len() < minDoubleArea {
				skipped++
				continue
			}
			first := len(c.verts)
			c.verts = append(c.verts, t[0], t[1], t[2])
			c.faces = append(c.faces, face{first: first, count: 3, plane: -1})
		}
	}
	if skipped > 0 {
		c.log.Warn("skipped degenerate triangles", slog.Int("count", skipped))
	}
	if len(c.faces) == 0 {
		return false
	}
	c.d.Bounds = vec.BoundsOf(c.verts)
	return true
}
