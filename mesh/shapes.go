// SPDX-License-Identifier: GPL-2.0-or-later

package mesh

import (
	"github.com/go-gl/mathgl/mgl64"

	"bspvis/math/vec"
)

// quad appends the rectangle o, o+u, o+u+v, o+v facing n.
func (s Soup) quad(o, u, v, n mgl64.Vec3) Soup {
	if u.Cross(v).Dot(n) < 0 {
		u, v = v, u
	}
	a, b, c, d := o, o.Add(u), o.Add(u).Add(v), o.Add(v)
	return append(s, [3]mgl64.Vec3{a, b, c}, [3]mgl64.Vec3{a, c, d})
}

// Box returns the six faces of an axis aligned box. With inward set the
// faces look into the box, making its inside open space. Otherwise the box
// is a solid obstacle.
func Box(lo, hi mgl64.Vec3, inward bool) Soup {
	lo, hi = vec.MinMax(lo, hi)
	var s Soup
	size := hi.Sub(lo)
	for axis := 0; axis < 3; axis++ {
		ua, va := (axis+1)%3, (axis+2)%3
		var u, v mgl64.Vec3
		u[ua] = size[ua]
		v[va] = size[va]
		for side, pos := range [2]mgl64.Vec3{lo, hi} {
			var n mgl64.Vec3
			n[axis] = 1
			if side == 0 {
				n[axis] = -1
			}
			if inward {
				n = n.Mul(-1)
			}
			o := lo
			o[axis] = pos[axis]
			s = s.quad(o, u, v, n)
		}
	}
	return s
}

// Layout builds the boundary of a level drawn as a grid seen from above.
// Each string is a row along +z, each byte a cell along +x. '#' marks solid
// cells, every other byte is open. Cells outside the grid are solid. The
// open space gets a floor at y=0 and a ceiling at y=height, and all faces
// look into the open cells.
func Layout(rows []string, cell, height float64) Soup {
	open := func(x, z int) bool {
		if z < 0 || z >= len(rows) || x < 0 || x >= len(rows[z]) {
			return false
		}
		return rows[z][x] != '#'
	}
	var s Soup
	up := mgl64.Vec3{0, height, 0}
	for z, row := range rows {
		for x := range row {
			if !open(x, z) {
				continue
			}
			x0, z0 := float64(x)*cell, float64(z)*cell
			x1, z1 := x0+cell, z0+cell
			ux := mgl64.Vec3{cell, 0, 0}
			uz := mgl64.Vec3{0, 0, cell}
			s = s.quad(mgl64.Vec3{x0, 0, z0}, ux, uz, mgl64.Vec3{0, 1, 0})
			s = s.quad(mgl64.Vec3{x0, height, z0}, ux, uz, mgl64.Vec3{0, -1, 0})
			if !open(x-1, z) {
				s = s.quad(mgl64.Vec3{x0, 0, z0}, uz, up, mgl64.Vec3{1, 0, 0})
			}
			if !open(x+1, z) {
				s = s.quad(mgl64.Vec3{x1, 0, z0}, uz, up, mgl64.Vec3{-1, 0, 0})
			}
			if !open(x, z-1) {
				s = s.quad(mgl64.Vec3{x0, 0, z0}, ux, up, mgl64.Vec3{0, 0, 1})
			}
			if !open(x, z+1) {
				s = s.quad(mgl64.Vec3{x0, 0, z1}, ux, up, mgl64.Vec3{0, 0, -1})
			}
		}
	}
	return s
}
