// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"bspvis/math/plane"
	"bspvis/winding"
)

// clipToAntiPenumbra clips generator by every plane that passes through an
// edge of source and a vertex of target and has source and target on
// opposite sides. What remains of generator lies inside the region that can
// be seen from source through target. With reverse set the opposite side is
// kept.
func (v *visCompiler) clipToAntiPenumbra(source, target, generator []mgl64.Vec3, reverse bool) []mgl64.Vec3 {
	eps := v.tol.Point
	for i := range source {
		l := (i + 1) % len(source)
		e := source[l].Sub(source[i])
		for j := range target {
			n := e.Cross(target[j].Sub(source[i]))
			lenSq := n.LenSqr()
			if lenSq < v.tol.MinStabLengthSq {
				continue
			}
			n = n.Mul(1 / math.Sqrt(lenSq))
			sep := plane.FromPointNormal(target[j], n)

			// orient the plane so that source is behind it
			k, flip := 0, false
			for ; k < len(source); k++ {
				if k == i || k == l {
					continue
				}
				c := sep.ClassifyPoint(source[k], eps)
				if c == plane.Back {
					break
				}
				if c == plane.Front {
					flip = true
					break
				}
			}
			if k == len(source) {
				continue
			}
			if flip {
				sep = sep.Neg()
			}

			// target must be entirely in front, and not coplanar
			front := 0
			for k = 0; k < len(target); k++ {
				if k == j {
					continue
				}
				c := sep.ClassifyPoint(target[k], eps)
				if c == plane.Back {
					break
				}
				if c == plane.Front {
					front++
				}
			}
			if k != len(target) || front == 0 {
				continue
			}

			if reverse {
				sep = sep.Neg()
			}
			if generator = winding.Clip(generator, sep, eps, false); generator == nil {
				return nil
			}
		}
	}
	return generator
}
