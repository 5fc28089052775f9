// SPDX-License-Identifier: GPL-2.0-or-later

// Package mesh provides the triangle soup consumed by the BSP compiler.
package mesh

import (
	"github.com/go-gl/mathgl/mgl64"
)

// Source is anything that can hand out a triangle list in its local space.
// Triangles are expected to be wound counter clockwise when seen from the
// side that faces open space.
type Source interface {
	Triangles() [][3]mgl64.Vec3
}

// Soup is a plain triangle list.
type Soup [][3]mgl64.Vec3

func (s Soup) Triangles() [][3]mgl64.Vec3 {
	return s
}

// Instance places a Source in the world.
type Instance struct {
	Source Source
	// Placement transforms local positions into world space. The zero
	// matrix is treated as identity.
	Placement mgl64.Mat4
}

// Place returns an instance of src transformed by m.
func Place(src Source, m mgl64.Mat4) Instance {
	return Instance{Source: src, Placement: m}
}

// Transform returns the effective placement matrix.
func (in Instance) Transform() mgl64.Mat4 {
	if in.Placement == (mgl64.Mat4{}) {
		return mgl64.Ident4()
	}
	return in.Placement
}

// World returns the triangles of the instance in world space.
func (in Instance) World() [][3]mgl64.Vec3 {
	if in.Source == nil {
		return nil
	}
	tris := in.Source.Triangles()
	m := in.Transform()
	out := make([][3]mgl64.Vec3, len(tris))
	for i, t := range tris {
		for k := range t {
			out[i][k] = mgl64.TransformCoordinate(t[k], m)
		}
	}
	return out
}
