// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"

	"bspvis/math/plane"
	"bspvis/math/vec"
	"bspvis/winding"
)

// owner side of a portal fragment while it travels down the tree
const noOwner = -1

type portalFrag struct {
	points []mgl64.Vec3
	plane  int
	node   int
	owners [2]int
}

// buildPortals creates the portals between all leaves. For every node
// whose back is not solid a quad covering the level is put on the node
// plane and clipped down the whole tree. Surviving fragments separate the
// leaf in front of the node plane from the leaf behind it.
func (c *compiler) buildPortals() {
	for ni, n := range c.d.Nodes {
		if n.Back.IsSolid() {
			continue
		}
		for _, f := range c.clipPortal(0, c.portalQuad(ni), noOwner) {
			c.addPortal(f)
		}
	}
	c.log.Debug("portals generated",
		slog.Int("count", len(c.d.Portals)),
		slog.Int("vertices", len(c.d.PortalVertices)))
}

func (c *compiler) portalQuad(ni int) *portalFrag {
	pi := c.d.Nodes[ni].Plane
	p := c.d.Planes[pi]
	center := p.Project(c.d.Bounds.Center())
	size := c.d.Bounds.HalfExtents().Len()
	u := vec.MinorAxis(p.Normal).Cross(p.Normal).Normalize()
	v := u.Cross(p.Normal).Normalize().Mul(size)
	u = u.Mul(size)
	return &portalFrag{
		points: []mgl64.Vec3{
			center.Add(u).Sub(v),
			center.Add(u).Add(v),
			center.Sub(u).Add(v),
			center.Sub(u).Sub(v),
		},
		plane:  pi,
		node:   ni,
		owners: [2]int{-1, -1},
	}
}

// clipPortal sends a fragment through node ni and returns the pieces that
// ended in leaves on their owning side.
func (c *compiler) clipPortal(ni int, p *portalFrag, owner int) []*portalFrag {
	node := c.d.Nodes[ni]
	np := c.d.Planes[node.Plane]
	class := plane.On
	if p.plane != node.Plane {
		class = np.ClassifyPolygon(p.points, c.tol.Point)
	}
	switch class {
	case plane.Front:
		return c.descend(ni, node.Front, p, owner, frontOwner)
	case plane.Back:
		return c.descend(ni, node.Back, p, owner, backOwner)
	case plane.On:
		front := c.descend(ni, node.Front, p, owner, frontOwner)
		if len(front) == 0 || node.Back.IsSolid() {
			return front
		}
		var out []*portalFrag
		for _, f := range front {
			out = append(out, c.descend(ni, node.Back, f, owner, backOwner)...)
		}
		return out
	}
	fp, bp := winding.Split(p.points, np, c.tol.Point)
	var out []*portalFrag
	if len(fp) >= 3 {
		f := &portalFrag{points: fp, plane: p.plane, node: p.node, owners: p.owners}
		out = c.descend(ni, node.Front, f, owner, frontOwner)
	}
	if len(bp) >= 3 {
		b := &portalFrag{points: bp, plane: p.plane, node: p.node, owners: p.owners}
		out = append(out, c.descend(ni, node.Back, b, owner, backOwner)...)
	}
	return out
}

// descend moves a fragment into child. Once the fragment passes the node it
// was created on, it remembers which side of that node it is on and may
// only attach to leaves from there.
func (c *compiler) descend(ni int, child ChildRef, p *portalFrag, owner, side int) []*portalFrag {
	if owner == noOwner && ni == p.node {
		owner = side
	}
	switch child.Kind {
	case RefLeaf:
		if owner == noOwner {
			return nil
		}
		p.owners[owner] = child.Index
		return []*portalFrag{p}
	case RefNode:
		return c.clipPortal(child.Index, p, owner)
	}
	return nil
}

func (c *compiler) addPortal(f *portalFrag) {
	idx := len(c.d.Portals)
	first := len(c.d.PortalVertices)
	c.d.PortalVertices = append(c.d.PortalVertices, f.points...)
	c.d.Portals = append(c.d.Portals, Portal{
		First:  first,
		Count:  len(f.points),
		Plane:  f.plane,
		Node:   f.node,
		Owners: f.owners,
	})
	for _, l := range f.owners {
		if l >= 0 {
			c.d.Leaves[l].Portals = append(c.d.Leaves[l].Portals, idx)
		}
	}
}
