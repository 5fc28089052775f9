// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"

	"bspvis/math/plane"
	"bspvis/math/vec"
)

// RefKind tells what a ChildRef points at.
type RefKind uint8

const (
	RefNode RefKind = iota
	RefLeaf
	RefSolid
	RefInvalid
)

// ChildRef references a node, an empty leaf or solid space.
type ChildRef struct {
	Kind  RefKind
	Index int
}

var (
	// Solid is the back side of world sealing geometry.
	Solid = ChildRef{Kind: RefSolid}
	// Invalid is returned by queries on a tree without nodes.
	Invalid = ChildRef{Kind: RefInvalid}
)

func NodeRef(i int) ChildRef {
	return ChildRef{Kind: RefNode, Index: i}
}

func LeafRef(i int) ChildRef {
	return ChildRef{Kind: RefLeaf, Index: i}
}

// Leaf returns the leaf index if the reference points to an empty leaf.
func (c ChildRef) Leaf() (int, bool) {
	if c.Kind != RefLeaf {
		return 0, false
	}
	return c.Index, true
}

func (c ChildRef) IsSolid() bool {
	return c.Kind == RefSolid
}

func (c ChildRef) String() string {
	switch c.Kind {
	case RefNode:
		return fmt.Sprintf("node %d", c.Index)
	case RefLeaf:
		return fmt.Sprintf("leaf %d", c.Index)
	case RefSolid:
		return "solid"
	}
	return "invalid"
}

type Node struct {
	Plane int
	Front ChildRef
	Back  ChildRef
}

// Leaf is a convex region of open space.
type Leaf struct {
	// Portals indexes Tree.Portals.
	Portals []int
	// VisOffset is the byte offset of the leaf's set in the PVS table.
	VisOffset int
}

const (
	frontOwner = 0
	backOwner  = 1
)

// Portal is a convex polygon on a node plane connecting two leaves.
type Portal struct {
	// First and Count select the polygon in Tree.PortalVertices.
	First, Count int
	Plane        int
	Node         int
	// Owners holds the leaf in front of and behind the plane, -1 if it
	// could not be resolved.
	Owners [2]int
}

// Data is the complete compiled state of a tree. It is what an asset pack
// stores and what FromData restores.
type Data struct {
	ID             uuid.UUID
	Bounds         vec.Box
	Planes         []plane.Plane
	Nodes          []Node
	Leaves         []Leaf
	Portals        []Portal
	PortalVertices []mgl64.Vec3
	// BytesPerSet is the padded size of one decompressed leaf set.
	BytesPerSet int
	PVS         []byte
	// Compressed is set if leaf sets in PVS are zero run length encoded.
	Compressed bool
	// Epsilon is the plane thickness used by point queries.
	Epsilon float64
}

// Tree is a compiled BSP tree with optional PVS. It is immutable and safe
// for concurrent use.
type Tree struct {
	d Data
}

// ID identifies the compile run that produced the tree.
func (t *Tree) ID() uuid.UUID { return t.d.ID }

// Data returns the tree contents. The slices are shared and must not be
// modified.
func (t *Tree) Data() Data { return t.d }

func (t *Tree) Nodes() []Node                { return t.d.Nodes }
func (t *Tree) Planes() []plane.Plane        { return t.d.Planes }
func (t *Tree) Leaves() []Leaf               { return t.d.Leaves }
func (t *Tree) Portals() []Portal            { return t.d.Portals }
func (t *Tree) PortalVertices() []mgl64.Vec3 { return t.d.PortalVertices }
func (t *Tree) PVSData() []byte              { return t.d.PVS }
func (t *Tree) BytesPerSet() int             { return t.d.BytesPerSet }
func (t *Tree) Bounds() vec.Box              { return t.d.Bounds }
func (t *Tree) Compressed() bool             { return t.d.Compressed }

// PortalPoints returns the polygon of portal i.
func (t *Tree) PortalPoints(i int) []mgl64.Vec3 {
	p := t.d.Portals[i]
	return t.d.PortalVertices[p.First : p.First+p.Count]
}
