// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"github.com/go-gl/mathgl/mgl64"

	"bspvis/math/plane"
	"bspvis/math/vec"
)

// FindLeaf returns the leaf containing p, Solid if p lies in solid space
// and Invalid for an empty tree. Points on a node plane belong to its front.
func (t *Tree) FindLeaf(p mgl64.Vec3) ChildRef {
	if t == nil || len(t.d.Nodes) == 0 {
		return Invalid
	}
	node := NodeRef(0)
	for node.Kind == RefNode {
		n := t.d.Nodes[node.Index]
		if t.d.Planes[n.Plane].ClassifyPoint(p, t.d.Epsilon) == plane.Back {
			node = n.Back
		} else {
			node = n.Front
		}
	}
	return node
}

// LeafPVS returns the decompressed visibility set of leaf. The result is nil
// if the tree carries no visibility data. It must not be modified.
func (t *Tree) LeafPVS(leaf int) []byte {
	if t == nil || len(t.d.PVS) == 0 || leaf < 0 || leaf >= len(t.d.Leaves) {
		return nil
	}
	off := t.d.Leaves[leaf].VisOffset
	if !t.d.Compressed {
		return t.d.PVS[off : off+t.d.BytesPerSet]
	}
	set, err := DecompressVis(t.d.PVS[off:], t.d.BytesPerSet)
	if err != nil {
		// FromData and Compile never produce such sets
		return nil
	}
	return set
}

// LeafVisible reports whether leaf to may be seen from leaf from. Without
// visibility data everything is visible.
func (t *Tree) LeafVisible(from, to int) bool {
	if t == nil {
		return true
	}
	if to < 0 || to >= len(t.d.Leaves) {
		return false
	}
	set := t.LeafPVS(from)
	if set == nil {
		return true
	}
	return testBit(set, to)
}

func (t *Tree) sourceSet(source ChildRef) []byte {
	if l, ok := source.Leaf(); ok {
		return t.LeafPVS(l)
	}
	return nil
}

// FindLeaves appends to dst every leaf touched by the sphere. If source is
// a leaf and the tree has visibility data, only leaves visible from source
// are reported.
func (t *Tree) FindLeaves(s vec.Sphere, source ChildRef, dst []int) []int {
	if t == nil || len(t.d.Nodes) == 0 {
		return dst
	}
	return t.findLeaves(NodeRef(0), s, t.sourceSet(source), dst)
}

func (t *Tree) findLeaves(node ChildRef, s vec.Sphere, vis []byte, dst []int) []int {
	for {
		switch node.Kind {
		case RefLeaf:
			if vis == nil || testBit(vis, node.Index) {
				dst = append(dst, node.Index)
			}
			return dst
		case RefNode:
		default:
			return dst
		}
		n := t.d.Nodes[node.Index]
		switch t.d.Planes[n.Plane].SphereSide(s.Center, s.Radius) {
		case 1:
			node = n.Front
		case 2:
			node = n.Back
		default: // go down both
			dst = t.findLeaves(n.Front, s, vis, dst)
			node = n.Back
		}
	}
}

// IsVolumeVisible reports whether any leaf touched by the sphere is visible
// from source. It answers true whenever it cannot decide: without
// visibility data, for an empty tree or if source is not a leaf.
func (t *Tree) IsVolumeVisible(source ChildRef, s vec.Sphere) bool {
	if t == nil || len(t.d.Nodes) == 0 {
		return true
	}
	vis := t.sourceSet(source)
	if vis == nil {
		return true
	}
	return t.volumeVisible(NodeRef(0), s, vis)
}

func (t *Tree) volumeVisible(node ChildRef, s vec.Sphere, vis []byte) bool {
	for {
		switch node.Kind {
		case RefLeaf:
			return testBit(vis, node.Index)
		case RefNode:
		default:
			return false
		}
		n := t.d.Nodes[node.Index]
		switch t.d.Planes[n.Plane].SphereSide(s.Center, s.Radius) {
		case 1:
			node = n.Front
		case 2:
			node = n.Back
		default:
			if t.volumeVisible(n.Front, s, vis) {
				return true
			}
			node = n.Back
		}
	}
}

// FatPVS returns the union of the visibility sets of all leaves within the
// sphere. Use it for viewers that may move a little between queries.
func (t *Tree) FatPVS(s vec.Sphere) []byte {
	if t == nil || len(t.d.PVS) == 0 {
		return nil
	}
	pvs := make([]byte, t.d.BytesPerSet)
	for _, l := range t.FindLeaves(s, Invalid, nil) {
		for i, b := range t.LeafPVS(l) {
			pvs[i] |= b
		}
	}
	return pvs
}
