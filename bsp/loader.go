// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"github.com/pkg/errors"
)

// FromData restores a tree from previously compiled data, for example read
// back from an asset pack. All references are checked so that queries on
// the result cannot index out of range.
func FromData(d Data) (*Tree, error) {
	if len(d.Nodes) == 0 {
		return nil, ErrNoTree
	}
	// children always follow their parent, which also rules out cycles
	checkRef := func(parent int, r ChildRef) error {
		switch r.Kind {
		case RefNode:
			if r.Index <= parent || r.Index >= len(d.Nodes) {
				return errors.Errorf("node reference %d out of range", r.Index)
			}
		case RefLeaf:
			if r.Index < 0 || r.Index >= len(d.Leaves) {
				return errors.Errorf("leaf reference %d out of range", r.Index)
			}
		case RefSolid:
		default:
			return errors.Errorf("bad child reference %v", r)
		}
		return nil
	}
	for i, n := range d.Nodes {
		if n.Plane < 0 || n.Plane >= len(d.Planes) {
			return nil, errors.Errorf("bsp: node %d: plane %d out of range", i, n.Plane)
		}
		if err := checkRef(i, n.Front); err != nil {
			return nil, errors.Wrapf(err, "bsp: node %d front", i)
		}
		if err := checkRef(i, n.Back); err != nil {
			return nil, errors.Wrapf(err, "bsp: node %d back", i)
		}
	}
	for i, p := range d.Portals {
		if p.First < 0 || p.Count < 0 || p.First > len(d.PortalVertices) || p.Count > len(d.PortalVertices)-p.First {
			return nil, errors.Errorf("bsp: portal %d: vertices out of range", i)
		}
		if p.Plane < 0 || p.Plane >= len(d.Planes) {
			return nil, errors.Errorf("bsp: portal %d: plane %d out of range", i, p.Plane)
		}
		for _, o := range p.Owners {
			if o < noOwner || o >= len(d.Leaves) {
				return nil, errors.Errorf("bsp: portal %d: owner %d out of range", i, o)
			}
		}
	}
	for i, l := range d.Leaves {
		for _, p := range l.Portals {
			if p < 0 || p >= len(d.Portals) {
				return nil, errors.Errorf("bsp: leaf %d: portal %d out of range", i, p)
			}
		}
	}
	if len(d.PVS) > 0 {
		if d.BytesPerSet != BytesPerSet(len(d.Leaves)) {
			return nil, errors.Errorf("bsp: %d bytes per set for %d leaves", d.BytesPerSet, len(d.Leaves))
		}
		if !d.Compressed && len(d.PVS) != len(d.Leaves)*d.BytesPerSet {
			return nil, errors.Errorf("bsp: vis table has %d bytes, want %d", len(d.PVS), len(d.Leaves)*d.BytesPerSet)
		}
		for i, l := range d.Leaves {
			if l.VisOffset < 0 || l.VisOffset >= len(d.PVS) {
				return nil, errors.Errorf("bsp: leaf %d: vis offset %d out of range", i, l.VisOffset)
			}
			if !d.Compressed {
				if l.VisOffset+d.BytesPerSet > len(d.PVS) {
					return nil, errors.Errorf("bsp: leaf %d: vis set exceeds table", i)
				}
				continue
			}
			if _, err := DecompressVis(d.PVS[l.VisOffset:], d.BytesPerSet); err != nil {
				return nil, errors.Wrapf(err, "leaf %d", i)
			}
		}
	}
	return &Tree{d: d}, nil
}
