// SPDX-License-Identifier: GPL-2.0-or-later

// Package assetpack stores compiled trees in protobuf wire format.
package assetpack

import (
	"math"
	"os"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/pkg/errors"
	"google.golang.org/protobuf/encoding/protowire"

	"bspvis/bsp"
	"bspvis/math/plane"
)

// top level field numbers
const (
	fieldID protowire.Number = iota + 1
	fieldBounds
	fieldPlanes
	fieldNodes
	fieldLeaves
	fieldPortals
	fieldPortalVertices
	fieldBytesPerSet
	fieldPVS
	fieldCompressed
	fieldEpsilon
)

// leaf message
const (
	leafPortals protowire.Number = iota + 1
	leafVisOffset
)

// portal message
const (
	portalFirst protowire.Number = iota + 1
	portalCount
	portalPlane
	portalNode
	portalFront
	portalBack
)

func appendDoubles(b []byte, num protowire.Number, vals ...float64) []byte {
	if len(vals) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vals {
		packed = protowire.AppendFixed64(packed, math.Float64bits(v))
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func appendVarints(b []byte, num protowire.Number, vals ...uint64) []byte {
	if len(vals) == 0 {
		return b
	}
	var packed []byte
	for _, v := range vals {
		packed = protowire.AppendVarint(packed, v)
	}
	b = protowire.AppendTag(b, num, protowire.BytesType)
	return protowire.AppendBytes(b, packed)
}

func appendVarint(b []byte, num protowire.Number, v uint64) []byte {
	b = protowire.AppendTag(b, num, protowire.VarintType)
	return protowire.AppendVarint(b, v)
}

func encodeRef(r bsp.ChildRef) uint64 {
	return uint64(r.Index)<<2 | uint64(r.Kind)
}

func decodeRef(v uint64) bsp.ChildRef {
	return bsp.ChildRef{Kind: bsp.RefKind(v & 3), Index: int(v >> 2)}
}

// Marshal encodes d.
func Marshal(d bsp.Data) []byte {
	var b []byte
	b = protowire.AppendTag(b, fieldID, protowire.BytesType)
	b = protowire.AppendBytes(b, d.ID[:])
	b = appendDoubles(b, fieldBounds,
		d.Bounds.Min[0], d.Bounds.Min[1], d.Bounds.Min[2],
		d.Bounds.Max[0], d.Bounds.Max[1], d.Bounds.Max[2])

	planes := make([]float64, 0, 4*len(d.Planes))
	for _, p := range d.Planes {
		planes = append(planes, p.Normal[0], p.Normal[1], p.Normal[2], p.Dist)
	}
	b = appendDoubles(b, fieldPlanes, planes...)

	nodes := make([]uint64, 0, 3*len(d.Nodes))
	for _, n := range d.Nodes {
		nodes = append(nodes, uint64(n.Plane), encodeRef(n.Front), encodeRef(n.Back))
	}
	b = appendVarints(b, fieldNodes, nodes...)

	for _, l := range d.Leaves {
		var m []byte
		portals := make([]uint64, len(l.Portals))
		for i, p := range l.Portals {
			portals[i] = uint64(p)
		}
		m = appendVarints(m, leafPortals, portals...)
		m = appendVarint(m, leafVisOffset, uint64(l.VisOffset))
		b = protowire.AppendTag(b, fieldLeaves, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}

	for _, p := range d.Portals {
		var m []byte
		m = appendVarint(m, portalFirst, uint64(p.First))
		m = appendVarint(m, portalCount, uint64(p.Count))
		m = appendVarint(m, portalPlane, uint64(p.Plane))
		m = appendVarint(m, portalNode, uint64(p.Node))
		// unresolved owners are -1, stored shifted by one
		m = appendVarint(m, portalFront, uint64(p.Owners[0]+1))
		m = appendVarint(m, portalBack, uint64(p.Owners[1]+1))
		b = protowire.AppendTag(b, fieldPortals, protowire.BytesType)
		b = protowire.AppendBytes(b, m)
	}

	verts := make([]float64, 0, 3*len(d.PortalVertices))
	for _, v := range d.PortalVertices {
		verts = append(verts, v[0], v[1], v[2])
	}
	b = appendDoubles(b, fieldPortalVertices, verts...)

	b = appendVarint(b, fieldBytesPerSet, uint64(d.BytesPerSet))
	if len(d.PVS) > 0 {
		b = protowire.AppendTag(b, fieldPVS, protowire.BytesType)
		b = protowire.AppendBytes(b, d.PVS)
	}
	b = appendVarint(b, fieldCompressed, protowire.EncodeBool(d.Compressed))
	b = protowire.AppendTag(b, fieldEpsilon, protowire.Fixed64Type)
	b = protowire.AppendFixed64(b, math.Float64bits(d.Epsilon))
	return b
}

// Unmarshal decodes data written by Marshal. The result is not validated,
// use bsp.FromData for that.
func Unmarshal(b []byte) (bsp.Data, error) {
	var (
		d      bsp.Data
		bounds []float64
		planes []float64
		nodes  []uint64
		verts  []float64
	)
	err := fields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		var err error
		switch num {
		case fieldID:
			if len(v) != len(d.ID) {
				return errors.Errorf("id has %d bytes", len(v))
			}
			d.ID, err = uuid.FromBytes(v)
		case fieldBounds:
			bounds, err = doubles(v, bounds)
		case fieldPlanes:
			planes, err = doubles(v, planes)
		case fieldNodes:
			nodes, err = varints(v, nodes)
		case fieldLeaves:
			var l bsp.Leaf
			l, err = unmarshalLeaf(v)
			d.Leaves = append(d.Leaves, l)
		case fieldPortals:
			var p bsp.Portal
			p, err = unmarshalPortal(v)
			d.Portals = append(d.Portals, p)
		case fieldPortalVertices:
			verts, err = doubles(v, verts)
		case fieldBytesPerSet:
			d.BytesPerSet = int(x)
		case fieldPVS:
			d.PVS = append([]byte(nil), v...)
		case fieldCompressed:
			d.Compressed = protowire.DecodeBool(x)
		case fieldEpsilon:
			d.Epsilon = math.Float64frombits(x)
		}
		return err
	})
	if err != nil {
		return bsp.Data{}, errors.Wrap(err, "assetpack")
	}

	if len(bounds) != 0 && len(bounds) != 6 {
		return bsp.Data{}, errors.Errorf("assetpack: %d bound values", len(bounds))
	}
	if len(bounds) == 6 {
		d.Bounds.Min = mgl64.Vec3{bounds[0], bounds[1], bounds[2]}
		d.Bounds.Max = mgl64.Vec3{bounds[3], bounds[4], bounds[5]}
	}
	if len(planes)%4 != 0 {
		return bsp.Data{}, errors.Errorf("assetpack: %d plane values", len(planes))
	}
	for i := 0; i < len(planes); i += 4 {
		d.Planes = append(d.Planes, plane.Plane{
			Normal: mgl64.Vec3{planes[i], planes[i+1], planes[i+2]},
			Dist:   planes[i+3],
		})
	}
	if len(nodes)%3 != 0 {
		return bsp.Data{}, errors.Errorf("assetpack: %d node values", len(nodes))
	}
	for i := 0; i < len(nodes); i += 3 {
		d.Nodes = append(d.Nodes, bsp.Node{
			Plane: int(nodes[i]),
			Front: decodeRef(nodes[i+1]),
			Back:  decodeRef(nodes[i+2]),
		})
	}
	if len(verts)%3 != 0 {
		return bsp.Data{}, errors.Errorf("assetpack: %d vertex values", len(verts))
	}
	for i := 0; i < len(verts); i += 3 {
		d.PortalVertices = append(d.PortalVertices, mgl64.Vec3{verts[i], verts[i+1], verts[i+2]})
	}
	return d, nil
}

func unmarshalLeaf(b []byte) (bsp.Leaf, error) {
	var l bsp.Leaf
	err := fields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch num {
		case leafPortals:
			p, err := varints(v, nil)
			if err != nil {
				return err
			}
			for _, i := range p {
				l.Portals = append(l.Portals, int(i))
			}
		case leafVisOffset:
			l.VisOffset = int(x)
		}
		return nil
	})
	return l, errors.Wrap(err, "leaf")
}

func unmarshalPortal(b []byte) (bsp.Portal, error) {
	var p bsp.Portal
	err := fields(b, func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error {
		switch num {
		case portalFirst:
			p.First = int(x)
		case portalCount:
			p.Count = int(x)
		case portalPlane:
			p.Plane = int(x)
		case portalNode:
			p.Node = int(x)
		case portalFront:
			p.Owners[0] = int(x) - 1
		case portalBack:
			p.Owners[1] = int(x) - 1
		}
		return nil
	})
	return p, errors.Wrap(err, "portal")
}

// fields walks the message in b. Length delimited values are passed in v,
// varint and fixed64 values in x. Unknown fields are skipped.
func fields(b []byte, fn func(num protowire.Number, typ protowire.Type, v []byte, x uint64) error) error {
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		var (
			v []byte
			x uint64
		)
		switch typ {
		case protowire.VarintType:
			x, n = protowire.ConsumeVarint(b)
		case protowire.Fixed64Type:
			x, n = protowire.ConsumeFixed64(b)
		case protowire.BytesType:
			v, n = protowire.ConsumeBytes(b)
		default:
			n = protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return protowire.ParseError(n)
			}
			b = b[n:]
			continue
		}
		if n < 0 {
			return protowire.ParseError(n)
		}
		b = b[n:]
		if err := fn(num, typ, v, x); err != nil {
			return errors.Wrapf(err, "field %d", num)
		}
	}
	return nil
}

func doubles(b []byte, dst []float64) ([]float64, error) {
	for len(b) > 0 {
		x, n := protowire.ConsumeFixed64(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		dst = append(dst, math.Float64frombits(x))
		b = b[n:]
	}
	return dst, nil
}

func varints(b []byte, dst []uint64) ([]uint64, error) {
	for len(b) > 0 {
		x, n := protowire.ConsumeVarint(b)
		if n < 0 {
			return nil, protowire.ParseError(n)
		}
		dst = append(dst, x)
		b = b[n:]
	}
	return dst, nil
}

// Save writes the tree to name.
func Save(name string, t *bsp.Tree) error {
	if err := os.WriteFile(name, Marshal(t.Data()), 0o644); err != nil {
		return errors.Wrapf(err, "writing %s", name)
	}
	return nil
}

// Load reads and validates a tree written by Save.
func Load(name string) (*bsp.Tree, error) {
	in, err := os.ReadFile(name)
	if err != nil {
		return nil, errors.Wrapf(err, "reading %s", name)
	}
	d, err := Unmarshal(in)
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", name)
	}
	t, err := bsp.FromData(d)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", name)
	}
	return t, nil
}
