// SPDX-License-Identifier: GPL-2.0-or-later

package mesh

import (
	"bytes"
	"io"
	"os"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl64"
	"github.com/pkg/errors"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// LoadGLTF reads a .gltf or .glb file and returns one instance per mesh
// node of its default scene.
func LoadGLTF(path string) ([]Instance, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "loading %s", path)
	}
	inst, err := LoadGLTFData(bytes.NewReader(data))
	if err != nil {
		return nil, errors.Wrapf(err, "decoding %s", path)
	}
	return inst, nil
}

// LoadGLTFData decodes a glTF document. Only triangle list primitives are
// read, everything but positions is ignored.
func LoadGLTFData(r io.Reader) ([]Instance, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(r).Decode(doc); err != nil {
		return nil, err
	}
	l := gltfLoader{doc: doc, meshes: make(map[int]Soup)}

	if len(doc.Scenes) > 0 {
		scene := doc.Scenes[0]
		if doc.Scene != nil {
			if int(*doc.Scene) >= len(doc.Scenes) {
				return nil, errors.Errorf("default scene %d out of range", *doc.Scene)
			}
			scene = doc.Scenes[*doc.Scene]
		}
		for _, n := range scene.Nodes {
			if err := l.walk(int(n), mgl64.Ident4(), 0); err != nil {
				return nil, err
			}
		}
		return l.instances, nil
	}

	// no scene, use every node without a parent
	child := make([]bool, len(doc.Nodes))
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			if int(c) < len(child) {
				child[c] = true
			}
		}
	}
	for i := range doc.Nodes {
		if child[i] {
			continue
		}
		if err := l.walk(i, mgl64.Ident4(), 0); err != nil {
			return nil, err
		}
	}
	return l.instances, nil
}

// glTF node graphs are trees; the limit guards against malformed cycles.
const maxNodeDepth = 256

type gltfLoader struct {
	doc       *gltf.Document
	meshes    map[int]Soup
	instances []Instance
}

func (l *gltfLoader) walk(idx int, parent mgl64.Mat4, depth int) error {
	if idx < 0 || idx >= len(l.doc.Nodes) {
		return errors.Errorf("node %d out of range", idx)
	}
	if depth > maxNodeDepth {
		return errors.Errorf("node hierarchy deeper than %d", maxNodeDepth)
	}
	node := l.doc.Nodes[idx]
	world := parent.Mul4(localTransform(node))
	if node.Mesh != nil {
		soup, err := l.mesh(int(*node.Mesh))
		if err != nil {
			return errors.Wrapf(err, "node %q", node.Name)
		}
		if len(soup) > 0 {
			l.instances = append(l.instances, Place(soup, world))
		}
	}
	for _, c := range node.Children {
		if err := l.walk(int(c), world, depth+1); err != nil {
			return err
		}
	}
	return nil
}

func (l *gltfLoader) mesh(idx int) (Soup, error) {
	if s, ok := l.meshes[idx]; ok {
		return s, nil
	}
	if idx < 0 || idx >= len(l.doc.Meshes) {
		return nil, errors.Errorf("mesh %d out of range", idx)
	}
	var soup Soup
	for pi, prim := range l.doc.Meshes[idx].Primitives {
		if prim.Mode != gltf.PrimitiveTriangles {
			continue
		}
		posIdx, ok := prim.Attributes[gltf.POSITION]
		if !ok {
			continue
		}
		pos, err := modeler.ReadPosition(l.doc, l.doc.Accessors[posIdx], nil)
		if err != nil {
			return nil, errors.Wrapf(err, "mesh %d primitive %d positions", idx, pi)
		}
		for _, p := range pos {
			for _, c := range p {
				if math32.IsNaN(c) || math32.IsInf(c, 0) {
					return nil, errors.Errorf("mesh %d primitive %d: non finite position %v", idx, pi, p)
				}
			}
		}
		var indices []uint32
		if prim.Indices != nil {
			indices, err = modeler.ReadIndices(l.doc, l.doc.Accessors[*prim.Indices], nil)
			if err != nil {
				return nil, errors.Wrapf(err, "mesh %d primitive %d indices", idx, pi)
			}
		} else {
			indices = make([]uint32, len(pos))
			for i := range indices {
				indices[i] = uint32(i)
			}
		}
		for i := 0; i+2 < len(indices); i += 3 {
			var t [3]mgl64.Vec3
			for k := 0; k < 3; k++ {
				vi := int(indices[i+k])
				if vi >= len(pos) {
					return nil, errors.Errorf("mesh %d primitive %d: index %d out of range", idx, pi, vi)
				}
				p := pos[vi]
				t[k] = mgl64.Vec3{float64(p[0]), float64(p[1]), float64(p[2])}
			}
			soup = append(soup, t)
		}
	}
	l.meshes[idx] = soup
	return soup, nil
}

func localTransform(n *gltf.Node) mgl64.Mat4 {
	var m mgl64.Mat4
	for i := range n.Matrix {
		m[i] = float64(n.Matrix[i])
	}
	if m != (mgl64.Mat4{}) && m != mgl64.Ident4() {
		// glTF and mgl64 are both column major
		return m
	}
	t := mgl64.Translate3D(float64(n.Translation[0]), float64(n.Translation[1]), float64(n.Translation[2]))
	q := mgl64.Quat{
		W: float64(n.Rotation[3]),
		V: mgl64.Vec3{float64(n.Rotation[0]), float64(n.Rotation[1]), float64(n.Rotation[2])},
	}
	if q == (mgl64.Quat{}) {
		q = mgl64.QuatIdent()
	}
	s := mgl64.Vec3{float64(n.Scale[0]), float64(n.Scale[1]), float64(n.Scale[2])}
	if s == (mgl64.Vec3{}) {
		s = mgl64.Vec3{1, 1, 1}
	}
	return t.Mul4(q.Normalize().Mat4()).Mul4(mgl64.Scale3D(s[0], s[1], s[2]))
}
