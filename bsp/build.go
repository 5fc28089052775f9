// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"math"

	"github.com/gammazero/deque"
	"github.com/go-gl/mathgl/mgl64"

	"bspvis/math/plane"
	"bspvis/winding"
)

type buildTask struct {
	parent int // -1 for the root
	front  bool
	faces  []int
}

// buildTree partitions all faces. Tasks are processed depth first with the
// front side first, so nodes and leaves are numbered as a recursive
// front-first descent would number them.
func (c *compiler) buildTree() {
	all := make([]int, len(c.faces))
	for i := range all {
		all[i] = i
	}
	var stack deque.Deque[buildTask]
	stack.PushBack(buildTask{parent: -1, front: true, faces: all})
	for stack.Len() > 0 {
		t := stack.PopBack()
		var ref ChildRef
		switch {
		case c.hasSplitter(t.faces):
			ni := len(c.d.Nodes)
			c.d.Nodes = append(c.d.Nodes, Node{})
			ref = NodeRef(ni)
			pi, front, back := c.partition(t.faces)
			c.d.Nodes[ni].Plane = pi
			stack.PushBack(buildTask{parent: ni, front: false, faces: back})
			stack.PushBack(buildTask{parent: ni, front: true, faces: front})
		case t.front:
			ref = LeafRef(len(c.d.Leaves))
			c.d.Leaves = append(c.d.Leaves, Leaf{})
		default:
			ref = Solid
		}
		if t.parent < 0 {
			continue
		}
		if t.front {
			c.d.Nodes[t.parent].Front = ref
		} else {
			c.d.Nodes[t.parent].Back = ref
		}
	}
}

func (c *compiler) hasSplitter(faces []int) bool {
	for _, fi := range faces {
		if !c.faces[fi].used {
			return true
		}
	}
	return false
}

// score rates a splitter. Lower is better.
func score(front, back, spanning int, heuristic float64) int {
	d := front - back
	if d < 0 {
		d = -d
	}
	return int(float64(d) + float64(spanning)*heuristic)
}

// selectSplitter returns the unused face whose plane partitions faces best.
// At most SplitterSample candidates are rated.
func (c *compiler) selectSplitter(faces []int) int {
	best, bestScore, sampled := -1, math.MaxInt, 0
	for _, ci := range faces {
		if !c.faces[ci].used {
			p := c.d.Planes[c.faces[ci].plane]
			front, back, spanning := 0, 0, 0
			for _, fi := range faces {
				switch p.ClassifyPolygon(c.points(c.faces[fi]), c.tol.Point) {
				case plane.Front:
					front++
				case plane.Back:
					back++
				case plane.Spanning:
					spanning++
				}
			}
			if s := score(front, back, spanning, c.cfg.SplitHeuristic); s < bestScore {
				best, bestScore = ci, s
			}
			sampled++
		}
		if c.cfg.SplitterSample > 0 && sampled >= c.cfg.SplitterSample && best >= 0 {
			break
		}
	}
	return best
}

// partition picks a splitter and distributes faces to its sides. Faces on
// the splitter plane that face the same way are marked used.
func (c *compiler) partition(faces []int) (planeIdx int, front, back []int) {
	si := c.selectSplitter(faces)
	c.faces[si].used = true
	planeIdx = c.faces[si].plane
	sp := c.d.Planes[planeIdx]

	for _, fi := range faces {
		f := c.faces[fi]
		class := plane.On
		if f.plane != planeIdx {
			class = sp.ClassifyPolygon(c.points(f), c.tol.Point)
		}
		switch class {
		case plane.On:
			if f.plane == planeIdx || c.d.Planes[f.plane].Normal.Dot(sp.Normal) > 0 {
				c.faces[fi].used = true
				front = append(front, fi)
			} else {
				back = append(back, fi)
			}
		case plane.Front:
			front = append(front, fi)
		case plane.Back:
			back = append(back, fi)
		case plane.Spanning:
			fp, bp := winding.Split(c.points(f), sp, c.tol.Point)
			if i, ok := c.addFragment(f, fp); ok {
				front = append(front, i)
			}
			if i, ok := c.addFragment(f, bp); ok {
				back = append(back, i)
			}
		}
	}
	return planeIdx, front, back
}

// addFragment stores a piece of f, re-projected onto the plane of f.
func (c *compiler) addFragment(f face, pts []mgl64.Vec3) (int, bool) {
	if len(pts) < 3 {
		return 0, false
	}
	p := c.d.Planes[f.plane]
	first := len(c.verts)
	for _, v := range pts {
		c.verts = append(c.verts, p.Project(v))
	}
	c.faces = append(c.faces, face{first: first, count: len(pts), plane: f.plane, used: f.used})
	return len(c.faces) - 1, true
}
