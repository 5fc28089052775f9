// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"log/slog"

	"github.com/gammazero/deque"
	"github.com/go-gl/mathgl/mgl64"

	"bspvis/math/plane"
	"bspvis/winding"
)

type visStatus uint8

const (
	unprocessed visStatus = iota
	processing
	processed
)

// visPortal is one direction of a portal. Its plane faces into leaf, the
// region visibility flows into. points is shared with the opposite
// direction and with the tree's portal vertex array.
type visPortal struct {
	points        []mgl64.Vec3
	plane         plane.Plane
	leaf          int
	status        visStatus
	possible      []byte
	possibleCount int
	actual        []byte
}

// visChain is the state carried along one line of portals.
type visChain struct {
	source      []mgl64.Vec3
	target      []mgl64.Vec3 // nil until the second hop
	targetPlane plane.Plane
	vis         []byte
}

type visCompiler struct {
	tol      plane.Tolerance
	maxDepth int
	bps      int
	log      *slog.Logger
	portals  []visPortal
	// out lists for every leaf the one-way portals leaving it
	out       [][]int
	depthHits int
}

func newVisCompiler(d *Data, tol plane.Tolerance, maxDepth int, log *slog.Logger) *visCompiler {
	v := &visCompiler{
		tol:      tol,
		maxDepth: maxDepth,
		bps:      d.BytesPerSet,
		log:      log,
		portals:  make([]visPortal, 2*len(d.Portals)),
		out:      make([][]int, len(d.Leaves)),
	}
	for i, p := range d.Portals {
		pts := d.PortalVertices[p.First : p.First+p.Count]
		pl := d.Planes[p.Plane]
		v.portals[2*i] = visPortal{points: pts, plane: pl, leaf: p.Owners[frontOwner]}
		v.portals[2*i+1] = visPortal{points: pts, plane: pl.Neg(), leaf: p.Owners[backOwner]}
	}
	for i := range v.portals {
		v.portals[i].possible = make([]byte, v.bps)
		v.portals[i].actual = make([]byte, v.bps)
	}
	for l, leaf := range d.Leaves {
		for _, pi := range leaf.Portals {
			oi := 2 * pi
			if v.portals[oi].leaf == l {
				oi++
			}
			// one sided portals lead nowhere
			if v.portals[oi].leaf < 0 {
				continue
			}
			v.out[l] = append(v.out[l], oi)
		}
	}
	return v
}

// compilePVS generates portals and fills the visibility table of the tree.
func (c *compiler) compilePVS() {
	c.buildPortals()
	c.d.BytesPerSet = BytesPerSet(len(c.d.Leaves))

	v := newVisCompiler(c.d, c.tol, c.cfg.MaxRecursionDepth, c.log)
	v.possibleVis()
	v.actualVis()
	if v.depthHits > 0 {
		c.log.Warn("portal chains cut at recursion limit, visibility is conservative",
			slog.Int("limit", v.maxDepth), slog.Int("hits", v.depthHits))
	}

	sets := make([][]byte, len(c.d.Leaves))
	for l := range sets {
		sets[l] = v.leafSet(l)
	}
	var offsets []int
	c.d.PVS, offsets = buildTable(sets, c.d.BytesPerSet, c.cfg.Compress)
	for l, o := range offsets {
		c.d.Leaves[l].VisOffset = o
	}
	c.d.Compressed = c.cfg.Compress
}

func anyOnSide(pts []mgl64.Vec3, p plane.Plane, side plane.Class, eps float64) bool {
	for _, v := range pts {
		if p.ClassifyPoint(v, eps) == side {
			return true
		}
	}
	return false
}

// possibleVis computes a cheap superset of the leaves visible through each
// portal. A neighbour portal passes if part of it lies beyond the source
// and part of the source lies behind it. Leaves reachable through passing
// portals are possibly visible.
func (v *visCompiler) possibleVis() {
	eps := v.tol.Point
	pass := make([]bool, len(v.portals))
	for i := range v.portals {
		p1 := &v.portals[i]
		if p1.leaf < 0 {
			p1.status = processed
			continue
		}
		for j := range v.portals {
			pass[j] = false
			p2 := &v.portals[j]
			if j == i || p2.leaf < 0 {
				continue
			}
			pass[j] = anyOnSide(p2.points, p1.plane, plane.Front, eps) &&
				anyOnSide(p1.points, p2.plane, plane.Back, eps)
		}
		v.flood(p1, pass)
	}
}

func (v *visCompiler) flood(src *visPortal, pass []bool) {
	var stack deque.Deque[int]
	stack.PushBack(src.leaf)
	for stack.Len() > 0 {
		l := stack.PopBack()
		if testBit(src.possible, l) {
			continue
		}
		setBit(src.possible, l)
		src.possibleCount++
		for _, oi := range v.out[l] {
			if pass[oi] {
				stack.PushBack(v.portals[oi].leaf)
			}
		}
	}
}

// next returns the unprocessed portal with the fewest possibly visible
// leaves, or -1.
func (v *visCompiler) next() int {
	best := -1
	for i := range v.portals {
		p := &v.portals[i]
		if p.status != unprocessed {
			continue
		}
		if best < 0 || p.possibleCount < v.portals[best].possibleCount {
			best = i
		}
	}
	if best >= 0 {
		v.portals[best].status = processing
	}
	return best
}

// actualVis narrows the possible sets down to leaves that can be seen
// through a chain of portals.
func (v *visCompiler) actualVis() {
	for i := v.next(); i >= 0; i = v.next() {
		p := &v.portals[i]
		v.recurse(p.leaf, p, &visChain{
			source:      p.points,
			targetPlane: p.plane,
			vis:         p.possible,
		}, 0)
		p.status = processed
	}
}

func (v *visCompiler) recurse(leaf int, src *visPortal, prev *visChain, depth int) {
	setBit(src.actual, leaf)
	if v.maxDepth > 0 && depth >= v.maxDepth {
		for k := range src.actual {
			src.actual[k] |= prev.vis[k]
		}
		v.depthHits++
		return
	}
	eps := v.tol.Point
	possible := make([]byte, v.bps)
	for _, gi := range v.out[leaf] {
		gen := &v.portals[gi]
		if !testBit(prev.vis, gen.leaf) {
			continue
		}
		test := gen.possible
		if gen.status == processed {
			test = gen.actual
		}
		more := false
		for k := range possible {
			possible[k] = prev.vis[k] & test[k]
			if possible[k]&^src.actual[k] != 0 {
				more = true
			}
		}
		if !more {
			continue
		}

		// never step back through the boundary we just came through
		rev := gen.plane.Neg()
		if rev.NearlyEqual(prev.targetPlane, v.tol) {
			continue
		}

		genPts := winding.Clip(gen.points, src.plane, eps, false)
		if genPts == nil {
			continue
		}
		next := visChain{targetPlane: gen.plane, vis: possible}

		if prev.target == nil {
			// the second leaf can only be blocked if coplanar
			next.source, next.target = prev.source, genPts
			v.recurse(gen.leaf, src, &next, depth+1)
			continue
		}

		if genPts = winding.Clip(genPts, prev.targetPlane, eps, false); genPts == nil {
			continue
		}
		srcPts := winding.Clip(prev.source, rev, eps, false)
		if srcPts == nil {
			continue
		}
		if genPts = v.clipToAntiPenumbra(srcPts, prev.target, genPts, false); genPts == nil {
			continue
		}
		if genPts = v.clipToAntiPenumbra(prev.target, srcPts, genPts, true); genPts == nil {
			continue
		}
		if srcPts = v.clipToAntiPenumbra(genPts, prev.target, srcPts, false); srcPts == nil {
			continue
		}
		if srcPts = v.clipToAntiPenumbra(prev.target, genPts, srcPts, true); srcPts == nil {
			continue
		}
		next.source, next.target = srcPts, genPts
		v.recurse(gen.leaf, src, &next, depth+1)
	}
}

// leafSet returns the decompressed visibility set of leaf l: the leaf
// itself and everything visible through its outgoing portals.
func (v *visCompiler) leafSet(l int) []byte {
	set := make([]byte, v.bps)
	setBit(set, l)
	for _, oi := range v.out[l] {
		for k, b := range v.portals[oi].actual {
			set[k] |= b
		}
	}
	return set
}
