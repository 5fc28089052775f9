package bsp

import (
	"sync"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bspvis/config"
	"bspvis/math/vec"
	"bspvis/mesh"
)

var (
	straightLevel = []string{
		"....####....",
		"............",
		"............",
		"....####....",
	}
	// the rooms are connected, but no line of sight passes the two bends
	bentLevel = []string{
		"....#########",
		"....#########",
		"....#########",
		".......######",
		"######.######",
		"######.######",
		"######.##....",
		"######.##....",
		"######.##....",
		"######.......",
	}
	bentA = mgl64.Vec3{1.5, 1, 1.5}
	bentB = mgl64.Vec3{11.5, 1, 7.5}
)

func compileLevel(t *testing.T, cfg config.Config, srcs ...mesh.Source) *Tree {
	t.Helper()
	var in []mesh.Instance
	for _, s := range srcs {
		in = append(in, mesh.Instance{Source: s})
	}
	tree, err := Compile(in, cfg)
	require.NoError(t, err)
	return tree
}

func leafAt(t *testing.T, tree *Tree, p mgl64.Vec3) int {
	t.Helper()
	ref := tree.FindLeaf(p)
	l, ok := ref.Leaf()
	require.True(t, ok, "point %v is in %v", p, ref)
	return l
}

func TestCompileErrors(t *testing.T) {
	_, err := Compile(nil, config.Default())
	assert.ErrorIs(t, err, ErrNoGeometry)

	flat := mesh.Soup{{{0, 0, 0}, {1, 0, 0}, {2, 0, 0}}}
	_, err = Compile([]mesh.Instance{{Source: flat}, {}}, config.Default())
	assert.ErrorIs(t, err, ErrNoGeometry)

	cfg := config.Default()
	cfg.Tolerance.Point = 0
	_, err = Compile([]mesh.Instance{{Source: mesh.Box(mgl64.Vec3{}, mgl64.Vec3{1, 1, 1}, true)}}, cfg)
	assert.Error(t, err)
}

func TestSingleBox(t *testing.T) {
	tree := compileLevel(t, config.Default(), mesh.Box(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{4, 4, 4}, true))

	require.Len(t, tree.Leaves(), 1)
	assert.Len(t, tree.Planes(), 6)
	assert.Len(t, tree.Nodes(), 6)
	for i, n := range tree.Nodes() {
		assert.True(t, n.Back.IsSolid(), "node %d back is %v", i, n.Back)
	}
	assert.Empty(t, tree.Portals())
	assert.Equal(t, 4, tree.BytesPerSet())
	assert.Len(t, tree.PVSData(), 4)
	assert.True(t, tree.LeafVisible(0, 0))
	assert.Equal(t, vec.Box{Max: mgl64.Vec3{4, 4, 4}}, tree.Bounds())

	center := mgl64.Vec3{2, 2, 2}
	assert.Equal(t, LeafRef(0), tree.FindLeaf(center))
	// on the floor plane counts as inside
	assert.Equal(t, LeafRef(0), tree.FindLeaf(mgl64.Vec3{2, 0, 2}))
	assert.Equal(t, LeafRef(0), tree.FindLeaf(mgl64.Vec3{2, -0.0005, 2}))
	for _, p := range []mgl64.Vec3{{2, -0.01, 2}, {20, 2, 2}, {-1, 2, 2}, {2, 2, 5}} {
		assert.Equal(t, Solid, tree.FindLeaf(p), "point %v", p)
	}

	s := vec.Sphere{Center: center, Radius: 1}
	assert.True(t, tree.IsVolumeVisible(LeafRef(0), s))
	assert.Equal(t, []int{0}, tree.FindLeaves(s, LeafRef(0), nil))
	assert.Empty(t, tree.FindLeaves(vec.Sphere{Center: mgl64.Vec3{10, 10, 10}, Radius: 1}, Invalid, nil))
}

func TestTwoSealedRooms(t *testing.T) {
	tree := compileLevel(t, config.Default(),
		mesh.Box(mgl64.Vec3{0, 0, 0}, mgl64.Vec3{4, 4, 4}, true),
		mesh.Box(mgl64.Vec3{10, 0, 0}, mgl64.Vec3{14, 4, 4}, true))

	pa := mgl64.Vec3{2, 2, 2}
	pb := mgl64.Vec3{12, 2, 2}
	a := leafAt(t, tree, pa)
	b := leafAt(t, tree, pb)
	require.NotEqual(t, a, b)
	assert.Equal(t, Solid, tree.FindLeaf(mgl64.Vec3{7, 2, 2}))
	assert.Len(t, tree.PVSData(), len(tree.Leaves())*tree.BytesPerSet())

	assert.False(t, tree.LeafVisible(a, b))
	assert.False(t, tree.LeafVisible(b, a))
	assert.False(t, tree.IsVolumeVisible(LeafRef(a), vec.Sphere{Center: pb, Radius: 0.5}))
	assert.True(t, tree.IsVolumeVisible(LeafRef(a), vec.Sphere{Center: pa, Radius: 0.5}))
	// a sphere reaching into both rooms is seen from either
	both := vec.Sphere{Center: mgl64.Vec3{7, 2, 2}, Radius: 6}
	assert.True(t, tree.IsVolumeVisible(LeafRef(b), both))
	assert.ElementsMatch(t, []int{a}, tree.FindLeaves(both, LeafRef(a), nil))
	assert.ElementsMatch(t, []int{a, b}, tree.FindLeaves(both, Invalid, nil))
}

func TestStraightCorridor(t *testing.T) {
	tree := compileLevel(t, config.Default(), mesh.Layout(straightLevel, 1, 2))

	pa := mgl64.Vec3{1.5, 1, 1.5}
	pb := mgl64.Vec3{10.5, 1, 2.5}
	a := leafAt(t, tree, pa)
	b := leafAt(t, tree, pb)
	require.NotEqual(t, a, b)
	assert.NotEmpty(t, tree.Portals())

	assert.True(t, tree.LeafVisible(a, b))
	assert.True(t, tree.LeafVisible(b, a))
	assert.True(t, tree.IsVolumeVisible(LeafRef(a), vec.Sphere{Center: pb, Radius: 0.25}))
	assert.Equal(t, Solid, tree.FindLeaf(mgl64.Vec3{6, 1, 0.5}))
}

func TestBentCorridor(t *testing.T) {
	tree := compileLevel(t, config.Default(), mesh.Layout(bentLevel, 1, 2))

	a := leafAt(t, tree, bentA)
	b := leafAt(t, tree, bentB)
	require.NotEqual(t, a, b)
	require.True(t, connected(tree, a, b), "rooms must be joined by portals")

	assert.False(t, tree.LeafVisible(a, b))
	assert.False(t, tree.LeafVisible(b, a))
	assert.False(t, tree.IsVolumeVisible(LeafRef(a), vec.Sphere{Center: bentB, Radius: 0.25}))
	assert.NotContains(t, tree.FindLeaves(vec.Sphere{Center: bentB, Radius: 0.25}, LeafRef(a), nil), b)
}

// connected walks the portal graph from leaf a.
func connected(tree *Tree, a, b int) bool {
	seen := map[int]bool{a: true}
	todo := []int{a}
	for len(todo) > 0 {
		l := todo[len(todo)-1]
		todo = todo[:len(todo)-1]
		if l == b {
			return true
		}
		for _, pi := range tree.Leaves()[l].Portals {
			for _, o := range tree.Portals()[pi].Owners {
				if o >= 0 && !seen[o] {
					seen[o] = true
					todo = append(todo, o)
				}
			}
		}
	}
	return false
}

func TestEveryLeafSeesItself(t *testing.T) {
	for _, level := range [][]string{straightLevel, bentLevel} {
		tree := compileLevel(t, config.Default(), mesh.Layout(level, 1, 2))
		require.Len(t, tree.PVSData(), len(tree.Leaves())*tree.BytesPerSet())
		for l := range tree.Leaves() {
			assert.True(t, tree.LeafVisible(l, l), "leaf %d", l)
		}
	}
}

func TestPortalsConnectLeavesOnBothSides(t *testing.T) {
	tree := compileLevel(t, config.Default(), mesh.Layout(bentLevel, 1, 2))
	for i, p := range tree.Portals() {
		assert.GreaterOrEqual(t, p.Count, 3, "portal %d", i)
		pl := tree.Planes()[p.Plane]
		for _, v := range tree.PortalPoints(i) {
			assert.InDelta(t, 0, pl.Distance(v), 1e-6, "portal %d vertex off its plane", i)
		}
		for side, l := range p.Owners {
			if l < 0 {
				continue
			}
			assert.Contains(t, tree.Leaves()[l].Portals, i, "portal %d side %d", i, side)
		}
	}
}

func TestCompileIsDeterministic(t *testing.T) {
	src := mesh.Layout(bentLevel, 1, 2)
	t1 := compileLevel(t, config.Default(), src)
	t2 := compileLevel(t, config.Default(), src)
	assert.NotEqual(t, t1.ID(), t2.ID())
	assert.Equal(t, t1.Planes(), t2.Planes())
	assert.Equal(t, t1.Nodes(), t2.Nodes())
	assert.Equal(t, t1.Leaves(), t2.Leaves())
	assert.Equal(t, t1.Portals(), t2.Portals())
	assert.Equal(t, t1.PortalVertices(), t2.PortalVertices())
	assert.Equal(t, t1.PVSData(), t2.PVSData())
}

func TestCompressedTable(t *testing.T) {
	cfg := config.Default()
	plain := compileLevel(t, cfg, mesh.Layout(bentLevel, 1, 2))
	cfg.Compress = true
	packed := compileLevel(t, cfg, mesh.Layout(bentLevel, 1, 2))

	require.True(t, packed.Compressed())
	require.Equal(t, len(plain.Leaves()), len(packed.Leaves()))
	for l := range plain.Leaves() {
		assert.Equal(t, plain.LeafPVS(l), packed.LeafPVS(l), "leaf %d", l)
	}
	a := leafAt(t, packed, bentA)
	assert.False(t, packed.IsVolumeVisible(LeafRef(a), vec.Sphere{Center: bentB, Radius: 0.25}))
}

func TestWithoutPVS(t *testing.T) {
	tree, err := Compile([]mesh.Instance{{Source: mesh.Layout(bentLevel, 1, 2)}}, config.Default(), WithoutPVS())
	require.NoError(t, err)
	assert.Empty(t, tree.PVSData())
	assert.Empty(t, tree.Portals())
	a := leafAt(t, tree, bentA)
	b := leafAt(t, tree, bentB)
	assert.Nil(t, tree.LeafPVS(a))
	assert.True(t, tree.LeafVisible(a, b))
	assert.True(t, tree.IsVolumeVisible(LeafRef(a), vec.Sphere{Center: bentB, Radius: 0.25}))
	assert.Nil(t, tree.FatPVS(vec.Sphere{Center: bentA, Radius: 1}))
}

func TestFailOpenQueries(t *testing.T) {
	tree := compileLevel(t, config.Default(), mesh.Layout(bentLevel, 1, 2))
	s := vec.Sphere{Center: bentB, Radius: 0.25}
	assert.True(t, tree.IsVolumeVisible(Solid, s))
	assert.True(t, tree.IsVolumeVisible(Invalid, s))
	assert.True(t, tree.IsVolumeVisible(LeafRef(len(tree.Leaves())), s))

	var empty Tree
	assert.Equal(t, Invalid, empty.FindLeaf(bentA))
	assert.True(t, empty.IsVolumeVisible(LeafRef(0), s))
	assert.Empty(t, empty.FindLeaves(s, Invalid, nil))
}

func TestNilTreeQueries(t *testing.T) {
	var tree *Tree
	s := vec.Sphere{Center: bentB, Radius: 0.25}
	assert.Equal(t, Invalid, tree.FindLeaf(bentA))
	assert.Nil(t, tree.FindLeaves(s, LeafRef(0), nil))
	assert.True(t, tree.IsVolumeVisible(LeafRef(0), s))
	assert.True(t, tree.LeafVisible(0, 1))
	assert.Nil(t, tree.LeafPVS(0))
	assert.Nil(t, tree.FatPVS(s))
}

func TestFatPVS(t *testing.T) {
	tree := compileLevel(t, config.Default(), mesh.Layout(bentLevel, 1, 2))
	a := leafAt(t, tree, bentA)
	fat := tree.FatPVS(vec.Sphere{Center: bentA, Radius: 0.1})
	require.Len(t, fat, tree.BytesPerSet())
	for l := range tree.Leaves() {
		assert.Equal(t, tree.LeafVisible(a, l), testBit(fat, l), "leaf %d", l)
	}
}

func TestConcurrentQueries(t *testing.T) {
	tree := compileLevel(t, config.Default(), mesh.Layout(bentLevel, 1, 2))
	a := leafAt(t, tree, bentA)
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				if tree.FindLeaf(bentA) != LeafRef(a) {
					t.Errorf("FindLeaf changed")
					return
				}
				if tree.IsVolumeVisible(LeafRef(a), vec.Sphere{Center: bentB, Radius: 0.25}) {
					t.Errorf("IsVolumeVisible changed")
					return
				}
			}
		}()
	}
	wg.Wait()
}
