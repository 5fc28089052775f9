package assetpack

import (
	"path/filepath"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/protobuf/encoding/protowire"

	"bspvis/bsp"
	"bspvis/config"
	"bspvis/math/vec"
	"bspvis/mesh"
)

var level = []string{
	"....####....",
	"............",
	"............",
	"....####....",
}

func compile(t *testing.T, compress bool) *bsp.Tree {
	t.Helper()
	cfg := config.Default()
	cfg.Compress = compress
	tree, err := bsp.Compile([]mesh.Instance{{Source: mesh.Layout(level, 1, 2)}}, cfg)
	require.NoError(t, err)
	return tree
}

func assertSameData(t *testing.T, want, got bsp.Data) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Bounds, got.Bounds)
	assert.Equal(t, want.Planes, got.Planes)
	assert.Equal(t, want.Nodes, got.Nodes)
	assert.Equal(t, want.Portals, got.Portals)
	assert.Equal(t, want.PortalVertices, got.PortalVertices)
	assert.Equal(t, want.BytesPerSet, got.BytesPerSet)
	assert.Equal(t, want.PVS, got.PVS)
	assert.Equal(t, want.Compressed, got.Compressed)
	assert.Equal(t, want.Epsilon, got.Epsilon)
	require.Len(t, got.Leaves, len(want.Leaves))
	for i := range want.Leaves {
		assert.ElementsMatch(t, want.Leaves[i].Portals, got.Leaves[i].Portals, "leaf %d", i)
		assert.Equal(t, want.Leaves[i].VisOffset, got.Leaves[i].VisOffset, "leaf %d", i)
	}
}

func TestRoundTrip(t *testing.T) {
	for _, compress := range []bool{false, true} {
		tree := compile(t, compress)
		got, err := Unmarshal(Marshal(tree.Data()))
		require.NoError(t, err)
		assertSameData(t, tree.Data(), got)
	}
}

func TestRoundTripWithoutPVS(t *testing.T) {
	tree, err := bsp.Compile([]mesh.Instance{{Source: mesh.Layout(level, 1, 2)}}, config.Default(), bsp.WithoutPVS())
	require.NoError(t, err)
	got, err := Unmarshal(Marshal(tree.Data()))
	require.NoError(t, err)
	assertSameData(t, tree.Data(), got)
}

func TestSaveLoad(t *testing.T) {
	tree := compile(t, true)
	name := filepath.Join(t.TempDir(), "level.bvp")
	require.NoError(t, Save(name, tree))

	loaded, err := Load(name)
	require.NoError(t, err)
	a := tree.FindLeaf(mgl64.Vec3{1.5, 1, 1.5})
	b := tree.FindLeaf(mgl64.Vec3{10.5, 1, 2.5})
	assert.Equal(t, a, loaded.FindLeaf(mgl64.Vec3{1.5, 1, 1.5}))
	assert.Equal(t, b, loaded.FindLeaf(mgl64.Vec3{10.5, 1, 2.5}))
	s := vec.Sphere{Center: mgl64.Vec3{10.5, 1, 2.5}, Radius: 0.25}
	assert.True(t, loaded.IsVolumeVisible(a, s))
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing"))
	assert.Error(t, err)
}

func TestUnmarshalSkipsUnknownFields(t *testing.T) {
	tree := compile(t, false)
	b := Marshal(tree.Data())
	b = protowire.AppendTag(b, 99, protowire.VarintType)
	b = protowire.AppendVarint(b, 7)
	b = protowire.AppendTag(b, 100, protowire.Fixed32Type)
	b = protowire.AppendFixed32(b, 7)
	got, err := Unmarshal(b)
	require.NoError(t, err)
	assertSameData(t, tree.Data(), got)
}

func TestUnmarshalErrors(t *testing.T) {
	valid := Marshal(compile(t, false).Data())
	tests := map[string][]byte{
		"truncated": valid[:len(valid)-3],
		"bad tag":   {0},
		"short id":  protowire.AppendBytes(protowire.AppendTag(nil, fieldID, protowire.BytesType), []byte{1, 2}),
		"planes":    appendDoubles(nil, fieldPlanes, 1, 2, 3),
		"nodes":     appendVarints(nil, fieldNodes, 1, 2),
		"vertices":  appendDoubles(nil, fieldPortalVertices, 1),
		"bounds":    appendDoubles(nil, fieldBounds, 1, 2),
	}
	for name, in := range tests {
		if _, err := Unmarshal(in); err == nil {
			t.Errorf("Unmarshal(%s) succeeded", name)
		}
	}
}

func TestChildRefEncoding(t *testing.T) {
	for _, r := range []bsp.ChildRef{bsp.Solid, bsp.NodeRef(0), bsp.NodeRef(12345), bsp.LeafRef(7)} {
		if got := decodeRef(encodeRef(r)); got != r {
			t.Errorf("decodeRef(encodeRef(%v)) = %v", r, got)
		}
	}
}
