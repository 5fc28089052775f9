// SPDX-License-Identifier: GPL-2.0-or-later
package bsp

import (
	"log/slog"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"bspvis/config"
	"bspvis/conlog"
	"bspvis/math/plane"
	"bspvis/mesh"
)

var (
	ErrNoGeometry = errors.New("bsp: input contains no triangles")
	ErrNoTree     = errors.New("bsp: tree has no nodes")
)

type options struct {
	log *slog.Logger
	pvs bool
}

// Option configures Compile.
type Option func(*options)

// WithLogger sets the sink for compile diagnostics. The default discards
// everything.
func WithLogger(l *slog.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// WithoutPVS stops after portal free tree construction. Visibility queries
// on such a tree report everything as visible.
func WithoutPVS() Option {
	return func(o *options) {
		o.pvs = false
	}
}

// face is a convex polygon of the input geometry, stored as a range of the
// compiler's vertex pool.
type face struct {
	first, count int
	plane        int
	used         bool
}

type compiler struct {
	cfg   config.Config
	tol   plane.Tolerance
	log   *slog.Logger
	d     *Data
	verts []mgl64.Vec3
	faces []face
}

func (c *compiler) points(f face) []mgl64.Vec3 {
	return c.verts[f.first : f.first+f.count]
}

// Compile partitions the placed geometry into a BSP tree and computes its
// potentially visible set. It runs synchronously on the calling goroutine.
func Compile(instances []mesh.Instance, cfg config.Config, opts ...Option) (*Tree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	o := options{log: conlog.Discard(), pvs: true}
	for _, opt := range opts {
		opt(&o)
	}
	id := uuid.Must(uuid.NewV7())
	c := &compiler{
		cfg: cfg,
		tol: cfg.Tolerance,
		log: o.log.With(slog.String("build", id.String())),
		d:   &Data{ID: id, Epsilon: cfg.Tolerance.Point},
	}
	c.log.Info("beginning BSP/PVS construction", slog.Int("instances", len(instances)))

	if !c.merge(instances) {
		return nil, ErrNoGeometry
	}
	c.log.Debug("geometry merged", slog.Int("triangles", len(c.faces)))

	c.buildPlanes()
	c.buildTree()
	c.log.Info("tree built",
		slog.Int("planes", len(c.d.Planes)),
		slog.Int("nodes", len(c.d.Nodes)),
		slog.Int("leaves", len(c.d.Leaves)))

	if o.pvs {
		c.compilePVS()
		c.log.Info("visibility compiled",
			slog.Int("portals", len(c.d.Portals)),
			slog.Int("bytes", len(c.d.PVS)),
			slog.Bool("compressed", c.d.Compressed))
	}
	return &Tree{d: *c.d}, nil
}
