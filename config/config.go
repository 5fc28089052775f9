// SPDX-License-Identifier: GPL-2.0-or-later

// Package config holds the knobs of a compile run.
package config

import (
	"bytes"
	"os"

	"github.com/pelletier/go-toml/v2"
	"github.com/pkg/errors"

	"bspvis/math/plane"
)

type Config struct {
	Tolerance plane.Tolerance `toml:"tolerance"`
	// SplitterSample caps the number of splitter candidates rated per
	// node. Zero rates all of them.
	SplitterSample int `toml:"splitter_sample"`
	// SplitHeuristic weighs split faces against tree balance.
	SplitHeuristic float64 `toml:"split_heuristic"`
	// Compress zero run length encodes the visibility table.
	Compress bool `toml:"compress"`
	// MaxRecursionDepth bounds the length of portal chains followed while
	// computing visibility. Longer chains are assumed visible.
	MaxRecursionDepth int `toml:"max_recursion_depth"`
}

func Default() Config {
	return Config{
		Tolerance:         plane.DefaultTolerance(),
		SplitterSample:    120,
		SplitHeuristic:    2.0,
		MaxRecursionDepth: 4096,
	}
}

// Validate reports settings the compiler cannot work with.
func (c Config) Validate() error {
	t := c.Tolerance
	switch {
	case t.Normal <= 0:
		return errors.Errorf("config: tolerance.normal must be positive, got %v", t.Normal)
	case t.Point <= 0:
		return errors.Errorf("config: tolerance.point must be positive, got %v", t.Point)
	case t.DistScale <= 0:
		return errors.Errorf("config: tolerance.dist_scale must be positive, got %v", t.DistScale)
	case t.MinStabLengthSq < 0:
		return errors.Errorf("config: tolerance.min_stab_length_sq must not be negative, got %v", t.MinStabLengthSq)
	case c.SplitterSample < 0:
		return errors.Errorf("config: splitter_sample must not be negative, got %d", c.SplitterSample)
	case c.SplitHeuristic < 0:
		return errors.Errorf("config: split_heuristic must not be negative, got %v", c.SplitHeuristic)
	case c.MaxRecursionDepth <= 0:
		return errors.Errorf("config: max_recursion_depth must be positive, got %d", c.MaxRecursionDepth)
	}
	return nil
}

// Parse reads a TOML document on top of the defaults. Unknown keys are an
// error.
func Parse(data []byte) (Config, error) {
	c := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, errors.Wrap(err, "config")
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads the TOML file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, errors.Wrapf(err, "loading %s", path)
	}
	c, err := Parse(data)
	if err != nil {
		return Config{}, errors.Wrapf(err, "loading %s", path)
	}
	return c, nil
}
