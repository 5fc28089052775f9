package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"bspvis/assetpack"
	"bspvis/bsp"
	"bspvis/commandline"
	"bspvis/config"
	"bspvis/conlog"
	"bspvis/mesh"
)

func loadConfig() (config.Config, error) {
	cfg := config.Default()
	if name := commandline.ConfigFile(); name != "" {
		var err error
		if cfg, err = config.Load(name); err != nil {
			return cfg, err
		}
	}
	if v, ok := commandline.Compress(); ok {
		cfg.Compress = v
	}
	if v, ok := commandline.Heuristic(); ok {
		cfg.SplitHeuristic = v
	}
	if v, ok := commandline.Sample(); ok {
		cfg.SplitterSample = v
	}
	return cfg, cfg.Validate()
}

func compileLevel(name string, cfg config.Config, log *slog.Logger) error {
	instances, err := mesh.LoadGLTF(name)
	if err != nil {
		return err
	}
	opts := []bsp.Option{bsp.WithLogger(log.With(slog.String("level", name)))}
	if !commandline.PVS() {
		opts = append(opts, bsp.WithoutPVS())
	}
	tree, err := bsp.Compile(instances, cfg, opts...)
	if err != nil {
		return errors.Wrap(err, name)
	}
	fmt.Printf("%s: %d planes, %d nodes, %d leaves, %d portals, %d vis bytes\n",
		name, len(tree.Planes()), len(tree.Nodes()), len(tree.Leaves()),
		len(tree.Portals()), len(tree.PVSData()))

	if dir := commandline.OutDir(); dir != "" {
		base := strings.TrimSuffix(filepath.Base(name), filepath.Ext(name))
		return assetpack.Save(filepath.Join(dir, base+".bvp"), tree)
	}
	return nil
}

func main() {
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "usage: %s [flags] level.gltf...\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()
	if flag.NArg() == 0 {
		flag.Usage()
		os.Exit(2)
	}
	log := conlog.New(os.Stderr, commandline.Verbose())

	cfg, err := loadConfig()
	if err != nil {
		log.Error("invalid configuration", slog.Any("err", err))
		os.Exit(1)
	}

	var g errgroup.Group
	g.SetLimit(max(commandline.Jobs(), 1))
	for _, name := range flag.Args() {
		name := name
		g.Go(func() error {
			return compileLevel(name, cfg, log)
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("compile failed", slog.Any("err", err))
		os.Exit(1)
	}
}
