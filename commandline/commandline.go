package commandline

import (
	"flag"
	"fmt"
	"runtime"
	"strconv"
)

var (
	noPVS   bool
	verbose bool

	compress  optBool
	heuristic optFloat
	sample    optInt

	jobs int

	configFile string
	outDir     string
)

// optBool, optInt and optFloat remember whether the flag was given so that
// only explicit flags override the config file.
type optBool struct {
	set bool
	v   bool
}

func (b *optBool) IsBoolFlag() bool {
	return true
}

func (b *optBool) Set(s string) error {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return err
	}
	b.set = true
	b.v = v
	return nil
}

func (b *optBool) String() string {
	return fmt.Sprintf("Set: %v, Value: %v", b.set, b.v)
}

type optInt struct {
	set bool
	v   int
}

func (i *optInt) Set(s string) error {
	v, err := strconv.ParseInt(s, 0, strconv.IntSize)
	if err != nil {
		return err
	}
	i.set = true
	i.v = int(v)
	return nil
}

func (i *optInt) String() string {
	return fmt.Sprintf("Set: %v, Value: %v", i.set, i.v)
}

type optFloat struct {
	set bool
	v   float64
}

func (f *optFloat) Set(s string) error {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	f.set = true
	f.v = v
	return nil
}

func (f *optFloat) String() string {
	return fmt.Sprintf("Set: %v, Value: %v", f.set, f.v)
}

func init() {
	flag.BoolVar(&noPVS, "nopvs", false, "Build the tree and stop before portal generation")
	flag.BoolVar(&verbose, "v", false, "Print debug output")

	flag.Var(&compress, "compress", "Zero run length encode the vis table")
	flag.Var(&heuristic, "heuristic", "Splitter cost of one split polygon")
	flag.Var(&sample, "sample", "Number of splitter candidates rated per node, 0 rates all")

	flag.IntVar(&jobs, "jobs", runtime.NumCPU(), "Number of levels compiled at once")

	flag.StringVar(&configFile, "config", "", "TOML file with build settings")
	flag.StringVar(&outDir, "out", "", "Directory receiving the compiled asset packs")
}

func ConfigFile() string {
	return configFile
}

func OutDir() string {
	return outDir
}

func Jobs() int {
	return jobs
}

func PVS() bool {
	return !noPVS
}

func Verbose() bool {
	return verbose
}

// Compress returns the -compress value and whether it was given.
func Compress() (bool, bool) {
	return compress.v, compress.set
}

func Heuristic() (float64, bool) {
	return heuristic.v, heuristic.set
}

func Sample() (int, bool) {
	return sample.v, sample.set
}
