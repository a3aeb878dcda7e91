// meshsimplify is a CLI for progressive, quadric-error mesh
// simplification of Wavefront OBJ files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/quadmesh/simplify"
	"github.com/quadmesh/simplify/internal/config"
	"github.com/quadmesh/simplify/internal/logger"
	"github.com/quadmesh/simplify/internal/objio"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	switch command {
	case "simplify":
		cmdSimplify(args)
	case "info":
		cmdInfo(args)
	case "batch":
		cmdBatch(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Println(`meshsimplify - quadric-error triangle mesh simplification

Usage:
  meshsimplify <command> [options]

Commands:
  simplify <in.obj> <out.obj>   Simplify a single mesh
  batch <in_dir> <out_dir>      Simplify every .obj file in a directory
  info <in.obj>                 Report vertex/triangle counts

Examples:
  meshsimplify simplify -budget 0.01 model.obj model_lod1.obj
  meshsimplify batch -workers 8 -budget 0.01 models/ models_lod1/
  meshsimplify info model.obj`)
}

// objMesh adapts an objio.Mesh to simplify.MeshHandle.
type objMesh struct {
	mesh *objio.Mesh
}

func (m *objMesh) VertexCount() uint32   { return uint32(len(m.mesh.Positions) / 3) }
func (m *objMesh) TriangleCount() uint32 { return uint32(len(m.mesh.Indices) / 3) }
func (m *objMesh) Positions() []float32  { return m.mesh.Positions }
func (m *objMesh) Indices() []uint32     { return m.mesh.Indices }

func (m *objMesh) Resize(vertexCount, triangleCount uint32) {
	m.mesh.Positions = resizeFloat32(m.mesh.Positions, int(3*vertexCount))
	m.mesh.Indices = resizeUint32(m.mesh.Indices, int(3*triangleCount))
}

func resizeFloat32(s []float32, n int) []float32 {
	if n == len(s) {
		return s
	}
	out := make([]float32, n)
	copy(out, s)
	return out
}

func resizeUint32(s []uint32, n int) []uint32 {
	if n == len(s) {
		return s
	}
	out := make([]uint32, n)
	copy(out, s)
	return out
}

// simplifyFlags are the tuning parameters shared by "simplify" and
// "batch", layered over config.Default() and an optional -config file.
type simplifyFlags struct {
	budget          float64
	boundaryPenalty float64
	weldEpsilon     float64
	stepBudget      int
	workers         int
	configPath      string
	logLevel        string
	logFile         string
}

func parseSimplifyFlags(fs *flag.FlagSet, cfg *config.Config) *simplifyFlags {
	f := &simplifyFlags{}
	fs.Float64Var(&f.budget, "budget", float64(cfg.Simplify.ErrorBudget), "maximum per-collapse error")
	fs.Float64Var(&f.boundaryPenalty, "boundary-penalty", float64(cfg.Simplify.BoundaryPenalty), "boundary edge constraint weight")
	fs.Float64Var(&f.weldEpsilon, "weld-epsilon", float64(cfg.Simplify.WeldEpsilon), "merge vertices within this distance before simplifying")
	fs.IntVar(&f.stepBudget, "step-budget", cfg.Simplify.StepBudget, "cap on collapse attempts (0 = unlimited)")
	fs.IntVar(&f.workers, "workers", cfg.Batch.Workers, "concurrent workers for batch mode")
	fs.StringVar(&f.configPath, "config", "", "YAML config file overriding defaults")
	fs.StringVar(&f.logLevel, "log-level", cfg.Logging.Level, "debug, info, warn, or error")
	fs.StringVar(&f.logFile, "log-file", cfg.Logging.LogFile, "optional log file path")
	return f
}

func cmdSimplify(args []string) {
	fs := flag.NewFlagSet("simplify", flag.ExitOnError)
	cfg := loadBaseConfig(args)
	f := parseSimplifyFlags(fs, cfg)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: meshsimplify simplify [options] <in.obj> <out.obj>")
		os.Exit(1)
	}
	must(logger.Init(f.logLevel, f.logFile))
	defer logger.Sync()

	if err := simplifyFile(fs.Arg(0), fs.Arg(1), f); err != nil {
		logger.Error("simplify failed", zap.Error(err))
		os.Exit(1)
	}
}

func simplifyFile(inPath, outPath string, f *simplifyFlags) error {
	mesh, err := objio.Read(inPath)
	if err != nil {
		return fmt.Errorf("reading %s: %w", inPath, err)
	}
	handle := &objMesh{mesh: mesh}

	before := handle.TriangleCount()
	result, err := simplify.Simplify(handle, float32(f.budget), float32(f.boundaryPenalty), nil,
		simplify.WithWeldEpsilon(float32(f.weldEpsilon)),
		simplify.WithStepBudget(f.stepBudget))
	if err != nil {
		return fmt.Errorf("simplifying %s: %w", inPath, err)
	}

	logger.Info("simplified mesh",
		zap.String("file", inPath),
		zap.Uint32("triangles_before", before),
		zap.Uint32("triangles_after", handle.TriangleCount()),
		zap.Uint32("collapses", result.CollapsedCount),
		zap.Uint32("failures_face_flip", result.Stats.FailuresFaceFlip),
		zap.Uint32("failures_detached_vertex", result.Stats.FailuresDetachedVertex),
	)

	if err := objio.Write(outPath, mesh); err != nil {
		return fmt.Errorf("writing %s: %w", outPath, err)
	}
	return nil
}

func cmdInfo(args []string) {
	fs := flag.NewFlagSet("info", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: meshsimplify info <in.obj>")
		os.Exit(1)
	}

	mesh, err := objio.Read(fs.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("File:      %s\n", fs.Arg(0))
	fmt.Printf("Vertices:  %d\n", len(mesh.Positions)/3)
	fmt.Printf("Triangles: %d\n", len(mesh.Indices)/3)
}

// cmdBatch simplifies every .obj file in inDir into outDir, distributing
// the work across f.workers goroutines.
func cmdBatch(args []string) {
	fs := flag.NewFlagSet("batch", flag.ExitOnError)
	cfg := loadBaseConfig(args)
	f := parseSimplifyFlags(fs, cfg)
	fs.Parse(args)

	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: meshsimplify batch [options] <in_dir> <out_dir>")
		os.Exit(1)
	}
	must(logger.Init(f.logLevel, f.logFile))
	defer logger.Sync()

	inDir, outDir := fs.Arg(0), fs.Arg(1)
	entries, err := os.ReadDir(inDir)
	if err != nil {
		logger.Fatal("reading input directory", zap.Error(err))
	}
	if err := os.MkdirAll(outDir, 0755); err != nil {
		logger.Fatal("creating output directory", zap.Error(err))
	}

	var names []string
	for _, e := range entries {
		if !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".obj") {
			names = append(names, e.Name())
		}
	}

	failures := batchTask(f.workers, names, func(name string) error {
		in := filepath.Join(inDir, name)
		out := filepath.Join(outDir, name)
		return simplifyFile(in, out, f)
	})

	for _, fail := range failures {
		logger.Error("batch item failed", zap.String("file", fail.name), zap.Error(fail.err))
	}
	logger.Info("batch complete", zap.Int("total", len(names)), zap.Int("failed", len(failures)))
	if len(failures) > 0 {
		os.Exit(1)
	}
}

type batchFailure struct {
	name string
	err  error
}

// batchTask fans work out across workersCount goroutines, each claiming
// a contiguous chunk of data — the CLI's only concurrent entry point,
// unlike the single-threaded simplification core itself.
func batchTask(workersCount int, data []string, fn func(item string) error) []batchFailure {
	if workersCount < 1 {
		workersCount = 1
	}
	if workersCount > len(data) {
		workersCount = len(data)
	}
	if workersCount == 0 {
		return nil
	}

	var mu sync.Mutex
	var failures []batchFailure

	var wg sync.WaitGroup
	chunkSize := (len(data) + workersCount - 1) / workersCount
	for workerID := 0; workerID < workersCount; workerID++ {
		start := workerID * chunkSize
		end := min((workerID+1)*chunkSize, len(data))
		if start >= end {
			continue
		}
		wg.Add(1)
		go func(start, end int) {
			defer wg.Done()
			for i := start; i < end; i++ {
				if err := fn(data[i]); err != nil {
					mu.Lock()
					failures = append(failures, batchFailure{name: data[i], err: err})
					mu.Unlock()
				}
			}
		}(start, end)
	}
	wg.Wait()
	return failures
}

// loadBaseConfig pre-scans args for -config without disturbing the
// caller's own flag.FlagSet parse, since the config file's values need
// to seed that FlagSet's defaults before Parse runs.
func loadBaseConfig(args []string) *config.Config {
	for i, a := range args {
		if a == "-config" || a == "--config" {
			if i+1 < len(args) {
				cfg, err := config.LoadFrom(args[i+1])
				if err == nil {
					return cfg
				}
				fmt.Fprintf(os.Stderr, "Warning: %v, using defaults\n", err)
			}
		}
	}
	return config.Default()
}

func must(err error) {
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
