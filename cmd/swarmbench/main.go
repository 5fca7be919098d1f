// Command swarmbench runs a multi-rank particle drift benchmark in a single
// process, with one goroutine per rank. It populates a partitioned swarm,
// advects the particles for a number of steps, runs owner updates, and
// reports migration statistics, optionally writing a coordinate checkpoint
// at the end.
package main

import (
	"flag"
	"log/slog"
	"math/rand"
	"os"
	"time"

	"golang.org/x/sync/errgroup"

	"picswarm/checkpoint"
	"picswarm/comm"
	"picswarm/config"
	"picswarm/mesh"
	"picswarm/swarm"
	"picswarm/telemetry"
)

func main() {
	configPath := flag.String("config", "", "Path to config.yaml (empty = use defaults)")
	ranks := flag.Int("ranks", 4, "Number of in-process ranks")
	res := flag.Int("res", 32, "Mesh cells per axis")
	order := flag.Int("order", 2, "Gauss layout order (particles per cell axis)")
	steps := flag.Int("steps", 10, "Advection steps to run")
	drift := flag.Float64("drift", 0.02, "Mean drift per step along x")
	jitter := flag.Float64("jitter", 0.01, "Random walk amplitude per step")
	seed := flag.Int64("seed", 0, "RNG seed (0 = time-based)")
	outputDir := flag.String("output-dir", "", "Output directory for CSV logs (overrides config)")
	checkpointPath := flag.String("checkpoint", "", "Write a coordinate checkpoint here after the run")

	flag.Parse()

	if err := config.Init(*configPath); err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	cfg := config.Cfg()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	rngSeed := *seed
	if rngSeed == 0 {
		rngSeed = time.Now().UnixNano()
	}

	outDir := cfg.Telemetry.OutputDir
	if *outputDir != "" {
		outDir = *outputDir
	}

	slog.Info("starting swarm benchmark",
		"ranks", *ranks,
		"res", *res,
		"order", *order,
		"steps", *steps,
		"seed", rngSeed,
		"particle_escape", cfg.Swarm.ParticleEscape,
	)

	if err := run(cfg, *ranks, *res, *order, *steps, *drift, *jitter, rngSeed, outDir, *checkpointPath); err != nil {
		slog.Error("benchmark failed", "error", err)
		os.Exit(1)
	}
}

func run(cfg *config.Config, ranks, res, order, steps int, drift, jitter float64, seed int64, outDir, checkpointPath string) error {
	eps := comm.NewGroup(ranks)

	collectors := make([]*telemetry.Collector, ranks)
	var g errgroup.Group
	for r := 0; r < ranks; r++ {
		g.Go(func() error {
			var out *telemetry.OutputManager
			if outDir != "" && r == 0 {
				var err error
				out, err = telemetry.NewOutputManager(outDir)
				if err != nil {
					return err
				}
				defer out.Close()
			}
			collectors[r] = telemetry.NewCollector(out, nil)
			return runRank(cfg, eps[r], ranks, res, order, steps, drift, jitter, seed, checkpointPath, collectors[r])
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	for r, c := range collectors {
		s := c.Summarize()
		slog.Info("rank summary",
			"rank", r,
			"cycles", s.Cycles,
			"sent", s.TotalSent,
			"received", s.TotalReceived,
			"escaped", s.TotalEscaped,
			"cycle_mean_ms", s.DurationMeanMS,
			"cycle_std_ms", s.DurationStdMS,
		)
	}
	return nil
}

func runRank(cfg *config.Config, c comm.Communicator, ranks, res, order, steps int, drift, jitter float64, seed int64, checkpointPath string, rec swarm.Recorder) error {
	m, err := mesh.NewCartesianPartition([]int{res, res}, []float64{0, 0}, []float64{1, 1}, c.Rank(), ranks)
	if err != nil {
		return err
	}

	opts := []swarm.Option{
		swarm.WithEscapeBacklog(cfg.Swarm.EscapeBacklog),
		swarm.WithRecorder(rec),
		swarm.WithLogger(slog.Default().With("rank", c.Rank())),
	}
	if cfg.Swarm.ParticleEscape {
		opts = append(opts, swarm.WithParticleEscape())
	}
	s, err := swarm.New(m, c, opts...)
	if err != nil {
		return err
	}

	layout, err := swarm.NewPerCellGaussLayout(m, order)
	if err != nil {
		return err
	}
	if err := s.PopulateUsingLayout(layout); err != nil {
		return err
	}

	// Periodic drift keeps the population inside the domain regardless of
	// the escape setting: particles advected past x=1 wrap around.
	rng := rand.New(rand.NewSource(seed + int64(c.Rank())))
	for step := 0; step < steps; step++ {
		view := s.ParticleCoordinates().Data()
		err := s.DeformSwarm(func() error {
			for i := 0; i < view.Len(); i++ {
				row, err := view.Row(i)
				if err != nil {
					return err
				}
				x := row[0] + drift + (rng.Float64()*2-1)*jitter
				for x >= 1 {
					x -= 1
				}
				for x < 0 {
					x += 1
				}
				y := clamp(row[1]+(rng.Float64()*2-1)*jitter, 0, 0.999999)
				if err := view.SetRow(i, []float64{x, y}); err != nil {
					return err
				}
			}
			return nil
		}, swarm.DeferOwnerUpdate())
		view.Release()
		if err != nil {
			return err
		}
		if err := s.UpdateParticleOwners(); err != nil {
			return err
		}
	}

	if checkpointPath != "" {
		saved, err := checkpoint.Save(s, c, checkpointPath)
		if err != nil {
			return err
		}
		if c.Rank() == 0 {
			slog.Info("checkpoint written", "path", saved.Path, "rows", saved.Rows, "cols", saved.Cols, "id", saved.ID)
		}
	}

	total := s.ParticleGlobalCount()
	if c.Rank() == 0 {
		slog.Info("benchmark complete", "global_particles", total)
	}
	return nil
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
