// Command linsys assembles distributed sparse stencil systems and solves
// them with preconditioned Krylov methods.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"

	"github.com/vladimir-ch/linsys/config"
	"github.com/vladimir-ch/linsys/internal/logging"
)

var (
	configPath string
	verbose    bool

	flags = struct {
		n, nx, ny, nz, workers    int
		matrixType, layout, rhs   string
		seed                      uint64
		solver, precond           string
		tol, damping              float64
		maxIters, restart, sweeps int
		logFormat, matrix         string
	}{}

	cfg    config.Config
	logger *zap.Logger
)

var rootCmd = &cobra.Command{
	Use:   "linsys",
	Short: "Assemble and solve distributed sparse stencil systems",
	Long: `linsys distributes the rows of a finite-difference or elasticity
stencil matrix over a number of ranks, assembles each rank's rows in
parallel and solves the resulting system with a Krylov method.

Settings come from the defaults, then an optional YAML file given with
--config, then the command-line flags.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = loadConfig(cmd.Flags())
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		logger, err = logging.New(cfg.Logging.Level, cfg.Logging.Format)
		return err
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	d := config.Default()
	pf := rootCmd.PersistentFlags()
	pf.StringVar(&configPath, "config", "", "YAML configuration file")
	pf.BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	pf.StringVar(&flags.logFormat, "log-format", d.Logging.Format, "log format (console or json)")

	pf.IntVar(&flags.n, "n", d.Problem.N, "number of unknowns of Laplace1D")
	pf.StringVar(&flags.matrixType, "matrixType", d.Problem.MatrixType, "matrix type")
	pf.IntVar(&flags.nx, "nx", d.Problem.Nx, "grid points along x")
	pf.IntVar(&flags.ny, "ny", d.Problem.Ny, "grid points along y")
	pf.IntVar(&flags.nz, "nz", d.Problem.Nz, "grid points along z")
	pf.IntVar(&flags.workers, "workers", d.Workers, "number of ranks")
	pf.StringVar(&flags.layout, "layout", d.Problem.Layout, "row distribution (uniform or cyclic)")
	pf.StringVar(&flags.rhs, "rhs", d.Problem.RHS, "right-hand side (constant or residual)")
	pf.Uint64Var(&flags.seed, "seed", d.Problem.Seed, "seed of the manufactured solution")

	pf.StringVar(&flags.solver, "solver", d.Solver.Method, "Krylov method (CG, GMRES, BiCG, BiCGSTAB)")
	pf.Float64Var(&flags.tol, "tol", d.Solver.Tolerance, "relative residual tolerance")
	pf.IntVar(&flags.maxIters, "maxIters", d.Solver.MaxIterations, "iteration limit, -1 for rows-1")
	pf.IntVar(&flags.restart, "restart", d.Solver.Restart, "GMRES restart length, 0 for none")
	pf.StringVar(&flags.precond, "precond", d.Precond.Type, "preconditioner (none, Jacobi, GS, SGS)")
	pf.IntVar(&flags.sweeps, "sweeps", d.Precond.Sweeps, "relaxation sweeps")
	pf.Float64Var(&flags.damping, "damping", d.Precond.Damping, "relaxation damping factor")

	rootCmd.AddCommand(ranksCmd, assembleCmd, solveCmd)
}

// loadConfig layers the config file and the flags set on the command line
// over the defaults.
func loadConfig(fs *pflag.FlagSet) (config.Config, error) {
	c := config.Default()
	if configPath != "" {
		var err error
		if c, err = config.Load(configPath); err != nil {
			return c, err
		}
	}
	set := func(name string, apply func()) {
		if fs.Changed(name) {
			apply()
		}
	}
	set("n", func() { c.Problem.N = flags.n })
	set("matrixType", func() { c.Problem.MatrixType = flags.matrixType })
	set("nx", func() { c.Problem.Nx = flags.nx })
	set("ny", func() { c.Problem.Ny = flags.ny })
	set("nz", func() { c.Problem.Nz = flags.nz })
	set("workers", func() { c.Workers = flags.workers })
	set("layout", func() { c.Problem.Layout = flags.layout })
	set("rhs", func() { c.Problem.RHS = flags.rhs })
	set("seed", func() { c.Problem.Seed = flags.seed })
	set("solver", func() { c.Solver.Method = flags.solver })
	set("tol", func() { c.Solver.Tolerance = flags.tol })
	set("maxIters", func() { c.Solver.MaxIterations = flags.maxIters })
	set("restart", func() { c.Solver.Restart = flags.restart })
	set("precond", func() { c.Precond.Type = flags.precond })
	set("sweeps", func() { c.Precond.Sweeps = flags.sweeps })
	set("damping", func() { c.Precond.Damping = flags.damping })
	set("log-format", func() { c.Logging.Format = flags.logFormat })
	set("matrix", func() { c.Problem.Matrix = flags.matrix })
	if verbose {
		c.Logging.Level = "debug"
	}
	return c, nil
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, errNotConverged) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
