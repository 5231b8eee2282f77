// Package pipeline wires partitioning, stencil assembly, matrix
// finalization, right-hand side construction and the Krylov solve into the
// runs driven by the linsys command.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"

	"github.com/vladimir-ch/linsys/config"
	"github.com/vladimir-ch/linsys/crs"
	"github.com/vladimir-ch/linsys/iterative"
	"github.com/vladimir-ch/linsys/market"
	"github.com/vladimir-ch/linsys/partition"
	"github.com/vladimir-ch/linsys/precond"
	"github.com/vladimir-ch/linsys/stencil"
)

// System is an assembled linear system A*x = B.
type System struct {
	// Name is the matrix type, or the base name of the file the matrix
	// was loaded from.
	Name    string
	Problem stencil.Problem
	Map     *partition.Map
	A       *crs.Matrix
	B       []float64
	// XExact is the manufactured solution when the right-hand side was
	// built with Residual-Fill, nil otherwise.
	XExact []float64
}

// NewMap distributes the nodes of the configured problem over the workers
// and expands the node map to the unknowns of the problem.
func NewMap(cfg config.Config) (*partition.Map, error) {
	p := cfg.Stencil()
	var (
		nodes *partition.Map
		err   error
	)
	switch cfg.Problem.Layout {
	case "cyclic":
		nodes, err = partition.NewCyclic(p.NumNodes(), p.IndexBase, cfg.Workers)
	default:
		nodes, err = partition.NewUniform(p.NumNodes(), p.IndexBase, cfg.Workers)
	}
	if err != nil {
		return nil, err
	}
	return nodes.Expand(p.Kind.DofsPerNode())
}

// Assemble builds the matrix and right-hand side described by cfg. Every
// rank assembles and finalizes its rows in its own goroutine. cfg must be
// valid.
func Assemble(ctx context.Context, cfg config.Config, log *zap.Logger) (*System, error) {
	start := time.Now()
	p := cfg.Stencil()
	m, err := NewMap(cfg)
	if err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	log.Info("assembling system",
		zap.Stringer("matrixType", p.Kind),
		zap.Int("rows", m.NumGlobal()),
		zap.Int("workers", m.NumRanks()),
		zap.Bool("contiguous", m.IsContiguous()),
	)

	locals := make([]*crs.Local, m.NumRanks())
	g, gctx := errgroup.WithContext(ctx)
	for rank := range locals {
		g.Go(func() error {
			l, err := assembleRank(gctx, p, m, rank)
			if err != nil {
				return fmt.Errorf("rank %d: %w", rank, err)
			}
			log.Debug("rank finalized",
				zap.Int("rank", rank),
				zap.Int("rows", l.NumRows()),
				zap.Int("nnz", l.NNZ()),
			)
			locals[rank] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	a, err := crs.Assemble(m, locals)
	if err != nil {
		return nil, err
	}

	sys := &System{Name: p.Kind.String(), Problem: p, Map: m, A: a}
	if err := buildRHS(ctx, cfg, sys); err != nil {
		return nil, err
	}
	log.Info("system assembled",
		zap.Int("nnz", a.NNZ()),
		zap.String("rhs", cfg.Problem.RHS),
		zap.Duration("elapsed", time.Since(start)),
	)
	return sys, nil
}

func assembleRank(ctx context.Context, p stencil.Problem, m *partition.Map, rank int) (*crs.Local, error) {
	rows, err := p.Rows(m.Owned(rank))
	if err != nil {
		return nil, err
	}
	b := crs.NewBuilder(m, rank)
	for row := range rows {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := b.InsertRow(row); err != nil {
			return nil, err
		}
	}
	return b.FillComplete()
}

// Load reads the square matrix of a Matrix Market file and distributes its
// rows over the workers of cfg. The right-hand side follows cfg.Problem.RHS.
// cfg must be valid.
func Load(ctx context.Context, cfg config.Config, path string, log *zap.Logger) (*System, error) {
	start := time.Now()
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	src, err := market.Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	n, c := src.Dims()
	if n != c || n == 0 {
		return nil, fmt.Errorf("%s: %d×%d matrix is not square: %w", path, n, c, market.ErrFormat)
	}

	base := cfg.Problem.IndexBase
	var m *partition.Map
	if cfg.Problem.Layout == "cyclic" {
		m, err = partition.NewCyclic(n, base, cfg.Workers)
	} else {
		m, err = partition.NewUniform(n, base, cfg.Workers)
	}
	if err != nil {
		return nil, fmt.Errorf("partition: %w", err)
	}
	log.Info("loading system",
		zap.String("file", path),
		zap.Int("rows", n),
		zap.Int("nnz", src.NNZ()),
		zap.Bool("symmetric", src.Symmetric),
		zap.Int("workers", m.NumRanks()),
	)

	locals := make([]*crs.Local, m.NumRanks())
	g, gctx := errgroup.WithContext(ctx)
	for rank := range locals {
		g.Go(func() error {
			b := crs.NewBuilder(m, rank)
			for _, r := range m.Owned(rank) {
				if err := gctx.Err(); err != nil {
					return err
				}
				row := src.Row(r - base)
				cols := make([]int, len(row))
				vals := make([]float64, len(row))
				for k, e := range row {
					cols[k], vals[k] = e.Col+base, e.Value
				}
				if err := b.InsertGlobalValues(r, cols, vals); err != nil {
					return fmt.Errorf("rank %d: %w", rank, err)
				}
			}
			l, err := b.FillComplete()
			if err != nil {
				return fmt.Errorf("rank %d: %w", rank, err)
			}
			locals[rank] = l
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	a, err := crs.Assemble(m, locals)
	if err != nil {
		return nil, err
	}

	sys := &System{Name: filepath.Base(path), Map: m, A: a, B: make([]float64, n)}
	if cfg.Problem.RHS == "residual" {
		rnd := rand.New(rand.NewPCG(cfg.Problem.Seed, cfg.Problem.Seed))
		sys.XExact = stencil.NewVector(n, stencil.FillRandom, rnd)
		src.MatVec(sys.B, sys.XExact)
	} else {
		for i := range sys.B {
			sys.B[i] = 1
		}
	}
	log.Info("system loaded",
		zap.String("rhs", cfg.Problem.RHS),
		zap.Duration("elapsed", time.Since(start)),
	)
	return sys, nil
}

func buildRHS(ctx context.Context, cfg config.Config, sys *System) error {
	m := sys.Map
	base := m.IndexBase()
	sys.B = make([]float64, m.NumGlobal())
	if cfg.Problem.RHS == "residual" {
		rnd := rand.New(rand.NewPCG(cfg.Problem.Seed, cfg.Problem.Seed))
		sys.XExact = stencil.NewVector(m.NumGlobal(), stencil.FillRandom, rnd)
	}

	g, gctx := errgroup.WithContext(ctx)
	for rank := 0; rank < m.NumRanks(); rank++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			owned := m.Owned(rank)
			vals := stencil.ConstantRHS(owned, 1)
			if sys.XExact != nil {
				var err error
				vals, err = stencil.ResidualRHS(owned, sys.A, sys.XExact, base)
				if err != nil {
					return fmt.Errorf("rank %d: %w", rank, err)
				}
			}
			for v := range vals {
				sys.B[v.Row-base] = v.Value
			}
			return nil
		})
	}
	return g.Wait()
}

// Report summarizes a solve.
type Report struct {
	RunID      string
	MatrixType string
	Rows       int
	NNZ        int
	Workers    int
	Method     string
	Precond    string
	Tolerance  float64
	MaxIters   int

	Converged        bool
	Iterations       int
	ResidualNorm     float64
	RelativeResidual float64
	// Error is the max-norm distance to the manufactured solution, NaN
	// when the solution is unknown.
	Error   float64
	Runtime time.Duration

	X []float64
}

// NewMethod returns the Krylov method named name.
func NewMethod(name string, restart int) (iterative.Method, error) {
	switch name {
	case "CG":
		return &iterative.CG{}, nil
	case "GMRES":
		return &iterative.GMRES{Restart: restart}, nil
	case "BiCG":
		return &iterative.BiCG{}, nil
	case "BiCGSTAB":
		return &iterative.BiCGSTAB{}, nil
	}
	return nil, fmt.Errorf("unknown method %q: %w", name, config.ErrInvalid)
}

// Solve solves sys with the method and preconditioner of cfg starting from
// the zero vector. Reaching the iteration limit is not an error; it is
// reported through Report.Converged.
func Solve(ctx context.Context, sys *System, cfg config.Config, log *zap.Logger) (Report, error) {
	rows, _ := sys.A.Dims()
	rep := Report{
		MatrixType: sys.Name,
		Rows:       rows,
		NNZ:        sys.A.NNZ(),
		Workers:    sys.Map.NumRanks(),
		Method:     cfg.Method(),
		Precond:    "none",
		Tolerance:  cfg.Solver.Tolerance,
		MaxIters:   cfg.MaxIterations(rows),
		Error:      math.NaN(),
	}
	if err := ctx.Err(); err != nil {
		return rep, err
	}

	method, err := NewMethod(rep.Method, cfg.Solver.Restart)
	if err != nil {
		return rep, err
	}
	settings := iterative.Settings{
		Tolerance:     cfg.Solver.Tolerance,
		MaxIterations: rep.MaxIters,
	}
	if params, ok := cfg.PrecondParams(); ok {
		relax, err := precond.NewRelaxation(sys.A, params)
		if err != nil {
			return rep, err
		}
		settings.PSolve = relax.Apply
		if rep.Method == "BiCG" {
			if !relax.HasTranspose() {
				return rep, fmt.Errorf("BiCG with %v: %w", params.Type, precond.ErrNoTranspose)
			}
			settings.PSolveTrans = relax.ApplyTrans
		}
		rep.Precond = params.Type.String()
	}

	log.Info("solving",
		zap.String("method", rep.Method),
		zap.String("precond", rep.Precond),
		zap.Float64("tol", rep.Tolerance),
		zap.Int("maxIters", rep.MaxIters),
	)
	ops := iterative.MatrixOps{MatVec: sys.A.MatVec, MatTransVec: sys.A.MatTransVec}
	res, err := iterative.LinearSolve(ops, sys.B, method, settings)
	rep.X = res.X
	rep.Converged = res.Stats.Converged
	rep.Iterations = res.Stats.Iterations
	rep.ResidualNorm = res.Stats.ResidualNorm
	rep.RelativeResidual = res.Stats.RelativeResidual
	rep.Runtime = res.Stats.Runtime
	if sys.XExact != nil && res.X != nil {
		rep.Error = floats.Distance(res.X, sys.XExact, math.Inf(1))
	}
	if err != nil && !errors.Is(err, iterative.ErrIterationLimit) {
		log.Error("solve failed", zap.Error(err), zap.Int("iterations", rep.Iterations))
		return rep, err
	}

	fields := []zap.Field{
		zap.Int("iterations", rep.Iterations),
		zap.Float64("relResidual", rep.RelativeResidual),
		zap.Duration("runtime", rep.Runtime),
	}
	if !math.IsNaN(rep.Error) {
		fields = append(fields, zap.Float64("error", rep.Error))
	}
	if rep.Converged {
		log.Info("converged", fields...)
	} else {
		log.Warn("did not converge", fields...)
	}
	return rep, nil
}

// Run validates cfg, assembles or loads the system and solves it.
func Run(ctx context.Context, cfg config.Config, log *zap.Logger) (Report, error) {
	if err := cfg.Validate(); err != nil {
		return Report{}, err
	}
	id := uuid.NewString()
	log = log.With(zap.String("run", id))
	var sys *System
	var err error
	if cfg.Problem.Matrix != "" {
		sys, err = Load(ctx, cfg, cfg.Problem.Matrix, log)
	} else {
		sys, err = Assemble(ctx, cfg, log)
	}
	if err != nil {
		return Report{RunID: id}, err
	}
	rep, err := Solve(ctx, sys, cfg, log)
	rep.RunID = id
	return rep, err
}
