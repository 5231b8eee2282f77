// Package config holds the run configuration of the linsys tools.
//
// A Config is built from defaults, optionally overlaid with a YAML file and
// command-line flags, and validated once. After that it is passed by value
// and never modified.
package config

import (
	"errors"
	"fmt"
	"os"
	"runtime"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vladimir-ch/linsys/precond"
	"github.com/vladimir-ch/linsys/stencil"
)

// ErrInvalid indicates a configuration that failed validation.
var ErrInvalid = errors.New("config: invalid configuration")

// Config holds all settings of an assemble or solve run.
type Config struct {
	Problem ProblemConfig `yaml:"problem"`
	Solver  SolverConfig  `yaml:"solver"`
	Precond PrecondConfig `yaml:"preconditioner"`
	Logging LoggingConfig `yaml:"logging"`

	// Workers is the number of ranks the rows are distributed over.
	Workers int `yaml:"workers"`
}

// ProblemConfig selects the linear system.
type ProblemConfig struct {
	// N is the number of unknowns of Laplace1D.
	N int `yaml:"n"`
	// MatrixType names a stencil.Kind.
	MatrixType string `yaml:"matrix_type"`
	Nx         int    `yaml:"nx"`
	Ny         int    `yaml:"ny"`
	Nz         int    `yaml:"nz"`
	IndexBase  int    `yaml:"index_base"`
	// Layout is "uniform" (contiguous blocks) or "cyclic".
	Layout string `yaml:"layout"`

	// RHS is "constant" for b = 1, or "residual" for b = A*x with a
	// random x that becomes the known solution.
	RHS  string `yaml:"rhs"`
	Seed uint64 `yaml:"seed"`

	// Matrix is a Matrix Market file that replaces the generated
	// operator when set.
	Matrix string `yaml:"matrix"`

	YoungsModulus float64 `yaml:"youngs_modulus"`
	PoissonRatio  float64 `yaml:"poisson_ratio"`
}

// SolverConfig configures the Krylov method.
type SolverConfig struct {
	// Method is one of CG, GMRES, BiCG, BiCGSTAB.
	Method    string  `yaml:"method"`
	Tolerance float64 `yaml:"tolerance"`
	// MaxIterations of -1 means the number of global rows minus one.
	MaxIterations int `yaml:"max_iterations"`
	// Restart is the GMRES cycle length; 0 means the system size.
	Restart int `yaml:"restart"`
}

// PrecondConfig configures the relaxation preconditioner.
type PrecondConfig struct {
	// Type is "none" or a precond.Type name.
	Type    string  `yaml:"type"`
	Sweeps  int     `yaml:"sweeps"`
	Damping float64 `yaml:"damping"`
}

// LoggingConfig configures logging.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, console
}

// Default returns the configuration of the solve exercise.
func Default() Config {
	return Config{
		Problem: ProblemConfig{
			N:             50,
			MatrixType:    stencil.Laplace2D.String(),
			Nx:            10,
			Ny:            10,
			Nz:            10,
			Layout:        "uniform",
			RHS:           "residual",
			Seed:          1,
			YoungsModulus: stencil.DefaultLame.E,
			PoissonRatio:  stencil.DefaultLame.Nu,
		},
		Solver: SolverConfig{
			Method:        "CG",
			Tolerance:     1e-4,
			MaxIterations: -1,
		},
		Precond: PrecondConfig{
			Type:    "none",
			Sweeps:  1,
			Damping: 1,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
		Workers: runtime.NumCPU(),
	}
}

// Load reads a YAML file on top of Default. Fields missing from the file
// keep their default values. The result is not validated.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// Save writes c to path as YAML.
func (c Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

// Methods lists the supported Krylov methods.
var Methods = []string{"CG", "GMRES", "BiCG", "BiCGSTAB"}

// Validate checks c and returns all violations joined, each wrapping
// ErrInvalid. Unknown matrix types additionally wrap
// stencil.ErrUnsupportedMatrixType.
func (c Config) Validate() error {
	var errs []error
	bad := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalid))
	}

	if c.Problem.Matrix == "" {
		if k, err := c.Kind(); err != nil {
			errs = append(errs, fmt.Errorf("problem.matrix_type: %w: %w", err, ErrInvalid))
		} else if err := c.Problem.stencil(c).Validate(); err != nil {
			errs = append(errs, fmt.Errorf("problem: %w: %w", err, ErrInvalid))
		} else if k.DofsPerNode() > 1 && c.Problem.YoungsModulus <= 0 {
			bad("problem.youngs_modulus %v not positive", c.Problem.YoungsModulus)
		}
	}
	switch c.Problem.Layout {
	case "uniform", "cyclic":
	default:
		bad("problem.layout %q (want uniform or cyclic)", c.Problem.Layout)
	}
	switch c.Problem.RHS {
	case "constant", "residual":
	default:
		bad("problem.rhs %q (want constant or residual)", c.Problem.RHS)
	}
	if c.Workers < 1 {
		bad("workers %d", c.Workers)
	}

	if _, ok := c.method(); !ok {
		bad("solver.method %q (want one of %s)", c.Solver.Method, strings.Join(Methods, ", "))
	}
	if t := c.Solver.Tolerance; t <= 0 || 1 <= t {
		bad("solver.tolerance %v not in (0, 1)", t)
	}
	if c.Solver.MaxIterations < -1 || c.Solver.MaxIterations == 0 {
		bad("solver.max_iterations %d (want -1 or positive)", c.Solver.MaxIterations)
	}
	if c.Solver.Restart < 0 {
		bad("solver.restart %d", c.Solver.Restart)
	}

	if !strings.EqualFold(c.Precond.Type, "none") {
		t, err := precond.ParseType(c.Precond.Type)
		if err != nil {
			errs = append(errs, fmt.Errorf("preconditioner.type: %w: %w", err, ErrInvalid))
		} else if m, _ := c.method(); m == "CG" && t == precond.GaussSeidel {
			bad("preconditioner %v is not symmetric and cannot be used with CG", t)
		}
	}
	if c.Precond.Sweeps < 1 {
		bad("preconditioner.sweeps %d", c.Precond.Sweeps)
	}
	if d := c.Precond.Damping; d <= 0 || 2 <= d {
		bad("preconditioner.damping %v not in (0, 2)", d)
	}
	return errors.Join(errs...)
}

// Kind returns the parsed matrix type.
func (c Config) Kind() (stencil.Kind, error) {
	return stencil.ParseKind(c.Problem.MatrixType)
}

// Stencil returns the stencil problem described by c. c must be valid.
func (c Config) Stencil() stencil.Problem {
	return c.Problem.stencil(c)
}

func (p ProblemConfig) stencil(c Config) stencil.Problem {
	k, _ := c.Kind()
	return stencil.Problem{
		Kind:      k,
		N:         p.N,
		Grid:      stencil.Grid{Nx: p.Nx, Ny: p.Ny, Nz: p.Nz},
		IndexBase: p.IndexBase,
		Lame:      stencil.Lame{E: p.YoungsModulus, Nu: p.PoissonRatio},
	}
}

// Method returns the canonical name of the Krylov method. c must be valid.
func (c Config) Method() string {
	m, _ := c.method()
	return m
}

func (c Config) method() (string, bool) {
	for _, m := range Methods {
		if strings.EqualFold(m, c.Solver.Method) {
			return m, true
		}
	}
	return "", false
}

// PrecondParams returns the relaxation parameters, or ok false when no
// preconditioner is configured. c must be valid.
func (c Config) PrecondParams() (p precond.Params, ok bool) {
	if strings.EqualFold(c.Precond.Type, "none") {
		return p, false
	}
	t, _ := precond.ParseType(c.Precond.Type)
	return precond.Params{Type: t, Sweeps: c.Precond.Sweeps, Damping: c.Precond.Damping}, true
}

// MaxIterations resolves the -1 default against the system size.
func (c Config) MaxIterations(numRows int) int {
	if c.Solver.MaxIterations == -1 {
		return max(numRows-1, 1)
	}
	return c.Solver.MaxIterations
}
