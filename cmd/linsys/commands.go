package main

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/vladimir-ch/linsys/market"
	"github.com/vladimir-ch/linsys/pipeline"
)

var errNotConverged = errors.New("solver did not converge")

var outPath string

var ranksCmd = &cobra.Command{
	Use:   "ranks",
	Short: "Print the rows owned by every rank",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, err := pipeline.NewMap(cfg)
		if err != nil {
			return err
		}
		w := cmd.OutOrStdout()
		fmt.Fprintf(w, "%d rows on %d ranks\n", m.NumGlobal(), m.NumRanks())
		for rank := 0; rank < m.NumRanks(); rank++ {
			fmt.Fprintf(w, "rank %d: %v\n", rank, m.Owned(rank))
		}
		return nil
	},
}

var assembleCmd = &cobra.Command{
	Use:   "assemble",
	Short: "Assemble the matrix and optionally write it in Matrix Market format",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sys, err := pipeline.Assemble(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		r, c := sys.A.Dims()
		fmt.Fprintf(cmd.OutOrStdout(), "%v: %d×%d, %d nonzeros, ‖A‖∞ = %g\n",
			sys.Name, r, c, sys.A.NNZ(), sys.A.NormInf())
		if outPath == "" {
			return nil
		}
		f, err := os.Create(outPath)
		if err != nil {
			return err
		}
		if err := market.Write(f, sys.A, sys.Map.IndexBase()); err != nil {
			f.Close()
			return err
		}
		return f.Close()
	},
}

var solveCmd = &cobra.Command{
	Use:   "solve",
	Short: "Assemble or load the system and solve it",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		rep, err := pipeline.Run(cmd.Context(), cfg, logger)
		if err != nil {
			return err
		}
		printReport(cmd.OutOrStdout(), rep)
		if !rep.Converged {
			return fmt.Errorf("%w after %d iterations", errNotConverged, rep.Iterations)
		}
		return nil
	},
}

func init() {
	assembleCmd.Flags().StringVarP(&outPath, "out", "o", "", "write the matrix to this Matrix Market file")
	solveCmd.Flags().StringVar(&flags.matrix, "matrix", "", "solve the matrix of this Matrix Market file instead of a stencil")
}

func printReport(w io.Writer, rep pipeline.Report) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "run\t%s\n", rep.RunID)
	fmt.Fprintf(tw, "matrix\t%s (%d rows, %d nonzeros, %d ranks)\n", rep.MatrixType, rep.Rows, rep.NNZ, rep.Workers)
	fmt.Fprintf(tw, "solver\t%s, preconditioner %s\n", rep.Method, rep.Precond)
	fmt.Fprintf(tw, "converged\t%t\n", rep.Converged)
	fmt.Fprintf(tw, "iterations\t%d (limit %d)\n", rep.Iterations, rep.MaxIters)
	fmt.Fprintf(tw, "relative residual\t%.3e (tolerance %.1e)\n", rep.RelativeResidual, rep.Tolerance)
	if !math.IsNaN(rep.Error) {
		fmt.Fprintf(tw, "error\t%.3e\n", rep.Error)
	}
	fmt.Fprintf(tw, "time\t%v\n", rep.Runtime)
	tw.Flush()
}
