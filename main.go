package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"q.log/lpsimplex/instance"
	"q.log/lpsimplex/report"
	"q.log/lpsimplex/simplex"
	"q.log/lpsimplex/standard"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	if err := newCommand().ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}

func newCommand() *cobra.Command {
	v := viper.New()
	v.SetEnvPrefix("lpsimplex")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	cmd := &cobra.Command{
		Use:   "lpsimplex [flags] file.mps",
		Short: "Solve a linear program in MPS format with the revised simplex method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(cmd.Context(), v, args[0], cmd)
		},
		SilenceUsage: true,
	}

	flags := cmd.Flags()
	flags.Bool("duals", false, "report the dual value of every constraint row")
	flags.Bool("slacks", false, "report slack and surplus values")
	flags.Bool("iis", false, "name an irreducible infeasible subsystem when the model is infeasible")
	flags.Int("max-iter", simplex.DefaultMaxIterations, "iteration limit over both phases")
	flags.Float64("tol", simplex.DefaultTolerance, "zero and pricing tolerance")
	flags.BoolP("verbose", "v", false, "log solver progress to stderr")
	if err := v.BindPFlags(flags); err != nil {
		panic(err)
	}
	return cmd
}

func run(ctx context.Context, v *viper.Viper, filename string, cmd *cobra.Command) error {
	r := instance.NewReader(filename)
	m, err := r.ConstructModelFromFile()
	if err != nil {
		return err
	}

	f, err := standard.Transform(m)
	if err != nil {
		return err
	}

	opts := []simplex.Option{
		simplex.WithMaxIterations(v.GetInt("max-iter")),
		simplex.WithTolerance(v.GetFloat64("tol")),
	}
	if v.GetBool("verbose") {
		opts = append(opts, simplex.WithLogger(log.New(cmd.ErrOrStderr(), "lpsimplex: ", 0)))
	}
	res, err := simplex.Solve(ctx, f, opts...)
	if err != nil {
		return fmt.Errorf("solving %s: %w", filename, err)
	}

	var ropts []report.Option
	if v.GetBool("duals") {
		ropts = append(ropts, report.WithDuals())
	}
	if v.GetBool("slacks") {
		ropts = append(ropts, report.WithSlacks())
	}
	if v.GetBool("iis") {
		ropts = append(ropts, report.WithIIS(ctx, opts...))
	}
	sol, err := report.New(m, f, res, ropts...)
	if err != nil {
		return err
	}
	_, err = sol.WriteTo(cmd.OutOrStdout())
	return err
}
