package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kailas-cloud/personarec/internal/usecase/ingest"
)

var errIngestIncomplete = errors.New("ingest finished with failed units; rerun the same job to resume")

func newIngestCmd(env *string) *cobra.Command {
	var (
		file  string
		steps string
		job   string
	)

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Classify, store and index venues from a JSONL file",
		Long: "Runs the resumable ingestion job. Units committed by an earlier run of the same job are skipped, " +
			"so a failed run can be repeated with the same --job until it completes.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			selected, err := parseSteps(steps)
			if err != nil {
				return err
			}
			return withApp(cmd.Context(), *env, func(ctx context.Context, a *app) error {
				svc, err := a.ingestService(job)
				if err != nil {
					return err
				}
				sum, err := runIngestFile(ctx, svc, file, selected)
				if err != nil {
					return err
				}
				logSummary(a.logger, sum)
				if !sum.OK() {
					return errIngestIncomplete
				}
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&file, "file", "f", "-", "JSONL venue file, - for stdin")
	cmd.Flags().StringVar(&steps, "steps", "", "comma-separated steps to run (seed-personas, graph, vectors); default all")
	cmd.Flags().StringVar(&job, "job", "", "checkpoint job name; defaults to ingest.job from the config")
	return cmd
}

func newSeedPersonasCmd(env *string) *cobra.Command {
	return &cobra.Command{
		Use:   "seed-personas",
		Short: "Create the persona nodes in the graph",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd.Context(), *env, func(ctx context.Context, a *app) error {
				svc, err := a.ingestService("")
				if err != nil {
					return err
				}
				sum, err := svc.Run(ctx, nil, []ingest.Step{ingest.StepSeedPersonas})
				if err != nil {
					return fmt.Errorf("seed personas: %w", err)
				}
				logSummary(a.logger, sum)
				if !sum.OK() {
					return errIngestIncomplete
				}
				return nil
			})
		},
	}
}

func parseSteps(s string) ([]ingest.Step, error) {
	if strings.TrimSpace(s) == "" {
		return ingest.AllSteps(), nil
	}
	var out []ingest.Step
	for part := range strings.SplitSeq(s, ",") {
		st, err := ingest.ParseStep(strings.TrimSpace(part))
		if err != nil {
			return nil, err //nolint:wrapcheck // message names the step
		}
		out = append(out, st)
	}
	return out, nil
}

func runIngestFile(ctx context.Context, svc *ingest.Service, path string, steps []ingest.Step) (ingest.Summary, error) {
	var r io.Reader = os.Stdin
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return ingest.Summary{}, fmt.Errorf("open venues file: %w", err)
		}
		defer f.Close()
		r = f
	}

	venues, err := ingest.ReadVenues(r)
	if err != nil {
		return ingest.Summary{}, fmt.Errorf("read venues: %w", err)
	}

	sum, err := svc.Run(ctx, venues, steps)
	if err != nil {
		return sum, fmt.Errorf("ingest: %w", err)
	}
	return sum, nil
}

func logSummary(logger *zap.Logger, sum ingest.Summary) {
	for _, st := range sum.Steps {
		logger.Info("Ingest step summary",
			zap.String("run_id", sum.RunID),
			zap.String("job", sum.Job),
			zap.String("step", string(st.Step)),
			zap.Int("units", st.Units),
			zap.Int("units_skipped", st.UnitsSkipped),
			zap.Int("units_failed", st.UnitsFailed),
			zap.Int("committed", st.Committed),
			zap.Int("failed", st.Failed),
		)
	}
}
