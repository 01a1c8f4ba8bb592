package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/dq-tools/aid-atlas/pkg/runtime/terminal/export"
	"github.com/dq-tools/aid-atlas/pkg/services/aggregate"
	"github.com/dq-tools/aid-atlas/pkg/services/config"
	"github.com/dq-tools/aid-atlas/pkg/services/currency"
	"github.com/dq-tools/aid-atlas/pkg/services/reference"
	"github.com/dq-tools/aid-atlas/pkg/store/ratefile"
)

// NewComputeCmd builds the command that computes the full corpus aggregate,
// optionally writes it to a JSON file and prints a summary report.
func NewComputeCmd(reporter *export.Reporter) *cobra.Command {
	var cfgPath string
	var outPath string

	cmd := &cobra.Command{
		Use:   "compute",
		Short: "Compute statistics over a data directory",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := zerolog.New(os.Stderr).With().Timestamp().Logger()
			ctx := logger.WithContext(cmd.Context())

			corpus, _, err := Compute(ctx, cfgPath)
			if err != nil {
				return err
			}

			if outPath != "" {
				if err := writeJSON(outPath, corpus); err != nil {
					return err
				}
				logger.Info().Str("path", outPath).Msg("aggregate written")
			}

			return reporter.Handle(aggregate.Summarize(corpus))
		},
	}

	cmd.Flags().StringVarP(&cfgPath, "config", "c", "atlas.yaml", "Path to the engine config file")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write the full aggregate to this JSON file")
	return cmd
}

// Compute loads configuration and reference data, then builds the corpus
// aggregate. Shared by the CLI and the web entrypoint, which also needs the
// loaded config for its listen address.
func Compute(ctx context.Context, cfgPath string) (*aggregate.CorpusStats, *config.Config, error) {
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load engine config: %w", err)
	}

	refs, err := reference.LoadDir(cfg.ReferenceDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load reference tables: %w", err)
	}

	rates := currency.RateTable{}
	if cfg.RatesFile != "" {
		rates, err = ratefile.Load(cfg.RatesFile)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to load exchange rates: %w", err)
		}
	}

	builder := aggregate.NewBuilder(aggregate.Options{
		Ref:     refs,
		Rates:   currency.NewConverter(rates, cfg.ClampYear),
		Workers: cfg.Workers,
	})
	corpus, err := builder.BuildDirectory(ctx, cfg.DataDir)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to build corpus aggregate: %w", err)
	}
	return corpus, cfg, nil
}

func writeJSON(path string, corpus *aggregate.CorpusStats) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	defer f.Close()

	enc := json.NewEncoder(f)
	enc.SetIndent("", "  ")
	if err := enc.Encode(corpus); err != nil {
		return fmt.Errorf("failed to encode aggregate: %w", err)
	}
	return nil
}
