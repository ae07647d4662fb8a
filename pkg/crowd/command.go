package crowd

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/kaytu-io/crowdsh/pkg/airtable"
	cfg "github.com/kaytu-io/crowdsh/pkg/config"
	"github.com/kaytu-io/crowdsh/pkg/crowd/config"
	"github.com/kaytu-io/crowdsh/pkg/form"
	"github.com/kaytu-io/crowdsh/pkg/mturk"
	"github.com/kaytu-io/crowdsh/pkg/reputation"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const (
	ConfigPrefix      = "crowd"
	DefaultConfigPath = "/etc/crowd/config.toml"
)

func Command() *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "crowd-worker",
		Short: "Publish dataset records as crowd tasks and collect the results",
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", DefaultConfigPath, "Path to the toml config file")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable development logging")

	setup := func() (config.CrowdConfig, *zap.Logger, error) {
		cnf, err := cfg.Provide(ConfigPrefix, configPath, config.Default())
		if err != nil {
			return cnf, nil, err
		}
		if err := cnf.Validate(); err != nil {
			return cnf, nil, err
		}

		var logger *zap.Logger
		if debug {
			logger, err = zap.NewDevelopment()
		} else {
			logger, err = zap.NewProduction()
		}
		if err != nil {
			return cnf, nil, err
		}
		return cnf, logger.Named("crowd"), nil
	}

	cmd.AddCommand(runCommand(setup), balanceCommand(setup), previewCommand(setup))
	return cmd
}

type setupFunc func() (config.CrowdConfig, *zap.Logger, error)

func runCommand(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Move every record one step through its lifecycle",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cnf, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			cmd.SilenceUsage = true

			logger = logger.With(zap.String("run_id", uuid.NewString()))
			return Run(cmd.Context(), cnf, logger)
		},
	}
}

func balanceCommand(setup setupFunc) *cobra.Command {
	return &cobra.Command{
		Use:   "balance",
		Short: "Print the available marketplace balance",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cnf, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			cmd.SilenceUsage = true

			market, err := mturk.New(cnf.Live, cnf.MTurk.AccessKeyID, cnf.MTurk.SecretAccessKey, logger)
			if err != nil {
				return err
			}
			balance, err := market.Balance(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to get balance: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), balance)
			return nil
		},
	}
}

func previewCommand(setup setupFunc) *cobra.Command {
	var (
		recordID string
		wrap     bool
	)
	cmd := &cobra.Command{
		Use:   "preview",
		Short: "Render the task form of a record",
		PreRunE: func(cmd *cobra.Command, args []string) error {
			if recordID == "" {
				return errors.New("missing required flag 'record'")
			}
			return nil
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			cnf, logger, err := setup()
			if err != nil {
				return err
			}
			defer logger.Sync()
			cmd.SilenceUsage = true

			dataset := airtable.New(cnf.Airtable.BaseURL, cnf.Airtable.AppKey, cnf.Airtable.Table, cnf.Airtable.APIKey, logger)
			rec, err := dataset.Get(cmd.Context(), recordID)
			if err != nil {
				return err
			}

			out, err := Preview(cnf, rec, wrap)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), out)
			return nil
		},
	}
	cmd.Flags().StringVar(&recordID, "record", "", "The record id")
	cmd.Flags().BoolVar(&wrap, "wrap", false, "Wrap the page in the HTMLQuestion envelope")
	return cmd
}

// Preview renders the form a worker would see for rec.
func Preview(cnf config.CrowdConfig, rec airtable.Record, wrap bool) (string, error) {
	values := make(map[string]string, len(cnf.Fields))
	for _, f := range cnf.Fields {
		values[f.Name] = rec.String(f.Name)
	}
	if wrap {
		return form.Render(cnf.MTurk.Title, cnf.MTurk.Description, cnf.Fields, values)
	}
	return form.RenderPage(cnf.MTurk.Title, cnf.MTurk.Description, cnf.Fields, values)
}

// Run builds the collaborators from configuration and drives one pass over
// the dataset.
func Run(ctx context.Context, cnf config.CrowdConfig, logger *zap.Logger) error {
	market, err := mturk.New(cnf.Live, cnf.MTurk.AccessKeyID, cnf.MTurk.SecretAccessKey, logger)
	if err != nil {
		return err
	}
	dataset := airtable.New(cnf.Airtable.BaseURL, cnf.Airtable.AppKey, cnf.Airtable.Table, cnf.Airtable.APIKey, logger)

	var store reputation.Store
	if cnf.Reputation.InMemory {
		logger.Warn("using in-memory reputation store, counters are lost after the run")
		store = reputation.NewMemoryStore()
	} else {
		store, err = reputation.NewDynamoStore(ctx, reputation.DynamoConfig{
			Table:           cnf.Reputation.Table,
			Region:          cnf.Reputation.Region,
			Endpoint:        cnf.Reputation.Endpoint,
			AccessKeyID:     cnf.Reputation.AccessKeyID,
			SecretAccessKey: cnf.Reputation.SecretAccessKey,
		}, logger)
		if err != nil {
			return err
		}
	}

	return RunWith(ctx, cnf, dataset, market, store, logger)
}

// RunWith drives one pass over the dataset with the given collaborators. Per
// record failures are logged, only a failed fetch or a cancelled context
// end the run with an error.
func RunWith(ctx context.Context, cnf config.CrowdConfig, dataset Dataset, market mturk.Marketplace, store reputation.Store, logger *zap.Logger, opts ...Option) error {
	start := time.Now()
	logger.Info("starting run", zap.Bool("live", cnf.Live), zap.String("endpoint", mturk.Endpoint(cnf.Live)))

	if balance, err := market.Balance(ctx); err != nil {
		logger.Warn("failed to get balance", zap.Error(err))
	} else {
		logger.Info("marketplace balance", zap.String("available", balance))
	}

	driver, err := NewDriver(ctx, cnf, dataset, market, store, logger, opts...)
	if err != nil {
		return err
	}

	seen := map[Status]int{}
	for rec := range driver.Records(ctx) {
		seen[Status(rec.String(cnf.StatusField))]++
	}

	summary := make([]zap.Field, 0, len(seen)+1)
	summary = append(summary, zap.Int("records", driver.Len()))
	for status, n := range seen {
		summary = append(summary, zap.Int(status.String(), n))
	}
	logger.Info("run finished", summary...)

	RunDuration.Observe(time.Since(start).Seconds())
	if cnf.Prometheus.PushAddress != "" {
		if err := newPusher(cnf.Prometheus.PushAddress).Push(); err != nil {
			logger.Error("Failed to push metrics", zap.Error(err))
		}
	}
	return ctx.Err()
}
