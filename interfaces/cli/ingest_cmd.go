package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mizzle-Technology/task-manager/infrastructure/bus/memory"
	"github.com/Mizzle-Technology/task-manager/infrastructure/config"
	"github.com/Mizzle-Technology/task-manager/infrastructure/distributed"
	"github.com/Mizzle-Technology/task-manager/infrastructure/logging"
	"github.com/Mizzle-Technology/task-manager/infrastructure/storage/mongodb"
	"github.com/Mizzle-Technology/task-manager/infrastructure/telemetry"
)

type ingestOptions struct {
	configPath string
	once       bool
}

func (a *App) newIngestCmd() *cobra.Command {
	opts := &ingestOptions{}

	cmd := &cobra.Command{
		Use:   "ingest",
		Short: "Run the Ingester pull loop: receive, persist-before-ack, settle",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runIngest(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	cmd.Flags().BoolVar(&opts.once, "once", false, "Run a single tick and exit, the ExecuteOnce entrypoint for cron-style hosts")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func (a *App) runIngest(ctx context.Context, opts *ingestOptions) error {
	logging.Init(logging.ProductionConfig())

	file, err := config.NewLoader().LoadFile(opts.configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	client, err := mongodb.NewClient(ctx,
		mongodb.WithURI(file.Ledger.ConnectionString),
		mongodb.WithDatabase(file.Ledger.DatabaseName),
		mongodb.WithConnectTimeout(file.Ledger.ConnectTimeout),
		mongodb.WithQueryTimeout(file.Ledger.QueryTimeout),
	)
	if err != nil {
		return fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	defer func() { _ = client.Close(context.Background()) }()

	repo := mongodb.NewRepository(client)
	if err := repo.Initialize(ctx); err != nil {
		return fmt.Errorf("failed to initialize ledger: %w", err)
	}

	// Operators wire their own bus.Bus driver (Alibaba MNS, Azure
	// Service Bus) here. The in-memory bus below is a placeholder that
	// keeps `ingest --once` runnable for smoke-testing a deployment.
	source := memory.New()

	provider, err := telemetry.NewProvider(telemetry.ProviderConfig{
		ServiceName:    "task-manager-ingester",
		ServiceVersion: Version,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	metrics := telemetry.NewMetrics(telemetry.DefaultMetricsConfig())
	ing := distributed.NewIngester(repo, source, nil, file.Ingester, distributed.WithIngesterMetrics(metrics))

	if opts.once {
		ing.ExecuteOnce(ctx)
		return nil
	}

	if err := ing.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	ing.Stop()
	return nil
}
