package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/Mizzle-Technology/task-manager/domain/task"
	"github.com/Mizzle-Technology/task-manager/infrastructure/config"
	"github.com/Mizzle-Technology/task-manager/infrastructure/distributed"
	"github.com/Mizzle-Technology/task-manager/infrastructure/logging"
	"github.com/Mizzle-Technology/task-manager/infrastructure/storage/mongodb"
	"github.com/Mizzle-Technology/task-manager/infrastructure/telemetry"
)

type workerOptions struct {
	configPath string
}

func (a *App) newWorkerCmd() *cobra.Command {
	opts := &workerOptions{}

	cmd := &cobra.Command{
		Use:   "worker",
		Short: "Run the Worker Loop: acquire, heartbeat, process, retry",
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runWorker(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVarP(&opts.configPath, "config", "c", "", "Path to configuration file (required)")
	_ = cmd.MarkFlagRequired("config")

	return cmd
}

func (a *App) runWorker(ctx context.Context, opts *workerOptions) error {
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

	provider, err := telemetry.NewProvider(telemetry.ProviderConfig{
		ServiceName:    "task-manager-worker",
		ServiceVersion: Version,
	})
	if err != nil {
		return fmt.Errorf("failed to set up telemetry: %w", err)
	}
	defer func() { _ = provider.Shutdown(context.Background()) }()

	id := config.WorkerIdentity()
	metrics := telemetry.NewMetrics(telemetry.DefaultMetricsConfig())

	handler := func(ctx context.Context, t *task.Task) error {
		logging.Info().Add(logging.TaskID(t.TaskID)).Msg("no handler configured; treating task as a no-op success")
		return nil
	}

	w := distributed.NewWorker(id, repo, handler, file.Worker, distributed.WithMetrics(metrics))
	logging.Info().Add(logging.WorkerID(id)).Msg("starting worker loop")

	if err := w.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()

	w.Stop()
	logging.Info().Add(logging.WorkerID(id)).Msg("worker loop stopped")
	return nil
}
