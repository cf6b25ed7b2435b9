package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/go-co-op/gocron/v2"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

const (
	auditReconcileBatchSize = 200
	overdueSweepBatchSize   = 100
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Start the background worker",
	Long:  `Start the background worker that exports audit events to Elasticsearch and flags overdue tasks`,
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
}

func runWorker(cmd *cobra.Command, args []string) error {
	app, err := bootstrap("worker")
	if err != nil {
		return err
	}
	defer app.close()

	// Set up signal handling for graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(),
		os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		log.Info().
			Dur("interval", app.cfg.Workflow.ReconcileInterval).
			Msg("Starting audit index reconciliation job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(app.cfg.Workflow.ReconcileInterval),
			gocron.NewTask(func() {
				if err := app.services.Audit.ReconcileIndex(ctx, auditReconcileBatchSize); err != nil {
					log.Error().Err(err).Msg("Failed to reconcile audit index")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	g.Go(func() error {
		log.Info().
			Dur("interval", app.cfg.Workflow.OverdueSweepPeriod).
			Msg("Starting overdue task sweep job")

		scheduler, err := gocron.NewScheduler()
		if err != nil {
			return err
		}

		_, err = scheduler.NewJob(
			gocron.DurationJob(app.cfg.Workflow.OverdueSweepPeriod),
			gocron.NewTask(func() {
				if err := app.services.Stages.SweepOverdueTasks(ctx, overdueSweepBatchSize); err != nil {
					log.Error().Err(err).Msg("Failed to sweep overdue tasks")
				}
			}),
		)
		if err != nil {
			return err
		}

		scheduler.Start()
		<-ctx.Done()
		return scheduler.Shutdown()
	})

	if err := g.Wait(); err != nil {
		log.Error().Err(err).Msg("Worker error")
		return err
	}

	log.Info().Msg("Worker shutting down gracefully")
	return nil
}
