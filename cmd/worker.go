package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"afvalalert/src/infrastructure/classification"
	"afvalalert/src/infrastructure/integrations/classifier"
	"afvalalert/src/infrastructure/retention"
	"afvalalert/src/log"
	"afvalalert/src/storage/postgres/reportctrl"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Run only the classification pipeline and retention sweeps",
	RunE:  runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)
	settingDefaultConfig()
}

// buildPipeline wires the executor and scheduler from viper config.
func buildPipeline(store classification.Store) (*classification.Executor, *classification.Scheduler) {
	classifierService := classifier.NewService(viper.GetString("classifier.url"), &http.Client{})
	reconciler := classification.NewReconciler(store)

	executor := classification.NewExecutor(store, classifierService, reconciler, classification.ExecutorConfig{
		Workers:          viper.GetInt("classifier.workers"),
		FailOnLabelError: viper.GetBool("classifier.fail_on_label_error"),
	})

	scheduler := classification.NewScheduler(store, executor, classification.SchedulerConfig{
		Interval:  viper.GetDuration("classifier.interval"),
		BatchSize: viper.GetInt("classifier.batch_size"),
	})

	return executor, scheduler
}

func runWorker(cmd *cobra.Command, args []string) error {
	if err := log.Setup(viper.GetBool("log.development")); err != nil {
		return err
	}

	db, err := openDatabase()
	if err != nil {
		return err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	defer sqlDB.Close()

	reportService, err := reportctrl.NewReportService(db)
	if err != nil {
		return err
	}

	jobStore, err := classification.NewPostgresStore(db)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	executor, scheduler := buildPipeline(jobStore)
	executor.Start(ctx)
	go scheduler.Run(ctx)

	sweeper := retention.NewSweeper(reportService, retention.Config{
		Interval: viper.GetDuration("retention.interval"),
		MaxAge:   viper.GetDuration("retention.max_age"),
	})
	go sweeper.Run(ctx)

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info("Shutting down worker")
	cancel()
	executor.Wait()
	log.Info("Worker stopped")

	return nil
}
