package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	httpHdlr "afvalalert/handler/http"
	"afvalalert/src/infrastructure/classification"
	"afvalalert/src/infrastructure/retention"
	"afvalalert/src/log"
	"afvalalert/src/storage/postgres/reportctrl"
)

// serveCmd represents the serve command
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the litter report server",
	Long: `The serve command starts the HTTP API together with the in-process
classification scheduler and the retention sweeps.`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	settingDefaultConfig()
}

func runServer(cmd *cobra.Command, args []string) error {
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

	// Setup gin router
	imageHandler := httpHdlr.NewImageHandler(reportService, jobStore)
	reportHandler := httpHdlr.NewReportHandler(reportService, jobStore)
	noteHandler := httpHdlr.NewNoteHandler(reportService)

	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery(), httpHdlr.RequestID(), httpHdlr.AccessLog())

	api := r.Group("/api")
	api.POST("/image", imageHandler.Upload)
	api.GET("/image/:id", imageHandler.Get)
	api.GET("/reports", reportHandler.List)
	api.GET("/report/:id", reportHandler.Get)
	api.PUT("/report/:id", reportHandler.Finalize)
	api.PUT("/report/:id/status", reportHandler.UpdateStatus)
	api.GET("/statuses", reportHandler.ListStatuses)
	api.POST("/report/:id/notes", noteHandler.Add)
	api.GET("/report/:id/notes", noteHandler.List)

	srv := &http.Server{
		Addr:    ":" + viper.GetString("server.port"),
		Handler: r,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// Wait for interrupt signal to gracefully shut down
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case err := <-errCh:
		return err
	case <-quit:
	}
	log.Info("Shutting down server")

	timeout := viper.GetDuration("server.shutdown_timeout")
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), timeout)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "Server forced to shutdown")
	}

	cancel()
	executor.Wait()
	log.Info("Server exited")

	return nil
}
