package cmd

import (
	"fmt"

	"github.com/spf13/viper"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"afvalalert/src/infrastructure/classification"
	"afvalalert/src/storage/postgres/reportctrl"
)

func settingDefaultConfig() {
	viper.AutomaticEnv()

	// Map environment variables to Viper keys for PostgreSQL
	viper.BindEnv("postgres.host", "POSTGRES_HOST")
	viper.BindEnv("postgres.port", "POSTGRES_PORT")
	viper.BindEnv("postgres.user", "POSTGRES_USER")
	viper.BindEnv("postgres.password", "POSTGRES_PASSWORD")
	viper.BindEnv("postgres.db", "POSTGRES_DB")

	// Map environment variables for the HTTP server
	viper.BindEnv("server.port", "SERVER_PORT")
	viper.BindEnv("server.shutdown_timeout", "SERVER_SHUTDOWN_TIMEOUT")

	// Map environment variables for the classification pipeline
	viper.BindEnv("classifier.url", "CLASSIFIER_URL")
	viper.BindEnv("classifier.interval", "CLASSIFIER_INTERVAL")
	viper.BindEnv("classifier.batch_size", "CLASSIFIER_BATCH_SIZE")
	viper.BindEnv("classifier.workers", "CLASSIFIER_WORKERS")
	viper.BindEnv("classifier.fail_on_label_error", "CLASSIFIER_FAIL_ON_LABEL_ERROR")

	// Map environment variables for retention sweeps
	viper.BindEnv("retention.interval", "RETENTION_INTERVAL")
	viper.BindEnv("retention.max_age", "RETENTION_MAX_AGE")

	viper.BindEnv("log.development", "LOG_DEVELOPMENT")

	// Set default values for PostgreSQL
	viper.SetDefault("postgres.host", "localhost")
	viper.SetDefault("postgres.port", "5432")
	viper.SetDefault("postgres.user", "postgres")
	viper.SetDefault("postgres.password", "postgres")
	viper.SetDefault("postgres.db", "afvalalert")

	// Set default values for the HTTP server
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.shutdown_timeout", "5s")

	// Set default values for the classification pipeline
	viper.SetDefault("classifier.url", "http://localhost:8000/classificeer")
	viper.SetDefault("classifier.interval", "5s")
	viper.SetDefault("classifier.batch_size", 10)
	viper.SetDefault("classifier.workers", 4)
	viper.SetDefault("classifier.fail_on_label_error", false)

	// Set default values for retention sweeps
	viper.SetDefault("retention.interval", "10m")
	viper.SetDefault("retention.max_age", "1h")

	viper.SetDefault("log.development", false)
}

func openDatabase() (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		viper.GetString("postgres.host"),
		viper.GetString("postgres.user"),
		viper.GetString("postgres.password"),
		viper.GetString("postgres.db"),
		viper.GetString("postgres.port"))

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %v", err)
	}

	err = db.AutoMigrate(
		&reportctrl.Image{},
		&reportctrl.Report{},
		&reportctrl.Note{},
		&classification.WasteType{},
		&classification.Job{},
		&classification.Label{},
	)
	if err != nil {
		return nil, fmt.Errorf("failed to migrate schema: %v", err)
	}

	return db, nil
}
