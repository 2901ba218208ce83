// Package config provides configuration management for chunk-mender.
//
// It uses Viper to load settings from environment variables and an optional
// .env file (via godotenv). Defaults come from the `default` struct tags of
// each section and keys map to upper-case environment names, so
// repair.workers is read from REPAIR_WORKERS.
//
// # Configuration Structure
//
//   - Repair: worker count, saves directory, non-interactive confirmation
//   - Storage: S3/MinIO credentials for s3:// backups
//   - Database: optional repair journal (none, mysql, sqlite)
//   - Log: logging level and format
//
// # Usage
//
//	cfg, err := config.LoadConfig(".")
//	if err != nil {
//	    return err
//	}
//	fmt.Println(cfg.Repair.Workers)
package config
