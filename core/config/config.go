package config

import (
	"path/filepath"
	"reflect"
	"strings"

	"chunk-mender/core/database"
	"chunk-mender/core/logger"
	"chunk-mender/core/storage"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application.
// It is divided into partial configurations for better modularity.
type Config struct {
	// Repair holds settings for the reconciliation run.
	Repair RepairConfig `mapstructure:"repair"`
	// Storage holds configuration for the object storage holding remote backups.
	Storage storage.Config `mapstructure:"storage"`
	// Log holds configuration for the logger.
	Log logger.Config `mapstructure:"log"`
	// Database holds configuration for the repair journal.
	Database database.Config `mapstructure:"database"`
}

// RepairConfig holds settings for the reconciliation run.
type RepairConfig struct {
	// Workers is the number of chunks decoded in parallel.
	Workers int `mapstructure:"workers" default:"4"`
	// SavesDir is searched for worlds given by name.
	SavesDir string `mapstructure:"saves_dir" default:""`
	// AssumeYes deletes unrecoverable chunks without asking.
	AssumeYes bool `mapstructure:"assume_yes" default:"false"`
}

// LoadConfig loads configuration from environment variables and a .env file in path.
func LoadConfig(path string) (*Config, error) {
	envPath := ".env"
	if path != "" && path != "." {
		envPath = filepath.Join(path, ".env")
	}

	// Ignore error if file doesn't exist
	_ = godotenv.Overload(envPath)

	v := viper.New()

	// Recursively parse struct tags to set default values
	bindValues(v, Config{}, "")

	// Map environment variables to nested keys (e.g. REPAIR_WORKERS -> repair.workers)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	if config.Repair.Workers < 1 {
		config.Repair.Workers = 1
	}

	return &config, nil
}

// bindValues uses reflection to iterate over the struct and set default values in Viper
// based on the 'default' and 'mapstructure' tags.
func bindValues(v *viper.Viper, iface any, prefix string) {
	t := reflect.TypeOf(iface)

	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}

	for i := 0; i < t.NumField(); i++ {
		field := t.Field(i)
		tag := field.Tag.Get("mapstructure")
		if tag == "" {
			continue
		}

		key := tag
		if prefix != "" {
			key = prefix + "." + tag
		}

		if field.Type.Kind() == reflect.Struct {
			bindValues(v, reflect.New(field.Type).Elem().Interface(), key)
			continue
		}

		// Always set default (even if empty) to register the key for AutomaticEnv
		v.SetDefault(key, field.Tag.Get("default"))
	}
}
