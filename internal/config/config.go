package config

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/storage"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// DefaultChunkSize is the multipart chunk size used when none is configured.
const DefaultChunkSize = 10 * 1024 * 1024 // 10 MiB

// LocationConfig describes a named storage location backing record buckets.
type LocationConfig struct {
	Platform string `yaml:"platform"` // "s3" or "gcs"
	Bucket   string `yaml:"bucket"`
	Prefix   string `yaml:"prefix"`
}

// Config holds the application configuration. It is built once at startup and
// passed down; commands never mutate it.
type Config struct {
	LogLevel string `yaml:"log_level"`

	// REST API settings.
	APIURL             string        `yaml:"api_url"`
	APIToken           string        `yaml:"api_token"` // literal or "ssm:/param/path"
	RequestPacing      time.Duration `yaml:"request_pacing"`
	InsecureSkipVerify bool          `yaml:"insecure_skip_verify"`

	// Upload settings.
	ChunkSize int64 `yaml:"chunk_size"`

	// Fixture defaults.
	FixturesDir string `yaml:"fixtures_dir"`
	SchemaPath  string `yaml:"schema_path"`
	LedgerPath  string `yaml:"ledger_path"`

	// Storage locations. DefaultLocation names the entry used when a command
	// does not request one; LocationsPath is the on-disk registry of locations
	// created at runtime.
	DefaultLocation string                    `yaml:"default_location"`
	LocationsPath   string                    `yaml:"locations_path"`
	Locations       map[string]LocationConfig `yaml:"locations"`

	// AwsConfig: AWS SDK uses a shared configuration object that contains
	// credentials, region, retry policies, etc. The S3 and SSM clients are
	// created from this single config.
	AwsConfig aws.Config
	// GcsClient: Google Cloud SDK uses individual service clients that
	// handle their own configuration internally via environment variables,
	// service account files, or metadata service. No shared config needed.
	GcsClient *storage.Client
}

// LoadConfig loads configuration from config.yaml, environment variables, or CLI flags
// Priority: CLI flags > Environment variables > config.yaml > defaults
func LoadConfig(configPath string, rootCmd *cobra.Command) (*Config, error) {
	if err := setupViper(configPath, rootCmd); err != nil {
		return nil, err
	}

	awsConfig, err := loadAWSConfig()
	if err != nil {
		return nil, err
	}

	gcsClient, err := loadGCSClient()
	if err != nil {
		return nil, err
	}

	return &Config{
		LogLevel:           viper.GetString("log_level"),
		APIURL:             viper.GetString("api_url"),
		APIToken:           viper.GetString("api_token"),
		RequestPacing:      viper.GetDuration("request_pacing"),
		InsecureSkipVerify: viper.GetBool("insecure_skip_verify"),
		ChunkSize:          viper.GetInt64("chunk_size"),
		FixturesDir:        viper.GetString("fixtures_dir"),
		SchemaPath:         viper.GetString("schema_path"),
		LedgerPath:         viper.GetString("ledger_path"),
		DefaultLocation:    viper.GetString("default_location"),
		LocationsPath:      viper.GetString("locations_path"),
		Locations:          parseLocations(),
		AwsConfig:          awsConfig,
		GcsClient:          gcsClient,
	}, nil
}

// setupViper configures Viper with defaults, paths, and bindings
func setupViper(configPath string, rootCmd *cobra.Command) error {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")

	if configPath != "" {
		viper.SetConfigFile(configPath)
	}

	setDefaults()
	viper.AutomaticEnv()

	if err := viper.BindPFlags(rootCmd.PersistentFlags()); err != nil {
		return fmt.Errorf("failed to bind flags: %w", err)
	}

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("error reading config file: %w", err)
		}
	}

	return nil
}

// setDefaults sets default configuration values
func setDefaults() {
	viper.SetDefault("log_level", "info")
	viper.SetDefault("api_url", "https://127.0.0.1:5000/api/records")
	viper.SetDefault("request_pacing", time.Second)
	viper.SetDefault("insecure_skip_verify", true)
	viper.SetDefault("chunk_size", DefaultChunkSize)
	viper.SetDefault("fixtures_dir", "./fixtures/records")
	viper.SetDefault("schema_path", "./fixtures/schemas/record-v1.json")
	viper.SetDefault("ledger_path", "./tmp/fixture-map.json")
	viper.SetDefault("default_location", "default")
	viper.SetDefault("locations_path", "./tmp/locations.json")
	viper.SetDefault("locations", map[string]interface{}{
		"default": map[string]interface{}{
			"platform": "s3",
			"bucket":   "uv-records",
		},
	})
}

// loadAWSConfig loads AWS SDK configuration
func loadAWSConfig() (aws.Config, error) {
	cfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		return aws.Config{}, fmt.Errorf("unable to load AWS SDK config: %v", err)
	}
	return cfg, nil
}

// loadGCSClient loads Google Cloud Storage client
func loadGCSClient() (*storage.Client, error) {
	client, err := storage.NewClient(context.Background())
	if err != nil {
		return nil, fmt.Errorf("unable to create GCS client: %v", err)
	}
	return client, nil
}

// parseLocations parses location configuration from Viper
func parseLocations() map[string]LocationConfig {
	locations := make(map[string]LocationConfig)
	raw := viper.GetStringMap("locations")

	for name, value := range raw {
		if m, ok := value.(map[string]interface{}); ok {
			locations[name] = LocationConfig{
				Platform: getString(m, "platform", "s3"),
				Bucket:   getString(m, "bucket", name),
				Prefix:   getString(m, "prefix", ""),
			}
		}
	}

	return locations
}

// getString safely extracts string value from map with default
func getString(m map[string]interface{}, key, defaultValue string) string {
	if value, exists := m[key]; exists {
		if str, ok := value.(string); ok {
			return str
		}
	}
	return defaultValue
}
