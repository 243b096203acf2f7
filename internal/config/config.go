package config

import (
	"strings"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port        string `envconfig:"PORT" default:"8080"`
	Environment string `envconfig:"ENV" default:"development"`

	// Record store settings. The bolt driver keeps everything in a local
	// file; the postgres driver expects a records table (see repository).
	StoreDriver        string `envconfig:"STORE_DRIVER" default:"bolt"`
	BoltPath           string `envconfig:"BOLT_PATH" default:"data/records.db"`
	DBConnectionString string `envconfig:"DB_CONNECTION_STRING"`

	// Auth settings
	JWTSecret     string `envconfig:"JWT_SECRET"`
	JWTSecretName string `envconfig:"JWT_SECRET_NAME"`
	AdminEmails   string `envconfig:"ADMIN_EMAILS" required:"true"`

	// Usage pricing settings
	PriceTablePath string `envconfig:"PRICE_TABLE_PATH"`
	DefaultModel   string `envconfig:"DEFAULT_MODEL" default:"gpt-4o-mini"`

	// Fan-out limits against the record store
	MaxInFlightScans   int `envconfig:"MAX_IN_FLIGHT_SCANS" default:"8"`
	MaxInFlightDeletes int `envconfig:"MAX_IN_FLIGHT_DELETES" default:"16"`

	// GCP settings (deletion audit events, secret lookup)
	GCPProjectID       string `envconfig:"GCP_PROJECT_ID"`
	DeletionAuditTopic string `envconfig:"DELETION_AUDIT_TOPIC"`

	// S3-compatible storage holding per-user uploads; optional. When set,
	// a user deletion also purges every object under the user's prefix.
	S3URL       string `envconfig:"S3_URL"`
	S3Bucket    string `envconfig:"S3_BUCKET"`
	S3Region    string `envconfig:"S3_REGION"`
	S3AccessKey string `envconfig:"S3_ACCESS_KEY"`
	S3SecretKey string `envconfig:"S3_SECRET_KEY"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// AdminEmailList splits the configured allow-list into individual addresses.
func (c *Config) AdminEmailList() []string {
	var out []string
	for _, e := range strings.Split(c.AdminEmails, ",") {
		e = strings.TrimSpace(e)
		if e != "" {
			out = append(out, e)
		}
	}
	return out
}

// StorageConfigured reports whether the object storage purge step is enabled.
func (c *Config) StorageConfigured() bool {
	return c.S3URL != "" && c.S3Bucket != ""
}
