package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	httpapi "github.com/wedsync/guestlist/internal/api/http"
	"github.com/wedsync/guestlist/internal/audit"
	"github.com/wedsync/guestlist/internal/auth/jwt"
	"github.com/wedsync/guestlist/internal/dispatch"
	"github.com/wedsync/guestlist/internal/ratelimit"
	"github.com/wedsync/guestlist/internal/registry"
	"github.com/wedsync/guestlist/internal/reminder"
	"github.com/wedsync/guestlist/internal/store"
	"github.com/wedsync/guestlist/internal/transport/email"
	"github.com/wedsync/guestlist/internal/transport/whatsapp"
	"github.com/wedsync/guestlist/log"
)

const (
	StorageMySQL  = "mysql"
	StorageMemory = "memory"
)

// StorageConfig selects the repository implementation.
type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

// Config represents the global configuration for the service.
type Config struct {
	DB        store.Config     `mapstructure:"mysql"`
	Storage   StorageConfig    `mapstructure:"storage"`
	Logger    log.Config       `mapstructure:"logger"`
	HTTP      httpapi.Config   `mapstructure:"http"`
	Auth      jwt.Config       `mapstructure:"auth"`
	Mailer    email.Config     `mapstructure:"mailer"`
	WhatsApp  whatsapp.Config  `mapstructure:"whatsapp"`
	Dispatch  dispatch.Config  `mapstructure:"dispatch"`
	Registry  registry.Config  `mapstructure:"registry"`
	Reminder  reminder.Config  `mapstructure:"reminder"`
	RateLimit ratelimit.Config `mapstructure:"ratelimit"`
	Audit     audit.Config     `mapstructure:"audit"`
}

// LoadConfig loads the configuration from a file and/or environment variables.
// Environment variables take precedence over config file values.
// Nested config keys use double underscore, e.g., MYSQL__DSN for mysql.dsn
func LoadConfig(cfgFile string) (*Config, error) {
	viper.SetConfigType("toml")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "__", "-", "__"))
	setDefaults()
	bindEnvVars()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
		if err := viper.ReadInConfig(); err != nil {
			if !os.IsNotExist(err) {
				return nil, fmt.Errorf("failed to read config file: %v", err)
			}
		}
	} else {
		viper.SetConfigName("config")
		viper.AddConfigPath("./config")
		viper.AddConfigPath("$HOME/config/guestlist")
		viper.AddConfigPath("/etc/guestlist")
		_ = viper.ReadInConfig()
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config into struct: %v", err)
	}

	if config.DB.DSN == "" {
		mysqlHost := os.Getenv("MYSQL_HOST")
		mysqlPort := os.Getenv("MYSQL_PORT")
		mysqlUser := os.Getenv("MYSQL_USER")
		mysqlPassword := os.Getenv("MYSQL_PASSWORD")
		mysqlDatabase := os.Getenv("MYSQL_DATABASE")
		if mysqlHost != "" {
			if mysqlPort == "" {
				mysqlPort = "3306"
			}
			if mysqlUser != "" && mysqlPassword != "" && mysqlDatabase != "" {
				config.DB.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=true",
					mysqlUser, mysqlPassword, mysqlHost, mysqlPort, mysqlDatabase)
			}
		}
	}

	switch config.Storage.Driver {
	case StorageMySQL, StorageMemory:
	default:
		return nil, fmt.Errorf("unknown storage driver %q", config.Storage.Driver)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("storage.driver", StorageMySQL)
	viper.SetDefault("http.port", "8081")
	viper.SetDefault("auth.jwt_ttl", "24h")

	d := dispatch.DefaultConfig()
	viper.SetDefault("dispatch.reminder_limit", d.ReminderLimit)
	viper.SetDefault("dispatch.rsvp_base_url", d.RSVPBaseURL)

	r := registry.DefaultConfig()
	viper.SetDefault("registry.duplicate_match", r.DuplicateMatch)
	viper.SetDefault("registry.import_workers", r.ImportWorkers)

	rm := reminder.DefaultConfig()
	viper.SetDefault("reminder.worker_interval", rm.WorkerInterval)
	viper.SetDefault("reminder.reminder_spacing", rm.ReminderSpacing)

	rl := ratelimit.DefaultConfig()
	viper.SetDefault("ratelimit.lookups_per_ip_per_minute", rl.LookupsPerIPPerMinute)
	viper.SetDefault("ratelimit.responses_per_ip_per_hour", rl.ResponsesPerIPPerHour)
	viper.SetDefault("ratelimit.responses_per_token_per_day", rl.ResponsesPerTokenPerDay)
}

// bindEnvVars binds environment variables to config keys
// This allows using both nested keys (MYSQL__DSN) and flat keys (MYSQL_DSN)
func bindEnvVars() {
	// MySQL
	viper.BindEnv("mysql.dsn", "MYSQL_DSN")
	viper.BindEnv("mysql.automigrate", "MYSQL_AUTOMIGRATE")
	viper.BindEnv("mysql.max_open_connections", "MYSQL_MAX_OPEN_CONNECTIONS")
	viper.BindEnv("mysql.max_idle_connections", "MYSQL_MAX_IDLE_CONNECTIONS")
	viper.BindEnv("mysql.tls_ca_path", "MYSQL_TLS_CA_PATH")
	viper.BindEnv("storage.driver", "STORAGE_DRIVER")

	// Logger
	viper.BindEnv("logger.level", "LOG_LEVEL")
	viper.BindEnv("logger.add_source", "LOG_ADD_SOURCE")

	// HTTP
	viper.BindEnv("http.port", "HTTP_PORT")
	viper.BindEnv("http.address", "HTTP_ADDRESS")
	viper.BindEnv("http.allowed_origins", "HTTP_ALLOWED_ORIGINS")
	viper.BindEnv("http.webhook_secret", "HTTP_WEBHOOK_SECRET")
	viper.BindEnv("http.trust_proxy", "HTTP_TRUST_PROXY")

	// Auth
	viper.BindEnv("auth.jwt_secret", "AUTH_JWT_SECRET")
	viper.BindEnv("auth.jwt_ttl", "AUTH_JWT_TTL")

	// Mailer
	viper.BindEnv("mailer.sendgrid_api_key", "MAILER_SENDGRID_API_KEY")
	viper.BindEnv("mailer.from_email", "MAILER_FROM_EMAIL")
	viper.BindEnv("mailer.from_email_name", "MAILER_FROM_EMAIL_NAME")
	viper.BindEnv("mailer.reply_to", "MAILER_REPLY_TO")

	// WhatsApp
	viper.BindEnv("whatsapp.enabled", "WHATSAPP_ENABLED")
	viper.BindEnv("whatsapp.data_dir", "WHATSAPP_DATA_DIR")
	viper.BindEnv("whatsapp.default_country_code", "WHATSAPP_DEFAULT_COUNTRY_CODE")

	// Dispatch
	viper.BindEnv("dispatch.reminder_limit", "DISPATCH_REMINDER_LIMIT")
	viper.BindEnv("dispatch.rsvp_base_url", "DISPATCH_RSVP_BASE_URL")

	// Reminder worker
	viper.BindEnv("reminder.worker_interval", "REMINDER_WORKER_INTERVAL")
	viper.BindEnv("reminder.reminder_spacing", "REMINDER_REMINDER_SPACING")
}
