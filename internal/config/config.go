package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server      ServerConfig
	Database    DatabaseConfig
	MongoDB     MongoDBConfig
	MySQL       MySQLConfig
	JWT         JWTConfig
	Admin       AdminConfig
	Reservation ReservationConfig
	Cloudinary  CloudinaryConfig
	Uploads     UploadsConfig
	Telegram    TelegramConfig
	SMS         SMSConfig
	CORS        CORSConfig
	LogLevel    string
	LogFormat   string
}

// ServerConfig holds server-specific configuration
type ServerConfig struct {
	Port            string
	Mode            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
}

// DatabaseConfig selects the storage backend
type DatabaseConfig struct {
	Driver    string
	TxTimeout time.Duration
}

// MongoDBConfig holds MongoDB-specific configuration
type MongoDBConfig struct {
	URI            string
	Database       string
	ConnectTimeout time.Duration
}

// MySQLConfig holds MySQL-specific configuration
type MySQLConfig struct {
	DSN             string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// JWTConfig holds JWT-specific configuration
type JWTConfig struct {
	Secret    string
	ExpiresIn time.Duration
	Issuer    string
}

// AdminConfig guards creation of the first administrator
type AdminConfig struct {
	BootstrapToken string
}

// ReservationConfig controls expiry of unpaid reservations
type ReservationConfig struct {
	TTL           time.Duration
	SweepInterval time.Duration
}

// CloudinaryConfig holds Cloudinary credentials. Empty CloudName keeps
// proofs on local disk.
type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
	Folder    string
}

// UploadsConfig holds the local proof directory
type UploadsConfig struct {
	Dir string
}

// TelegramConfig holds the admin alert bot
type TelegramConfig struct {
	BotToken    string
	AdminChatID int64
}

// SMSConfig holds SMS gateway-specific configuration
type SMSConfig struct {
	BaseURL string
	APIKey  string
	Sender  string
	Mock    bool
}

// CORSConfig lists the browser origins allowed to call the API
type CORSConfig struct {
	AllowedOrigins []string
}

// Drivers accepted by Database.Driver.
const (
	DriverMongoDB = "mongodb"
	DriverMySQL   = "mysql"
	DriverMemory  = "memory"
)

// envAliases binds keys whose conventional variable name differs from the
// automatic KEY_SUBKEY form.
var envAliases = map[string]string{
	"Admin.BootstrapToken":      "ADMIN_BOOTSTRAP_TOKEN",
	"Reservation.TTL":           "RESERVATION_TTL",
	"Reservation.SweepInterval": "RESERVATION_SWEEP_INTERVAL",
	"Telegram.BotToken":         "TELEGRAM_BOT_TOKEN",
	"Telegram.AdminChatID":      "TELEGRAM_ADMIN_CHAT_ID",
	"SMS.BaseURL":               "SMS_BASE_URL",
	"SMS.APIKey":                "SMS_API_KEY",
	"Cloudinary.CloudName":      "CLOUDINARY_CLOUD_NAME",
	"Cloudinary.APIKey":         "CLOUDINARY_API_KEY",
	"Cloudinary.APISecret":      "CLOUDINARY_API_SECRET",
	"CORS.AllowedOrigins":       "CORS_ALLOWED_ORIGINS",
	"Database.TxTimeout":        "DATABASE_TX_TIMEOUT",
	"JWT.ExpiresIn":             "JWT_EXPIRES_IN",
	"LogLevel":                  "LOG_LEVEL",
	"LogFormat":                 "LOG_FORMAT",
}

// Load loads configuration from .env, an optional config file and
// environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)
	for key, env := range envAliases {
		if err := v.BindEnv(key, env); err != nil {
			return nil, err
		}
	}

	if err := v.ReadInConfig(); err != nil {
		// It's okay if config file is not found, we'll use environment variables
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	config.CORS.AllowedOrigins = splitList(config.CORS.AllowedOrigins)

	return &config, nil
}

// setDefaults sets default values for configuration
func setDefaults(v *viper.Viper) {
	v.SetDefault("Server.Port", "5000")
	v.SetDefault("Server.Mode", "release")
	v.SetDefault("Server.ReadTimeout", 15*time.Second)
	v.SetDefault("Server.WriteTimeout", 30*time.Second)
	v.SetDefault("Server.ShutdownTimeout", 10*time.Second)
	v.SetDefault("Database.Driver", DriverMongoDB)
	v.SetDefault("Database.TxTimeout", 10*time.Second)
	v.SetDefault("MongoDB.URI", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("MongoDB.Database", "rifa")
	v.SetDefault("MongoDB.ConnectTimeout", 10*time.Second)
	v.SetDefault("MySQL.DSN", "")
	v.SetDefault("MySQL.MaxOpenConns", 25)
	v.SetDefault("MySQL.MaxIdleConns", 5)
	v.SetDefault("MySQL.ConnMaxLifetime", 5*time.Minute)
	v.SetDefault("JWT.Secret", "")
	v.SetDefault("JWT.ExpiresIn", 24*time.Hour)
	v.SetDefault("JWT.Issuer", "rifa-backend")
	v.SetDefault("Admin.BootstrapToken", "")
	v.SetDefault("Reservation.TTL", 24*time.Hour)
	v.SetDefault("Reservation.SweepInterval", 5*time.Minute)
	v.SetDefault("Cloudinary.CloudName", "")
	v.SetDefault("Cloudinary.APIKey", "")
	v.SetDefault("Cloudinary.APISecret", "")
	v.SetDefault("Cloudinary.Folder", "rifa/proofs")
	v.SetDefault("Uploads.Dir", "uploads")
	v.SetDefault("Telegram.BotToken", "")
	v.SetDefault("Telegram.AdminChatID", 0)
	v.SetDefault("SMS.BaseURL", "")
	v.SetDefault("SMS.APIKey", "")
	v.SetDefault("SMS.Sender", "RIFA")
	v.SetDefault("SMS.Mock", true)
	v.SetDefault("CORS.AllowedOrigins", []string{"http://localhost:3000"})
	v.SetDefault("LogLevel", "info")
	v.SetDefault("LogFormat", "json")
}

// splitList expands comma separated entries, which is how lists arrive from
// environment variables.
func splitList(in []string) []string {
	out := make([]string, 0, len(in))
	for _, item := range in {
		for _, part := range strings.Split(item, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// Validate reports configuration that would make the server misbehave.
func (c *Config) Validate() error {
	var errs []error
	switch c.Database.Driver {
	case DriverMongoDB:
		if c.MongoDB.URI == "" {
			errs = append(errs, errors.New("MONGODB_URI is required for the mongodb driver"))
		}
	case DriverMySQL:
		if c.MySQL.DSN == "" {
			errs = append(errs, errors.New("MYSQL_DSN is required for the mysql driver"))
		}
	case DriverMemory:
	default:
		errs = append(errs, fmt.Errorf("unknown database driver %q", c.Database.Driver))
	}
	if c.JWT.Secret == "" && c.Server.Mode != "debug" {
		errs = append(errs, errors.New("JWT_SECRET is required outside debug mode"))
	}
	if c.JWT.ExpiresIn <= 0 {
		errs = append(errs, errors.New("JWT_EXPIRES_IN must be positive"))
	}
	if c.Reservation.TTL <= 0 {
		errs = append(errs, errors.New("RESERVATION_TTL must be positive"))
	}
	if c.Reservation.SweepInterval <= 0 {
		errs = append(errs, errors.New("RESERVATION_SWEEP_INTERVAL must be positive"))
	}
	return errors.Join(errs...)
}
