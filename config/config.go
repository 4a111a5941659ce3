// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"slices"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
	"go.uber.org/zap"
)

var (
	configPath = pflag.String("config", ".", "Directory containing config.toml")

	validLogLevels    = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers      = []string{"sqlite", "postgres"}
	validMarkerStores = []string{"memory", "redis"}
)

// ErrMissingSecret is returned when no JWT secret is configured. Setup
// prints a freshly generated one before returning it.
var ErrMissingSecret = errors.New("security.jwt_secret is not set")

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlags(pflag.CommandLine)

	// .env is optional, real env vars always win
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env file, %w", err)
	}

	err := Load(v.GetViper(), *configPath)
	if errors.Is(err, ErrMissingSecret) {
		fmt.Println("WARNING: You haven't set a JWT secret, so it has been generated for you. Please set it as an environment variable or in the config.toml file.\nYour random JWT secret:\n\n" + genSecret() + "\n\nPaste it into your config.toml file.")
		os.Exit(0)
	}

	return err
}

// Load reads config.toml from dir into vp, applies env bindings and
// defaults and validates the result.
func Load(vp *v.Viper, dir string) error {
	vp.SetConfigName("config")
	vp.SetConfigType("toml")
	vp.AddConfigPath(dir)

	vp.AutomaticEnv()

	//
	// ENVS
	//
	vp.BindEnv("app.log_level", "APP_LOG_LEVEL")

	vp.BindEnv("host.port", "HOST_PORT")
	vp.BindEnv("host.domain", "HOST_DOMAIN")
	vp.BindEnv("host.cors_origins", "HOST_CORS_ORIGINS")
	vp.BindEnv("host.ssl.enabled", "HOST_SSL_ENABLED")
	vp.BindEnv("host.ssl.certificate_path", "HOST_SSL_CERTIFICATE_PATH")
	vp.BindEnv("host.ssl.certificate_key_path", "HOST_SSL_CERTIFICATE_KEY_PATH")

	vp.BindEnv("database.driver", "DATABASE_DRIVER")
	vp.BindEnv("database.dsn", "DATABASE_DSN")

	vp.BindEnv("security.jwt_secret", "SECURITY_JWT_SECRET")
	vp.BindEnv("security.body_limit", "SECURITY_BODY_LIMIT")

	vp.BindEnv("reset.code_ttl", "RESET_CODE_TTL")
	vp.BindEnv("reset.marker_ttl", "RESET_MARKER_TTL")
	vp.BindEnv("reset.marker_store", "RESET_MARKER_STORE")
	vp.BindEnv("reset.log_undelivered_codes", "RESET_LOG_UNDELIVERED_CODES")
	vp.BindEnv("reset.purge_schedule", "RESET_PURGE_SCHEDULE")
	vp.BindEnv("reset.purge_after", "RESET_PURGE_AFTER")

	vp.BindEnv("redis.addr", "REDIS_ADDR")
	vp.BindEnv("redis.password", "REDIS_PASSWORD")
	vp.BindEnv("redis.db", "REDIS_DB")

	vp.BindEnv("mail.host", "MAIL_HOST")
	vp.BindEnv("mail.port", "MAIL_PORT")
	vp.BindEnv("mail.username", "MAIL_USERNAME")
	vp.BindEnv("mail.password", "MAIL_PASSWORD")
	vp.BindEnv("mail.sender", "MAIL_SENDER")

	vp.BindEnv("storage.bucket", "STORAGE_BUCKET")
	vp.BindEnv("storage.region", "STORAGE_REGION")
	vp.BindEnv("storage.endpoint", "STORAGE_ENDPOINT")
	vp.BindEnv("storage.access_key_id", "STORAGE_ACCESS_KEY_ID")
	vp.BindEnv("storage.secret_access_key", "STORAGE_SECRET_ACCESS_KEY")

	//
	// Defaults
	//
	vp.SetDefault("app.log_level", "info")

	vp.SetDefault("host.port", 8080)
	vp.SetDefault("host.domain", "localhost")
	vp.SetDefault("host.cors_origins", []string{"http://localhost:5173"})
	vp.SetDefault("host.ssl.enabled", false)

	vp.SetDefault("database.driver", "sqlite")
	vp.SetDefault("database.dsn", "database.db")

	vp.SetDefault("security.body_limit", 1<<20)

	vp.SetDefault("reset.code_ttl", 10*time.Minute)
	vp.SetDefault("reset.marker_ttl", 10*time.Minute)
	vp.SetDefault("reset.marker_store", "memory")
	vp.SetDefault("reset.log_undelivered_codes", false)
	vp.SetDefault("reset.purge_schedule", "@every 1h")
	vp.SetDefault("reset.purge_after", 24*time.Hour)

	vp.SetDefault("redis.db", 0)

	vp.SetDefault("mail.port", 587)

	vp.SetDefault("storage.region", "auto")

	if err := vp.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); ok {
			return errors.New("config.toml file is missing")
		}

		return fmt.Errorf("failed to read config file, %w", err)
	}

	if !slices.Contains(validLogLevels, vp.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if vp.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if vp.GetBool("host.ssl.enabled") {
		if vp.GetString("host.ssl.certificate_path") == "" {
			return errors.New("no ssl certificate path provided")
		}

		if vp.GetString("host.ssl.certificate_key_path") == "" {
			return errors.New("no ssl certificate key path provided")
		}
	}

	if !slices.Contains(validDrivers, vp.GetString("database.driver")) {
		return errors.New("invalid database driver provided")
	}

	if vp.GetString("database.dsn") == "" {
		return errors.New("database.dsn can't be empty")
	}

	if vp.GetInt64("security.body_limit") <= 0 {
		return errors.New("security.body_limit must be bigger than 0")
	}

	if vp.GetDuration("reset.code_ttl") <= 0 {
		return errors.New("reset.code_ttl must be bigger than 0")
	}

	if vp.GetDuration("reset.marker_ttl") <= 0 {
		return errors.New("reset.marker_ttl must be bigger than 0")
	}

	if vp.GetDuration("reset.purge_after") < vp.GetDuration("reset.code_ttl") {
		return errors.New("reset.purge_after can't be shorter than reset.code_ttl")
	}

	switch store := vp.GetString("reset.marker_store"); {
	case !slices.Contains(validMarkerStores, store):
		return errors.New("invalid reset marker store provided")
	case store == "redis" && vp.GetString("redis.addr") == "":
		return errors.New("redis.addr is required when reset.marker_store is redis")
	}

	if vp.GetString("mail.host") == "" {
		zap.L().Warn("No mail.host specified, reset codes won't be emailed")
	} else if vp.GetString("mail.sender") == "" {
		return errors.New("mail.sender is required when mail.host is set")
	}

	if vp.GetString("storage.bucket") != "" {
		if vp.GetString("storage.access_key_id") == "" {
			return errors.New("storage access key id can't be empty")
		}
		if vp.GetString("storage.secret_access_key") == "" {
			return errors.New("storage secret access key can't be empty")
		}
	}

	if vp.GetString("security.jwt_secret") == "" {
		return ErrMissingSecret
	}

	return nil
}
