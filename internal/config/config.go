package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/mitchellh/mapstructure"
	"github.com/spf13/viper"
)

const (
	StoreDriverPostgres = "postgres"
	StoreDriverMongo    = "mongo"
	StoreDriverSQLite   = "sqlite"
)

type ServerConfig struct {
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	ReadTimeout     time.Duration `mapstructure:"read_timeout"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout"`
	IdleTimeout     time.Duration `mapstructure:"idle_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	CORSOrigins     []string      `mapstructure:"cors_origins"`
	RateLimitRPM    int           `mapstructure:"rate_limit_rpm"`
}

type JWTConfig struct {
	SecretKey       string `mapstructure:"secret_key"`
	ExpirationHours int64  `mapstructure:"expiration_hours"`
}

type PasswordConfig struct {
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type StoreConfig struct {
	Driver string `mapstructure:"driver"`
}

// DBConfig holds PostgreSQL connection parameters
type DBConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int32  `mapstructure:"max_conns"`
}

// DSN builds the connection string from the individual settings
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type MongoConfig struct {
	URI      string `mapstructure:"uri"`
	Database string `mapstructure:"database"`
}

type SQLiteConfig struct {
	DSN string `mapstructure:"dsn"`
}

// AdminBootstrapConfig seeds an admin account at startup when Phone is set
type AdminBootstrapConfig struct {
	Name     string `mapstructure:"name"`
	Phone    string `mapstructure:"phone"`
	Password string `mapstructure:"password"`
}

func (c AdminBootstrapConfig) Enabled() bool {
	return c.Phone != ""
}

type AppConfig struct {
	Environment string               `mapstructure:"environment"`
	Server      ServerConfig         `mapstructure:"server"`
	JWT         JWTConfig            `mapstructure:"jwt"`
	Password    PasswordConfig       `mapstructure:"password"`
	Store       StoreConfig          `mapstructure:"store"`
	DB          DBConfig             `mapstructure:"db"`
	Mongo       MongoConfig          `mapstructure:"mongo"`
	SQLite      SQLiteConfig         `mapstructure:"sqlite"`
	Admin       AdminBootstrapConfig `mapstructure:"admin_bootstrap"`
}

// Load reads .env (if present) and the process environment. Nested keys map to
// flat variable names, e.g. jwt.secret_key <- JWT_SECRET_KEY.
func Load() (*AppConfig, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	var cfg AppConfig
	if err := v.Unmarshal(&cfg, func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToSliceHookFunc(","),
		)
	}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can resolve it during Unmarshal.
// jwt.secret_key is registered empty on purpose: there is no usable default.
func setDefaults(v *viper.Viper) {
	v.SetDefault("environment", "development")

	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", "10s")
	v.SetDefault("server.write_timeout", "15s")
	v.SetDefault("server.idle_timeout", "60s")
	v.SetDefault("server.shutdown_timeout", "5s")
	v.SetDefault("server.cors_origins", "")
	v.SetDefault("server.rate_limit_rpm", 60)

	v.SetDefault("jwt.secret_key", "")
	v.SetDefault("jwt.expiration_hours", 168)

	v.SetDefault("password.bcrypt_cost", 10)

	v.SetDefault("store.driver", StoreDriverPostgres)

	v.SetDefault("db.host", "")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "")
	v.SetDefault("db.password", "")
	v.SetDefault("db.name", "agriconnect")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_conns", 10)

	v.SetDefault("mongo.uri", "mongodb://localhost:27017")
	v.SetDefault("mongo.database", "agriconnect")

	v.SetDefault("sqlite.dsn", "file:agriconnect.db")

	v.SetDefault("admin_bootstrap.name", "")
	v.SetDefault("admin_bootstrap.phone", "")
	v.SetDefault("admin_bootstrap.password", "")
}

// Validate rejects configurations the server must not start with
func (c *AppConfig) Validate() error {
	if c.JWT.SecretKey == "" {
		return errors.New("JWT_SECRET_KEY not set in environment")
	}
	if c.JWT.ExpirationHours <= 0 {
		return fmt.Errorf("JWT_EXPIRATION_HOURS must be positive, got %d", c.JWT.ExpirationHours)
	}

	switch c.Store.Driver {
	case StoreDriverPostgres:
		if c.DB.Host == "" || c.DB.User == "" || c.DB.Name == "" {
			return errors.New("database environment variables not set (DB_HOST, DB_PORT, DB_USER, DB_PASSWORD, DB_NAME)")
		}
	case StoreDriverMongo:
		if c.Mongo.URI == "" || c.Mongo.Database == "" {
			return errors.New("MONGO_URI and MONGO_DATABASE are required for the mongo store")
		}
	case StoreDriverSQLite:
		if c.SQLite.DSN == "" {
			return errors.New("SQLITE_DSN is required for the sqlite store")
		}
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.Store.Driver)
	}

	if c.Admin.Enabled() && c.Admin.Password == "" {
		return errors.New("ADMIN_BOOTSTRAP_PASSWORD is required when ADMIN_BOOTSTRAP_PHONE is set")
	}
	return nil
}
