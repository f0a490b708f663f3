// Package config centralizes process configuration. All tunables come from
// command-line flags with environment-variable fallbacks; a .env file, when
// present, seeds the environment first without overriding variables that are
// already set.
//
// Callers load .env with LoadDotEnv, then parse their own flag set:
//
//	_ = config.LoadDotEnv(".env")
//	fs := flag.NewFlagSet("etl", flag.ContinueOnError)
//	cfg, err := config.LoadFromArgs(fs, os.Getenv, os.Args[1:])
package config

import (
	"errors"
	"flag"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
)

// Supported database drivers.
const (
	DriverMySQL    = "mysql"
	DriverPostgres = "postgres"
	DriverMSSQL    = "mssql"
	DriverSQLite   = "sqlite"
)

// Supported metrics backends.
const (
	MetricsNone        = "none"
	MetricsPushgateway = "pushgateway"
	MetricsDatadog     = "datadog"
)

// Config holds all process configuration derived from flags and environment
// variables.
type Config struct {
	// DB describes the target database. DSN, when set, is used verbatim and
	// the discrete parts are ignored.
	DBDriver   string
	DSNValue   string
	DBHost     string
	DBUser     string
	DBPassword string
	DBName     string // for sqlite: the database file path
	DBPort     string

	// Target table.
	Schema    string
	Table     string
	BatchSize int

	// Input and optional download.
	InputFile  string
	DatasetURL string
	DatasetDir string

	// Logging.
	LogFile    string
	FluentHost string
	FluentPort int

	// Metrics.
	MetricsBackend string
	PushgatewayURL string
	DogStatsDAddr  string

	// ValidateOnly validates the configuration and exits.
	ValidateOnly bool
}

// LoadFromArgs builds a Config by defining flags on fs, seeding each flag's
// default from getenv, and then parsing args.
//
// Precedence:
//  1. Environment values seed each flag's default.
//  2. Explicit CLI flags (in args) override the seeded defaults.
func LoadFromArgs(fs *flag.FlagSet, getenv func(string) string, args []string) (*Config, error) {
	cfg := &Config{}

	envOrDefault := func(k, d string) string {
		if v := getenv(k); v != "" {
			return v
		}
		return d
	}
	intEnvOrDefault := func(k string, d int) int {
		if v := getenv(k); v != "" {
			if i, err := strconv.Atoi(v); err == nil {
				return i
			}
		}
		return d
	}

	// DB connectivity
	fs.StringVar(&cfg.DBDriver, "db_driver", envOrDefault("DB_DRIVER", DriverMySQL), "Database driver: mysql, postgres, mssql or sqlite.")
	fs.StringVar(&cfg.DSNValue, "dsn", getenv("DB_DSN"), "Full DSN; overrides the discrete DB_* parts.")
	fs.StringVar(&cfg.DBHost, "db_host", getenv("DB_HOST"), "DB host")
	fs.StringVar(&cfg.DBUser, "db_user", getenv("DB_USER"), "DB user")
	fs.StringVar(&cfg.DBPassword, "db_password", getenv("DB_PASSWORD"), "DB password")
	fs.StringVar(&cfg.DBName, "db_name", getenv("DB_NAME"), "DB name (sqlite: database file path)")
	fs.StringVar(&cfg.DBPort, "db_port", getenv("DB_PORT"), "DB port")

	// Target
	fs.StringVar(&cfg.Schema, "schema", envOrDefault("TARGET_SCHEMA", "retail_db"), "Target schema")
	fs.StringVar(&cfg.Table, "table", envOrDefault("TARGET_TABLE", "best_buy_sales"), "Target table")
	fs.IntVar(&cfg.BatchSize, "batch_size", intEnvOrDefault("BATCH_SIZE", 1000), "Rows per insert batch")

	// Input
	fs.StringVar(&cfg.InputFile, "input_file", getenv("INPUT_FILE"), "Path to the input CSV")
	fs.StringVar(&cfg.DatasetURL, "dataset_url", getenv("DATASET_URL"), "Optional URL to download the dataset from")
	fs.StringVar(&cfg.DatasetDir, "dataset_dir", envOrDefault("DATASET_DIR", "./data"), "Directory for downloaded datasets")

	// Logging
	fs.StringVar(&cfg.LogFile, "log_file", envOrDefault("LOG_FILE", "data_pipeline.log"), "Log file path")
	fs.StringVar(&cfg.FluentHost, "fluent_host", getenv("FLUENT_HOST"), "Optional Fluent Bit host")
	fs.IntVar(&cfg.FluentPort, "fluent_port", intEnvOrDefault("FLUENT_PORT", 24224), "Fluent Bit port")

	// Metrics
	fs.StringVar(&cfg.MetricsBackend, "metrics_backend", envOrDefault("METRICS_BACKEND", MetricsNone), "Metrics backend: none, pushgateway or datadog")
	fs.StringVar(&cfg.PushgatewayURL, "pushgateway_url", envOrDefault("PUSHGATEWAY_URL", "http://localhost:9091"), "Prometheus Pushgateway URL")
	fs.StringVar(&cfg.DogStatsDAddr, "dogstatsd_addr", envOrDefault("DOGSTATSD_ADDR", "127.0.0.1:8125"), "DogStatsD address")

	fs.BoolVar(&cfg.ValidateOnly, "validate", false, "Validate configuration and exit")

	if args == nil {
		args = []string{}
	}
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadDotEnv loads path into the process environment. Variables already set
// are left untouched and a missing file is not an error.
func LoadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}

// ErrMissing is matched by *MissingError.
var ErrMissing = errors.New("missing required configuration")

// MissingError names every required setting that was empty.
type MissingError struct {
	Fields []string // environment variable names
}

func (e *MissingError) Error() string {
	return fmt.Sprintf("%v: %s", ErrMissing, strings.Join(e.Fields, ", "))
}

// Is makes errors.Is(err, ErrMissing) true.
func (e *MissingError) Is(target error) bool { return target == ErrMissing }

// Validate reports all missing required settings at once as a *MissingError,
// or the first invalid value.
func (c *Config) Validate() error {
	var missing []string
	need := func(env, v string) {
		if strings.TrimSpace(v) == "" {
			missing = append(missing, env)
		}
	}

	need("DB_DRIVER", c.DBDriver)
	if c.DSNValue == "" {
		if c.DBDriver != DriverSQLite {
			need("DB_HOST", c.DBHost)
			need("DB_USER", c.DBUser)
			need("DB_PASSWORD", c.DBPassword)
		}
		need("DB_NAME", c.DBName)
		if c.DBDriver != DriverSQLite {
			need("DB_PORT", c.DBPort)
		}
	}
	need("INPUT_FILE", c.InputFile)
	if len(missing) > 0 {
		return &MissingError{Fields: missing}
	}

	switch c.DBDriver {
	case DriverMySQL, DriverPostgres, DriverMSSQL, DriverSQLite:
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DBDriver)
	}
	if c.DBPort != "" {
		if _, err := strconv.Atoi(c.DBPort); err != nil {
			return fmt.Errorf("DB_PORT must be numeric, got %q", c.DBPort)
		}
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("BATCH_SIZE must be > 0, got %d", c.BatchSize)
	}
	switch c.MetricsBackend {
	case MetricsNone, MetricsPushgateway, MetricsDatadog:
	default:
		return fmt.Errorf("unsupported METRICS_BACKEND %q", c.MetricsBackend)
	}
	return nil
}

// DSN returns the driver connection string: DSNValue when set, otherwise one
// built from the discrete parts.
func (c *Config) DSN() string {
	if c.DSNValue != "" {
		return c.DSNValue
	}
	addr := net.JoinHostPort(c.DBHost, c.DBPort)
	switch c.DBDriver {
	case DriverMySQL:
		mc := mysql.NewConfig()
		mc.User = c.DBUser
		mc.Passwd = c.DBPassword
		mc.Net = "tcp"
		mc.Addr = addr
		mc.DBName = c.DBName
		mc.ParseTime = true
		return mc.FormatDSN()
	case DriverPostgres:
		u := url.URL{
			Scheme:   "postgres",
			User:     url.UserPassword(c.DBUser, c.DBPassword),
			Host:     addr,
			Path:     "/" + c.DBName,
			RawQuery: "sslmode=disable",
		}
		return u.String()
	case DriverMSSQL:
		q := url.Values{}
		q.Set("database", c.DBName)
		u := url.URL{
			Scheme:   "sqlserver",
			User:     url.UserPassword(c.DBUser, c.DBPassword),
			Host:     addr,
			RawQuery: q.Encode(),
		}
		return u.String()
	default:
		return c.DBName
	}
}

// Redacted returns DSN with the password masked, for log lines.
func (c *Config) Redacted() string {
	dsn := c.DSN()
	if c.DBPassword == "" {
		return dsn
	}
	escaped := strings.TrimPrefix(url.UserPassword("u", c.DBPassword).String(), "u:")
	dsn = strings.ReplaceAll(dsn, escaped, "xxxxx")
	return strings.ReplaceAll(dsn, c.DBPassword, "xxxxx")
}
