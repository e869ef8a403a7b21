package config

import (
	"errors"
	"fmt"
	"log"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	mysqlDriver "github.com/go-sql-driver/mysql"
	"github.com/joho/godotenv"
	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/schema"
)

var (
	db *gorm.DB
)

func GetDB() *gorm.DB {
	return db
}

func init() {
	// Load env from .env
	godotenv.Load()
}

// DatabaseSettings is the connection descriptor for the relational store.
// It is always resolved from the environment; nothing here is a literal credential.
type DatabaseSettings struct {
	User     string `validate:"required"`
	Password string
	Host     string `validate:"required"`
	Port     string `validate:"required_unless=Network unix"`
	Name     string `validate:"required"`
	Network  string `validate:"oneof=tcp unix"`
	// Params are extra DSN parameters, e.g. "tls=skip-verify&charset=utf8mb4".
	Params string
}

// DatabaseSettingsFromEnv reads DB_* variables.
//
// Cloud Run + Cloud SQL: when DB_HOST is "/cloudsql/<CONNECTION_NAME>",
// connect using the Unix domain socket provided by Cloud SQL Auth Proxy.
func DatabaseSettingsFromEnv() DatabaseSettings {
	s := DatabaseSettings{
		User:     strings.TrimSpace(os.Getenv("DB_USER")),
		Password: os.Getenv("DB_PASSWORD"),
		Host:     strings.TrimSpace(os.Getenv("DB_HOST")),
		Port:     strings.TrimSpace(os.Getenv("DB_PORT")),
		Name:     strings.TrimSpace(os.Getenv("DB_NAME")),
		Network:  "tcp",
		Params:   strings.TrimSpace(os.Getenv("DB_PARAMS")),
	}
	if strings.HasPrefix(s.Host, "/cloudsql/") {
		s.Network = "unix"
	}
	return s
}

// DSN formats the go-sql-driver DSN. parseTime is always on so DATE columns scan into time.Time.
func (s DatabaseSettings) DSN() (string, error) {
	if err := validate.Struct(s); err != nil {
		return "", fmt.Errorf("database settings: %w", err)
	}
	cfg := mysqlDriver.NewConfig()
	cfg.User = s.User
	cfg.Passwd = s.Password
	cfg.Net = s.Network
	cfg.DBName = s.Name
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	if s.Network == "unix" {
		cfg.Addr = s.Host
	} else {
		cfg.Addr = fmt.Sprintf("%s:%s", s.Host, s.Port)
	}
	if s.Params != "" {
		values, err := url.ParseQuery(s.Params)
		if err != nil {
			return "", fmt.Errorf("parse DB_PARAMS: %w", err)
		}
		for k := range values {
			v := values.Get(k)
			switch k {
			case "tls":
				cfg.TLSConfig = v
			default:
				if cfg.Params == nil {
					cfg.Params = map[string]string{}
				}
				cfg.Params[k] = v
			}
		}
	}
	return cfg.FormatDSN(), nil
}

// Redacted is safe to log.
func (s DatabaseSettings) Redacted() string {
	addr := s.Host
	if s.Network != "unix" {
		addr = fmt.Sprintf("%s:%s", s.Host, s.Port)
	}
	return fmt.Sprintf("%s@%s(%s)/%s", s.User, s.Network, addr, s.Name)
}

// ConnectDatabase connects with bounded retries and sets the global DB.
// Attempts come from DB_CONNECT_ATTEMPTS (default 5); backoff doubles up to 30s.
func ConnectDatabase() error {
	settings := DatabaseSettingsFromEnv()
	dsn, err := settings.DSN()
	if err != nil {
		return err
	}

	maxAttempts := intFromEnv("DB_CONNECT_ATTEMPTS", 5)
	if maxAttempts <= 0 {
		maxAttempts = 1
	}
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		conn, err := OpenDatabase(mysql.Open(dsn))
		if err == nil {
			tunePool(conn)
			db = conn
			log.Printf("connected to database %s (attempt=%d)", settings.Redacted(), attempt)
			return nil
		}
		lastErr = err
		if attempt == maxAttempts {
			break
		}
		sleep := time.Second * time.Duration(1<<min(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		log.Printf("failed to connect database %s (attempt=%d): %v; retrying in %s", settings.Redacted(), attempt, err, sleep)
		time.Sleep(sleep)
	}
	return fmt.Errorf("connect database %s after %d attempts: %w", settings.Redacted(), maxAttempts, lastErr)
}

// OpenDatabase opens a gorm handle with the shared config and plugins.
// Tests pass an in-process dialector here.
func OpenDatabase(dialector gorm.Dialector) (*gorm.DB, error) {
	conn, err := gorm.Open(dialector, initConfig())
	if err != nil {
		return nil, err
	}
	if pluginErr := conn.Use(otelgorm.NewPlugin()); pluginErr != nil {
		log.Printf("db connected but failed to install otelgorm plugin: %v", pluginErr)
	}
	if err := conn.Use(NewAppendOnlyGuardPlugin(AppendOnlyTables...)); err != nil {
		return nil, fmt.Errorf("install append-only guard: %w", err)
	}
	return conn, nil
}

// CloseDatabase releases the global connection pool. Safe to call when never connected.
func CloseDatabase() error {
	if db == nil {
		return nil
	}
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	db = nil
	if sqlDB == nil {
		return errors.New("database handle has no sql.DB")
	}
	return sqlDB.Close()
}

// Env overrides (optional):
// - DB_MAX_OPEN_CONNS (default 4)
// - DB_MAX_IDLE_CONNS (default 2)
// - DB_CONN_MAX_LIFETIME_SECONDS (default 300)
func tunePool(conn *gorm.DB) {
	sqlDB, err := conn.DB()
	if err != nil || sqlDB == nil {
		return
	}
	maxOpen := intFromEnv("DB_MAX_OPEN_CONNS", 4)
	maxIdle := intFromEnv("DB_MAX_IDLE_CONNS", 2)
	connMaxLife := time.Duration(intFromEnv("DB_CONN_MAX_LIFETIME_SECONDS", 300)) * time.Second

	if maxOpen > 0 {
		sqlDB.SetMaxOpenConns(maxOpen)
	}
	if maxIdle >= 0 {
		sqlDB.SetMaxIdleConns(maxIdle)
	}
	if connMaxLife > 0 {
		sqlDB.SetConnMaxLifetime(connMaxLife)
	}
}

func intFromEnv(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func initConfig() *gorm.Config {
	return &gorm.Config{
		Logger:         initLog(),
		NamingStrategy: initNamingStrategy(),
	}
}

// initLog keeps gorm quiet unless GORM_LOG_LEVEL asks for more.
func initLog() logger.Interface {
	level := logger.Error
	switch strings.ToLower(strings.TrimSpace(os.Getenv("GORM_LOG_LEVEL"))) {
	case "silent":
		level = logger.Silent
	case "warn":
		level = logger.Warn
	case "info":
		level = logger.Info
	}
	return logger.New(
		log.New(os.Stdout, "\r\n", log.LstdFlags),
		logger.Config{
			Colorful:      false,
			LogLevel:      level,
			SlowThreshold: time.Second,
		},
	)
}

func initNamingStrategy() *schema.NamingStrategy {
	return &schema.NamingStrategy{
		SingularTable: false,
		TablePrefix:   "",
	}
}
