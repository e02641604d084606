package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Database drivers.
const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	Log        LogConfig
	Upload     UploadConfig
	Extraction ExtractionConfig
	OCR        OCRConfig
	S3         S3Config
	CORS       CORSConfig
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port         string        `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	Environment  string        `mapstructure:"environment"`
}

// DBConfig holds database connection settings. Driver selects between an
// embedded SQLite file and a PostgreSQL server.
type DBConfig struct {
	Driver   string `mapstructure:"driver"`
	Path     string `mapstructure:"path"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	Name     string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
	MaxOpen  int    `mapstructure:"max_open"`
	MaxIdle  int    `mapstructure:"max_idle"`
}

// sqlitePragmas make every write transaction take the database write lock
// up front and wait for it instead of failing with SQLITE_BUSY.
const sqlitePragmas = "_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(1)&_txlock=immediate&_time_format=sqlite"

// DSN returns the driver connection string.
func (d *DBConfig) DSN() string {
	if d.Driver == DriverSQLite {
		return "file:" + d.Path + "?" + sqlitePragmas
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// MigrationURL returns the golang-migrate database URL.
func (d *DBConfig) MigrationURL() string {
	if d.Driver == DriverSQLite {
		return "sqlite://" + d.Path + "?_pragma=busy_timeout(10000)"
	}
	return fmt.Sprintf(
		"pgx5://%s:%s@%s:%d/%s?sslmode=%s",
		url.QueryEscape(d.User), url.QueryEscape(d.Password), d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// S3Config holds the optional source-document archive settings.
type S3Config struct {
	Enabled   bool   `mapstructure:"enabled"`
	Region    string `mapstructure:"region"`
	Bucket    string `mapstructure:"bucket"`
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	KeyPrefix string `mapstructure:"key_prefix"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// UploadConfig holds document upload settings.
type UploadConfig struct {
	MaxFileSizeMB     int64    `mapstructure:"max_file_size_mb"`
	TempDir           string   `mapstructure:"temp_dir"`
	AllowedExtensions []string `mapstructure:"allowed_extensions"`
	DefaultTable      string   `mapstructure:"default_table"`
}

// MaxFileSize returns the upload limit in bytes.
func (u *UploadConfig) MaxFileSize() int64 {
	return u.MaxFileSizeMB << 20
}

// ExtractionConfig holds extraction settings.
type ExtractionConfig struct {
	ProvenanceColumns bool `mapstructure:"provenance_columns"`
}

// OCRConfig holds optical recognition settings.
type OCRConfig struct {
	Enabled     bool          `mapstructure:"enabled"`
	Engine      string        `mapstructure:"engine"`
	DPI         int           `mapstructure:"dpi"`
	PageTimeout time.Duration `mapstructure:"page_timeout"`
	Workers     int           `mapstructure:"workers"`
	Language    string        `mapstructure:"language"`
	Pdftoppm    string        `mapstructure:"pdftoppm"`
	Tesseract   string        `mapstructure:"tesseract"`
	KeepRawText bool          `mapstructure:"keep_raw_text"`
}

// Load reads configuration from environment variables with the DOCSCHEMA_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("DOCSCHEMA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "5m")
	v.SetDefault("server.environment", "development")

	// DB defaults
	v.SetDefault("db.driver", DriverSQLite)
	v.SetDefault("db.path", "docschema.db")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "docschema")
	v.SetDefault("db.password", "docschema_secret")
	v.SetDefault("db.name", "docschema_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	// Upload defaults
	v.SetDefault("upload.max_file_size_mb", 10)
	v.SetDefault("upload.temp_dir", os.TempDir())
	v.SetDefault("upload.allowed_extensions", "pdf,docx,odt")
	v.SetDefault("upload.default_table", "pdf_data")

	// Extraction defaults
	v.SetDefault("extraction.provenance_columns", false)

	// OCR defaults
	v.SetDefault("ocr.enabled", true)
	v.SetDefault("ocr.engine", "auto")
	v.SetDefault("ocr.dpi", 300)
	v.SetDefault("ocr.page_timeout", "60s")
	v.SetDefault("ocr.workers", 2)
	v.SetDefault("ocr.language", "eng")
	v.SetDefault("ocr.pdftoppm", "pdftoppm")
	v.SetDefault("ocr.tesseract", "tesseract")
	v.SetDefault("ocr.keep_raw_text", false)

	// S3 defaults
	v.SetDefault("s3.enabled", false)
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "docschema-documents")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.key_prefix", "documents/")

	// CORS defaults (localhost origins for development)
	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                   "DOCSCHEMA_SERVER_PORT",
		"server.read_timeout":           "DOCSCHEMA_SERVER_READ_TIMEOUT",
		"server.write_timeout":          "DOCSCHEMA_SERVER_WRITE_TIMEOUT",
		"server.environment":            "DOCSCHEMA_SERVER_ENVIRONMENT",
		"db.driver":                     "DOCSCHEMA_DB_DRIVER",
		"db.path":                       "DOCSCHEMA_DB_PATH",
		"db.host":                       "DOCSCHEMA_DB_HOST",
		"db.port":                       "DOCSCHEMA_DB_PORT",
		"db.user":                       "DOCSCHEMA_DB_USER",
		"db.password":                   "DOCSCHEMA_DB_PASSWORD",
		"db.name":                       "DOCSCHEMA_DB_NAME",
		"db.sslmode":                    "DOCSCHEMA_DB_SSLMODE",
		"db.max_open":                   "DOCSCHEMA_DB_MAX_OPEN",
		"db.max_idle":                   "DOCSCHEMA_DB_MAX_IDLE",
		"log.level":                     "DOCSCHEMA_LOG_LEVEL",
		"log.format":                    "DOCSCHEMA_LOG_FORMAT",
		"upload.max_file_size_mb":       "DOCSCHEMA_UPLOAD_MAX_FILE_SIZE_MB",
		"upload.temp_dir":               "DOCSCHEMA_UPLOAD_TEMP_DIR",
		"upload.allowed_extensions":     "DOCSCHEMA_UPLOAD_ALLOWED_EXTENSIONS",
		"upload.default_table":          "DOCSCHEMA_UPLOAD_DEFAULT_TABLE",
		"extraction.provenance_columns": "DOCSCHEMA_EXTRACTION_PROVENANCE_COLUMNS",
		"ocr.enabled":                   "DOCSCHEMA_OCR_ENABLED",
		"ocr.engine":                    "DOCSCHEMA_OCR_ENGINE",
		"ocr.dpi":                       "DOCSCHEMA_OCR_DPI",
		"ocr.page_timeout":              "DOCSCHEMA_OCR_PAGE_TIMEOUT",
		"ocr.workers":                   "DOCSCHEMA_OCR_WORKERS",
		"ocr.language":                  "DOCSCHEMA_OCR_LANGUAGE",
		"ocr.pdftoppm":                  "DOCSCHEMA_OCR_PDFTOPPM",
		"ocr.tesseract":                 "DOCSCHEMA_OCR_TESSERACT",
		"ocr.keep_raw_text":             "DOCSCHEMA_OCR_KEEP_RAW_TEXT",
		"s3.enabled":                    "DOCSCHEMA_S3_ENABLED",
		"s3.region":                     "DOCSCHEMA_S3_REGION",
		"s3.bucket":                     "DOCSCHEMA_S3_BUCKET",
		"s3.endpoint":                   "DOCSCHEMA_S3_ENDPOINT",
		"s3.access_key":                 "DOCSCHEMA_S3_ACCESS_KEY",
		"s3.secret_key":                 "DOCSCHEMA_S3_SECRET_KEY",
		"s3.key_prefix":                 "DOCSCHEMA_S3_KEY_PREFIX",
		"cors.allowed_origins":          "DOCSCHEMA_CORS_ALLOWED_ORIGINS",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Railway/Heroku/Render set a PORT env var. Use it if DOCSCHEMA_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("DOCSCHEMA_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:         serverPort,
		ReadTimeout:  v.GetDuration("server.read_timeout"),
		WriteTimeout: v.GetDuration("server.write_timeout"),
		Environment:  v.GetString("server.environment"),
	}
	cfg.DB = DBConfig{
		Driver:   strings.ToLower(v.GetString("db.driver")),
		Path:     v.GetString("db.path"),
		Host:     v.GetString("db.host"),
		Port:     v.GetInt("db.port"),
		User:     v.GetString("db.user"),
		Password: v.GetString("db.password"),
		Name:     v.GetString("db.name"),
		SSLMode:  v.GetString("db.sslmode"),
		MaxOpen:  v.GetInt("db.max_open"),
		MaxIdle:  v.GetInt("db.max_idle"),
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.Upload = UploadConfig{
		MaxFileSizeMB:     v.GetInt64("upload.max_file_size_mb"),
		TempDir:           v.GetString("upload.temp_dir"),
		AllowedExtensions: splitList(v.GetString("upload.allowed_extensions")),
		DefaultTable:      v.GetString("upload.default_table"),
	}
	cfg.Extraction = ExtractionConfig{
		ProvenanceColumns: v.GetBool("extraction.provenance_columns"),
	}
	cfg.OCR = OCRConfig{
		Enabled:     v.GetBool("ocr.enabled"),
		Engine:      strings.ToLower(v.GetString("ocr.engine")),
		DPI:         v.GetInt("ocr.dpi"),
		PageTimeout: v.GetDuration("ocr.page_timeout"),
		Workers:     v.GetInt("ocr.workers"),
		Language:    v.GetString("ocr.language"),
		Pdftoppm:    v.GetString("ocr.pdftoppm"),
		Tesseract:   v.GetString("ocr.tesseract"),
		KeepRawText: v.GetBool("ocr.keep_raw_text"),
	}
	cfg.S3 = S3Config{
		Enabled:   v.GetBool("s3.enabled"),
		Region:    v.GetString("s3.region"),
		Bucket:    v.GetString("s3.bucket"),
		Endpoint:  v.GetString("s3.endpoint"),
		AccessKey: v.GetString("s3.access_key"),
		SecretKey: v.GetString("s3.secret_key"),
		KeyPrefix: v.GetString("s3.key_prefix"),
	}
	// Parse CORS allowed origins from comma-separated string
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	switch c.DB.Driver {
	case DriverSQLite:
		if c.DB.Path == "" {
			return fmt.Errorf("config: db.path is required for the sqlite driver")
		}
	case DriverPostgres:
	default:
		return fmt.Errorf("config: unknown db.driver %q", c.DB.Driver)
	}
	switch c.OCR.Engine {
	case "auto", "native", "cli", "none":
	default:
		return fmt.Errorf("config: unknown ocr.engine %q", c.OCR.Engine)
	}
	if c.Upload.MaxFileSizeMB <= 0 {
		return fmt.Errorf("config: upload.max_file_size_mb must be positive")
	}
	if c.OCR.DPI <= 0 || c.OCR.Workers <= 0 || c.OCR.PageTimeout <= 0 {
		return fmt.Errorf("config: ocr.dpi, ocr.workers and ocr.page_timeout must be positive")
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}
