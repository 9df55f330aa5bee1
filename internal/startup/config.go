package startup

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"cliphub/internal/logging"
	"cliphub/internal/mediatypes"

	"github.com/joho/godotenv"
)

// DatabaseFile is the SQLite file created inside DATABASE_DIR.
const DatabaseFile = "cliphub.db"

// Config holds all application configuration
type Config struct {
	Port           string
	MetricsPort    string
	MetricsEnabled bool

	UploadDir          string
	ThumbnailDir       string
	ThumbnailURLPrefix string
	DatabaseDir        string

	MaxUploadSize      int64
	AcceptedExtensions []string

	// PipelineWorkers of 0 sizes the pool from the CPU count.
	PipelineWorkers   int
	PipelineQueueSize int

	FFmpegPath  string
	FFprobePath string
	Resizer     string

	// ArtifactScanInterval of 0 disables the periodic thumbnail
	// directory scan.
	ArtifactScanInterval time.Duration

	DiscordWebhookURL string
	FrontendURL       string
	BackendURL        string
	NotifyOnUpload    bool

	LogStaticFiles  bool
	LogHealthChecks bool

	// Derived paths
	DatabasePath string
}

// loadDotEnv loads variables from .env style files without overriding
// anything already set in the environment. Missing files are ignored.
func loadDotEnv(files ...string) {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if err := godotenv.Load(f); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			logging.Warn("Failed to load %s: %v", f, err)
			continue
		}
		logging.Debug("Loaded environment from %s", f)
	}
}

// FromEnv reads configuration from the environment (and .env) without
// touching the filesystem beyond the .env lookup.
func FromEnv() *Config {
	loadDotEnv()

	databaseDir := getEnv("DATABASE_DIR", "data")

	return &Config{
		Port:                 getEnv("PORT", "8000"),
		MetricsPort:          getEnv("METRICS_PORT", "9090"),
		MetricsEnabled:       getEnvBool("METRICS_ENABLED", true),
		UploadDir:            getEnv("UPLOAD_DIR", "uploads"),
		ThumbnailDir:         getEnv("THUMBNAIL_DIR", filepath.Join("uploads", "thumbnails")),
		ThumbnailURLPrefix:   strings.Trim(getEnv("THUMBNAIL_URL_PREFIX", "uploads/thumbnails"), "/"),
		DatabaseDir:          databaseDir,
		MaxUploadSize:        getEnvInt64("MAX_UPLOAD_SIZE", 1<<30),
		AcceptedExtensions:   parseExtensions(getEnv("ACCEPTED_EXTENSIONS", ".mp4")),
		PipelineWorkers:      getEnvInt("PIPELINE_WORKERS", 0),
		PipelineQueueSize:    getEnvInt("PIPELINE_QUEUE_SIZE", 64),
		FFmpegPath:           getEnv("FFMPEG_PATH", "ffmpeg"),
		FFprobePath:          getEnv("FFPROBE_PATH", "ffprobe"),
		Resizer:              strings.ToLower(getEnv("RESIZER", "imaging")),
		ArtifactScanInterval: getEnvDuration("ARTIFACT_SCAN_INTERVAL", 6*time.Hour),
		DiscordWebhookURL:    getEnv("DISCORD_WEBHOOK_URL", ""),
		FrontendURL:          getEnv("FRONTEND_URL", ""),
		BackendURL:           getEnv("BACKEND_URL", ""),
		NotifyOnUpload:       getEnvBool("NOTIFY_ON_UPLOAD", true),
		LogStaticFiles:       getEnvBool("LOG_STATIC_FILES", false),
		LogHealthChecks:      getEnvBool("LOG_HEALTH_CHECKS", true),
		DatabasePath:         filepath.Join(databaseDir, DatabaseFile),
	}
}

// LoadConfig loads configuration, logs it, and prepares the directories
// the server writes to.
func LoadConfig() (*Config, error) {
	printBanner()
	logSystemInfo()

	config := FromEnv()
	config.log()

	logging.Info("")
	logging.Info("------------------------------------------------------------")
	logging.Info("DIRECTORY SETUP")
	logging.Info("------------------------------------------------------------")

	if err := config.PrepareDirectories(); err != nil {
		return nil, err
	}

	logging.Info("")
	logging.Info("  Feature availability:")
	logging.Info("    Database:       ENABLED (required)")
	logging.Info("    Thumbnails:     ENABLED (%s resizer)", config.Resizer)
	logging.Info("    Notifications:  %s", enabledString(config.DiscordWebhookURL != ""))
	logging.Info("    Metrics:        %s", enabledString(config.MetricsEnabled))

	return config, nil
}

func (c *Config) log() {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	logging.Info("  PORT:                  %s", c.Port)
	logging.Info("  METRICS_PORT:          %s", c.MetricsPort)
	logging.Info("  METRICS_ENABLED:       %v", c.MetricsEnabled)
	logging.Info("  UPLOAD_DIR:            %s", c.UploadDir)
	logging.Info("  THUMBNAIL_DIR:         %s", c.ThumbnailDir)
	logging.Info("  THUMBNAIL_URL_PREFIX:  %s", c.ThumbnailURLPrefix)
	logging.Info("  DATABASE_DIR:          %s", c.DatabaseDir)
	logging.Info("  MAX_UPLOAD_SIZE:       %d", c.MaxUploadSize)
	logging.Info("  ACCEPTED_EXTENSIONS:   %s", strings.Join(c.AcceptedExtensions, ","))
	if c.PipelineWorkers > 0 {
		logging.Info("  PIPELINE_WORKERS:      %d", c.PipelineWorkers)
	} else {
		logging.Info("  PIPELINE_WORKERS:      auto")
	}
	logging.Info("  PIPELINE_QUEUE_SIZE:   %d", c.PipelineQueueSize)
	logging.Info("  FFMPEG_PATH:           %s", c.FFmpegPath)
	logging.Info("  FFPROBE_PATH:          %s", c.FFprobePath)
	logging.Info("  RESIZER:               %s", c.Resizer)
	if c.ArtifactScanInterval > 0 {
		logging.Info("  ARTIFACT_SCAN_INTERVAL: %v", c.ArtifactScanInterval)
	} else {
		logging.Info("  ARTIFACT_SCAN_INTERVAL: disabled")
	}
	logging.Info("  DISCORD_WEBHOOK_URL:   %s", redact(c.DiscordWebhookURL))
	logging.Info("  FRONTEND_URL:          %s", c.FrontendURL)
	logging.Info("  BACKEND_URL:           %s", c.BackendURL)
	logging.Info("  NOTIFY_ON_UPLOAD:      %v", c.NotifyOnUpload)
	logging.Info("  LOG_STATIC_FILES:      %v", c.LogStaticFiles)
	logging.Info("  LOG_HEALTH_CHECKS:     %v", c.LogHealthChecks)
	logging.Info("  LOG_LEVEL:             %s", logging.GetLevel())
}

// PrepareDirectories resolves the configured directories to absolute paths,
// creates them and checks they are writable.
func (c *Config) PrepareDirectories() error {
	dirs := []struct {
		name string
		path *string
	}{
		{"upload", &c.UploadDir},
		{"thumbnail", &c.ThumbnailDir},
		{"database", &c.DatabaseDir},
	}

	for _, d := range dirs {
		abs, err := filepath.Abs(*d.path)
		if err != nil {
			return fmt.Errorf("failed to resolve %s directory path: %w", d.name, err)
		}
		*d.path = abs
		logging.Info("  %s directory (absolute): %s", capitalize(d.name), abs)

		if err := ensureDirectory(abs, d.name); err != nil {
			return fmt.Errorf("%s directory error: %w", d.name, err)
		}
		if err := testWriteAccess(abs); err != nil {
			return fmt.Errorf("%s directory is not writable: %w", d.name, err)
		}
		logging.Info("  [OK] %s directory is writable", capitalize(d.name))
	}

	c.DatabasePath = filepath.Join(c.DatabaseDir, DatabaseFile)
	return nil
}

func ensureDirectory(path, name string) error {
	logging.Debug("  Checking %s directory: %s", name, path)

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		logging.Debug("    Directory does not exist, creating...")
		if err := os.MkdirAll(path, 0o755); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
		logging.Debug("    [OK] Created directory: %s", path)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to stat directory: %w", err)
	}
	if !info.IsDir() {
		return fmt.Errorf("path exists but is not a directory")
	}

	logging.Debug("    [OK] Directory exists")
	return nil
}

func testWriteAccess(dir string) error {
	testFile := filepath.Join(dir, ".write-test")
	if err := os.WriteFile(testFile, []byte("test"), 0o644); err != nil {
		return err
	}
	if err := os.Remove(testFile); err != nil {
		logging.Warn("failed to remove write test file %s: %v", testFile, err)
	}
	return nil
}

// parseExtensions normalizes a comma separated list to lower case
// extensions with a leading dot, keeping only video types.
func parseExtensions(value string) []string {
	var exts []string
	seen := make(map[string]bool)
	for _, part := range strings.Split(value, ",") {
		ext := mediatypes.NormalizeExtension(part)
		if ext == "" || seen[ext] {
			continue
		}
		if !mediatypes.IsVideo(ext) {
			logging.Warn("ACCEPTED_EXTENSIONS: %s is not a supported video type, ignoring", ext)
			continue
		}
		seen[ext] = true
		exts = append(exts, ext)
	}
	return exts
}

func redact(secret string) string {
	if secret == "" {
		return "(not set)"
	}
	return "(set)"
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func enabledString(enabled bool) string {
	if enabled {
		return "ENABLED"
	}
	return "DISABLED"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		logging.Warn("Invalid boolean value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid integer value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil || parsed <= 0 {
		logging.Warn("Invalid size value for %s: %q, using default: %d", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if value == "0" {
		return 0
	}
	parsed, err := time.ParseDuration(value)
	if err != nil || parsed < 0 {
		logging.Warn("Invalid duration value for %s: %q, using default: %v", key, value, defaultValue)
		return defaultValue
	}
	return parsed
}
