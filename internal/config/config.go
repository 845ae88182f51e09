package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/adrg/xdg"
	"gopkg.in/yaml.v3"
)

const appName = "mensabot"

// Config is read from an optional YAML file and then from the environment,
// which wins.
type Config struct {
	ListenAddr  string `yaml:"listen_addr"`
	DBPath      string `yaml:"db_path"`
	SessionPath string `yaml:"session_path"`
	LogLevel    string `yaml:"log_level"`
	LogFile     string `yaml:"log_file"`

	Account           string `yaml:"account"`
	// InstagramUsername finds a saved session when no password is stored.
	InstagramUsername string `yaml:"instagram_username"`
	FallbackUserID    string `yaml:"fallback_user_id"`
	InstagramBaseURL  string `yaml:"instagram_base_url"`
	KeyringService    string `yaml:"keyring_service"`

	// OCRBackend is "tesseract" (the CLI) or "gosseract" (in-process).
	OCRBackend      string `yaml:"ocr_backend"`
	TesseractPath   string `yaml:"tesseract_path"`
	OCRLanguage     string `yaml:"ocr_language"`
	OCRWhitelist    string `yaml:"ocr_whitelist"`
	OCRDilate       bool   `yaml:"ocr_dilate"`
	// CloudOCR is "ocrspace", "claude" or "none".
	CloudOCR        string `yaml:"cloud_ocr"`
	OCRAPIKey       string `yaml:"ocr_api_key"`
	OCRSpaceURL     string `yaml:"ocr_space_url"`
	ClaudeAPIKey    string `yaml:"claude_api_key"`
	ClaudeModel     string `yaml:"claude_model"`
	RequireLocalOCR bool   `yaml:"require_local_ocr"`

	Timezone     string `yaml:"timezone"`
	FetchAt      string `yaml:"fetch_at"`
	FetchTimeout string `yaml:"fetch_timeout"`
	RetryDelay   string `yaml:"retry_delay"`

	DemoMode bool `yaml:"demo_mode"`
	TestMode bool `yaml:"-"`
}

func defaults() *Config {
	return &Config{
		ListenAddr:       "",
		DBPath:           filepath.Join(xdg.DataHome, appName, "mensabot.db"),
		SessionPath:      filepath.Join(xdg.DataHome, appName, "sessions"),
		LogLevel:         "info",
		LogFile:          "",
		Account:          "edisu_piemonte",
		InstagramBaseURL: "https://i.instagram.com",
		KeyringService:   "PolitoMensa",
		OCRBackend:       "tesseract",
		TesseractPath:    "tesseract",
		OCRLanguage:      "ita",
		CloudOCR:         "ocrspace",
		OCRSpaceURL:      "https://api.ocr.space/parse/image",
		ClaudeModel:      "claude-opus-4-6",
		RequireLocalOCR:  true,
		Timezone:         "Europe/Rome",
		FetchAt:          "07:00",
		FetchTimeout:     "10m",
		RetryDelay:       "30s",
	}
}

// Load builds the configuration. path names a YAML file; when empty,
// MENSABOT_CONFIG and then the XDG config file are tried. A missing default
// file is not an error, a missing explicit one is.
func Load(path string) (*Config, error) {
	cfg := defaults()

	explicit := path != ""
	if !explicit {
		path = getEnv("MENSABOT_CONFIG", "")
		explicit = path != ""
	}
	if !explicit {
		path = DefaultConfigPath()
	}
	if err := cfg.readFile(path); err != nil {
		if explicit || !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	cfg.applyEnv()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func DefaultConfigPath() string {
	return filepath.Join(xdg.ConfigHome, appName, "config.yaml")
}

// DefaultLogPath is where the console-owned process logs when LOG_FILE is
// unset.
func DefaultLogPath() string {
	return filepath.Join(xdg.StateHome, appName, "mensabot.log")
}

func (c *Config) readFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.ListenAddr = getEnv("LISTEN_ADDR", c.ListenAddr)
	c.DBPath = getEnv("DB_PATH", c.DBPath)
	c.SessionPath = getEnv("SESSION_PATH", c.SessionPath)
	c.LogLevel = getEnv("POLITOMENSA_LOG_LEVEL", c.LogLevel)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFile = getEnv("LOG_FILE", c.LogFile)

	c.Account = getEnv("INSTAGRAM_ACCOUNT", c.Account)
	c.InstagramUsername = getEnv("INSTAGRAM_USERNAME", c.InstagramUsername)
	c.FallbackUserID = getEnv("INSTAGRAM_FALLBACK_USER_ID", c.FallbackUserID)
	c.InstagramBaseURL = getEnv("INSTAGRAM_BASE_URL", c.InstagramBaseURL)
	c.KeyringService = getEnv("KEYRING_SERVICE", c.KeyringService)

	c.OCRBackend = getEnv("OCR_BACKEND", c.OCRBackend)
	c.TesseractPath = getEnv("TESSERACT_PATH", c.TesseractPath)
	c.OCRLanguage = getEnv("OCR_LANGUAGE", c.OCRLanguage)
	c.OCRWhitelist = getEnv("OCR_WHITELIST", c.OCRWhitelist)
	c.OCRDilate = getBool("OCR_DILATE", c.OCRDilate)
	c.CloudOCR = getEnv("CLOUD_OCR", c.CloudOCR)
	c.OCRAPIKey = getEnv("OCR_API_KEY", c.OCRAPIKey)
	c.OCRSpaceURL = getEnv("OCR_SPACE_URL", c.OCRSpaceURL)
	c.ClaudeAPIKey = getEnv("CLAUDE_API_KEY", c.ClaudeAPIKey)
	c.ClaudeModel = getEnv("CLAUDE_MODEL", c.ClaudeModel)
	c.RequireLocalOCR = getBool("REQUIRE_LOCAL_OCR", c.RequireLocalOCR)

	c.Timezone = getEnv("TIMEZONE", c.Timezone)
	c.FetchAt = getEnv("FETCH_AT", c.FetchAt)
	c.FetchTimeout = getEnv("FETCH_TIMEOUT", c.FetchTimeout)
	c.RetryDelay = getEnv("RETRY_DELAY", c.RetryDelay)

	c.DemoMode = getBool("DEMO_MODE", c.DemoMode)
	c.TestMode = os.Getenv("MENSABOT_TEST_MODE") == "1"
}

func (c *Config) validate() error {
	switch c.OCRBackend {
	case "tesseract", "gosseract":
	default:
		return fmt.Errorf("unknown ocr backend %q", c.OCRBackend)
	}
	switch c.CloudOCR {
	case "ocrspace", "claude", "none", "":
	default:
		return fmt.Errorf("unknown cloud ocr backend %q", c.CloudOCR)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if _, err := time.Parse("15:04", c.FetchAt); err != nil {
		return fmt.Errorf("invalid fetch time %q: %w", c.FetchAt, err)
	}
	return nil
}

// Location loads the configured timezone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}

func (c *Config) FetchTimeoutDuration() time.Duration {
	return parseDuration(c.FetchTimeout, 10*time.Minute)
}

func (c *Config) RetryDelayDuration() time.Duration {
	return parseDuration(c.RetryDelay, 30*time.Second)
}

func parseDuration(s string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return def
	}
	return d
}

func getEnv(key, defaultVal string) string {
	if val, exists := os.LookupEnv(key); exists {
		return val
	}
	return defaultVal
}

func getBool(key string, defaultVal bool) bool {
	val, exists := os.LookupEnv(key)
	if !exists {
		return defaultVal
	}
	b, err := strconv.ParseBool(val)
	if err != nil {
		return defaultVal
	}
	return b
}
