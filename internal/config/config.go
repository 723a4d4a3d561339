package config

import (
	_ "embed"
	"errors"
	"fmt"
	"net/url"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/facelens/internal/constants"
	"github.com/kozaktomas/facelens/internal/face"
	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

// Detector backends.
const (
	BackendHTTP = "http"
	BackendDlib = "dlib"
)

// Capture sources for live analysis.
const (
	SourceCamera   = "camera"
	SourceSnapshot = "snapshot"
)

type Config struct {
	Web      WebConfig      `yaml:"web"`
	Detector DetectorConfig `yaml:"detector"`
	Analysis AnalysisConfig `yaml:"analysis"`
	Camera   CameraConfig   `yaml:"camera"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Log      LogConfig      `yaml:"log"`
}

type WebConfig struct {
	Host           string   `yaml:"host"`
	Port           int      `yaml:"port"`
	AllowedOrigins []string `yaml:"allowed_origins"` // CORS whitelist, localhost is always allowed
}

type DetectorConfig struct {
	Backend        string        `yaml:"backend"`   // http or dlib
	URL            string        `yaml:"url"`       // base URL of the face analysis service
	ModelDir       string        `yaml:"model_dir"` // dlib model directory
	Timeout        time.Duration `yaml:"timeout"`
	RequiredModels []string      `yaml:"required_models"`
}

type AnalysisConfig struct {
	Interval            time.Duration `yaml:"interval"`
	ConfidenceThreshold float64       `yaml:"confidence_threshold"`
	Landmarks           bool          `yaml:"landmarks"`
	AgeGender           bool          `yaml:"age_gender"`
	Emotions            bool          `yaml:"emotions"`
}

// Defaults returns the initial toggles for the analyzer.
func (c AnalysisConfig) Defaults() face.AnalysisConfig {
	return face.AnalysisConfig{
		ConfidenceThreshold: c.ConfidenceThreshold,
		Landmarks:           c.Landmarks,
		AgeGender:           c.AgeGender,
		Emotions:            c.Emotions,
	}.Normalize()
}

type CameraConfig struct {
	Source      string `yaml:"source"` // camera or snapshot
	Device      string `yaml:"device"`
	Width       int    `yaml:"width"`
	Height      int    `yaml:"height"`
	SnapshotURL string `yaml:"snapshot_url"` // IP camera JPEG endpoint
}

type DatabaseConfig struct {
	URL          string `yaml:"url"` // PostgreSQL connection URL, history is disabled when empty
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

type RedisConfig struct {
	Addr     string        `yaml:"addr"` // last-frame cache is in-memory when empty
	Password string        `yaml:"password"`
	DB       int           `yaml:"db"`
	Key      string        `yaml:"key"`
	TTL      time.Duration `yaml:"ttl"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"` // rotated log file, stderr only when empty
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads a float environment variable, falling back on parse errors.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return f
	}
	return defaultVal
}

// envBool reads a boolean environment variable, falling back on parse errors.
func envBool(key string, defaultVal bool) bool {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	return defaultVal
}

// envDuration reads a Go duration string such as "250ms".
func envDuration(key string, defaultVal time.Duration) time.Duration {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if d, err := time.ParseDuration(s); err == nil && d > 0 {
		return d
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

func envList(key string, defaultVal []string) []string {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	var out []string
	for part := range strings.SplitSeq(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func defaults() *Config {
	var cfg Config
	if err := yaml.Unmarshal(defaultsYAML, &cfg); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded defaults.yaml: " + err.Error())
	}
	return &cfg
}

// Load returns the embedded defaults overridden by environment variables.
func Load() *Config {
	cfg := defaults()
	applyEnv(cfg)
	return cfg
}

// LoadFile layers a YAML file between the embedded defaults and the environment.
func LoadFile(path string) (*Config, error) {
	cfg := defaults()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	applyEnv(cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Web.Host = envString("WEB_HOST", cfg.Web.Host)
	cfg.Web.Port = envInt("WEB_PORT", cfg.Web.Port)
	cfg.Web.AllowedOrigins = envList("WEB_ALLOWED_ORIGINS", cfg.Web.AllowedOrigins)

	cfg.Detector.Backend = envString("DETECTOR_BACKEND", cfg.Detector.Backend)
	cfg.Detector.URL = envString("DETECTOR_URL", cfg.Detector.URL)
	cfg.Detector.ModelDir = envString("DETECTOR_MODEL_DIR", cfg.Detector.ModelDir)
	cfg.Detector.Timeout = envDuration("DETECTOR_TIMEOUT", cfg.Detector.Timeout)
	cfg.Detector.RequiredModels = envList("DETECTOR_REQUIRED_MODELS", cfg.Detector.RequiredModels)

	cfg.Analysis.Interval = envDuration("ANALYSIS_INTERVAL", cfg.Analysis.Interval)
	cfg.Analysis.ConfidenceThreshold = envFloat("ANALYSIS_CONFIDENCE", cfg.Analysis.ConfidenceThreshold)
	cfg.Analysis.Landmarks = envBool("ANALYSIS_LANDMARKS", cfg.Analysis.Landmarks)
	cfg.Analysis.AgeGender = envBool("ANALYSIS_AGE_GENDER", cfg.Analysis.AgeGender)
	cfg.Analysis.Emotions = envBool("ANALYSIS_EMOTIONS", cfg.Analysis.Emotions)

	cfg.Camera.Source = envString("CAMERA_SOURCE", cfg.Camera.Source)
	cfg.Camera.Device = envString("CAMERA_DEVICE", cfg.Camera.Device)
	cfg.Camera.Width = envInt("CAMERA_WIDTH", cfg.Camera.Width)
	cfg.Camera.Height = envInt("CAMERA_HEIGHT", cfg.Camera.Height)
	cfg.Camera.SnapshotURL = envString("CAMERA_SNAPSHOT_URL", cfg.Camera.SnapshotURL)

	cfg.Database.URL = envString("DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", cfg.Database.MaxOpenConns)
	cfg.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", cfg.Database.MaxIdleConns)

	cfg.Redis.Addr = envString("REDIS_ADDRESS", cfg.Redis.Addr)
	cfg.Redis.Password = envString("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.Key = envString("REDIS_FRAME_KEY", cfg.Redis.Key)
	cfg.Redis.TTL = envDuration("REDIS_FRAME_TTL", cfg.Redis.TTL)

	cfg.Log.Level = envString("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.File = envString("LOG_FILE", cfg.Log.File)
}

// Validate reports configuration that would make the service unusable.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]string{BackendHTTP, BackendDlib}, c.Detector.Backend) {
		errs = append(errs, fmt.Errorf("unknown detector backend %q", c.Detector.Backend))
	}
	if c.Detector.Backend == BackendHTTP {
		if u, err := url.Parse(c.Detector.URL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("invalid detector URL %q", c.Detector.URL))
		}
	}
	if c.Analysis.Interval < constants.MinPollInterval || c.Analysis.Interval > constants.MaxPollInterval {
		errs = append(errs, fmt.Errorf("analysis interval %s outside [%s, %s]",
			c.Analysis.Interval, constants.MinPollInterval, constants.MaxPollInterval))
	}
	switch c.Camera.Source {
	case SourceCamera:
	case SourceSnapshot:
		if c.Camera.SnapshotURL == "" {
			errs = append(errs, errors.New("snapshot source requires CAMERA_SNAPSHOT_URL"))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown camera source %q", c.Camera.Source))
	}
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		errs = append(errs, fmt.Errorf("invalid port %d", c.Web.Port))
	}

	return errors.Join(errs...)
}
