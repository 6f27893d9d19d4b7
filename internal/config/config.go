// Package config loads pipeline configuration from a YAML file layered
// with environment variables (a local .env is honored via godotenv).
// Precedence: environment over file over defaults.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"flowmap/internal/merge"
	"flowmap/internal/snapshot"
)

// Duration is a time.Duration that unmarshals from YAML strings like "30s".
type Duration time.Duration

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the full runtime configuration.
type Config struct {
	// SourcePath is the git worktree holding the tracked screen sources.
	// Required: the process refuses to start without it.
	SourcePath string `yaml:"sourcePath"`

	PollInterval Duration `yaml:"pollInterval"`
	Cooldown     Duration `yaml:"cooldown"`

	// AllowPatterns restrict scanning to tracked sub-trees (glob syntax,
	// ** supported).
	AllowPatterns []string `yaml:"allowPatterns"`

	// JourneyRules map source path prefixes to fixed journeys.
	JourneyRules []merge.JourneyRule `yaml:"journeyRules"`

	// Journey-count delta caps per cycle.
	MaxJourneysAdded   int `yaml:"maxJourneysAdded"`
	MaxJourneysRemoved int `yaml:"maxJourneysRemoved"`

	DataDir    string `yaml:"dataDir"`
	BackupDir  string `yaml:"backupDir"`
	BackupKeep int    `yaml:"backupKeep"`

	ServerAddr string `yaml:"serverAddr"`

	// Optional side exports.
	MermaidPath  string `yaml:"mermaidPath"`
	MarkdownPath string `yaml:"markdownPath"`
	PostgresDSN  string `yaml:"postgresDsn"`

	// Optional S3/minio snapshot mirror; enabled when Endpoint is set.
	S3 snapshot.S3Config `yaml:"s3"`

	// Watch enables the fsnotify trigger on the source tree's git HEAD.
	Watch bool `yaml:"watch"`
}

func defaults() Config {
	return Config{
		PollInterval:       Duration(30 * time.Second),
		Cooldown:           Duration(5 * time.Minute),
		AllowPatterns:      []string{"**/*.swift"},
		MaxJourneysAdded:   3,
		MaxJourneysRemoved: 1,
		DataDir:            "data",
		BackupDir:          "data/backups",
		BackupKeep:         20,
		ServerAddr:         ":8085",
	}
}

// Load builds the configuration. path may be empty (env and defaults only).
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	cfg := defaults()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	applyEnv(&cfg)

	if strings.TrimSpace(cfg.SourcePath) == "" {
		return nil, fmt.Errorf("source-tree path is required (set sourcePath or FLOWMAP_SOURCE)")
	}
	if info, err := os.Stat(cfg.SourcePath); err != nil || !info.IsDir() {
		return nil, fmt.Errorf("source-tree path %q is not a directory", cfg.SourcePath)
	}
	return &cfg, nil
}

func applyEnv(cfg *Config) {
	if v := strings.TrimSpace(os.Getenv("FLOWMAP_SOURCE")); v != "" {
		cfg.SourcePath = v
	}
	if v := strings.TrimSpace(os.Getenv("FLOWMAP_POLL_INTERVAL")); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.PollInterval = Duration(d)
		}
	}
	if v := strings.TrimSpace(os.Getenv("FLOWMAP_DATA_DIR")); v != "" {
		cfg.DataDir = v
	}
	if v := strings.TrimSpace(os.Getenv("FLOWMAP_BACKUP_DIR")); v != "" {
		cfg.BackupDir = v
	}
	if v := strings.TrimSpace(os.Getenv("FLOWMAP_SERVER_ADDR")); v != "" {
		cfg.ServerAddr = v
	}
	if v := strings.TrimSpace(os.Getenv("FLOWMAP_ALLOW_PATTERNS")); v != "" {
		cfg.AllowPatterns = splitList(v)
	}
	if v := strings.TrimSpace(os.Getenv("FLOWMAP_POSTGRES_DSN")); v != "" {
		cfg.PostgresDSN = v
	}
	if v := strings.TrimSpace(os.Getenv("FLOWMAP_WATCH")); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.Watch = b
		}
	}
	if v := strings.TrimSpace(os.Getenv("FLOWMAP_S3_ENDPOINT")); v != "" {
		cfg.S3.Endpoint = v
	}
	if v := strings.TrimSpace(os.Getenv("FLOWMAP_S3_ACCESS_KEY")); v != "" {
		cfg.S3.AccessKey = v
	}
	if v := strings.TrimSpace(os.Getenv("FLOWMAP_S3_SECRET_KEY")); v != "" {
		cfg.S3.SecretKey = v
	}
	if v := strings.TrimSpace(os.Getenv("FLOWMAP_S3_BUCKET")); v != "" {
		cfg.S3.Bucket = v
	}
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
