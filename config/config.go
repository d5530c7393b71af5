package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Telegram  TelegramConfig
	Database  DatabaseConfig
	Proxy     ProxyConfig
	Scheduler SchedulerConfig
	Renderer  RendererConfig
	Artifacts ArtifactsConfig
	DBPath    string
	LogLevel  string
	Site      *SiteConfig
}

type TelegramConfig struct {
	Token string
}

type DatabaseConfig struct {
	URL string
}

type ProxyConfig struct {
	URL string
}

type SchedulerConfig struct {
	Interval time.Duration
	Cron     string
}

type RendererConfig struct {
	Headless          bool
	NavigationTimeout time.Duration
	SelectorTimeout   time.Duration
	ArtifactDir       string
	DelayMS           int // pause between criteria within one pass
}

type ArtifactsConfig struct {
	Bucket          string
	Region          string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
}

// SiteConfig describes the watched marketplace. Loaded from
// config/sites/*.yaml; DefaultSite covers setups without one.
type SiteConfig struct {
	ID            string   `yaml:"id"`
	Name          string   `yaml:"name"`
	BaseURL       string   `yaml:"base_url"`
	SearchParams  string   `yaml:"search_params"` // appended to /{region}?q={keyword}
	DefaultRegion string   `yaml:"default_region"`
	BlockMarkers  []string `yaml:"block_markers"`
	WaitSelectors []string `yaml:"wait_selectors"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Telegram: TelegramConfig{
			Token: os.Getenv("BOT_TOKEN"),
		},
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Proxy: ProxyConfig{
			URL: os.Getenv("PROXY_SERVER"),
		},
		Scheduler: SchedulerConfig{
			Cron: getEnv("CHECK_CRON", "*/10 * * * *"),
		},
		Renderer: RendererConfig{
			Headless:          getEnv("RENDERER_HEADLESS", "true") == "true",
			NavigationTimeout: getEnvDuration("RENDERER_NAV_TIMEOUT", 60*time.Second),
			SelectorTimeout:   getEnvDuration("RENDERER_SELECTOR_TIMEOUT", 10*time.Second),
			ArtifactDir:       getEnv("RENDERER_ARTIFACT_DIR", "artifacts"),
			DelayMS:           getEnvInt("CHECK_DELAY_MS", 500),
		},
		Artifacts: ArtifactsConfig{
			Bucket:          os.Getenv("ARTIFACTS_S3_BUCKET"),
			Region:          getEnv("ARTIFACTS_S3_REGION", "us-east-1"),
			Endpoint:        os.Getenv("ARTIFACTS_S3_ENDPOINT"),
			AccessKeyID:     os.Getenv("ARTIFACTS_S3_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("ARTIFACTS_S3_SECRET_ACCESS_KEY"),
		},
		DBPath:   getEnv("DB_PATH", "watcher.db"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
	}

	if interval := os.Getenv("CHECK_INTERVAL"); interval != "" {
		if d, err := time.ParseDuration(interval); err == nil {
			cfg.Scheduler.Interval = d
			cfg.Scheduler.Cron = ""
		}
	}

	site, err := loadSiteConfig()
	if err != nil {
		return nil, err
	}
	if site == nil {
		site = DefaultSite()
	}
	if region := os.Getenv("DEFAULT_REGION"); region != "" {
		site.DefaultRegion = region
	}
	cfg.Site = site

	return cfg, nil
}

// DefaultSite is the built-in avito.ru description.
func DefaultSite() *SiteConfig {
	return &SiteConfig{
		ID:            "avito",
		Name:          "Avito",
		BaseURL:       "https://www.avito.ru",
		SearchParams:  "s=104&user=1", // newest first, private sellers only
		DefaultRegion: "novosibirsk",
		BlockMarkers: []string{
			"доступ ограничен",
			"blocked",
			"captcha",
		},
		WaitSelectors: []string{
			`[data-marker="item"]`,
			`.iva-item-root-_lk9K`,
			`[data-marker*="item"]`,
			`.items-items-kAJAg .iva-item-root-_lk9K`,
		},
	}
}

func loadSiteConfig() (*SiteConfig, error) {
	configDir := "config/sites"
	entries, err := os.ReadDir(configDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".yaml" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(configDir, entry.Name()))
		if err != nil {
			return nil, err
		}

		var site SiteConfig
		if err := yaml.Unmarshal(data, &site); err != nil {
			return nil, err
		}
		return &site, nil
	}

	return nil, nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	if val := os.Getenv(key); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			return d
		}
	}
	return defaultVal
}
