package config

import (
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

type Config struct {
	DatabaseURL string
	SQLitePath  string
	RedisURL    string
	LogPath     string

	Crawler   CrawlerConfig
	Scheduler SchedulerConfig
	Geocode   GeocodeConfig
	Archive   ArchiveConfig
}

// CrawlerConfig describes how the external worker process is invoked and
// where it drops its result artifacts.
type CrawlerConfig struct {
	Command      string `yaml:"command"`
	Script       string `yaml:"script"`
	DataDir      string `yaml:"data_dir"`
	DefaultUser  string `yaml:"default_user"`
	GeocodeDelay time.Duration
	PollInterval time.Duration
}

type SchedulerConfig struct {
	Timezone       string `yaml:"timezone"`
	RecoveryGrace  time.Duration
	RecoveryWindow time.Duration
}

type GeocodeConfig struct {
	URL string `yaml:"geocode_url"`
}

type ArchiveConfig struct {
	Bucket string `yaml:"bucket"`
	Prefix string `yaml:"prefix"`
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabaseURL: os.Getenv("DATABASE_URL"),
		SQLitePath:  getEnv("SQLITE_PATH", "danji_watch.db"),
		RedisURL:    os.Getenv("REDIS_URL"),
		LogPath:     getEnv("LOG_PATH", "daemon.log"),
		Crawler: CrawlerConfig{
			Command:      getEnv("CRAWLER_CMD", "python3"),
			Script:       getEnv("CRAWLER_SCRIPT", "logic/nas_playwright_crawler.py"),
			DataDir:      getEnv("CRAWL_DATA_DIR", "crawled_data"),
			DefaultUser:  getEnv("DEFAULT_USER_ID", "system"),
			GeocodeDelay: getEnvDuration("GEOCODE_DELAY", 300*time.Millisecond),
			PollInterval: getEnvDuration("RUN_POLL_INTERVAL", 2*time.Second),
		},
		Scheduler: SchedulerConfig{
			Timezone:       getEnv("SCHEDULER_TZ", "Asia/Seoul"),
			RecoveryGrace:  getEnvDuration("RECOVERY_GRACE", 30*time.Second),
			RecoveryWindow: getEnvDuration("RECOVERY_WINDOW", 10*time.Minute),
		},
		Geocode: GeocodeConfig{
			URL: os.Getenv("GEOCODE_URL"),
		},
		Archive: ArchiveConfig{
			Bucket: os.Getenv("ARCHIVE_BUCKET"),
			Prefix: getEnv("ARCHIVE_PREFIX", "crawls"),
		},
	}

	if err := cfg.loadCrawlerFile(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// loadCrawlerFile overlays config/crawler.yaml when present. Env vars win for
// anything set in both places.
func (c *Config) loadCrawlerFile() error {
	path := getEnv("CRAWLER_CONFIG", "config/crawler.yaml")
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}

	var file struct {
		Crawler   CrawlerConfig   `yaml:"crawler"`
		Scheduler SchedulerConfig `yaml:"scheduler"`
		Geocode   GeocodeConfig   `yaml:"geocode"`
		Archive   ArchiveConfig   `yaml:"archive"`
	}
	if err := yaml.Unmarshal(data, &file); err != nil {
		return err
	}

	if os.Getenv("CRAWLER_CMD") == "" && file.Crawler.Command != "" {
		c.Crawler.Command = file.Crawler.Command
	}
	if os.Getenv("CRAWLER_SCRIPT") == "" && file.Crawler.Script != "" {
		c.Crawler.Script = file.Crawler.Script
	}
	if os.Getenv("CRAWL_DATA_DIR") == "" && file.Crawler.DataDir != "" {
		c.Crawler.DataDir = file.Crawler.DataDir
	}
	if os.Getenv("SCHEDULER_TZ") == "" && file.Scheduler.Timezone != "" {
		c.Scheduler.Timezone = file.Scheduler.Timezone
	}
	if os.Getenv("GEOCODE_URL") == "" && file.Geocode.URL != "" {
		c.Geocode.URL = file.Geocode.URL
	}
	if os.Getenv("ARCHIVE_BUCKET") == "" && file.Archive.Bucket != "" {
		c.Archive.Bucket = file.Archive.Bucket
	}

	return nil
}

func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
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
