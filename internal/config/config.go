// Package config loads pipeline settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"
	"github.com/joho/godotenv"
)

type Config struct {
	Port string `env:"PORT" envDefault:"8090"`

	// Auth
	APIKey string `env:"PIPELINE_API_KEY"`

	// Source
	SourceRoot     string `env:"SOURCE_ROOT" envDefault:"./documents"`
	SourcePageSize int    `env:"SOURCE_PAGE_SIZE" envDefault:"100"`
	WatchSource    bool   `env:"WATCH_SOURCE" envDefault:"false"`

	// Storage
	StorageRoot    string `env:"STORAGE_ROOT" envDefault:"./storage"`
	DedupIndexPath string `env:"DEDUP_INDEX_PATH"`

	// Topics
	FilesTopic  string `env:"DRIVE_FILES_TOPIC" envDefault:"drive-files"`
	ParsedTopic string `env:"PARSED_FILES_TOPIC" envDefault:"drive-files-parsed"`
	ChunksTopic string `env:"CHUNKS_TOPIC" envDefault:"drive-files-chunks"`

	// Chunking
	ChunkWindowSize int `env:"CHUNK_WINDOW_SIZE" envDefault:"1000"`
	ChunkOverlap    int `env:"CHUNK_OVERLAP" envDefault:"200"`

	// Runners
	BusBuffer        int           `env:"BUS_BUFFER" envDefault:"1024"`
	PollTimeout      time.Duration `env:"POLL_TIMEOUT" envDefault:"1s"`
	ParseIdleTimeout time.Duration `env:"PARSE_IDLE_TIMEOUT" envDefault:"30s"`
	ChunkIdleTimeout time.Duration `env:"CHUNK_IDLE_TIMEOUT" envDefault:"10s"`
	MaxRecords       int           `env:"MAX_RECORDS" envDefault:"0"`
}

// Load reads configuration from the environment, applying any .env file
// first. A missing .env file is not an error.
func Load() (Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if c.ChunkWindowSize <= 0 {
		return fmt.Errorf("CHUNK_WINDOW_SIZE must be positive, got %d", c.ChunkWindowSize)
	}
	if c.ChunkOverlap < 0 {
		return fmt.Errorf("CHUNK_OVERLAP must not be negative, got %d", c.ChunkOverlap)
	}
	if c.ChunkOverlap >= c.ChunkWindowSize {
		return fmt.Errorf("CHUNK_OVERLAP (%d) must be smaller than CHUNK_WINDOW_SIZE (%d)", c.ChunkOverlap, c.ChunkWindowSize)
	}
	if c.SourcePageSize <= 0 {
		return fmt.Errorf("SOURCE_PAGE_SIZE must be positive, got %d", c.SourcePageSize)
	}
	if c.PollTimeout <= 0 {
		return fmt.Errorf("POLL_TIMEOUT must be positive, got %s", c.PollTimeout)
	}
	return nil
}
