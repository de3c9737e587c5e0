package config

import (
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Port != "8090" {
		t.Errorf("expected default port 8090, got %s", cfg.Port)
	}
	if cfg.FilesTopic != "drive-files" || cfg.ParsedTopic != "drive-files-parsed" || cfg.ChunksTopic != "drive-files-chunks" {
		t.Errorf("unexpected default topics: %s %s %s", cfg.FilesTopic, cfg.ParsedTopic, cfg.ChunksTopic)
	}
	if cfg.ChunkWindowSize != 1000 || cfg.ChunkOverlap != 200 {
		t.Errorf("unexpected default chunking: window %d overlap %d", cfg.ChunkWindowSize, cfg.ChunkOverlap)
	}
	if cfg.PollTimeout != time.Second {
		t.Errorf("expected 1s poll timeout, got %s", cfg.PollTimeout)
	}
}

func TestLoad_OverridesFromEnvironment(t *testing.T) {
	t.Setenv("CHUNK_WINDOW_SIZE", "500")
	t.Setenv("CHUNK_OVERLAP", "50")
	t.Setenv("PARSE_IDLE_TIMEOUT", "5s")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.ChunkWindowSize != 500 || cfg.ChunkOverlap != 50 {
		t.Errorf("expected overrides applied, got window %d overlap %d", cfg.ChunkWindowSize, cfg.ChunkOverlap)
	}
	if cfg.ParseIdleTimeout != 5*time.Second {
		t.Errorf("expected 5s idle timeout, got %s", cfg.ParseIdleTimeout)
	}
}

func TestLoad_RejectsInvalidChunking(t *testing.T) {
	t.Setenv("CHUNK_WINDOW_SIZE", "100")
	t.Setenv("CHUNK_OVERLAP", "100")

	if _, err := Load(); err == nil {
		t.Fatal("expected validation error for overlap >= window")
	}
}
