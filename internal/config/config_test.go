package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != 8000 {
		t.Errorf("Expected default port 8000, got %d", cfg.Port)
	}
	if cfg.MaxChannels != 32 {
		t.Errorf("Expected 32 max channels, got %d", cfg.MaxChannels)
	}
	if cfg.DetectionInterval != 15 {
		t.Errorf("Expected detection interval 15, got %d", cfg.DetectionInterval)
	}
	if cfg.ConfidenceThreshold != 0.5 {
		t.Errorf("Expected confidence threshold 0.5, got %f", cfg.ConfidenceThreshold)
	}
	if cfg.AbsenceGracePeriod != 30*time.Second {
		t.Errorf("Expected 30s grace period, got %s", cfg.AbsenceGracePeriod)
	}
	if cfg.SnapshotBackend != "local" {
		t.Errorf("Expected local snapshot backend, got %s", cfg.SnapshotBackend)
	}
	if cfg.NatsMaxReconnects != -1 {
		t.Errorf("Expected unlimited NATS reconnects, got %d", cfg.NatsMaxReconnects)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9001")
	t.Setenv("MAX_CHANNELS", "8")
	t.Setenv("RECONNECT_BACKOFF_MIN", "250ms")
	t.Setenv("MINIO_USE_SSL", "true")
	t.Setenv("MIN_EVIDENCE_AREA_RATIO", "0.1")

	cfg := Load()

	if cfg.Port != 9001 {
		t.Errorf("PORT override ignored, got %d", cfg.Port)
	}
	if cfg.MaxChannels != 8 {
		t.Errorf("MAX_CHANNELS override ignored, got %d", cfg.MaxChannels)
	}
	if cfg.ReconnectBackoffMin != 250*time.Millisecond {
		t.Errorf("RECONNECT_BACKOFF_MIN override ignored, got %s", cfg.ReconnectBackoffMin)
	}
	if !cfg.MinioUseSSL {
		t.Error("MINIO_USE_SSL override ignored")
	}
	if cfg.MinEvidenceAreaRatio != 0.1 {
		t.Errorf("MIN_EVIDENCE_AREA_RATIO override ignored, got %f", cfg.MinEvidenceAreaRatio)
	}
}

func TestLoadIgnoresMalformedValues(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("DETECTOR_TIMEOUT", "soon")

	cfg := Load()

	if cfg.Port != 8000 {
		t.Errorf("Malformed PORT should fall back to default, got %d", cfg.Port)
	}
	if cfg.DetectorTimeout != 5*time.Second {
		t.Errorf("Malformed DETECTOR_TIMEOUT should fall back to default, got %s", cfg.DetectorTimeout)
	}
}
