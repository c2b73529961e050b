package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
)

type Config struct {
	// Application
	Version     string
	Environment string
	WorkerID    string
	Port        int
	LogLevel    string

	// Logdy (lightweight web log viewer)
	LogdyEnabled bool
	LogdyHost    string
	LogdyPort    int

	// Stream ingestion
	MaxChannels          int
	FrameBufferCapacity  int           // bounded most-recent-wins buffer per channel
	MaxConsecutiveErrors int           // read failures before the reconnect path
	ReadRetryDelay       time.Duration // delay after a transient read failure
	ProbeTimeout         time.Duration // open + first-frame timeout per URL candidate
	StopJoinTimeout      time.Duration // how long Stop waits for the capture loop

	// Reconnection
	ReconnectMaxAttempts int
	ReconnectBackoffMin  time.Duration
	ReconnectBackoffMax  time.Duration
	ReconnectJitterPct   int

	// Detection
	DetectorURL          string
	DetectorTimeout      time.Duration
	DetectionInterval    int     // forward every Nth frame to the detector
	ConfidenceThreshold  float32 // minimum detector confidence
	DetectionQueueSize   int     // frames waiting for detection per channel
	OutputWidth          int
	OutputHeight         int
	SnapshotJPEGQuality  int
	MinEvidenceAreaRatio float64 // skip snapshots for persons below this frame fraction

	// Violation tracking
	IdentityMatchMinIoU float64       // minimum overlap to reuse an identity
	IdentityMaxDistance float64       // center distance fallback, fraction of frame diagonal
	AbsenceGracePeriod  time.Duration // close open events after this much identity silence

	// Snapshot storage
	SnapshotBackend string // "minio" or "local"
	SnapshotDir     string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool
	MinioPublicBase string
	SnapshotTimeout time.Duration

	// NATS (violation event stream)
	NatsURL                string
	NatsConnectTimeout     time.Duration
	NatsReconnectWait      time.Duration
	NatsMaxReconnects      int
	ViolationOpenedSubject string
	ViolationClosedSubject string

	// Graceful shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found, using environment variables and defaults")
	} else {
		log.Info().Msg("Loaded configuration from .env file")
	}

	return &Config{
		// Application
		Version:     getEnv("VERSION", "1.0.0"),
		Environment: getEnv("ENVIRONMENT", "development"),
		WorkerID:    getEnv("WORKER_ID", "worker-1"),
		Port:        getEnvInt("PORT", 8000),
		LogLevel:    getEnv("LOG_LEVEL", "info"),

		// Logdy
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		// Stream ingestion
		MaxChannels:          getEnvInt("MAX_CHANNELS", 32),
		FrameBufferCapacity:  getEnvInt("FRAME_BUFFER_CAPACITY", 4),
		MaxConsecutiveErrors: getEnvInt("MAX_CONSECUTIVE_ERRORS", 10),
		ReadRetryDelay:       getEnvDuration("READ_RETRY_DELAY", 100*time.Millisecond),
		ProbeTimeout:         getEnvDuration("PROBE_TIMEOUT", 2*time.Second),
		StopJoinTimeout:      getEnvDuration("STOP_JOIN_TIMEOUT", 5*time.Second),

		// Reconnection
		ReconnectMaxAttempts: getEnvInt("RECONNECT_MAX_ATTEMPTS", 5),
		ReconnectBackoffMin:  getEnvDuration("RECONNECT_BACKOFF_MIN", 1*time.Second),
		ReconnectBackoffMax:  getEnvDuration("RECONNECT_BACKOFF_MAX", 30*time.Second),
		ReconnectJitterPct:   getEnvInt("RECONNECT_JITTER_PCT", 20),

		// Detection
		DetectorURL:          getEnv("DETECTOR_URL", "http://localhost:9090/detect"),
		DetectorTimeout:      getEnvDuration("DETECTOR_TIMEOUT", 5*time.Second),
		DetectionInterval:    getEnvInt("DETECTION_INTERVAL", 15),
		ConfidenceThreshold:  getEnvFloat32("CONFIDENCE_THRESHOLD", 0.5),
		DetectionQueueSize:   getEnvInt("DETECTION_QUEUE_SIZE", 4),
		OutputWidth:          getEnvInt("OUTPUT_WIDTH", 1280),
		OutputHeight:         getEnvInt("OUTPUT_HEIGHT", 720),
		SnapshotJPEGQuality:  getEnvInt("SNAPSHOT_JPEG_QUALITY", 85),
		MinEvidenceAreaRatio: getEnvFloat("MIN_EVIDENCE_AREA_RATIO", 0.05),

		// Violation tracking
		IdentityMatchMinIoU: getEnvFloat("IDENTITY_MATCH_MIN_IOU", 0.2),
		IdentityMaxDistance: getEnvFloat("IDENTITY_MAX_DISTANCE", 0.15),
		AbsenceGracePeriod:  getEnvDuration("ABSENCE_GRACE_PERIOD", 30*time.Second),

		// Snapshot storage
		SnapshotBackend: getEnv("SNAPSHOT_BACKEND", "local"),
		SnapshotDir:     getEnv("SNAPSHOT_DIR", "./snapshots"),
		MinioEndpoint:   getEnv("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:  getEnv("MINIO_ACCESS_KEY", ""),
		MinioSecretKey:  getEnv("MINIO_SECRET_KEY", ""),
		MinioBucket:     getEnv("MINIO_BUCKET", "ppe-snapshots"),
		MinioUseSSL:     getEnvBool("MINIO_USE_SSL", false),
		MinioPublicBase: getEnv("MINIO_PUBLIC_BASE_URL", ""),
		SnapshotTimeout: getEnvDuration("SNAPSHOT_TIMEOUT", 5*time.Second),

		// NATS
		NatsURL:                getEnv("NATS_URL", "nats://localhost:4222"),
		NatsConnectTimeout:     getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:      getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:      getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		ViolationOpenedSubject: getEnv("VIOLATION_OPENED_SUBJECT", "violations.opened"),
		ViolationClosedSubject: getEnv("VIOLATION_CLOSED_SUBJECT", "violations.closed"),

		// Graceful shutdown
		ShutdownTimeout: getEnvDuration("SHUTDOWN_TIMEOUT", 30*time.Second),
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat32(key string, defaultValue float32) float32 {
	return float32(getEnvFloat(key, float64(defaultValue)))
}
