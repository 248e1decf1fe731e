package config

import (
	"os"
	"strconv"
	"strings"
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

	// Message fabric: nats (JetStream) or memory (single process)
	Fabric string

	// NATS / JetStream
	// Default: nats://localhost:4222 (works with Docker Compose setup)
	// Docker: Use nats://nats:4222 if running worker in Docker
	NatsURL            string
	NatsConnectTimeout time.Duration
	NatsReconnectWait  time.Duration
	NatsMaxReconnects  int
	NatsDrainTimeout   time.Duration // For graceful shutdown
	StreamName         string
	AckWait            time.Duration
	MaxDeliver         int
	NakDelay           time.Duration
	Codec              string // json | msgpack

	// Topics
	BottleneckTopic string
	AnomalyTopic    string
	SummaryTopic    string
	DispatchTopic   string
	PushSubject     string

	// Persistent store
	StoreBackend  string // memory | redis | sqlite
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	SQLitePath    string

	// Media store
	MediaBackend string // filesystem | s3
	MediaDir     string
	MediaBaseURL string
	S3Bucket     string
	S3Region     string
	S3Endpoint   string
	S3AccessKey  string
	S3SecretKey  string
	S3PathStyle  bool

	// Analyzers (remote gRPC inference)
	BottleneckAnalyzerURL string
	AnomalyAnalyzerURL    string
	AnalyzerTimeout       time.Duration

	// Frame selection
	TargetFPS       float64
	MotionThreshold float64
	MaxUploadSize   int64

	// Detection policy
	DensityThreshold      float64
	HighDensityMultiplier float64
	ThreatKeywords        []string
	BufferCapacity        int
	BottleneckWorkers     int
	AnomalyWorkers        int
	SummaryWorkers        int
	DispatchWorkers       int
	MessageTimeout        time.Duration

	// Dispatch
	UnitsPerEvent       int
	DispatchMinSeverity string
	DefaultETA          float64

	// Notification
	SMTPHost             string
	SMTPPort             int
	SMTPUsername         string
	SMTPPassword         string
	EmailSender          string
	DefaultRecipients    []string
	SupervisorRecipients []string
	NotifyTimeout        time.Duration

	// Registry file (cameras, units, action policy)
	RegistryFile string

	// Telemetry
	OTLPEndpoint  string
	TraceSampling float64

	// Swagger Configuration
	SwaggerHost string
	SwaggerPort int

	// Graceful Shutdown
	ShutdownTimeout time.Duration
}

func Load() *Config {
	// Load .env file if it exists
	if err := godotenv.Load(); err != nil {
		log.Debug().Err(err).Msg("No .env file found or error loading .env file, using environment variables and defaults")
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

		// Logdy (lightweight web log viewer)
		LogdyEnabled: getEnvBool("LOGDY_ENABLED", false),
		LogdyHost:    getEnv("LOGDY_HOST", "localhost"),
		LogdyPort:    getEnvInt("LOGDY_PORT", 8080),

		Fabric: getEnv("MESSAGE_FABRIC", "nats"),

		// NATS (configured for Docker Compose setup)
		NatsURL:            getNatsURL(),
		NatsConnectTimeout: getEnvDuration("NATS_CONNECT_TIMEOUT", 10*time.Second),
		NatsReconnectWait:  getEnvDuration("NATS_RECONNECT_WAIT", 2*time.Second),
		NatsMaxReconnects:  getEnvInt("NATS_MAX_RECONNECTS", -1), // -1 = unlimited
		NatsDrainTimeout:   getEnvDuration("NATS_DRAIN_TIMEOUT", 5*time.Second),
		StreamName:         getEnv("NATS_STREAM", "DRISHTI"),
		AckWait:            getEnvDuration("NATS_ACK_WAIT", 30*time.Second),
		MaxDeliver:         getEnvInt("NATS_MAX_DELIVER", 5),
		NakDelay:           getEnvDuration("NATS_NAK_DELAY", 2*time.Second),
		Codec:              getEnv("MESSAGE_CODEC", "json"),

		// Topics
		BottleneckTopic: getEnv("BOTTLENECK_TOPIC", "bottleneck-frames"),
		AnomalyTopic:    getEnv("ANOMALY_TOPIC", "anomaly-frames"),
		SummaryTopic:    getEnv("SUMMARY_TOPIC", "summary-events"),
		DispatchTopic:   getEnv("DISPATCH_TOPIC", "dispatch-events"),
		PushSubject:     getEnv("PUSH_SUBJECT", "notifications.push"),

		// Persistent store
		StoreBackend:  getEnv("STORE_BACKEND", "memory"),
		RedisAddr:     getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisPrefix:   getEnv("REDIS_PREFIX", "drishti:"),
		SQLitePath:    getEnv("SQLITE_PATH", "drishti.db"),

		// Media store
		MediaBackend: getEnv("MEDIA_BACKEND", "filesystem"),
		MediaDir:     getEnv("MEDIA_DIR", "./drishti-media"),
		MediaBaseURL: getEnv("MEDIA_BASE_URL", ""),
		S3Bucket:     getEnv("S3_BUCKET", "drishti-media"),
		S3Region:     getEnv("S3_REGION", "us-east-1"),
		S3Endpoint:   getEnv("S3_ENDPOINT", ""),
		S3AccessKey:  getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey:  getEnv("S3_SECRET_KEY", ""),
		S3PathStyle:  getEnvBool("S3_PATH_STYLE", false),

		// Analyzers
		BottleneckAnalyzerURL: getEnv("BOTTLENECK_ANALYZER_URL", "localhost:50052"),
		AnomalyAnalyzerURL:    getEnv("ANOMALY_ANALYZER_URL", "localhost:50053"),
		AnalyzerTimeout:       getEnvDuration("ANALYZER_TIMEOUT", 10*time.Second),

		// Frame selection
		TargetFPS:       getEnvFloat("TARGET_FPS", 1),
		MotionThreshold: getEnvFloat("MOTION_THRESHOLD", 0.1),
		MaxUploadSize:   int64(getEnvInt("MAX_UPLOAD_SIZE", 512*1024*1024)), // 512MB

		// Detection policy
		DensityThreshold:      getEnvFloat("DENSITY_THRESHOLD", 4.5),
		HighDensityMultiplier: getEnvFloat("HIGH_DENSITY_MULTIPLIER", 1.2),
		ThreatKeywords:        getEnvList("THREAT_KEYWORDS", []string{"smoke", "fire", "weapon", "gun", "knife", "crowd"}),
		BufferCapacity:        getEnvInt("BUFFER_CAPACITY", 10),
		BottleneckWorkers:     getEnvInt("BOTTLENECK_WORKERS", 2),
		AnomalyWorkers:        getEnvInt("ANOMALY_WORKERS", 2),
		SummaryWorkers:        getEnvInt("SUMMARY_WORKERS", 2),
		DispatchWorkers:       getEnvInt("DISPATCH_WORKERS", 2),
		MessageTimeout:        getEnvDuration("MESSAGE_TIMEOUT", 30*time.Second),

		// Dispatch
		UnitsPerEvent:       getEnvInt("UNITS_PER_EVENT", 1),
		DispatchMinSeverity: getEnv("DISPATCH_MIN_SEVERITY", "high"),
		DefaultETA:          getEnvFloat("DEFAULT_ETA", 5),

		// Notification
		SMTPHost:             getEnv("SMTP_HOST", ""),
		SMTPPort:             getEnvInt("SMTP_PORT", 587),
		SMTPUsername:         getEnv("SMTP_USERNAME", ""),
		SMTPPassword:         getEnv("SMTP_PASSWORD", ""),
		EmailSender:          getEnv("EMAIL_SENDER", "alerts@drishti.local"),
		DefaultRecipients:    getEnvList("DEFAULT_RECIPIENTS", nil),
		SupervisorRecipients: getEnvList("SUPERVISOR_RECIPIENTS", nil),
		NotifyTimeout:        getEnvDuration("NOTIFY_TIMEOUT", 10*time.Second),

		RegistryFile: getEnv("REGISTRY_FILE", ""),

		// Telemetry
		OTLPEndpoint:  getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		TraceSampling: getEnvFloat("OTEL_TRACE_SAMPLING", 1.0),

		// Swagger Configuration
		SwaggerHost: getEnv("SWAGGER_HOST", "localhost"),
		SwaggerPort: getEnvInt("SWAGGER_PORT", 8000),

		// Graceful Shutdown
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

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
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

// getEnvList splits a comma separated value, dropping empty entries
func getEnvList(key string, defaultValue []string) []string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Helper functions for Docker environment detection
func isRunningInDocker() bool {
	if os.Getenv("DOCKER_CONTAINER") == "true" {
		return true
	}

	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	return false
}

// getNatsURL returns the appropriate NATS URL based on environment
func getNatsURL() string {
	if envURL := os.Getenv("NATS_URL"); envURL != "" {
		return envURL
	}

	// If running in Docker, use service name; otherwise use localhost
	if isRunningInDocker() {
		return "nats://nats:4222"
	}

	return "nats://localhost:4222"
}
