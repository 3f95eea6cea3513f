package config

import (
	"os"
	"sort"
	"strconv"
	"strings"
	"time"
)

// Database identifiers understood by the gateway. A database is only
// considered configured when its DSN is non-empty.
const (
	DatabaseUS      = "us_db"
	DatabaseEU      = "eu_db"
	DatabaseSandbox = "sandbox_db"
)

// defaultCORSOrigins are the local frontend dev servers.
const defaultCORSOrigins = "http://localhost:3000,http://localhost:5173"

// Connection drivers for the query databases.
const (
	DriverPgx = "pgx"
	DriverPQ  = "postgres"
)

// Config is built once at startup and injected into every component.
type Config struct {
	Server    Server
	Policy    Policy
	Oracle    Oracle
	Audit     Audit
	Redis     RedisConfig
	Kafka     KafkaConfig
	Auth      Auth
	Log       Log
	AuditLog  AuditLog
	Databases Databases
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string
	ShutdownTimeout time.Duration

	// CORSAllowedOrigins lists browser origins allowed to call the API.
	// Empty disables CORS handling.
	CORSAllowedOrigins []string
}

// Policy configures the external policy decision point.
type Policy struct {
	URL     string
	Timeout time.Duration
}

// Oracle configures the natural-language to SQL completion backend.
type Oracle struct {
	URL              string
	Model            string
	Timeout          time.Duration
	Disabled         bool
	FailureThreshold int
	Cooldown         time.Duration
}

// Audit configures the fire-and-forget audit emitter.
type Audit struct {
	SinkURL    string
	BufferSize int
	Timeout    time.Duration
}

// RedisConfig configures the optional Redis stream audit mirror.
type RedisConfig struct {
	URL          string
	Stream       string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the optional Kafka audit mirror.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// Auth configures credential handling. With neither key set, credentials
// are parsed but not signature-checked (trust in the upstream front door).
type Auth struct {
	HMACSecret    string
	PublicKeyFile string
}

// VerifySignatures reports whether a verification key is configured.
func (a Auth) VerifySignatures() bool {
	return a.HMACSecret != "" || a.PublicKeyFile != ""
}

// Log configures the process logger.
type Log struct {
	Level  string
	Format string
}

// AuditLog configures the standalone audit sink process.
type AuditLog struct {
	Addr string
	File string
}

// Databases maps a database identifier to its DSN. Read-only after startup.
type Databases struct {
	DSNs           map[string]string
	ConnectTimeout time.Duration

	// Driver selects the connection driver: "pgx" (default) or "postgres"
	// for lib/pq.
	Driver string
}

// DSN returns the DSN for id and whether it is configured.
func (d Databases) DSN(id string) (string, bool) {
	dsn, ok := d.DSNs[id]
	return dsn, ok && dsn != ""
}

// IDs returns the configured database identifiers in lexicographic order.
func (d Databases) IDs() []string {
	ids := make([]string, 0, len(d.DSNs))
	for id, dsn := range d.DSNs {
		if dsn != "" {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// FromEnv builds the Config from environment variables so main stays lean.
func FromEnv() Config {
	return Config{
		Server: Server{
			Addr:               getenv("GATEWAY_ADDR", ":8001"),
			ShutdownTimeout:    durationEnv("SHUTDOWN_TIMEOUT", 10*time.Second),
			CORSAllowedOrigins: listEnv(optionalEnv("CORS_ALLOWED_ORIGINS", defaultCORSOrigins)),
		},
		Policy: Policy{
			URL:     getenv("OPA_URL", "http://opa:8181/v1/data/authz/allow"),
			Timeout: durationEnv("POLICY_TIMEOUT", 5*time.Second),
		},
		Oracle: Oracle{
			URL:              getenv("LLM_URL", getenv("OLLAMA_URL", "http://ollama:11434/api/generate")),
			Model:            getenv("LLM_MODEL", "llama3.2:3b"),
			Timeout:          durationEnv("LLM_TIMEOUT", 30*time.Second),
			Disabled:         boolEnv("LLM_DISABLED", false),
			FailureThreshold: intEnv("LLM_FAILURE_THRESHOLD", 3),
			Cooldown:         durationEnv("LLM_COOLDOWN", 30*time.Second),
		},
		Audit: Audit{
			SinkURL:    optionalEnv("LOGGER_URL", "http://logger:9000/log"),
			BufferSize: intEnv("AUDIT_BUFFER", 256),
			Timeout:    durationEnv("AUDIT_TIMEOUT", 2*time.Second),
		},
		Redis: RedisConfig{
			URL:          os.Getenv("AUDIT_REDIS_URL"),
			Stream:       getenv("AUDIT_REDIS_STREAM", "zerotrust:audit"),
			PoolSize:     intEnv("AUDIT_REDIS_POOL_SIZE", 4),
			MinIdleConns: intEnv("AUDIT_REDIS_MIN_IDLE", 1),
			DialTimeout:  durationEnv("AUDIT_REDIS_DIAL_TIMEOUT", 2*time.Second),
			ReadTimeout:  durationEnv("AUDIT_REDIS_READ_TIMEOUT", time.Second),
			WriteTimeout: durationEnv("AUDIT_REDIS_WRITE_TIMEOUT", time.Second),
		},
		Kafka: KafkaConfig{
			Brokers: listEnv(os.Getenv("AUDIT_KAFKA_BROKERS")),
			Topic:   getenv("AUDIT_KAFKA_TOPIC", "zerotrust.audit"),
		},
		Auth: Auth{
			HMACSecret:    os.Getenv("JWT_HMAC_SECRET"),
			PublicKeyFile: os.Getenv("JWT_PUBLIC_KEY_FILE"),
		},
		Log: Log{
			Level:  getenv("LOG_LEVEL", "info"),
			Format: getenv("LOG_FORMAT", "json"),
		},
		AuditLog: AuditLog{
			Addr: getenv("AUDITLOG_ADDR", ":9000"),
			File: getenv("AUDITLOG_FILE", "/logs/access.log"),
		},
		Databases: Databases{
			DSNs: map[string]string{
				DatabaseUS:      os.Getenv("US_DB_DSN"),
				DatabaseEU:      os.Getenv("EU_DB_DSN"),
				DatabaseSandbox: os.Getenv("SBX_DB_DSN"),
			},
			ConnectTimeout: durationEnv("DB_CONNECT_TIMEOUT", 5*time.Second),
			Driver:         getenv("DB_DRIVER", DriverPgx),
		},
	}
}

func getenv(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}

// optionalEnv returns def only when key is unset; an explicit empty value
// turns the feature off.
func optionalEnv(key, def string) string {
	if v, ok := os.LookupEnv(key); ok {
		return strings.TrimSpace(v)
	}
	return def
}

func durationEnv(key string, def time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil && d > 0 {
		return d
	}
	return def
}

func intEnv(key string, def int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil && n > 0 {
		return n
	}
	return def
}

func boolEnv(key string, def bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return def
}

func listEnv(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
