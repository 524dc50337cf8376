// Package config provides configuration loading for FlexiCLI.
//
// Configuration is loaded from environment variables with sensible defaults.
// This package supports the model client, mini-agent, approval, rate-limit,
// monitoring, and vector-store settings described in spec §6.
package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Config holds the complete FlexiCLI configuration.
type Config struct {
	// Mode biases token budget allocation and default iteration limits
	// (spec §3/§6): "direct", "concise" (default), or "deep".
	Mode string `koanf:"mode"`

	Model         ModelConfig        `koanf:"model"`
	EmbeddingAPI  EmbeddingAPIConfig `koanf:"embedding_api"`
	Approval      ApprovalConfig     `koanf:"approval"`
	MiniAgent     MiniAgentConfig    `koanf:"mini_agent"`
	RateLimit     RateLimitConfig    `koanf:"rate_limit"`
	Monitoring    MonitoringConfig   `koanf:"monitoring"`
	Production    ProductionConfig  `koanf:"production"`
	Server        ServerConfig      `koanf:"server"`
	Observability ObservabilityConfig `koanf:"observability"`
	VectorStore   VectorStoreConfig
	Qdrant        QdrantConfig
	Embeddings    EmbeddingsConfig
	Repository    RepositoryConfig
}

// ModelConfig holds the credentials and identity of the chat-completion
// model the Rate-Limited Model Client (C7) talks to (spec §4.7, §6).
type ModelConfig struct {
	// APIKey authenticates against the model endpoint. Wrapped in Secret so
	// it never prints in logs or String()/%v formatting.
	APIKey Secret `koanf:"api_key"`

	// Endpoint is the base URL of the model API.
	Endpoint string `koanf:"endpoint"`

	// APIVersion is the provider API version string, for providers that
	// require one (e.g. Azure OpenAI's api-version query parameter).
	APIVersion string `koanf:"api_version"`

	// Model is the model/deployment name to request completions from.
	Model string `koanf:"model"`
}

// EmbeddingAPIConfig holds credentials for a remote embeddings API, distinct
// from the local FastEmbed/TEI provider in EmbeddingsConfig (spec §6).
type EmbeddingAPIConfig struct {
	APIKey     Secret `koanf:"api_key"`
	Endpoint   string `koanf:"endpoint"`
	Deployment string `koanf:"deployment"`
	ModelName  string `koanf:"model_name"`
	APIVersion string `koanf:"api_version"`
}

// ApprovalConfig holds the Approval Gate's (C6) default decision mode.
type ApprovalConfig struct {
	// Mode is one of "yolo" (auto-approve everything), "auto_edit"
	// (auto-approve edits, gate everything else), or "default" (gate
	// everything not previously remembered). Spec §4.6.
	Mode string `koanf:"mode"`
}

// MiniAgentConfig holds the Mini-Agent Spawner/Lifecycle's (C11) concurrency
// and retry limits (spec §4.11, §6).
type MiniAgentConfig struct {
	MaxConcurrent  int           `koanf:"max_concurrent"`
	QueueSize      int           `koanf:"queue_size"`
	DefaultTimeout time.Duration `koanf:"default_timeout"`
	MaxRetries     int           `koanf:"max_retries"`
}

// RateLimitConfig holds the Rate-Limited Model Client's (C7) concurrency and
// token-bucket limits (spec §4.7, §6).
type RateLimitConfig struct {
	MaxConcurrentRequests int  `koanf:"max_concurrent_requests"`
	RequestsPerMinute     int  `koanf:"requests_per_minute"`
	TokensPerMinute       int  `koanf:"tokens_per_minute"`
	RetryAttempts         int  `koanf:"retry_attempts"`
	EnableThrottling      bool `koanf:"enable_throttling"`
}

// MonitoringConfig holds the Monitoring Bridge's (C12) WebSocket/HTTP
// listener settings (spec §4.12, §6).
type MonitoringConfig struct {
	Enabled bool `koanf:"enabled"`
	Port    int  `koanf:"port"`
}

// RepositoryConfig holds repository indexing configuration.
type RepositoryConfig struct {
	// IgnoreFiles is a list of ignore file names to parse from project root.
	// Patterns from these files are used as exclude patterns during indexing.
	// Default: [".gitignore", ".dockerignore", ".flexicliignore"]
	IgnoreFiles []string `koanf:"ignore_files"`

	// FallbackExcludes are used when no ignore files are found in the project.
	// Default: [".git/**", "node_modules/**", "vendor/**", "__pycache__/**"]
	FallbackExcludes []string `koanf:"fallback_excludes"`
}

// VectorStoreConfig holds vectorstore provider configuration.
type VectorStoreConfig struct {
	Provider string        `koanf:"provider"` // "chromem" or "qdrant" (default: "chromem")
	Chromem  ChromemConfig `koanf:"chromem"`
}

// Validate validates VectorStoreConfig.
func (c *VectorStoreConfig) Validate() error {
	switch c.Provider {
	case "chromem":
		return c.Chromem.Validate()
	case "qdrant":
		// Qdrant validation handled elsewhere
		return nil
	default:
		return fmt.Errorf("unsupported provider: %s (supported: chromem, qdrant)", c.Provider)
	}
}

// ChromemConfig holds chromem-go embedded vector database configuration.
// chromem-go is a pure Go, embedded vector database with zero third-party dependencies.
type ChromemConfig struct {
	// Path is the directory for persistent storage.
	// Default: "~/.config/flexicli/vectorstore"
	Path string `koanf:"path"`

	// Compress enables gzip compression for stored data.
	// Default: true
	Compress bool `koanf:"compress"`

	// DefaultCollection is the default collection name.
	// Default: "flexicli_default"
	DefaultCollection string `koanf:"default_collection"`

	// VectorSize is the expected embedding dimension.
	// Must match the embedder's output dimension.
	// Default: 384 (for FastEmbed bge-small-en-v1.5)
	VectorSize int `koanf:"vector_size"`
}

// Validate validates ChromemConfig.
func (c *ChromemConfig) Validate() error {
	if c.VectorSize <= 0 {
		return fmt.Errorf("vector_size must be positive, got %d", c.VectorSize)
	}
	return nil
}

// QdrantConfig holds Qdrant vector database configuration.
type QdrantConfig struct {
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	HTTPPort       int    `koanf:"http_port"`
	CollectionName string `koanf:"collection_name"`
	VectorSize     uint64 `koanf:"vector_size"`
	DataPath       string `koanf:"data_path"`
}

// EmbeddingsConfig holds embeddings service configuration.
type EmbeddingsConfig struct {
	Provider    string `koanf:"provider"` // "fastembed" or "tei"
	BaseURL     string `koanf:"base_url"` // TEI URL (if using TEI)
	Model       string `koanf:"model"`
	CacheDir    string `koanf:"cache_dir"`    // Model cache directory (for fastembed)
	ONNXVersion string `koanf:"onnx_version"` // Optional ONNX runtime version override
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Port            int           `koanf:"http_port"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// ObservabilityConfig holds OpenTelemetry configuration.
type ObservabilityConfig struct {
	EnableTelemetry   bool   `koanf:"enable_telemetry"`
	ServiceName       string `koanf:"service_name"`
	OTLPEndpoint      string `koanf:"otlp_endpoint"`        // OTLP endpoint (default: localhost:4317)
	OTLPProtocol      string `koanf:"otlp_protocol"`        // "grpc" or "http/protobuf" (default: grpc)
	OTLPInsecure      bool   `koanf:"otlp_insecure"`        // Use insecure connection (default: true for localhost)
	OTLPTLSSkipVerify bool   `koanf:"otlp_tls_skip_verify"` // Skip TLS verification for internal CAs
}

// Load loads configuration from environment variables with defaults.
//
// Quick Start - Most commonly configured env vars (spec §6):
//
//   - FLEXICLI_MODE: direct, concise (default), or deep
//   - API_KEY / ENDPOINT / MODEL: chat-completion model credentials
//   - APPROVAL_MODE: yolo, auto_edit, or default
//   - FLEXICLI_DATA_PATH: base data path (default: /data)
//
// All environment variables:
//
// Core:
//   - FLEXICLI_MODE: direct, concise, or deep (default: concise)
//
// Model (C7):
//   - API_KEY: model API key
//   - ENDPOINT: model API base URL
//   - API_VERSION: provider API version (if required)
//   - MODEL: model/deployment name
//   - MAX_CONCURRENT_REQUESTS: in-flight request cap (default: 4)
//   - REQUESTS_PER_MINUTE: RPM token-bucket rate (default: 60)
//   - TOKENS_PER_MINUTE: TPM token-bucket rate (default: 100000)
//   - RETRY_ATTEMPTS: max retry attempts on 429/502/503 (default: 3)
//   - ENABLE_THROTTLING: apply the rate limiter (default: true)
//
// Embedding API (remote, distinct from local FastEmbed/TEI):
//   - EMBEDDING_API_KEY, EMBEDDING_API_ENDPOINT, EMBEDDING_API_DEPLOYMENT,
//     EMBEDDING_API_MODEL_NAME, EMBEDDING_API_API_VERSION
//
// Approval Gate (C6):
//   - APPROVAL_MODE: yolo, auto_edit, or default (default: default)
//
// Mini-Agent Spawner (C11):
//   - MINI_AGENT_MAX_CONCURRENT: concurrent mini-agent cap (default: 3)
//   - MINI_AGENT_QUEUE_SIZE: pending-spawn queue size (default: 10)
//   - MINI_AGENT_DEFAULT_TIMEOUT: per-agent wall clock budget (default: 5m)
//   - MINI_AGENT_MAX_RETRIES: lifecycle restart attempts (default: 1)
//
// Monitoring Bridge (C12):
//   - ENABLE_MONITORING: serve the WebSocket/HTTP bridge (default: true)
//   - MONITOR_PORT: bridge listen port (default: 9090)
//
// Server:
//   - SERVER_PORT: HTTP server port (default: 9090)
//   - SERVER_SHUTDOWN_TIMEOUT: Graceful shutdown timeout (default: 10s)
//
// Qdrant:
//   - QDRANT_HOST: Qdrant host (default: localhost)
//   - QDRANT_PORT: Qdrant gRPC port (default: 6334)
//   - QDRANT_HTTP_PORT: Qdrant HTTP port (default: 6333)
//   - QDRANT_COLLECTION: Default collection name (default: flexicli_default)
//   - QDRANT_VECTOR_SIZE: Vector dimensions (default: 384 for FastEmbed)
//   - FLEXICLI_DATA_PATH: Base data path (default: /data)
//
// Embeddings (local FastEmbed/TEI, for C3's retrieval layer):
//   - EMBEDDINGS_PROVIDER: Provider type: fastembed or tei (default: fastembed)
//   - EMBEDDINGS_MODEL: Embedding model (default: BAAI/bge-small-en-v1.5)
//   - EMBEDDING_BASE_URL: TEI URL if using TEI (default: http://localhost:8080)
//   - EMBEDDINGS_CACHE_DIR: Model cache directory for fastembed (default: ./local_cache)
//
// Telemetry:
//   - OTEL_ENABLE: Enable OpenTelemetry (default: false, requires OTEL collector)
//   - OTEL_SERVICE_NAME: Service name for traces (default: flexicli)
//
// Example:
//
//	cfg := config.Load()
//	fmt.Println("Mode:", cfg.Mode)
func Load() *Config {
	cfg := &Config{
		Mode: getEnvString("FLEXICLI_MODE", "concise"),
		Model: ModelConfig{
			APIKey:     Secret(getEnvString("API_KEY", "")),
			Endpoint:   getEnvString("ENDPOINT", ""),
			APIVersion: getEnvString("API_VERSION", ""),
			Model:      getEnvString("MODEL", ""),
		},
		EmbeddingAPI: EmbeddingAPIConfig{
			APIKey:     Secret(getEnvString("EMBEDDING_API_KEY", "")),
			Endpoint:   getEnvString("EMBEDDING_API_ENDPOINT", ""),
			Deployment: getEnvString("EMBEDDING_API_DEPLOYMENT", ""),
			ModelName:  getEnvString("EMBEDDING_API_MODEL_NAME", ""),
			APIVersion: getEnvString("EMBEDDING_API_API_VERSION", ""),
		},
		Approval: ApprovalConfig{
			Mode: getEnvString("APPROVAL_MODE", "default"),
		},
		MiniAgent: MiniAgentConfig{
			MaxConcurrent:  getEnvInt("MINI_AGENT_MAX_CONCURRENT", 3),
			QueueSize:      getEnvInt("MINI_AGENT_QUEUE_SIZE", 10),
			DefaultTimeout: getEnvDuration("MINI_AGENT_DEFAULT_TIMEOUT", 5*time.Minute),
			MaxRetries:     getEnvInt("MINI_AGENT_MAX_RETRIES", 1),
		},
		RateLimit: RateLimitConfig{
			MaxConcurrentRequests: getEnvInt("MAX_CONCURRENT_REQUESTS", 4),
			RequestsPerMinute:     getEnvInt("REQUESTS_PER_MINUTE", 60),
			TokensPerMinute:       getEnvInt("TOKENS_PER_MINUTE", 100_000),
			RetryAttempts:         getEnvInt("RETRY_ATTEMPTS", 3),
			EnableThrottling:      getEnvBool("ENABLE_THROTTLING", true),
		},
		Monitoring: MonitoringConfig{
			Enabled: getEnvBool("ENABLE_MONITORING", true),
			Port:    getEnvInt("MONITOR_PORT", 9090),
		},
		Production: ProductionConfig{
			Enabled:               getEnvBool("FLEXICLI_PRODUCTION_MODE", false),
			LocalModeAcknowledged: getEnvBool("FLEXICLI_LOCAL_MODE", false),
			RequireAuthentication: getEnvBool("FLEXICLI_REQUIRE_AUTH", false),
			RequireTLS:            getEnvBool("FLEXICLI_REQUIRE_TLS", false),
			AllowNoIsolation:      getEnvBool("FLEXICLI_ALLOW_NO_ISOLATION", false),
		},
		Server: ServerConfig{
			Port:            getEnvInt("SERVER_PORT", 9090),
			ShutdownTimeout: getEnvDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
		},
		Observability: ObservabilityConfig{
			EnableTelemetry: getEnvBool("OTEL_ENABLE", false),
			ServiceName:     getEnvString("OTEL_SERVICE_NAME", "flexicli"),
		},
	}

	// Qdrant configuration
	cfg.Qdrant = QdrantConfig{
		Host:           getEnvString("QDRANT_HOST", "localhost"),
		Port:           getEnvInt("QDRANT_PORT", 6334),
		HTTPPort:       getEnvInt("QDRANT_HTTP_PORT", 6333),
		CollectionName: getEnvString("QDRANT_COLLECTION", "flexicli_default"),
		VectorSize:     uint64(getEnvInt("QDRANT_VECTOR_SIZE", 384)), // FastEmbed default
		DataPath:       getEnvString("FLEXICLI_DATA_PATH", "/data"),
	}

	// Embeddings configuration (local FastEmbed/TEI provider)
	cfg.Embeddings = EmbeddingsConfig{
		Provider:    getEnvString("EMBEDDINGS_PROVIDER", "fastembed"),
		BaseURL:     getEnvString("EMBEDDING_BASE_URL", "http://localhost:8080"),
		Model:       getEnvString("EMBEDDINGS_MODEL", "BAAI/bge-small-en-v1.5"),
		CacheDir:    getEnvString("EMBEDDINGS_CACHE_DIR", ""),
		ONNXVersion: getEnvString("EMBEDDINGS_ONNX_VERSION", ""),
	}

	// Repository indexing configuration
	cfg.Repository = RepositoryConfig{
		IgnoreFiles: getEnvStringSlice("REPOSITORY_IGNORE_FILES", []string{
			".gitignore",
			".dockerignore",
			".flexicliignore",
		}),
		FallbackExcludes: getEnvStringSlice("REPOSITORY_FALLBACK_EXCLUDES", []string{
			".git/**",
			"node_modules/**",
			"vendor/**",
			"__pycache__/**",
		}),
	}

	// VectorStore configuration (chromem is default - embedded, no external deps)
	cfg.VectorStore = VectorStoreConfig{
		Provider: getEnvString("FLEXICLI_VECTORSTORE_PROVIDER", "chromem"),
		Chromem: ChromemConfig{
			Path:              getEnvString("FLEXICLI_VECTORSTORE_CHROMEM_PATH", "~/.config/flexicli/vectorstore"),
			Compress:          getEnvBool("FLEXICLI_VECTORSTORE_CHROMEM_COMPRESS", false),
			DefaultCollection: getEnvString("FLEXICLI_VECTORSTORE_CHROMEM_COLLECTION", "flexicli_default"),
			VectorSize:        getEnvInt("FLEXICLI_VECTORSTORE_CHROMEM_VECTOR_SIZE", 384),
		},
	}

	return cfg
}

// Validate validates the configuration.
//
// Returns an error if:
//   - FLEXICLI_MODE is set to something other than direct/concise/deep
//   - APPROVAL_MODE is set to something other than yolo/auto_edit/default
//   - Server port is not between 1 and 65535
//   - Shutdown timeout is not positive
//   - Service name is empty (when telemetry is enabled)
func (c *Config) Validate() error {
	switch c.Mode {
	case "direct", "concise", "deep":
	default:
		return fmt.Errorf("invalid FLEXICLI_MODE: %q (must be direct, concise, or deep)", c.Mode)
	}

	switch c.Approval.Mode {
	case "yolo", "auto_edit", "default":
	default:
		return fmt.Errorf("invalid APPROVAL_MODE: %q (must be yolo, auto_edit, or default)", c.Approval.Mode)
	}

	if c.MiniAgent.MaxConcurrent < 1 {
		return fmt.Errorf("MINI_AGENT_MAX_CONCURRENT must be at least 1, got %d", c.MiniAgent.MaxConcurrent)
	}

	if c.RateLimit.MaxConcurrentRequests < 1 {
		return fmt.Errorf("MAX_CONCURRENT_REQUESTS must be at least 1, got %d", c.RateLimit.MaxConcurrentRequests)
	}

	// Validate server configuration
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be 1-65535)", c.Server.Port)
	}

	if c.Server.ShutdownTimeout <= 0 {
		return errors.New("shutdown timeout must be positive")
	}

	// Validate observability configuration
	if c.Observability.EnableTelemetry && c.Observability.ServiceName == "" {
		return errors.New("service name required when telemetry is enabled")
	}

	// Validate environment variable inputs
	if err := validateHostname(c.Qdrant.Host); err != nil {
		return fmt.Errorf("invalid QDRANT_HOST: %w", err)
	}

	if err := validatePath(c.Qdrant.DataPath); err != nil {
		return fmt.Errorf("invalid FLEXICLI_DATA_PATH: %w", err)
	}

	if err := validatePath(c.VectorStore.Chromem.Path); err != nil {
		return fmt.Errorf("invalid FLEXICLI_VECTORSTORE_CHROMEM_PATH: %w", err)
	}

	if c.Embeddings.CacheDir != "" {
		if err := validatePath(c.Embeddings.CacheDir); err != nil {
			return fmt.Errorf("invalid EMBEDDINGS_CACHE_DIR: %w", err)
		}
	}

	if c.Embeddings.BaseURL != "" {
		if err := validateURL(c.Embeddings.BaseURL); err != nil {
			return fmt.Errorf("invalid EMBEDDING_BASE_URL: %w", err)
		}
	}

	// Validate production configuration
	if err := c.Production.Validate(); err != nil {
		return fmt.Errorf("production config validation failed: %w", err)
	}

	return nil
}

// Helper functions for environment variable parsing

func getEnvString(key, defaultValue string) string {
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

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		parsed, err := strconv.ParseBool(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		parsed, err := time.ParseDuration(value)
		if err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvStringSlice(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		// Split by comma, trim whitespace
		parts := make([]string, 0)
		for _, part := range splitAndTrim(value, ",") {
			if part != "" {
				parts = append(parts, part)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}

func splitAndTrim(s, sep string) []string {
	var result []string
	for _, part := range strings.Split(s, sep) {
		trimmed := strings.TrimSpace(part)
		result = append(result, trimmed)
	}
	return result
}

// ProductionConfig holds production deployment configuration.
type ProductionConfig struct {
	// Enabled indicates whether production mode is active.
	// Set via FLEXICLI_PRODUCTION_MODE=1 environment variable.
	Enabled bool `koanf:"enabled"`

	// LocalModeAcknowledged allows development features in production mode.
	// Set via FLEXICLI_LOCAL_MODE=1 environment variable.
	// Use only for local development/testing.
	LocalModeAcknowledged bool `koanf:"local_mode_acknowledged"`

	// RequireAuthentication enforces authentication in production.
	RequireAuthentication bool `koanf:"require_authentication"`

	// AuthenticationConfigured indicates if auth is properly set up.
	AuthenticationConfigured bool `koanf:"authentication_configured"`

	// RequireTLS enforces TLS for external services (Qdrant, OTEL).
	RequireTLS bool `koanf:"require_tls"`

	// AllowNoIsolation permits NoIsolation mode (testing only).
	// Always false in production mode.
	AllowNoIsolation bool `koanf:"allow_no_isolation"`
}

// IsProduction returns true if running in production mode.
func (c *ProductionConfig) IsProduction() bool {
	return c.Enabled
}

// IsLocal returns true if local mode is acknowledged.
func (c *ProductionConfig) IsLocal() bool {
	return c.LocalModeAcknowledged
}

// Validate checks production configuration for security issues.
func (c *ProductionConfig) Validate() error {
	if !c.Enabled {
		return nil // Not in production, skip validation
	}

	if c.AllowNoIsolation {
		return fmt.Errorf("SECURITY: NoIsolation mode cannot be enabled in production")
	}

	if c.RequireAuthentication && !c.AuthenticationConfigured {
		return fmt.Errorf("SECURITY: RequireAuthentication enabled but authentication not configured")
	}

	return nil
}

// validateHostname checks if a hostname is safe (no command injection attempts).
// Uses positive validation with net.ParseIP for IP addresses and regexp for hostnames.
func validateHostname(host string) error {
	// Empty hostname is allowed (config may use defaults)
	if host == "" {
		return nil
	}

	// Try parsing as IP first
	if net.ParseIP(host) != nil {
		return nil // Valid IP address
	}

	// Validate hostname format (RFC 1123)
	// Allow alphanumeric, dots, hyphens. Must not start/end with dash.
	hostnameRegex := regexp.MustCompile(`^[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?(\.[a-zA-Z0-9]([a-zA-Z0-9-]{0,61}[a-zA-Z0-9])?)*$`)
	if !hostnameRegex.MatchString(host) {
		return fmt.Errorf("invalid hostname format: %s", host)
	}

	// Additional blacklist check for shell metacharacters (defense in depth)
	invalidChars := []string{";", "\n", "\r", "$", "`", "|", "&", "<", ">", "(", ")"}
	for _, char := range invalidChars {
		if strings.Contains(host, char) {
			return fmt.Errorf("invalid hostname: contains forbidden character %q", char)
		}
	}
	return nil
}

// validatePath checks if a path is safe (no path traversal)
func validatePath(path string) error {
	// Check for path traversal sequences
	if strings.Contains(path, "..") {
		return fmt.Errorf("path contains traversal sequence: %s", path)
	}

	// For absolute paths, verify the cleaned path doesn't escape
	if filepath.IsAbs(path) {
		clean := filepath.Clean(path)
		// Count directory depth - compare original vs cleaned
		// If cleaned has fewer separators, upward traversal occurred
		origDepth := strings.Count(path, string(filepath.Separator))
		cleanDepth := strings.Count(clean, string(filepath.Separator))

		if cleanDepth < origDepth-1 {
			return fmt.Errorf("path traversal detected: %s (resolves to %s)", path, clean)
		}
	}

	return nil
}

// validateURL checks if a URL uses allowed schemes (http/https only)
func validateURL(urlStr string) error {
	// Only allow http and https schemes
	if !strings.HasPrefix(urlStr, "http://") && !strings.HasPrefix(urlStr, "https://") {
		return fmt.Errorf("URL must use http:// or https:// scheme, got: %s", urlStr)
	}
	return nil
}
