package config

import (
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// ============================================================================
// Configuration Constants
// ============================================================================

const (
	// Environment variable prefix
	EnvPrefix = "STT_CORE"

	// Default server settings
	DefaultServerPort        = 8080
	DefaultServerHost        = "0.0.0.0"
	DefaultMaxConnections    = 1000
	DefaultReadTimeout       = 30
	DefaultWebSocketMsgSize  = 2097152 // 2MB
	DefaultWebSocketBufSize  = 1024
	DefaultEnableCompression = true

	// Default session settings
	DefaultSendQueueSize = 500
	DefaultMaxSendErrors = 10
	DefaultMaxSessionAge = 30 // minutes
	DefaultCleanupSecs   = 60

	// Default audio metadata (original_source/core/voice/models/schemas.py AudioMetadata)
	DefaultSampleRate = 16000
	DefaultChannels   = 1
	DefaultEncoding   = "float32"
	DefaultLanguage   = "vi"

	// Default transcription config (original_source/.../schemas.py TranscriptionConfig)
	DefaultEngine          = "auto"
	DefaultModelSize       = "small"
	DefaultPartialResults  = true
	DefaultVADEnabled      = true
	DefaultVADThreshold    = 0.3
	DefaultSilenceDuration = 0.5
	DefaultBufferOverlap   = 0.25
	DefaultWindowSize      = 0.5

	// Default recognition engine settings
	DefaultKaldiNumThreads     = 1
	DefaultWhisperSilenceMs    = 500
	DefaultWhisperMaxBufferMs  = 10000
	DefaultCloudHTTPTimeoutSec = 10

	// Default worker pool settings (default for WorkerConfig.MaxRecognitionWorkers)
	DefaultMaxRecognitionWorkers = 50

	// Default rate limit settings
	DefaultRateLimitEnabled = false
	DefaultRequestsPerSec   = 100
	DefaultBurstSize        = 200

	// Default logging settings
	DefaultLogLevel      = "info"
	DefaultLogFormat     = "text"
	DefaultLogOutput     = "console"
	DefaultLogMaxSize    = 100
	DefaultLogMaxBackups = 5
	DefaultLogMaxAge     = 30
	DefaultLogCompress   = true

	// Port constraints
	MinPort = 1
	MaxPort = 65535

	// Hot reload settings
	DefaultDebounceDuration = 2 * time.Second
)

// Valid value sets for validation
var (
	ValidLogLevels  = []string{"debug", "info", "warn", "error"}
	ValidLogFormats = []string{"text", "json"}
	ValidLogOutputs = []string{"console", "file", "both"}
	ValidEncodings  = []string{"float32", "int16"}
	ValidEngines    = []string{"auto", "kaldi-streaming", "whisper", "cloud-http"}
)

// ============================================================================
// Configuration Errors
// ============================================================================

var (
	ErrInvalidPort       = errors.New("server port must be between 1 and 65535")
	ErrInvalidLogLevel   = errors.New("invalid log level")
	ErrInvalidLogFormat  = errors.New("invalid log format")
	ErrInvalidLogOutput  = errors.New("invalid log output")
	ErrInvalidEncoding   = errors.New("invalid audio encoding")
	ErrInvalidEngine     = errors.New("invalid recognition engine")
	ErrNegativeValue     = errors.New("value must be non-negative")
	ErrInvalidThreshold  = errors.New("threshold must be between 0 and 1")
	ErrInvalidSampleRate = errors.New("sample rate must be positive")
)

// ============================================================================
// Configuration Structures
// ============================================================================

// Config represents the application configuration.
// Reload (used by HotReloadManager) overwrites an instance in place.
type Config struct {
	Server      ServerConfig      `mapstructure:"server"`
	Session     SessionConfig     `mapstructure:"session"`
	Audio       AudioConfig       `mapstructure:"audio"`
	Transcribe  TranscribeConfig  `mapstructure:"transcribe"`
	Recognition RecognitionConfig `mapstructure:"recognition"`
	Worker      WorkerConfig      `mapstructure:"worker"`
	RateLimit   RateLimitConfig   `mapstructure:"rate_limit"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port           int             `mapstructure:"port"`
	Host           string          `mapstructure:"host"`
	MaxConnections int             `mapstructure:"max_connections"`
	ReadTimeout    int             `mapstructure:"read_timeout"`
	WebSocket      WebSocketConfig `mapstructure:"websocket"`
}

// WebSocketConfig holds WebSocket-specific settings
type WebSocketConfig struct {
	ReadTimeout       int      `mapstructure:"read_timeout"`
	MaxMessageSize    int      `mapstructure:"max_message_size"`
	ReadBufferSize    int      `mapstructure:"read_buffer_size"`
	WriteBufferSize   int      `mapstructure:"write_buffer_size"`
	EnableCompression bool     `mapstructure:"enable_compression"`
	AllowAllOrigins   bool     `mapstructure:"allow_all_origins"`
	AllowedOrigins    []string `mapstructure:"allowed_origins"`
}

// SessionConfig holds session manager / reaper configuration.
type SessionConfig struct {
	SendQueueSize    int `mapstructure:"send_queue_size"`
	MaxSendErrors    int `mapstructure:"max_send_errors"`
	MaxAgeMinutes    int `mapstructure:"max_age_minutes"`
	CleanupIntervalS int `mapstructure:"cleanup_interval_seconds"`
}

// AudioConfig holds the default AudioMetadata applied to a session unless
// overridden by its "metadata" control message.
type AudioConfig struct {
	SampleRate int    `mapstructure:"sample_rate"`
	Channels   int    `mapstructure:"channels"`
	Encoding   string `mapstructure:"encoding"`
	Language   string `mapstructure:"language"`
}

// TranscribeConfig holds the default TranscriptionConfig applied to a
// session unless overridden by its "config" control message.
type TranscribeConfig struct {
	Engine          string  `mapstructure:"engine"`
	ModelSize       string  `mapstructure:"model_size"`
	PartialResults  bool    `mapstructure:"partial_results"`
	VADEnabled      bool    `mapstructure:"vad_enabled"`
	VADThreshold    float64 `mapstructure:"vad_threshold"`
	SilenceDuration float64 `mapstructure:"silence_duration"`
	BufferOverlap   float64 `mapstructure:"buffer_overlap"`
	WindowSize      float64 `mapstructure:"window_size"`
}

// RecognitionConfig holds the settings for every recognizer engine
// back-end, consumed by internal/recognizer.NewRegistryFromConfig.
type RecognitionConfig struct {
	Priority []string            `mapstructure:"priority"`
	Kaldi    KaldiEngineConfig   `mapstructure:"kaldi"`
	Whisper  WhisperEngineConfig `mapstructure:"whisper"`
	Cloud    CloudEngineConfig   `mapstructure:"cloud"`
}

// KaldiEngineConfig configures the StreamingFST back-end (sherpa-onnx-go).
type KaldiEngineConfig struct {
	ModelDir   string `mapstructure:"model_dir"`
	TokensPath string `mapstructure:"tokens_path"`
	NumThreads int    `mapstructure:"num_threads"`
}

// WhisperEngineConfig configures the ChunkedBuffered back-end
// (whisper.cpp bindings).
type WhisperEngineConfig struct {
	ModelPath           string `mapstructure:"model_path"`
	SilenceThresholdMs  int    `mapstructure:"silence_threshold_ms"`
	MaxBufferDurationMs int    `mapstructure:"max_buffer_duration_ms"`
}

// CloudEngineConfig configures the CloudHTTP back-end.
type CloudEngineConfig struct {
	Endpoint   string `mapstructure:"endpoint"`
	APIKey     string `mapstructure:"api_key"`
	TimeoutSec int    `mapstructure:"timeout_seconds"`
}

// WorkerConfig holds the configured recognition worker bound, generalizing
// the teacher's PoolConfig from a VAD-instance pool size to a CPU-bound
// recognition worker bound. The value is validated and reported (Print,
// PrintCompact, ToSafeMap) but not read by internal/dispatcher, whose
// worker semaphore is sized by dispatcher.DefaultMaxRecognitionWorkers.
type WorkerConfig struct {
	MaxRecognitionWorkers int `mapstructure:"max_recognition_workers"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerSecond int  `mapstructure:"requests_per_second"`
	BurstSize         int  `mapstructure:"burst_size"`
	MaxConnections    int  `mapstructure:"max_connections"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	Output     string `mapstructure:"output"`
	FilePath   string `mapstructure:"file_path"`
	MaxSize    int    `mapstructure:"max_size"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAge     int    `mapstructure:"max_age"`
	Compress   bool   `mapstructure:"compress"`
}

// ============================================================================
// Configuration Loading
// ============================================================================

// Load reads configuration from file and environment, returning a new Config.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("json")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/sttstream/")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			fmt.Println("[WARN] Config file not found, using defaults")
		} else {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	} else {
		fmt.Printf("[INFO] Using config file: %s\n", v.ConfigFileUsed())
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// MustLoad loads configuration and panics on error.
func MustLoad(configPath string) *Config {
	cfg, err := Load(configPath)
	if err != nil {
		panic(fmt.Sprintf("failed to load config: %v", err))
	}
	return cfg
}

// setDefaults registers all default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", DefaultServerPort)
	v.SetDefault("server.host", DefaultServerHost)
	v.SetDefault("server.max_connections", DefaultMaxConnections)
	v.SetDefault("server.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.websocket.read_timeout", DefaultReadTimeout)
	v.SetDefault("server.websocket.max_message_size", DefaultWebSocketMsgSize)
	v.SetDefault("server.websocket.read_buffer_size", DefaultWebSocketBufSize)
	v.SetDefault("server.websocket.write_buffer_size", DefaultWebSocketBufSize)
	v.SetDefault("server.websocket.enable_compression", DefaultEnableCompression)
	v.SetDefault("server.websocket.allow_all_origins", true)
	v.SetDefault("server.websocket.allowed_origins", []string{})

	v.SetDefault("session.send_queue_size", DefaultSendQueueSize)
	v.SetDefault("session.max_send_errors", DefaultMaxSendErrors)
	v.SetDefault("session.max_age_minutes", DefaultMaxSessionAge)
	v.SetDefault("session.cleanup_interval_seconds", DefaultCleanupSecs)

	v.SetDefault("audio.sample_rate", DefaultSampleRate)
	v.SetDefault("audio.channels", DefaultChannels)
	v.SetDefault("audio.encoding", DefaultEncoding)
	v.SetDefault("audio.language", DefaultLanguage)

	v.SetDefault("transcribe.engine", DefaultEngine)
	v.SetDefault("transcribe.model_size", DefaultModelSize)
	v.SetDefault("transcribe.partial_results", DefaultPartialResults)
	v.SetDefault("transcribe.vad_enabled", DefaultVADEnabled)
	v.SetDefault("transcribe.vad_threshold", DefaultVADThreshold)
	v.SetDefault("transcribe.silence_duration", DefaultSilenceDuration)
	v.SetDefault("transcribe.buffer_overlap", DefaultBufferOverlap)
	v.SetDefault("transcribe.window_size", DefaultWindowSize)

	v.SetDefault("recognition.priority", []string{"whisper", "kaldi-streaming", "cloud-http"})
	v.SetDefault("recognition.kaldi.num_threads", DefaultKaldiNumThreads)
	v.SetDefault("recognition.whisper.silence_threshold_ms", DefaultWhisperSilenceMs)
	v.SetDefault("recognition.whisper.max_buffer_duration_ms", DefaultWhisperMaxBufferMs)
	v.SetDefault("recognition.cloud.timeout_seconds", DefaultCloudHTTPTimeoutSec)

	v.SetDefault("worker.max_recognition_workers", DefaultMaxRecognitionWorkers)

	v.SetDefault("rate_limit.enabled", DefaultRateLimitEnabled)
	v.SetDefault("rate_limit.requests_per_second", DefaultRequestsPerSec)
	v.SetDefault("rate_limit.burst_size", DefaultBurstSize)
	v.SetDefault("rate_limit.max_connections", DefaultMaxConnections)

	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
	v.SetDefault("logging.output", DefaultLogOutput)
	v.SetDefault("logging.max_size", DefaultLogMaxSize)
	v.SetDefault("logging.max_backups", DefaultLogMaxBackups)
	v.SetDefault("logging.max_age", DefaultLogMaxAge)
	v.SetDefault("logging.compress", DefaultLogCompress)
}

// ============================================================================
// Validation Functions
// ============================================================================

// Validate validates the entire configuration
func Validate(cfg *Config) error {
	if err := validateServerConfig(&cfg.Server); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := validateAudioConfig(&cfg.Audio); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := validateTranscribeConfig(&cfg.Transcribe); err != nil {
		return fmt.Errorf("transcribe config: %w", err)
	}
	if err := validateRecognitionConfig(&cfg.Recognition); err != nil {
		return fmt.Errorf("recognition config: %w", err)
	}
	if err := validateLoggingConfig(&cfg.Logging); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	if err := validateWorkerConfig(&cfg.Worker); err != nil {
		return fmt.Errorf("worker config: %w", err)
	}
	return nil
}

func validateServerConfig(cfg *ServerConfig) error {
	if cfg.Port < MinPort || cfg.Port > MaxPort {
		return fmt.Errorf("%w: got %d", ErrInvalidPort, cfg.Port)
	}
	if cfg.ReadTimeout < 0 {
		return fmt.Errorf("read_timeout: %w", ErrNegativeValue)
	}
	if cfg.MaxConnections < 0 {
		return fmt.Errorf("max_connections: %w", ErrNegativeValue)
	}
	return nil
}

func validateAudioConfig(cfg *AudioConfig) error {
	if cfg.SampleRate <= 0 {
		return fmt.Errorf("%w: got %d", ErrInvalidSampleRate, cfg.SampleRate)
	}
	if !containsString(ValidEncodings, cfg.Encoding) {
		return fmt.Errorf("%w: got %q, expected one of %v", ErrInvalidEncoding, cfg.Encoding, ValidEncodings)
	}
	return nil
}

func validateTranscribeConfig(cfg *TranscribeConfig) error {
	if !containsString(ValidEngines, cfg.Engine) {
		return fmt.Errorf("%w: got %q, expected one of %v", ErrInvalidEngine, cfg.Engine, ValidEngines)
	}
	if cfg.VADThreshold < 0 || cfg.VADThreshold > 1 {
		return fmt.Errorf("%w: got %f", ErrInvalidThreshold, cfg.VADThreshold)
	}
	if cfg.WindowSize <= 0 {
		return fmt.Errorf("window_size must be positive, got %f", cfg.WindowSize)
	}
	if cfg.BufferOverlap < 0 || cfg.BufferOverlap >= cfg.WindowSize {
		return fmt.Errorf("buffer_overlap must be in [0, window_size), got %f (window_size=%f)", cfg.BufferOverlap, cfg.WindowSize)
	}
	return nil
}

func validateRecognitionConfig(cfg *RecognitionConfig) error {
	for _, name := range cfg.Priority {
		if !containsString(ValidEngines[1:], name) { // skip "auto" in the priority list itself
			return fmt.Errorf("%w: got %q in priority list, expected one of %v", ErrInvalidEngine, name, ValidEngines[1:])
		}
	}
	return nil
}

func validateLoggingConfig(cfg *LoggingConfig) error {
	if !containsString(ValidLogLevels, cfg.Level) {
		return fmt.Errorf("%w: got %q, expected one of %v", ErrInvalidLogLevel, cfg.Level, ValidLogLevels)
	}
	if !containsString(ValidLogFormats, cfg.Format) {
		return fmt.Errorf("%w: got %q, expected one of %v", ErrInvalidLogFormat, cfg.Format, ValidLogFormats)
	}
	if !containsString(ValidLogOutputs, cfg.Output) {
		return fmt.Errorf("%w: got %q, expected one of %v", ErrInvalidLogOutput, cfg.Output, ValidLogOutputs)
	}
	return nil
}

func validateWorkerConfig(cfg *WorkerConfig) error {
	if cfg.MaxRecognitionWorkers < 0 {
		return fmt.Errorf("max_recognition_workers: %w", ErrNegativeValue)
	}
	return nil
}

// containsString checks if a string is in a slice
func containsString(slice []string, item string) bool {
	for _, s := range slice {
		if s == item {
			return true
		}
	}
	return false
}

// ============================================================================
// Sensitive Data Handling
// ============================================================================

// SensitiveKeywords contains keywords that indicate a field contains sensitive data.
var SensitiveKeywords = []string{
	"password", "passwd", "pwd",
	"secret", "private",
	"key", "apikey", "api_key",
	"token", "auth",
	"credential", "cred",
	"certificate", "cert",
}

// Mask masks a sensitive string, showing only first and last 2 characters.
func Mask(s string) string {
	if len(s) == 0 {
		return ""
	}
	if len(s) <= 4 {
		return "****"
	}
	return s[:2] + strings.Repeat("*", len(s)-4) + s[len(s)-2:]
}

// MaskWithLength masks a string but preserves length information.
func MaskWithLength(s string) string {
	if len(s) == 0 {
		return ""
	}
	return fmt.Sprintf("[MASKED:%d]", len(s))
}

// IsSensitiveKey checks if a key name indicates sensitive data.
func IsSensitiveKey(key string) bool {
	keyLower := strings.ToLower(key)
	for _, keyword := range SensitiveKeywords {
		if strings.Contains(keyLower, keyword) {
			return true
		}
	}
	return false
}

// ============================================================================
// Debug Utilities
// ============================================================================

// Print outputs the configuration to stdout with sensitive data masked.
func (c *Config) Print() {
	fmt.Println("[CONFIG] Current Configuration:")
	fmt.Printf("  Server: %s:%d\n", c.Server.Host, c.Server.Port)
	fmt.Printf("  Max Connections: %d\n", c.Server.MaxConnections)
	fmt.Println()
	fmt.Printf("  Default Engine: %s\n", c.Transcribe.Engine)
	fmt.Printf("  VAD Enabled: %v (threshold=%.2f)\n", c.Transcribe.VADEnabled, c.Transcribe.VADThreshold)
	fmt.Printf("  Window/Overlap: %.2fs / %.2fs\n", c.Transcribe.WindowSize, c.Transcribe.BufferOverlap)
	fmt.Println()
	fmt.Printf("  Kaldi Model Dir: %s\n", c.Recognition.Kaldi.ModelDir)
	fmt.Printf("  Whisper Model: %s\n", c.Recognition.Whisper.ModelPath)
	fmt.Printf("  Cloud Endpoint: %s\n", c.Recognition.Cloud.Endpoint)
	fmt.Printf("  Cloud API Key: %s\n", Mask(c.Recognition.Cloud.APIKey))
	fmt.Println()
	fmt.Printf("  Recognition Workers: %d\n", c.Worker.MaxRecognitionWorkers)
	fmt.Println()
	fmt.Printf("  Log Level: %s\n", c.Logging.Level)
	fmt.Printf("  Log Format: %s\n", c.Logging.Format)
	fmt.Printf("  Log Output: %s\n", c.Logging.Output)
}

// PrintCompact outputs a single-line summary for log messages.
func (c *Config) PrintCompact() string {
	return fmt.Sprintf("server=%s:%d engine=%s workers=%d log=%s",
		c.Server.Host, c.Server.Port,
		c.Transcribe.Engine,
		c.Worker.MaxRecognitionWorkers,
		c.Logging.Level)
}

// ToSafeMap returns a map representation with sensitive values masked.
func (c *Config) ToSafeMap() map[string]interface{} {
	return map[string]interface{}{
		"server": map[string]interface{}{
			"host":            c.Server.Host,
			"port":            c.Server.Port,
			"max_connections": c.Server.MaxConnections,
		},
		"transcribe": map[string]interface{}{
			"engine":      c.Transcribe.Engine,
			"vad_enabled": c.Transcribe.VADEnabled,
			"window_size": c.Transcribe.WindowSize,
		},
		"recognition": map[string]interface{}{
			"kaldi_model_dir": c.Recognition.Kaldi.ModelDir,
			"whisper_model":   c.Recognition.Whisper.ModelPath,
			"cloud_endpoint":  c.Recognition.Cloud.Endpoint,
			"cloud_api_key":   Mask(c.Recognition.Cloud.APIKey),
		},
		"worker": map[string]interface{}{
			"max_recognition_workers": c.Worker.MaxRecognitionWorkers,
		},
		"logging": map[string]interface{}{
			"level":  c.Logging.Level,
			"format": c.Logging.Format,
			"output": c.Logging.Output,
		},
	}
}

// Reload re-reads the configuration from the file and updates the current instance.
func (c *Config) Reload(configPath string) error {
	newCfg, err := Load(configPath)
	if err != nil {
		return err
	}
	*c = *newCfg
	return nil
}

// Addr returns the server address in "host:port" format
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// ============================================================================
// Hot Reload Manager
// ============================================================================

// ConfigChangeCallback is the function type for configuration change callbacks.
type ConfigChangeCallback func(cfg *Config)

// HotReloadManager handles configuration hot reloading using Viper's built-in
// file watching capability.
type HotReloadManager struct {
	mu               sync.RWMutex
	v                *viper.Viper
	cfg              *Config
	configPath       string
	callbacks        []ConfigChangeCallback
	debounceDuration time.Duration
	debounceTimer    *time.Timer
	stopChan         chan struct{}
}

// NewHotReloadManager creates a new hot reload manager for the given config.
func NewHotReloadManager(cfg *Config, configPath string) *HotReloadManager {
	return &HotReloadManager{
		cfg:              cfg,
		configPath:       configPath,
		callbacks:        make([]ConfigChangeCallback, 0),
		debounceDuration: DefaultDebounceDuration,
		stopChan:         make(chan struct{}),
	}
}

// SetDebounceDuration sets the debounce duration for config changes.
func (m *HotReloadManager) SetDebounceDuration(d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.debounceDuration = d
}

// OnChange registers a callback to be called when configuration changes.
func (m *HotReloadManager) OnChange(callback ConfigChangeCallback) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callbacks = append(m.callbacks, callback)
}

// StartWatching begins monitoring the configuration file for changes.
func (m *HotReloadManager) StartWatching() error {
	v := viper.New()
	m.v = v

	v.SetConfigFile(m.configPath)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		return fmt.Errorf("failed to read config for watching: %w", err)
	}

	v.OnConfigChange(func(e fsnotify.Event) {
		m.handleConfigChange()
	})
	v.WatchConfig()

	fmt.Printf("[INFO] Started watching config file: %s\n", m.configPath)
	return nil
}

// handleConfigChange handles file change events with debouncing.
func (m *HotReloadManager) handleConfigChange() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
	}
	m.debounceTimer = time.AfterFunc(m.debounceDuration, func() {
		m.reloadAndNotify()
	})
}

// reloadAndNotify reloads the configuration and notifies all callbacks.
func (m *HotReloadManager) reloadAndNotify() {
	fmt.Println("[INFO] Configuration file changed, reloading...")

	if err := m.cfg.Reload(m.configPath); err != nil {
		fmt.Printf("[ERROR] Failed to reload configuration: %v\n", err)
		return
	}

	fmt.Println("[INFO] Configuration reloaded successfully")

	m.mu.RLock()
	callbacks := make([]ConfigChangeCallback, len(m.callbacks))
	copy(callbacks, m.callbacks)
	m.mu.RUnlock()

	for _, callback := range callbacks {
		go func(cb ConfigChangeCallback) {
			defer func() {
				if r := recover(); r != nil {
					fmt.Printf("[ERROR] Config callback panicked: %v\n", r)
				}
			}()
			cb(m.cfg)
		}(callback)
	}
}

// Stop gracefully stops the hot reload manager.
func (m *HotReloadManager) Stop() {
	close(m.stopChan)

	m.mu.Lock()
	if m.debounceTimer != nil {
		m.debounceTimer.Stop()
	}
	m.mu.Unlock()
}

// GetConfigPath returns the path of the watched config file.
func (m *HotReloadManager) GetConfigPath() string {
	return m.configPath
}
