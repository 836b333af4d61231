package config

import (
	"testing"
)

func TestValidateServerConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  ServerConfig
		wantErr bool
	}{
		{
			name: "valid config",
			config: ServerConfig{
				Port:           8080,
				Host:           "0.0.0.0",
				MaxConnections: 1000,
				ReadTimeout:    30,
			},
			wantErr: false,
		},
		{
			name:    "invalid port - too low",
			config:  ServerConfig{Port: 0},
			wantErr: true,
		},
		{
			name:    "invalid port - too high",
			config:  ServerConfig{Port: 70000},
			wantErr: true,
		},
		{
			name:    "negative read timeout",
			config:  ServerConfig{Port: 8080, ReadTimeout: -1},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateServerConfig(&tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateServerConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateTranscribeConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  TranscribeConfig
		wantErr bool
	}{
		{
			name: "valid auto engine",
			config: TranscribeConfig{
				Engine:        "auto",
				VADThreshold:  0.3,
				WindowSize:    0.5,
				BufferOverlap: 0.25,
			},
			wantErr: false,
		},
		{
			name: "invalid engine",
			config: TranscribeConfig{
				Engine:     "not-a-real-engine",
				WindowSize: 0.5,
			},
			wantErr: true,
		},
		{
			name: "threshold too high",
			config: TranscribeConfig{
				Engine:       "auto",
				VADThreshold: 1.5,
				WindowSize:   0.5,
			},
			wantErr: true,
		},
		{
			name: "negative threshold",
			config: TranscribeConfig{
				Engine:       "auto",
				VADThreshold: -0.1,
				WindowSize:   0.5,
			},
			wantErr: true,
		},
		{
			name: "overlap must be smaller than window",
			config: TranscribeConfig{
				Engine:        "auto",
				WindowSize:    0.5,
				BufferOverlap: 0.5,
			},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateTranscribeConfig(&tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateTranscribeConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateLoggingConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  LoggingConfig
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  LoggingConfig{Level: "info", Format: "json", Output: "console"},
			wantErr: false,
		},
		{
			name:    "invalid log level",
			config:  LoggingConfig{Level: "verbose", Format: "json", Output: "console"},
			wantErr: true,
		},
		{
			name:    "invalid format",
			config:  LoggingConfig{Level: "info", Format: "xml", Output: "console"},
			wantErr: true,
		},
		{
			name:    "invalid output",
			config:  LoggingConfig{Level: "info", Format: "json", Output: "database"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateLoggingConfig(&tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateLoggingConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestValidateAudioConfig(t *testing.T) {
	tests := []struct {
		name    string
		config  AudioConfig
		wantErr bool
	}{
		{
			name:    "valid config",
			config:  AudioConfig{SampleRate: 16000, Encoding: "float32"},
			wantErr: false,
		},
		{
			name:    "invalid sample rate",
			config:  AudioConfig{SampleRate: 0, Encoding: "float32"},
			wantErr: true,
		},
		{
			name:    "invalid encoding",
			config:  AudioConfig{SampleRate: 16000, Encoding: "alaw"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateAudioConfig(&tt.config)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateAudioConfig() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestContainsString(t *testing.T) {
	slice := []string{"apple", "banana", "cherry"}

	if !containsString(slice, "banana") {
		t.Error("containsString should return true for 'banana'")
	}
	if containsString(slice, "orange") {
		t.Error("containsString should return false for 'orange'")
	}
	if containsString(nil, "apple") {
		t.Error("containsString should return false for nil slice")
	}
}

func TestValidate(t *testing.T) {
	validConfig := &Config{
		Server: ServerConfig{
			Port:           8080,
			Host:           "0.0.0.0",
			MaxConnections: 1000,
			ReadTimeout:    30,
		},
		Audio: AudioConfig{
			SampleRate: 16000,
			Encoding:   "float32",
		},
		Transcribe: TranscribeConfig{
			Engine:        "auto",
			VADThreshold:  0.3,
			WindowSize:    0.5,
			BufferOverlap: 0.25,
		},
		Recognition: RecognitionConfig{
			Priority: []string{"whisper", "kaldi-streaming", "cloud-http"},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "console",
		},
		Worker: WorkerConfig{
			MaxRecognitionWorkers: 10,
		},
	}

	if err := Validate(validConfig); err != nil {
		t.Errorf("Validate() should pass for valid config, got error: %v", err)
	}
}

func TestDefaultValues(t *testing.T) {
	if DefaultServerPort <= 0 || DefaultServerPort > 65535 {
		t.Errorf("DefaultServerPort is invalid: %d", DefaultServerPort)
	}
	if DefaultSampleRate <= 0 {
		t.Errorf("DefaultSampleRate is invalid: %d", DefaultSampleRate)
	}
	if DefaultVADThreshold < 0 || DefaultVADThreshold > 1 {
		t.Errorf("DefaultVADThreshold is invalid: %f", DefaultVADThreshold)
	}
	if DefaultBufferOverlap >= DefaultWindowSize {
		t.Errorf("DefaultBufferOverlap (%f) must be smaller than DefaultWindowSize (%f)", DefaultBufferOverlap, DefaultWindowSize)
	}
}

func TestConfigAddr(t *testing.T) {
	cfg := &Config{Server: ServerConfig{Host: "localhost", Port: 8080}}
	expected := "localhost:8080"
	if got := cfg.Addr(); got != expected {
		t.Errorf("Config.Addr() = %q, want %q", got, expected)
	}
}

func TestMustLoadPanicsOnError(t *testing.T) {
	defer func() {
		if r := recover(); r == nil {
			t.Errorf("MustLoad should panic on non-existent config file")
		}
	}()
	_ = MustLoad("/non/existent/path/config.json")
}

func TestMask(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"very short string", "ab", "****"},
		{"short string (4 chars)", "abcd", "****"},
		{"medium string", "password123", "pa*******23"},
		{"long string", "mysupersecreteapikey", "my****************ey"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := Mask(tt.input); result != tt.expected {
				t.Errorf("Mask(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestMaskWithLength(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"empty string", "", ""},
		{"short string", "abc", "[MASKED:3]"},
		{"longer string", "mysecretpassword", "[MASKED:16]"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if result := MaskWithLength(tt.input); result != tt.expected {
				t.Errorf("MaskWithLength(%q) = %q, want %q", tt.input, result, tt.expected)
			}
		})
	}
}

func TestIsSensitiveKey(t *testing.T) {
	tests := []struct {
		key      string
		expected bool
	}{
		{"password", true},
		{"Password", true},
		{"PASSWORD", true},
		{"user_password", true},
		{"db_passwd", true},
		{"api_key", true},
		{"apikey", true},
		{"secret_token", true},
		{"auth_token", true},
		{"private_key", true},
		{"credential", true},
		{"username", false},
		{"email", false},
		{"host", false},
		{"port", false},
		{"timeout", false},
		{"model_path", false},
	}

	for _, tt := range tests {
		t.Run(tt.key, func(t *testing.T) {
			if result := IsSensitiveKey(tt.key); result != tt.expected {
				t.Errorf("IsSensitiveKey(%q) = %v, want %v", tt.key, result, tt.expected)
			}
		})
	}
}

func TestPrintCompact(t *testing.T) {
	cfg := &Config{
		Server:     ServerConfig{Host: "localhost", Port: 8080},
		Transcribe: TranscribeConfig{Engine: "auto"},
		Worker:     WorkerConfig{MaxRecognitionWorkers: 10},
		Logging:    LoggingConfig{Level: "info"},
	}

	result := cfg.PrintCompact()
	expected := "server=localhost:8080 engine=auto workers=10 log=info"
	if result != expected {
		t.Errorf("PrintCompact() = %q, want %q", result, expected)
	}
}

func TestToSafeMap(t *testing.T) {
	cfg := &Config{
		Server:     ServerConfig{Host: "localhost", Port: 8080},
		Transcribe: TranscribeConfig{Engine: "auto"},
	}

	safeMap := cfg.ToSafeMap()

	serverMap, ok := safeMap["server"].(map[string]interface{})
	if !ok {
		t.Fatal("server key not found or wrong type")
	}
	if serverMap["host"] != "localhost" {
		t.Errorf("server.host = %v, want localhost", serverMap["host"])
	}
	if serverMap["port"] != 8080 {
		t.Errorf("server.port = %v, want 8080", serverMap["port"])
	}
}

func TestToSafeMapMasksCloudAPIKey(t *testing.T) {
	cfg := &Config{
		Recognition: RecognitionConfig{
			Cloud: CloudEngineConfig{APIKey: "supersecretvalue1234"},
		},
	}
	safeMap := cfg.ToSafeMap()
	recMap := safeMap["recognition"].(map[string]interface{})
	if recMap["cloud_api_key"] == cfg.Recognition.Cloud.APIKey {
		t.Error("expected cloud API key to be masked in ToSafeMap output")
	}
}
