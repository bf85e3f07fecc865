// =============================================================================
// 📦 WarmFlow 默认配置
// =============================================================================
// 提供所有配置项的合理默认值
// =============================================================================
package config

import "time"

// DefaultConfig 返回默认配置
func DefaultConfig() *Config {
	return &Config{
		Server:    DefaultServerConfig(),
		LiveKit:   DefaultLiveKitConfig(),
		LLM:       DefaultLLMConfig(),
		Transfer:  DefaultTransferConfig(),
		Log:       DefaultLogConfig(),
		Telemetry: DefaultTelemetryConfig(),
	}
}

// DefaultServerConfig 返回默认服务器配置
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		HTTPPort:        8080,
		MetricsPort:     9091,
		ReadTimeout:     30 * time.Second,
		WriteTimeout:    30 * time.Second,
		ShutdownTimeout: 15 * time.Second,
		RateLimitRPS:    100,
		RateLimitBurst:  200,
		CORSOrigins:     []string{"*"},
	}
}

// DefaultLiveKitConfig 返回默认 LiveKit 配置
func DefaultLiveKitConfig() LiveKitConfig {
	return LiveKitConfig{
		URL:          "ws://localhost:7880",
		Timeout:      10 * time.Second,
		EmptyTimeout: 300,
	}
}

// DefaultLLMConfig 返回默认 LLM 配置
func DefaultLLMConfig() LLMConfig {
	return LLMConfig{
		Provider:    "openai",
		Timeout:     30 * time.Second,
		MaxTokens:   500,
		Temperature: 0.3,
	}
}

// DefaultTransferConfig 返回默认转接配置
func DefaultTransferConfig() TransferConfig {
	return TransferConfig{
		TokenTTL:             2 * time.Hour,
		SessionTTL:           time.Hour,
		ReapInterval:         time.Minute,
		SummaryTTL:           24 * time.Hour,
		BriefingRoomCapacity: 2,
	}
}

// DefaultLogConfig 返回默认日志配置
func DefaultLogConfig() LogConfig {
	return LogConfig{
		Level:            "info",
		Format:           "json",
		OutputPaths:      []string{"stdout"},
		EnableCaller:     true,
		EnableStacktrace: false,
	}
}

// DefaultTelemetryConfig 返回默认遥测配置
func DefaultTelemetryConfig() TelemetryConfig {
	return TelemetryConfig{
		Enabled:      false,
		OTLPEndpoint: "localhost:4317",
		ServiceName:  "warmflow",
		SampleRate:   0.1,
	}
}
