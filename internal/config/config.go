// Package config 提供配置加载和管理功能
package config

import (
	"time"
)

// Config 应用配置根结构
type Config struct {
	App           AppConfig           `yaml:"app" mapstructure:"app"`
	Server        ServerConfig        `yaml:"server" mapstructure:"server"`
	Cache         CacheConfig         `yaml:"cache" mapstructure:"cache"`
	LLM           LLMConfig           `yaml:"llm" mapstructure:"llm"`
	Chart         ChartConfig         `yaml:"chart" mapstructure:"chart"`
	Ephemeris     EphemerisConfig     `yaml:"ephemeris" mapstructure:"ephemeris"`
	Geocoding     GeocodingConfig     `yaml:"geocoding" mapstructure:"geocoding"`
	Persona       PersonaConfig       `yaml:"persona" mapstructure:"persona"`
	Orchestration OrchestrationConfig `yaml:"orchestration" mapstructure:"orchestration"`
	Session       SessionConfig       `yaml:"session" mapstructure:"session"`
	Observability ObservabilityConfig `yaml:"observability" mapstructure:"observability"`
	Security      SecurityConfig      `yaml:"security" mapstructure:"security"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name    string `yaml:"name" mapstructure:"name"`
	Version string `yaml:"version" mapstructure:"version"`
	Env     string `yaml:"env" mapstructure:"env"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	HTTP HTTPServerConfig `yaml:"http" mapstructure:"http"`
}

// HTTPServerConfig HTTP 服务器配置
type HTTPServerConfig struct {
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout" mapstructure:"idle_timeout"`
}

// CacheConfig 缓存配置
type CacheConfig struct {
	Redis RedisConfig `yaml:"redis" mapstructure:"redis"`
}

// RedisConfig Redis 配置
type RedisConfig struct {
	// Enabled 关闭时会话与锁退化为进程内实现，人格缓存与限流停用
	Enabled      bool          `yaml:"enabled" mapstructure:"enabled"`
	Host         string        `yaml:"host" mapstructure:"host"`
	Port         int           `yaml:"port" mapstructure:"port"`
	Password     string        `yaml:"password" mapstructure:"password"`
	DB           int           `yaml:"db" mapstructure:"db"`
	PoolSize     int           `yaml:"pool_size" mapstructure:"pool_size"`
	MinIdleConns int           `yaml:"min_idle_conns" mapstructure:"min_idle_conns"`
	DialTimeout  time.Duration `yaml:"dial_timeout" mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `yaml:"read_timeout" mapstructure:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout" mapstructure:"write_timeout"`
}

// LLMConfig LLM 配置
type LLMConfig struct {
	DefaultProvider string                    `yaml:"default_provider" mapstructure:"default_provider"`
	Providers       map[string]ProviderConfig `yaml:"providers" mapstructure:"providers"`
	FallbackChain   []string                  `yaml:"fallback_chain" mapstructure:"fallback_chain"`
}

// ProviderConfig LLM 提供商配置
type ProviderConfig struct {
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
}

// ChartConfig 星盘计算配置
type ChartConfig struct {
	// HouseSystem 宫位制: sun (以太阳星座代替上升) / ascendant (真实上升星座)
	HouseSystem     string `yaml:"house_system" mapstructure:"house_system"`
	DefaultTimezone string `yaml:"default_timezone" mapstructure:"default_timezone"`
}

// EphemerisConfig 星历配置
type EphemerisConfig struct {
	// SpeedStepDays 中心差分求黄经速度的步长（天）
	SpeedStepDays float64 `yaml:"speed_step_days" mapstructure:"speed_step_days"`
}

// GeocodingConfig 地理编码配置
type GeocodingConfig struct {
	BaseURL   string        `yaml:"base_url" mapstructure:"base_url"`
	UserAgent string        `yaml:"user_agent" mapstructure:"user_agent"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Limit     int           `yaml:"limit" mapstructure:"limit"`
}

// PersonaConfig 人格配置
type PersonaConfig struct {
	// Strategy 人格合成策略: layered / voice / archetype
	Strategy    string        `yaml:"strategy" mapstructure:"strategy"`
	Pregenerate bool          `yaml:"pregenerate" mapstructure:"pregenerate"`
	CacheTTL    time.Duration `yaml:"cache_ttl" mapstructure:"cache_ttl"`
	MaxRunes    int           `yaml:"max_runes" mapstructure:"max_runes"`
}

// OrchestrationConfig 编排配置
type OrchestrationConfig struct {
	HistoryWindow            int           `yaml:"history_window" mapstructure:"history_window"`
	MaxMessageRunes          int           `yaml:"max_message_runes" mapstructure:"max_message_runes"`
	MaxResponses             int           `yaml:"max_responses" mapstructure:"max_responses"`
	ThirdResponseProbability float64       `yaml:"third_response_probability" mapstructure:"third_response_probability"`
	Temperature              float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout                  time.Duration `yaml:"timeout" mapstructure:"timeout"`
	Retry                    RetryConfig   `yaml:"retry" mapstructure:"retry"`
}

// WorstCaseDuration 一轮编排在全部重试用尽时的最长耗时，timeout 未配置时返回 0
func (c OrchestrationConfig) WorstCaseDuration() time.Duration {
	if c.Timeout <= 0 {
		return 0
	}
	attempts := time.Duration(c.Retry.MaxAttempts)
	if attempts < 1 {
		attempts = 1
	}
	return c.Timeout*attempts + c.Retry.Max*(attempts-1)
}

// RetryConfig 上游重试配置
type RetryConfig struct {
	MaxAttempts uint          `yaml:"max_attempts" mapstructure:"max_attempts"`
	Initial     time.Duration `yaml:"initial" mapstructure:"initial"`
	Max         time.Duration `yaml:"max" mapstructure:"max"`
	Multiplier  float64       `yaml:"multiplier" mapstructure:"multiplier"`
}

// SessionConfig 会话配置
type SessionConfig struct {
	// Store 会话存储: memory / redis
	Store           string        `yaml:"store" mapstructure:"store"`
	TTL             time.Duration `yaml:"ttl" mapstructure:"ttl"`
	LockWaitTimeout time.Duration `yaml:"lock_wait_timeout" mapstructure:"lock_wait_timeout"`
	LockTTL         time.Duration `yaml:"lock_ttl" mapstructure:"lock_ttl"`
}

// ObservabilityConfig 可观测性配置
type ObservabilityConfig struct {
	Logging LoggingConfig `yaml:"logging" mapstructure:"logging"`
	Tracing TracingConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics MetricsConfig `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig 日志配置
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
	Output string `yaml:"output" mapstructure:"output"`
}

// TracingConfig 追踪配置
type TracingConfig struct {
	Enabled    bool    `yaml:"enabled" mapstructure:"enabled"`
	Exporter   string  `yaml:"exporter" mapstructure:"exporter"`
	Endpoint   string  `yaml:"endpoint" mapstructure:"endpoint"`
	SampleRate float64 `yaml:"sample_rate" mapstructure:"sample_rate"`
}

// MetricsConfig 指标配置
type MetricsConfig struct {
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Port    int    `yaml:"port" mapstructure:"port"`
	Path    string `yaml:"path" mapstructure:"path"`
}

// SecurityConfig 安全配置
type SecurityConfig struct {
	RateLimit RateLimitConfig `yaml:"rate_limit" mapstructure:"rate_limit"`
	CORS      CORSConfig      `yaml:"cors" mapstructure:"cors"`
}

// RateLimitConfig 限流配置
type RateLimitConfig struct {
	Enabled           bool          `yaml:"enabled" mapstructure:"enabled"`
	RequestsPerWindow int           `yaml:"requests_per_window" mapstructure:"requests_per_window"`
	Window            time.Duration `yaml:"window" mapstructure:"window"`
}

// CORSConfig CORS 配置
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins" mapstructure:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods" mapstructure:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers" mapstructure:"allowed_headers"`
}
