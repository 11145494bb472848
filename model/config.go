package model

// AppConfig 服务配置，config/config.yaml
type AppConfig struct {
	Server     ServerConfig    `yaml:"server"`
	Redis      RedisConfig     `yaml:"redis"`
	Inference  InferenceConfig `yaml:"inference"`
	Ai         AiConfig        `yaml:"ai"`
	Thresholds Thresholds      `yaml:"thresholds"`
}

type ServerConfig struct {
	Addr string `yaml:"addr"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// InferenceConfig 外部推理服务配置
type InferenceConfig struct {
	BaseURL        string `yaml:"base_url"`
	Model          string `yaml:"model"`
	TimeoutSeconds int    `yaml:"timeout_seconds"`
}

// AiConfig 歧义消解相关配置
type AiConfig struct {
	Mode               AiMode `yaml:"mode"`
	PromptVersion      string `yaml:"prompt_version"`
	PromptCharLimit    int    `yaml:"prompt_char_limit"`
	ContextWindow      int    `yaml:"context_window"`
	DailyBudget        int64  `yaml:"daily_budget"`
	ConversationBudget int64  `yaml:"conversation_budget"`
	CacheTTLHours      int    `yaml:"cache_ttl_hours"`
}
