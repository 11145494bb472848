package model

import "time"

// AI执行模式
type AiMode string

const (
	AiModeOff     AiMode = "off"
	AiModeMock    AiMode = "mock"
	AiModeFixture AiMode = "fixture"
	AiModeLive    AiMode = "live"
)

// 跳过原因，编排层和门控层共用一套字符串
type SkipReason string

const (
	SkipNone                SkipReason = ""
	SkipAiDisabled          SkipReason = "ai_disabled"
	SkipEmptyMessage        SkipReason = "empty_message"
	SkipKeywordGate         SkipReason = "keyword_gate"
	SkipHardSignalPresent   SkipReason = "hard_signal_present"
	SkipCacheHit            SkipReason = "cache_hit"
	SkipDailyBudgetExceeded SkipReason = "daily_budget_exceeded"
	SkipConvoBudgetExceeded SkipReason = "conversation_budget_exceeded"
)

// 单次尝试的结局分类
type AttemptOutcome string

const (
	OutcomeSkipped     AttemptOutcome = "skipped"
	OutcomeSucceeded   AttemptOutcome = "succeeded"
	OutcomeError       AttemptOutcome = "error"
	OutcomeInvalidJSON AttemptOutcome = "invalid_json"
	OutcomeTimeout     AttemptOutcome = "timeout"
)

// 交接类型枚举，null用空字符串表示
const (
	HandoffTypePhone    = "phone"
	HandoffTypeEmail    = "email"
	HandoffTypeWebsite  = "website"
	HandoffTypeInPerson = "in_person"
	HandoffTypeOther    = "other"
)

// 延期时间段枚举
const (
	BucketExactDate     = "EXACT_DATE"
	BucketNextWeek      = "NEXT_WEEK"
	BucketNextMonth     = "NEXT_MONTH"
	BucketNextQuarter   = "NEXT_QUARTER"
	BucketAfterHolidays = "AFTER_HOLIDAYS"
	BucketSometimeLater = "SOMETIME_LATER"
)

// HandoffInterpretation 交接意图判定
// 字段名和枚举值是与推理服务的外部契约，逐字节保持
type HandoffInterpretation struct {
	IsHandoff  bool    `json:"is_handoff"`
	Type       *string `json:"type"`
	Confidence string  `json:"confidence"`
	Evidence   string  `json:"evidence"`
}

// DeferredInterpretation 延期意图判定
type DeferredInterpretation struct {
	IsDeferred bool    `json:"is_deferred"`
	Bucket     *string `json:"bucket"`
	DueDateISO *string `json:"due_date_iso"`
	Confidence string  `json:"confidence"`
	Evidence   string  `json:"evidence"`
}

// AiInterpretation 推理服务的结构化输出
type AiInterpretation struct {
	Handoff  *HandoffInterpretation  `json:"handoff"`
	Deferred *DeferredInterpretation `json:"deferred"`
}

// MessageFeatures 提取方已确定的硬特征，用于门控判断是否还需要推理
type MessageFeatures struct {
	HasPhone            bool `json:"hasPhone"`
	HasEmail            bool `json:"hasEmail"`
	HasDeferralDateHint bool `json:"hasDeferralDateHint"`
}

// ContextMessage 滚动上下文中的一条历史消息
type ContextMessage struct {
	Direction Direction `json:"direction"`
	Text      string    `json:"text"`
}

// AiAttemptInput 一次歧义消解尝试的输入
type AiAttemptInput struct {
	RunID          string           `json:"run_id,omitempty"`
	ConversationID string           `json:"conversation_id"`
	MessageID      string           `json:"message_id"`
	Text           string           `json:"text"`
	Context        []ContextMessage `json:"context,omitempty"`
	Features       MessageFeatures  `json:"features"`
}

// AiAttemptResult 一次尝试的完整结果
type AiAttemptResult struct {
	AttemptID         string            `json:"attempt_id"`
	InputHash         string            `json:"input_hash"`
	Truncated         bool              `json:"truncated"`
	Interpretation    *AiInterpretation `json:"interpretation"`
	SkippedReason     SkipReason        `json:"skipped_reason,omitempty"`
	Outcome           AttemptOutcome    `json:"outcome"`
	DailyCalls        int64             `json:"daily_calls"`
	ConversationCalls int64             `json:"conversation_calls"`
	CacheHit          bool              `json:"cache_hit"`
}

// GateResult 门控结果：是否调用推理以及还需要消解哪些疑点
type GateResult struct {
	Run           bool       `json:"run"`
	Reason        SkipReason `json:"reason,omitempty"`
	NeedsHandoff  bool       `json:"needs_handoff"`
	NeedsDeferred bool       `json:"needs_deferred"`
}

// BudgetDecision 预算检查结果
type BudgetDecision struct {
	Allowed bool       `json:"allowed"`
	Reason  SkipReason `json:"reason,omitempty"`
}

// InferencePayload 发给推理服务的请求体
type InferencePayload struct {
	System        string          `json:"system"`
	Prompt        string          `json:"prompt"`
	ContextDigest string          `json:"context_digest,omitempty"`
	Features      MessageFeatures `json:"features"`
	SchemaHint    string          `json:"schema_hint"`
	PromptVersion string          `json:"prompt_version"`
}

// AttemptSummary 统计聚合器消费的单次尝试摘要
type AttemptSummary struct {
	Ran            bool
	Outcome        AttemptOutcome
	SkippedReason  SkipReason
	Interpretation *AiInterpretation
}

// AiRunStats 单个同步批次的计数器，批次结束后序列化上报
type AiRunStats struct {
	RunID     string    `json:"run_id"`
	StartedAt time.Time `json:"started_at"`

	Attempted int `json:"attempted"`
	Succeeded int `json:"succeeded"`
	Failed    int `json:"failed"`
	Invalid   int `json:"invalid"`
	Timeout   int `json:"timeout"`

	Skipped map[string]int `json:"skipped"`

	HandoffTrue        int            `json:"handoff_true"`
	DeferredTrue       int            `json:"deferred_true"`
	HandoffConfidence  map[string]int `json:"handoff_confidence"`
	DeferredConfidence map[string]int `json:"deferred_confidence"`
}

// AiRunSummary 压缩上报格式：只保留总量、最高频跳过原因和命中计数
type AiRunSummary struct {
	RunID         string `json:"run_id"`
	Attempted     int    `json:"attempted"`
	Succeeded     int    `json:"succeeded"`
	Failed        int    `json:"failed"`
	TopSkipReason string `json:"top_skip_reason,omitempty"`
	HandoffTrue   int    `json:"handoff_true"`
	DeferredTrue  int    `json:"deferred_true"`
}
