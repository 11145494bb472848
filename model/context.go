package model

import "time"

// 消息方向
type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

// HardSignals 特征提取服务产出的硬信号快照
// 全部是已确定的布尔事实，状态机不做任何文本推断
type HardSignals struct {
	HasOptOut            bool `json:"hasOptOut"`
	IsBlockedByRecipient bool `json:"isBlockedByRecipient"`
	HasDeliveryBounce    bool `json:"hasDeliveryBounce"`

	HasExplicitRejection bool `json:"hasExplicitRejection"`
	// 拒绝之后又有表达继续兴趣的回复，由提取方判定，状态机不自己推断
	HasRejectionRevival bool `json:"hasRejectionRevival"`

	HasPriceRejection        bool `json:"hasPriceRejection"`
	HasPriceRejectionRevival bool `json:"hasPriceRejectionRevival"`

	HasIndefiniteDeferral bool `json:"hasIndefiniteDeferral"`
	HasConcreteDeferral   bool `json:"hasConcreteDeferral"`

	HasConversion bool `json:"hasConversion"`
	HasLossPhrase bool `json:"hasLossPhrase"`

	HasOffPlatform          bool       `json:"hasOffPlatform"`
	OffPlatformReason       ReasonCode `json:"offPlatformReason,omitempty"`
	HasContactInfoExchanged bool       `json:"hasContactInfoExchanged"`

	HasSpamPhrase        bool `json:"hasSpamPhrase"`
	SpamContextConfirmed bool `json:"spamContextConfirmed"`
	HasSpamContent       bool `json:"hasSpamContent"`

	HasPriceMention bool `json:"hasPriceMention"`
}

// Timing 消息计数和时间戳快照
type Timing struct {
	MessageCount         int `json:"messageCount"`
	InboundCount         int `json:"inboundCount"`
	OutboundCount        int `json:"outboundCount"`
	InboundCountNonFinal int `json:"inboundCountNonFinal"`

	LastInboundAt  *time.Time `json:"lastInboundAt,omitempty"`
	LastOutboundAt *time.Time `json:"lastOutboundAt,omitempty"`
	LastMessageAt  *time.Time `json:"lastMessageAt,omitempty"`

	LastNonFinalAt        *time.Time `json:"lastNonFinalAt,omitempty"`
	LastNonFinalDirection Direction  `json:"lastNonFinalDirection,omitempty"`
}

// Deferral 延期信号及推导出的到期时间
type Deferral struct {
	HasDeferral  bool `json:"hasDeferral"`
	FromAI       bool `json:"fromAI"`
	SeasonParsed bool `json:"seasonParsed"`

	DueAt     *time.Time        `json:"dueAt,omitempty"`
	DueSource FollowupDueSource `json:"dueSource,omitempty"`
}

// Thresholds 可调阈值，由配置下发
type Thresholds struct {
	SLAHours                    int `json:"slaHours" yaml:"sla_hours"`
	DueSoonDays                 int `json:"dueSoonDays" yaml:"due_soon_days"`
	LostAfterInactiveDays       int `json:"lostAfterInactiveDays" yaml:"lost_after_inactive_days"`
	LostAfterPriceRejectionDays int `json:"lostAfterPriceRejectionDays" yaml:"lost_after_price_rejection_days"`
	LostAfterDeferralDays       int `json:"lostAfterDeferralDays" yaml:"lost_after_deferral_days"`
	LostAfterPriceDays          int `json:"lostAfterPriceDays" yaml:"lost_after_price_days"`
	LostAfterOffPlatformDays    int `json:"lostAfterOffPlatformDays" yaml:"lost_after_off_platform_days"`
}

// DefaultThresholds 阈值兜底值，配置缺省时使用
func DefaultThresholds() Thresholds {
	return Thresholds{
		SLAHours:                    24,
		DueSoonDays:                 2,
		LostAfterInactiveDays:       21,
		LostAfterPriceRejectionDays: 14,
		LostAfterDeferralDays:       30,
		LostAfterPriceDays:          10,
		LostAfterOffPlatformDays:    14,
	}
}

// ExplicitLostCandidate 提取方预判的高优先级丢单信号（如勿扰表述）
// 带自己的置信度和证据，状态机按原样采纳
type ExplicitLostCandidate struct {
	Code       ReasonCode `json:"code,omitempty"`
	Confidence Confidence `json:"confidence"`
	Evidence   string     `json:"evidence,omitempty"`
	MessageID  string     `json:"messageId,omitempty"`
}

// InboxStateMachineContext 一次评估的全部输入快照，评估期间不可变
type InboxStateMachineContext struct {
	ConversationID string `json:"conversationId,omitempty"`

	// 评估时刻，由调用方注入，保证评估是输入的纯函数
	EvaluatedAt time.Time `json:"evaluatedAt"`

	PrevState ConversationState `json:"prevState,omitempty"`

	Signals       HardSignals            `json:"signals"`
	Timing        Timing                 `json:"timing"`
	Deferral      Deferral               `json:"deferral"`
	Thresholds    Thresholds             `json:"thresholds"`
	LostCandidate *ExplicitLostCandidate `json:"explicitLostCandidate,omitempty"`
}

// InboxStateMachineResult 状态机输出，是Context的纯函数
type InboxStateMachineResult struct {
	State      ConversationState `json:"state"`
	Confidence Confidence        `json:"confidence"`
	Reasons    []Reason          `json:"reasons"`

	FollowupDueAt      *time.Time        `json:"followupDueAt"`
	FollowupDueSource  FollowupDueSource `json:"followupDueSource"`
	FollowupSuggestion string            `json:"followupSuggestion,omitempty"`
	NeedsFollowup      bool              `json:"needsFollowup"`

	StateTriggerMessageID string `json:"stateTriggerMessageId,omitempty"`
}
