package model

import (
	"encoding/json"
)

// 置信度：按证据强度排序，仅用于展示和过滤，不做数值比较
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// 会话生命周期状态
type ConversationState string

const (
	StateNew              ConversationState = "NEW"
	StateEngaged          ConversationState = "ENGAGED"
	StateProductive       ConversationState = "PRODUCTIVE"
	StateHighlyProductive ConversationState = "HIGHLY_PRODUCTIVE"
	StatePriceGiven       ConversationState = "PRICE_GIVEN"
	StateDeferred         ConversationState = "DEFERRED"
	StateOffPlatform      ConversationState = "OFF_PLATFORM"
	StateConverted        ConversationState = "CONVERTED"
	// RESURRECTED 只能由外部人工操作带入，状态机本身不会产出
	StateResurrected ConversationState = "RESURRECTED"
	StateLost        ConversationState = "LOST"
	StateSpam        ConversationState = "SPAM"
)

// IsTerminal 终态判定：终态在同一次评估内清空所有跟进字段
func (s ConversationState) IsTerminal() bool {
	return s == StateConverted || s == StateLost || s == StateSpam
}

// 跟进到期时间的来源：区分客户自己说的时间和系统兜底的SLA时间
type FollowupDueSource string

const (
	DueSourceCustomerIntent FollowupDueSource = "customer_intent"
	DueSourceDefault        FollowupDueSource = "default"
	DueSourceUnknown        FollowupDueSource = "unknown"
	DueSourceNone           FollowupDueSource = ""
)

// 状态判定原因码
type ReasonCode string

const (
	ReasonOptOut                   ReasonCode = "OPT_OUT"
	ReasonBlockedByRecipient       ReasonCode = "BLOCKED_BY_RECIPIENT"
	ReasonBounced                  ReasonCode = "BOUNCED"
	ReasonExplicitRejection        ReasonCode = "EXPLICIT_REJECTION"
	ReasonExplicitLost             ReasonCode = "EXPLICIT_LOST"
	ReasonSpamPhrase               ReasonCode = "SPAM_PHRASE"
	ReasonSpamContent              ReasonCode = "SPAM_CONTENT"
	ReasonPriceRejection           ReasonCode = "PRICE_REJECTION"
	ReasonWaitToProceed            ReasonCode = "WAIT_TO_PROCEED"
	ReasonIndefiniteDeferral       ReasonCode = "INDEFINITE_DEFERRAL"
	ReasonConversionPhrase         ReasonCode = "CONVERSION_PHRASE"
	ReasonLossPhrase               ReasonCode = "LOSS_PHRASE"
	ReasonAiDeferred               ReasonCode = "AI_DEFERRED"
	ReasonDeferralPhrase           ReasonCode = "DEFERRAL_PHRASE"
	ReasonDeferralSeasonParsed     ReasonCode = "DEFERRAL_SEASON_PARSED"
	ReasonPriceMention             ReasonCode = "PRICE_MENTION"
	ReasonOffPlatformNoContactInfo ReasonCode = "OFF_PLATFORM_NO_CONTACT_INFO"
	ReasonOffPlatformStale         ReasonCode = "OFF_PLATFORM_STALE"
	ReasonInboundStale             ReasonCode = "INBOUND_STALE"
	ReasonLostInactiveTimeout      ReasonCode = "LOST_INACTIVE_TIMEOUT"
	ReasonPriceRejectionStale      ReasonCode = "PRICE_REJECTION_STALE"
	ReasonPriceStale               ReasonCode = "PRICE_STALE"
	ReasonUnreplied                ReasonCode = "UNREPLIED"
	ReasonSLABreach                ReasonCode = "SLA_BREACH"
)

// Reason 判定原因：裸码或带置信度/证据的结构化原因
// JSON序列化时裸码输出为字符串，结构化原因输出为对象，与下游消费方的历史格式保持兼容
type Reason struct {
	Code       ReasonCode `json:"code"`
	Confidence Confidence `json:"confidence,omitempty"`
	Evidence   string     `json:"evidence,omitempty"`
}

// NewReason 构造裸原因码
func NewReason(code ReasonCode) Reason {
	return Reason{Code: code}
}

// NewEvidencedReason 构造结构化原因
func NewEvidencedReason(code ReasonCode, conf Confidence, evidence string) Reason {
	return Reason{Code: code, Confidence: conf, Evidence: evidence}
}

// IsBare 是否为裸原因码
func (r Reason) IsBare() bool {
	return r.Confidence == "" && r.Evidence == ""
}

type structuredReason struct {
	Code       ReasonCode `json:"code"`
	Confidence Confidence `json:"confidence,omitempty"`
	Evidence   string     `json:"evidence,omitempty"`
}

func (r Reason) MarshalJSON() ([]byte, error) {
	if r.IsBare() {
		return json.Marshal(string(r.Code))
	}
	return json.Marshal(structuredReason{Code: r.Code, Confidence: r.Confidence, Evidence: r.Evidence})
}

func (r *Reason) UnmarshalJSON(data []byte) error {
	var code string
	if err := json.Unmarshal(data, &code); err == nil {
		*r = Reason{Code: ReasonCode(code)}
		return nil
	}
	var sr structuredReason
	if err := json.Unmarshal(data, &sr); err != nil {
		return err
	}
	*r = Reason{Code: sr.Code, Confidence: sr.Confidence, Evidence: sr.Evidence}
	return nil
}

// HasReason 原因列表中是否已包含某原因码
func HasReason(reasons []Reason, code ReasonCode) bool {
	for _, r := range reasons {
		if r.Code == code {
			return true
		}
	}
	return false
}

// StripReasons 移除指定原因码，其余保持原有顺序
func StripReasons(reasons []Reason, codes ...ReasonCode) []Reason {
	drop := make(map[ReasonCode]bool, len(codes))
	for _, c := range codes {
		drop[c] = true
	}
	out := make([]Reason, 0, len(reasons))
	for _, r := range reasons {
		if !drop[r.Code] {
			out = append(out, r)
		}
	}
	return out
}
