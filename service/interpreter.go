package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"inbox-triage/model"
	"inbox-triage/utils"
)

// 推理服务的固定系统指令和输出结构提示，逐字节保持契约
const (
	SystemInstruction = "Respond with JSON only. When unsure, prefer false values and LOW confidence."
	SchemaHint        = `{"handoff":{"is_handoff":bool,"type":"phone|email|website|in_person|other|null","confidence":"HIGH|MEDIUM|LOW","evidence":string},"deferred":{"is_deferred":bool,"bucket":"EXACT_DATE|NEXT_WEEK|NEXT_MONTH|NEXT_QUARTER|AFTER_HOLIDAYS|SOMETIME_LATER|null","due_date_iso":"YYYY-MM-DD|null","confidence":"HIGH|MEDIUM|LOW","evidence":string}}`
)

// 提示词长度上限的钳位区间和默认值
const (
	promptLimitDefault = 1000
	promptLimitMin     = 200
	promptLimitMax     = 5000
)

// 上下文摘要：取最近几条历史消息，每条裁到120字符
const (
	digestWindowDefault = 3
	digestClipChars     = 120
	digestSeparator     = " | "
)

var (
	ErrInvalidInterpretation = errors.New("invalid interpretation")
	ErrFixtureMissing        = errors.New("fixture missing")
)

// 交接意图关键词：电话、联系方式类表述
var handoffKeywords = []string{
	"call me", "phone", "my number", "text me", "reach me",
	"contact me", "whatsapp", "email me", "give me a call",
}

// 延期意图关键词：相对时间类表述
var deferralKeywords = []string{
	"later", "next week", "next month", "after the holidays",
	"in a few", "not right now", "sometime", "maybe next", "busy right now",
}

var dueDatePattern = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)

// FixtureLookup 按内容哈希读取预录制判读结果，以能力注入保证可测性
type FixtureLookup func(hash string) (*model.AiInterpretation, error)

// InferenceRunner 外部推理能力，live模式下由aiclient提供
type InferenceRunner interface {
	Run(ctx context.Context, modelID string, payload model.InferencePayload) ([]byte, error)
}

// Interpreter 歧义判读器：门控、提示词构造、执行、输出校验
type Interpreter struct {
	cfg      model.AiConfig
	modelID  string
	timeout  time.Duration
	runner   InferenceRunner
	fixtures FixtureLookup
}

func NewInterpreter(cfg model.AiConfig, modelID string, timeout time.Duration, runner InferenceRunner, fixtures FixtureLookup) *Interpreter {
	return &Interpreter{
		cfg:      cfg,
		modelID:  modelID,
		timeout:  timeout,
		runner:   runner,
		fixtures: fixtures,
	}
}

// ShouldRunAi 门控：关键词粗筛加硬信号短路，决定是否值得花一次推理
func ShouldRunAi(text string, features model.MessageFeatures, mode model.AiMode) model.GateResult {
	if mode == model.AiModeOff {
		return model.GateResult{Reason: model.SkipAiDisabled}
	}

	norm := utils.NormalizeText(text)
	if norm == "" {
		return model.GateResult{Reason: model.SkipEmptyMessage}
	}

	handoffHit := containsAny(norm, handoffKeywords)
	deferralHit := containsAny(norm, deferralKeywords)
	if !handoffHit && !deferralHit {
		return model.GateResult{Reason: model.SkipKeywordGate}
	}

	// 硬信号已覆盖的疑点不再花推理：已有电话/邮箱则交接无需判读，已有日期线索则延期无需判读
	needsHandoff := handoffHit && !features.HasPhone && !features.HasEmail
	needsDeferred := deferralHit && !features.HasDeferralDateHint
	if !needsHandoff && !needsDeferred {
		return model.GateResult{Reason: model.SkipHardSignalPresent}
	}

	return model.GateResult{Run: true, NeedsHandoff: needsHandoff, NeedsDeferred: needsDeferred}
}

// BuildPrompt 构造提示词：按配置上限截断，返回是否发生截断
func (i *Interpreter) BuildPrompt(text string) (string, bool) {
	limit := i.cfg.PromptCharLimit
	if limit == 0 {
		limit = promptLimitDefault
	}
	limit = utils.ClampInt(limit, promptLimitMin, promptLimitMax)
	return utils.TruncateText(text, limit)
}

// BuildContextDigest 把最近几条历史消息压成一行摘要，帮助推理消解代词和省略
func (i *Interpreter) BuildContextDigest(msgs []model.ContextMessage) string {
	window := i.cfg.ContextWindow
	if window <= 0 {
		window = digestWindowDefault
	}
	if len(msgs) > window {
		msgs = msgs[len(msgs)-window:]
	}

	parts := make([]string, 0, len(msgs))
	for _, m := range msgs {
		tag := "OUT"
		if m.Direction == model.DirectionInbound {
			tag = "IN"
		}
		clipped, _ := utils.TruncateText(utils.NormalizeText(m.Text), digestClipChars)
		parts = append(parts, tag+": "+clipped)
	}
	return strings.Join(parts, digestSeparator)
}

// Interpret 按配置模式执行一次判读，输出统一走校验
func (i *Interpreter) Interpret(ctx context.Context, input model.AiAttemptInput, gate model.GateResult, inputHash string) (*model.AiInterpretation, error) {
	switch i.cfg.Mode {
	case model.AiModeMock:
		return i.mockInterpret(input, gate)
	case model.AiModeFixture:
		return i.fixtureInterpret(inputHash)
	case model.AiModeLive:
		return i.liveInterpret(ctx, input)
	default:
		return nil, fmt.Errorf("unsupported ai mode: %s", i.cfg.Mode)
	}
}

// mockInterpret 确定性关键词启发式，测试和固定数据生成用，不外呼
func (i *Interpreter) mockInterpret(input model.AiAttemptInput, gate model.GateResult) (*model.AiInterpretation, error) {
	norm := utils.NormalizeText(input.Text)

	handoff := &model.HandoffInterpretation{Confidence: string(model.ConfidenceLow)}
	if gate.NeedsHandoff {
		if kw := firstMatch(norm, handoffKeywords); kw != "" {
			handoff.IsHandoff = true
			handoff.Confidence = string(model.ConfidenceMedium)
			handoff.Evidence = utils.ClampEvidence(kw)
			typ := mockHandoffType(kw)
			handoff.Type = &typ
		}
	}

	deferred := &model.DeferredInterpretation{Confidence: string(model.ConfidenceLow)}
	if gate.NeedsDeferred {
		if kw := firstMatch(norm, deferralKeywords); kw != "" {
			deferred.IsDeferred = true
			deferred.Confidence = string(model.ConfidenceMedium)
			deferred.Evidence = utils.ClampEvidence(kw)
			bucket := mockDeferralBucket(kw)
			deferred.Bucket = &bucket
		}
	}

	out := &model.AiInterpretation{Handoff: handoff, Deferred: deferred}
	if err := ValidateInterpretation(out); err != nil {
		return nil, err
	}
	return out, nil
}

// fixtureInterpret 按哈希读预录制结果，缺失即硬失败，只用于确定性回放场景
func (i *Interpreter) fixtureInterpret(inputHash string) (*model.AiInterpretation, error) {
	if i.fixtures == nil {
		return nil, fmt.Errorf("%w: no fixture lookup configured", ErrFixtureMissing)
	}
	interp, err := i.fixtures(inputHash)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrFixtureMissing, inputHash, err)
	}
	if err := ValidateInterpretation(interp); err != nil {
		return nil, err
	}
	return interp, nil
}

// liveInterpret 真实外呼，超时由context强制终止
func (i *Interpreter) liveInterpret(ctx context.Context, input model.AiAttemptInput) (*model.AiInterpretation, error) {
	prompt, _ := i.BuildPrompt(input.Text)
	payload := model.InferencePayload{
		System:        SystemInstruction,
		Prompt:        prompt,
		ContextDigest: i.BuildContextDigest(input.Context),
		Features:      input.Features,
		SchemaHint:    SchemaHint,
		PromptVersion: i.cfg.PromptVersion,
	}

	callCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()

	raw, err := i.runner.Run(callCtx, i.modelID, payload)
	if err != nil {
		return nil, err
	}
	return ParseInterpretation(raw)
}

// ParseInterpretation 解析并校验推理服务的原始输出
func ParseInterpretation(raw []byte) (*model.AiInterpretation, error) {
	var interp model.AiInterpretation
	if err := json.Unmarshal(raw, &interp); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInterpretation, err)
	}
	if err := ValidateInterpretation(&interp); err != nil {
		return nil, err
	}
	return &interp, nil
}

// ValidateInterpretation 严格校验：枚举值大小写敏感，日期必须是真实存在的日子
// 任何违规都返回错误而不是修正，证据字段例外，超长只裁剪
func ValidateInterpretation(interp *model.AiInterpretation) error {
	if interp == nil || interp.Handoff == nil || interp.Deferred == nil {
		return fmt.Errorf("%w: missing handoff or deferred", ErrInvalidInterpretation)
	}

	if !validConfidence(interp.Handoff.Confidence) {
		return fmt.Errorf("%w: handoff confidence %q", ErrInvalidInterpretation, interp.Handoff.Confidence)
	}
	if !validConfidence(interp.Deferred.Confidence) {
		return fmt.Errorf("%w: deferred confidence %q", ErrInvalidInterpretation, interp.Deferred.Confidence)
	}

	if t := interp.Handoff.Type; t != nil {
		switch *t {
		case model.HandoffTypePhone, model.HandoffTypeEmail, model.HandoffTypeWebsite,
			model.HandoffTypeInPerson, model.HandoffTypeOther:
		default:
			return fmt.Errorf("%w: handoff type %q", ErrInvalidInterpretation, *t)
		}
	}

	if b := interp.Deferred.Bucket; b != nil {
		switch *b {
		case model.BucketExactDate, model.BucketNextWeek, model.BucketNextMonth,
			model.BucketNextQuarter, model.BucketAfterHolidays, model.BucketSometimeLater:
		default:
			return fmt.Errorf("%w: deferred bucket %q", ErrInvalidInterpretation, *b)
		}
	}

	if d := interp.Deferred.DueDateISO; d != nil {
		if !dueDatePattern.MatchString(*d) {
			return fmt.Errorf("%w: due_date_iso %q", ErrInvalidInterpretation, *d)
		}
		if _, err := time.Parse("2006-01-02", *d); err != nil {
			return fmt.Errorf("%w: due_date_iso %q", ErrInvalidInterpretation, *d)
		}
	}

	interp.Handoff.Evidence = utils.ClampEvidence(interp.Handoff.Evidence)
	interp.Deferred.Evidence = utils.ClampEvidence(interp.Deferred.Evidence)
	return nil
}

func validConfidence(c string) bool {
	switch model.Confidence(c) {
	case model.ConfidenceHigh, model.ConfidenceMedium, model.ConfidenceLow:
		return true
	}
	return false
}

func containsAny(text string, keywords []string) bool {
	return firstMatch(text, keywords) != ""
}

func firstMatch(text string, keywords []string) string {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return kw
		}
	}
	return ""
}

func mockHandoffType(keyword string) string {
	switch {
	case strings.Contains(keyword, "email"):
		return model.HandoffTypeEmail
	case strings.Contains(keyword, "whatsapp"), strings.Contains(keyword, "call"),
		strings.Contains(keyword, "phone"), strings.Contains(keyword, "number"),
		strings.Contains(keyword, "text"):
		return model.HandoffTypePhone
	default:
		return model.HandoffTypeOther
	}
}

func mockDeferralBucket(keyword string) string {
	switch keyword {
	case "next week":
		return model.BucketNextWeek
	case "next month", "maybe next":
		return model.BucketNextMonth
	case "after the holidays":
		return model.BucketAfterHolidays
	default:
		return model.BucketSometimeLater
	}
}
