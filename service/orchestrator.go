package service

import (
	"context"
	"errors"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"inbox-triage/model"
	"inbox-triage/utils"
)

// InterpretationCache 判读结果缓存，键是输入哈希，未命中返回nil而不是错误
type InterpretationCache interface {
	GetInterpretation(ctx context.Context, hash string) (*model.AiInterpretation, error)
	SaveInterpretation(ctx context.Context, hash string, interp *model.AiInterpretation) error
}

// BudgetCounter 按天和按会话的调用计数
// CheckAndIncr 必须原子完成检查加自增，并发评估不能同时挤过预算线
type BudgetCounter interface {
	Counts(ctx context.Context, day, conversationID string) (daily, convo int64, err error)
	CheckAndIncr(ctx context.Context, day, conversationID string, dailyLimit, convoLimit int64) (model.BudgetDecision, int64, int64, error)
	Incr(ctx context.Context, day, conversationID string) (daily, convo int64, err error)
}

// Orchestrator 把判读器包进缓存、预算和结局分类
type Orchestrator struct {
	cfg         model.AiConfig
	modelID     string
	interpreter *Interpreter
	cache       InterpretationCache
	budget      BudgetCounter
}

func NewOrchestrator(cfg model.AiConfig, modelID string, interpreter *Interpreter, cache InterpretationCache, budget BudgetCounter) *Orchestrator {
	return &Orchestrator{
		cfg:         cfg,
		modelID:     modelID,
		interpreter: interpreter,
		cache:       cache,
		budget:      budget,
	}
}

// ShouldAllowAiCall 预算检查：先看当天总量，再看单会话用量
func ShouldAllowAiCall(dailyCalls, convoCalls, dailyLimit, convoLimit int64) model.BudgetDecision {
	if dailyLimit > 0 && dailyCalls >= dailyLimit {
		return model.BudgetDecision{Reason: model.SkipDailyBudgetExceeded}
	}
	if convoLimit > 0 && convoCalls >= convoLimit {
		return model.BudgetDecision{Reason: model.SkipConvoBudgetExceeded}
	}
	return model.BudgetDecision{Allowed: true}
}

// RunAmbiguityAttempt 执行一次歧义消解尝试
// 失败不上抛：任何错误都折叠成结果里的结局分类，调用方把缺失的判读视为"无法确定"
func (o *Orchestrator) RunAmbiguityAttempt(ctx context.Context, input model.AiAttemptInput) model.AiAttemptResult {
	prompt, truncated := o.interpreter.BuildPrompt(input.Text)
	digest := o.interpreter.BuildContextDigest(input.Context)
	hash := utils.HashInput(utils.NormalizeText(prompt), o.cfg.PromptVersion, o.modelID, digest)

	result := model.AiAttemptResult{
		AttemptID: uuid.New().String(),
		InputHash: hash,
		Truncated: truncated,
	}

	gate := ShouldRunAi(input.Text, input.Features, o.cfg.Mode)
	if !gate.Run {
		result.SkippedReason = gate.Reason
		result.Outcome = model.OutcomeSkipped
		return result
	}

	day := time.Now().UTC().Format("2006-01-02")

	// 缓存命中直接复用，不动预算计数
	if cached, err := o.cache.GetInterpretation(ctx, hash); err != nil {
		log.Printf("[Orchestrator] cache read error hash=%s: %v", hash, err)
	} else if cached != nil {
		result.Interpretation = cached
		result.CacheHit = true
		result.SkippedReason = model.SkipCacheHit
		result.Outcome = model.OutcomeSkipped
		result.DailyCalls, result.ConversationCalls, _ = o.budget.Counts(ctx, day, input.ConversationID)
		return result
	}

	if o.cfg.Mode == model.AiModeLive {
		// live路径先扣预算再外呼，并发尝试不会重复挤过预算线
		decision, daily, convo, err := o.budget.CheckAndIncr(ctx, day, input.ConversationID, o.cfg.DailyBudget, o.cfg.ConversationBudget)
		if err != nil {
			log.Printf("[Orchestrator] budget check error conversation=%s: %v", input.ConversationID, err)
			result.Outcome = model.OutcomeError
			return result
		}
		result.DailyCalls, result.ConversationCalls = daily, convo
		if !decision.Allowed {
			result.SkippedReason = decision.Reason
			result.Outcome = model.OutcomeSkipped
			return result
		}
	} else {
		daily, convo, err := o.budget.Counts(ctx, day, input.ConversationID)
		if err != nil {
			log.Printf("[Orchestrator] budget read error conversation=%s: %v", input.ConversationID, err)
		}
		result.DailyCalls, result.ConversationCalls = daily, convo
		decision := ShouldAllowAiCall(daily, convo, o.cfg.DailyBudget, o.cfg.ConversationBudget)
		if !decision.Allowed {
			result.SkippedReason = decision.Reason
			result.Outcome = model.OutcomeSkipped
			return result
		}
	}

	interp, err := o.interpreter.Interpret(ctx, input, gate, hash)
	if err != nil {
		result.Outcome = classifyFailure(err)
		log.Printf("[Orchestrator] attempt %s conversation=%s outcome=%s: %v",
			result.AttemptID, input.ConversationID, result.Outcome, err)
		return result
	}

	// mock和fixture不产生外部计费，成功后才计数
	if o.cfg.Mode != model.AiModeLive {
		if daily, convo, err := o.budget.Incr(ctx, day, input.ConversationID); err == nil {
			result.DailyCalls, result.ConversationCalls = daily, convo
		}
	}

	// 重复写同一个哈希是幂等的，写失败只记日志
	if err := o.cache.SaveInterpretation(ctx, hash, interp); err != nil {
		log.Printf("[Orchestrator] cache write error hash=%s: %v", hash, err)
	}

	result.Interpretation = interp
	result.Outcome = model.OutcomeSucceeded
	return result
}

// classifyFailure 失败结局分类：超时、无效输出、其余归为一般错误
func classifyFailure(err error) model.AttemptOutcome {
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return model.OutcomeTimeout
	}
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "abort") || strings.Contains(msg, "timeout") {
		return model.OutcomeTimeout
	}
	if errors.Is(err, ErrInvalidInterpretation) || strings.Contains(msg, "invalid") {
		return model.OutcomeInvalidJSON
	}
	return model.OutcomeError
}
