package service

import (
	"log"
	"time"

	"inbox-triage/model"
)

// 跟进建议文案，是下游收件箱展示的契约值
const (
	SuggestionFollowUpLater  = "Follow up later"
	SuggestionFollowUpNow    = "Follow up now"
	SuggestionReplyRecommend = "Reply recommended"
	SuggestionOffPlatform    = "Visibility lost (off-platform)"
)

// EvaluateConversationState 会话生命周期判定入口
// 纯函数：相同Context必然得到相同Result，缺失或不合理的输入退化为NEW/LOW，不报错
func EvaluateConversationState(c model.InboxStateMachineContext) model.InboxStateMachineResult {
	result := classifyPrimary(c)

	// 延期推导出的到期时间先带入结果，后续规则可能覆盖或清空
	result.FollowupDueAt = c.Deferral.DueAt
	result.FollowupDueSource = c.Deferral.DueSource

	applyStalenessOverrides(c, &result)
	applyFollowupScheduling(c, &result)

	if result.State.IsTerminal() {
		clearFollowup(&result)
	}

	return result
}

// classifyPrimary 主分类：按优先级逐条匹配，先命中者定状态
func classifyPrimary(c model.InboxStateMachineContext) model.InboxStateMachineResult {
	s := c.Signals

	if s.HasOptOut {
		return lost(model.ConfidenceHigh, model.ReasonOptOut)
	}
	if s.IsBlockedByRecipient {
		return lost(model.ConfidenceHigh, model.ReasonBlockedByRecipient)
	}
	if s.HasDeliveryBounce {
		return lost(model.ConfidenceHigh, model.ReasonBounced)
	}
	if s.HasExplicitRejection && !s.HasRejectionRevival {
		return lost(model.ConfidenceHigh, model.ReasonExplicitRejection)
	}

	// 提取方预判的丢单信号优先于后续所有规则，置信度和证据按原样采纳
	if cand := c.LostCandidate; cand != nil {
		code := cand.Code
		if code == "" {
			code = model.ReasonExplicitLost
		}
		return model.InboxStateMachineResult{
			State:      model.StateLost,
			Confidence: cand.Confidence,
			Reasons: []model.Reason{
				model.NewEvidencedReason(code, cand.Confidence, cand.Evidence),
			},
			StateTriggerMessageID: cand.MessageID,
		}
	}

	if s.HasSpamPhrase && s.SpamContextConfirmed {
		reasons := []model.Reason{model.NewReason(model.ReasonSpamPhrase)}
		if s.HasSpamContent {
			reasons = append(reasons, model.NewReason(model.ReasonSpamContent))
		}
		return model.InboxStateMachineResult{
			State:      model.StateSpam,
			Confidence: model.ConfidenceHigh,
			Reasons:    reasons,
		}
	}

	if s.HasPriceRejection && !s.HasPriceRejectionRevival {
		r := lost(model.ConfidenceHigh, model.ReasonPriceRejection)
		if s.HasIndefiniteDeferral {
			r.Reasons = append(r.Reasons, model.NewReason(model.ReasonWaitToProceed))
		}
		return r
	}

	if s.HasIndefiniteDeferral && !s.HasConcreteDeferral {
		return lost(model.ConfidenceMedium, model.ReasonIndefiniteDeferral)
	}

	if s.HasConversion {
		return model.InboxStateMachineResult{
			State:      model.StateConverted,
			Confidence: model.ConfidenceHigh,
			Reasons:    []model.Reason{model.NewReason(model.ReasonConversionPhrase)},
		}
	}

	if s.HasLossPhrase {
		return lost(model.ConfidenceHigh, model.ReasonLossPhrase)
	}

	if s.HasOffPlatform {
		r := model.InboxStateMachineResult{
			State:      model.StateOffPlatform,
			Confidence: model.ConfidenceMedium,
		}
		if s.OffPlatformReason != "" {
			r.Reasons = []model.Reason{model.NewReason(s.OffPlatformReason)}
		}
		return r
	}

	return classifyProgress(c)
}

// classifyProgress 进度阶梯：延期 > 报价 > 消息量分档
func classifyProgress(c model.InboxStateMachineContext) model.InboxStateMachineResult {
	t := c.Timing

	if c.Deferral.HasDeferral {
		r := model.InboxStateMachineResult{
			State:      model.StateDeferred,
			Confidence: model.ConfidenceMedium,
		}
		if c.Deferral.FromAI {
			r.Reasons = []model.Reason{model.NewReason(model.ReasonAiDeferred)}
		} else {
			r.Reasons = []model.Reason{model.NewReason(model.ReasonDeferralPhrase)}
			if c.Deferral.SeasonParsed {
				r.Reasons = append(r.Reasons, model.NewReason(model.ReasonDeferralSeasonParsed))
			}
		}
		return r
	}

	if c.Signals.HasPriceMention {
		return model.InboxStateMachineResult{
			State:      model.StatePriceGiven,
			Confidence: model.ConfidenceMedium,
			Reasons:    []model.Reason{model.NewReason(model.ReasonPriceMention)},
		}
	}

	switch {
	case t.InboundCount >= 4 && t.OutboundCount >= 4:
		return progress(model.StateHighlyProductive, model.ConfidenceMedium)
	case t.InboundCount >= 2 && t.OutboundCount >= 2:
		return progress(model.StateProductive, model.ConfidenceMedium)
	case t.InboundCount >= 1 && t.OutboundCount >= 1:
		return progress(model.StateEngaged, model.ConfidenceLow)
	default:
		return progress(model.StateNew, model.ConfidenceLow)
	}
}

// applyStalenessOverrides 基于静默时长的横切改写，每条规则用自己的时钟口径
func applyStalenessOverrides(c model.InboxStateMachineContext, r *model.InboxStateMachineResult) {
	s := c.Signals
	th := c.Thresholds

	// 线下联系方式没换到手，换渠道的会话放太久视为丢单
	if r.State == model.StateOffPlatform && !s.HasContactInfoExchanged &&
		daysExceeded(lastActivityAt(c.Timing), c.EvaluatedAt, th.LostAfterOffPlatformDays) {
		log.Printf("[StateMachine] conversation=%s off_platform stale -> LOST", c.ConversationID)
		r.State = model.StateLost
		r.Confidence = model.ConfidenceMedium
		r.Reasons = append(r.Reasons,
			model.NewReason(model.ReasonOffPlatformNoContactInfo),
			model.NewReason(model.ReasonOffPlatformStale))
		dropDueDate(r)
	}

	// 客户长期不回消息视为丢单
	// 抑制条件：客户自己说的未来跟进时间，或任一拒绝复活信号（复活本身多旧都算，行为与线上一致）
	if !r.State.IsTerminal() && r.State != model.StateOffPlatform &&
		daysExceeded(c.Timing.LastInboundAt, c.EvaluatedAt, th.LostAfterInactiveDays) {
		suppressed := hasFutureCustomerIntentDue(c, r) || s.HasRejectionRevival || s.HasPriceRejectionRevival
		if !suppressed {
			log.Printf("[StateMachine] conversation=%s inbound silence %dd -> LOST", c.ConversationID, th.LostAfterInactiveDays)
			r.State = model.StateLost
			r.Confidence = model.ConfidenceHigh
			r.Reasons = append(r.Reasons,
				model.NewReason(model.ReasonInboundStale),
				model.NewEvidencedReason(model.ReasonLostInactiveTimeout, model.ConfidenceHigh, ""))
			dropDueDate(r)
		}
	}

	// 价格拒绝有自己独立的静默阈值
	if s.HasPriceRejection && !s.HasPriceRejectionRevival &&
		daysExceeded(c.Timing.LastInboundAt, c.EvaluatedAt, th.LostAfterPriceRejectionDays) {
		r.State = model.StateLost
		r.Confidence = model.ConfidenceHigh
		if !model.HasReason(r.Reasons, model.ReasonPriceRejectionStale) {
			r.Reasons = append(r.Reasons, model.NewReason(model.ReasonPriceRejectionStale))
		}
		dropDueDate(r)
	}

	// 只说改天没给日期的会话放太久视为丢单
	if (r.State == model.StateDeferred || r.State == model.StateProductive || r.State == model.StateEngaged) &&
		s.HasIndefiniteDeferral && !s.HasConcreteDeferral &&
		daysExceeded(lastActivityAt(c.Timing), c.EvaluatedAt, th.LostAfterDeferralDays) {
		r.State = model.StateLost
		r.Confidence = model.ConfidenceMedium
		if !model.HasReason(r.Reasons, model.ReasonIndefiniteDeferral) {
			r.Reasons = append(r.Reasons, model.NewReason(model.ReasonIndefiniteDeferral))
		}
		dropDueDate(r)
	}

	// 报了价之后长期没有动静视为丢单，时钟取最后一条我方消息，没有则取对方消息
	if r.State == model.StatePriceGiven {
		anchor := c.Timing.LastOutboundAt
		if anchor == nil {
			anchor = c.Timing.LastInboundAt
		}
		if daysExceeded(anchor, c.EvaluatedAt, th.LostAfterPriceDays) {
			log.Printf("[StateMachine] conversation=%s price given stale -> LOST", c.ConversationID)
			r.State = model.StateLost
			r.Confidence = model.ConfidenceMedium
			r.Reasons = append(r.Reasons, model.NewReason(model.ReasonPriceStale))
			dropDueDate(r)
		}
	}
}

func lost(conf model.Confidence, code model.ReasonCode) model.InboxStateMachineResult {
	return model.InboxStateMachineResult{
		State:      model.StateLost,
		Confidence: conf,
		Reasons:    []model.Reason{model.NewReason(code)},
	}
}

func progress(state model.ConversationState, conf model.Confidence) model.InboxStateMachineResult {
	return model.InboxStateMachineResult{State: state, Confidence: conf}
}

func clearFollowup(r *model.InboxStateMachineResult) {
	r.FollowupSuggestion = ""
	r.NeedsFollowup = false
	dropDueDate(r)
	r.Reasons = model.StripReasons(r.Reasons, model.ReasonUnreplied, model.ReasonSLABreach)
}

func dropDueDate(r *model.InboxStateMachineResult) {
	r.FollowupDueAt = nil
	r.FollowupDueSource = model.DueSourceNone
}

// lastActivityAt 最近一次活动时间：双向消息取较新者，缺失时退回最后一条消息
func lastActivityAt(t model.Timing) *time.Time {
	latest := t.LastInboundAt
	if t.LastOutboundAt != nil && (latest == nil || t.LastOutboundAt.After(*latest)) {
		latest = t.LastOutboundAt
	}
	if latest == nil {
		latest = t.LastMessageAt
	}
	return latest
}

// daysExceeded 自某时刻起是否已静默满N天；时间戳缺失或阈值未配置都视为未超时
func daysExceeded(since *time.Time, now time.Time, days int) bool {
	if since == nil || days <= 0 {
		return false
	}
	return now.Sub(*since) >= time.Duration(days)*24*time.Hour
}

// hasFutureCustomerIntentDue 是否存在客户自己说的未来跟进时间
func hasFutureCustomerIntentDue(c model.InboxStateMachineContext, r *model.InboxStateMachineResult) bool {
	return r.FollowupDueAt != nil &&
		r.FollowupDueSource == model.DueSourceCustomerIntent &&
		r.FollowupDueAt.After(c.EvaluatedAt)
}
