package service

import (
	"time"

	"inbox-triage/model"
)

// applyFollowupScheduling 状态和静默改写定稿之后计算跟进字段
func applyFollowupScheduling(c model.InboxStateMachineContext, r *model.InboxStateMachineResult) {
	if r.State.IsTerminal() {
		return
	}

	now := c.EvaluatedAt
	th := c.Thresholds

	switch r.State {
	case model.StateDeferred:
		scheduleDeferred(now, th, r)

	case model.StateOffPlatform:
		// 会话换到站外渠道，收件箱里只能提示可见性丢失
		r.FollowupSuggestion = SuggestionOffPlatform

	default:
		scheduleDefault(c, r)
	}

	// 没有任何未回复的对方消息时，未回复类原因一律剥离
	if c.Timing.InboundCountNonFinal == 0 {
		r.Reasons = model.StripReasons(r.Reasons, model.ReasonUnreplied, model.ReasonSLABreach)
	}
}

// scheduleDeferred 延期会话的跟进安排
func scheduleDeferred(now time.Time, th model.Thresholds, r *model.InboxStateMachineResult) {
	due := r.FollowupDueAt
	if due == nil || !due.After(now) {
		// 没有到期时间或已过期：仍提示稍后跟进，但不算到期
		r.FollowupSuggestion = SuggestionFollowUpLater
		r.NeedsFollowup = false
		return
	}

	if r.FollowupDueSource != model.DueSourceCustomerIntent {
		// 非客户亲口说的时间不够权威，不对外浮现
		r.FollowupSuggestion = ""
		r.NeedsFollowup = false
		return
	}

	r.FollowupSuggestion = SuggestionFollowUpLater
	r.NeedsFollowup = due.Sub(now) <= dueSoonHorizon(th)
}

// scheduleDefault 其余非终态会话：看最后一条未回复消息的方向
func scheduleDefault(c model.InboxStateMachineContext, r *model.InboxStateMachineResult) {
	now := c.EvaluatedAt
	th := c.Thresholds
	t := c.Timing

	switch t.LastNonFinalDirection {
	case model.DirectionInbound:
		r.FollowupSuggestion = SuggestionReplyRecommend
		r.NeedsFollowup = true
		r.Reasons = append(r.Reasons, model.NewReason(model.ReasonUnreplied))
		if t.LastNonFinalAt != nil && now.Sub(*t.LastNonFinalAt) >= time.Duration(th.SLAHours)*time.Hour {
			r.Reasons = append(r.Reasons, model.NewReason(model.ReasonSLABreach))
		}

	case model.DirectionOutbound:
		// 我方已回复：没有到期时间时按默认SLA补一个（发出后2个工作日）
		if r.FollowupDueAt == nil && t.LastNonFinalAt != nil {
			due := AddBusinessDays(*t.LastNonFinalAt, 2)
			r.FollowupDueAt = &due
			r.FollowupDueSource = model.DueSourceDefault
		}

		if r.FollowupDueAt != nil && r.FollowupDueSource == model.DueSourceCustomerIntent {
			window := time.Duration(th.DueSoonDays) * 24 * time.Hour
			if !now.Before(r.FollowupDueAt.Add(-window)) {
				r.FollowupSuggestion = SuggestionFollowUpNow
				r.NeedsFollowup = true
			} else {
				r.FollowupSuggestion = SuggestionFollowUpLater
				r.NeedsFollowup = false
			}
		}
		// 系统兜底的时间不够权威，不浮现建议也不算到期
	}
}

// dueSoonHorizon 到期提醒窗口：SLA和due-soon天数取较大者
func dueSoonHorizon(th model.Thresholds) time.Duration {
	sla := time.Duration(th.SLAHours) * time.Hour
	soon := time.Duration(th.DueSoonDays) * 24 * time.Hour
	if sla > soon {
		return sla
	}
	return soon
}

// AddBusinessDays 按UTC逐日推进跳过周六日，不考虑节假日
func AddBusinessDays(from time.Time, days int) time.Time {
	d := from.UTC()
	for added := 0; added < days; {
		d = d.AddDate(0, 0, 1)
		if wd := d.Weekday(); wd != time.Saturday && wd != time.Sunday {
			added++
		}
	}
	return d
}

// MapDeferredBucketToDate 把延期时间段映射为具体日期（UTC日粒度）
func MapDeferredBucketToDate(bucket string, now time.Time) time.Time {
	now = now.UTC().Truncate(24 * time.Hour)
	switch bucket {
	case model.BucketNextWeek:
		return now.AddDate(0, 0, 7)
	case model.BucketNextMonth:
		return now.AddDate(0, 0, 30)
	case model.BucketNextQuarter:
		return now.AddDate(0, 0, 90)
	case model.BucketAfterHolidays:
		// 11月起指第二年1月15日，其余时间按两个月后
		if now.Month() >= time.November {
			return time.Date(now.Year()+1, time.January, 15, 0, 0, 0, 0, time.UTC)
		}
		return now.AddDate(0, 0, 60)
	default:
		// SOMETIME_LATER 及未知时间段一律按一个月后
		return now.AddDate(0, 0, 30)
	}
}
