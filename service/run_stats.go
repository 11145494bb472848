package service

import (
	"time"

	"inbox-triage/model"
)

// 统计桶：把编排层/门控层的跳过原因折叠成上报口径
const (
	statSkipCacheHit       = "cache_hit"
	statSkipNoKeywords     = "no_keywords"
	statSkipBudgetExceeded = "budget_exceeded"
	statSkipPerConvoCap    = "per_convo_cap"
	statSkipHardSignal     = "hard_signal"
	statSkipModeOff        = "mode_off"
)

// skipReasonBuckets 跳过原因到统计桶的固定映射
var skipReasonBuckets = map[model.SkipReason]string{
	model.SkipCacheHit:            statSkipCacheHit,
	model.SkipKeywordGate:         statSkipNoKeywords,
	model.SkipEmptyMessage:        statSkipNoKeywords,
	model.SkipDailyBudgetExceeded: statSkipBudgetExceeded,
	model.SkipConvoBudgetExceeded: statSkipPerConvoCap,
	model.SkipHardSignalPresent:   statSkipHardSignal,
	model.SkipAiDisabled:          statSkipModeOff,
}

// NewRunStats 一个同步批次开始时创建，批次内逐条累加
func NewRunStats(runID string) *model.AiRunStats {
	return &model.AiRunStats{
		RunID:              runID,
		StartedAt:          time.Now().UTC(),
		Skipped:            make(map[string]int),
		HandoffConfidence:  make(map[string]int),
		DeferredConfidence: make(map[string]int),
	}
}

// RecordAttempt 累加一次尝试：先归类跳过原因，真正执行过的才进尝试计数
func RecordAttempt(stats *model.AiRunStats, summary model.AttemptSummary) {
	if summary.SkippedReason != model.SkipNone {
		bucket, ok := skipReasonBuckets[summary.SkippedReason]
		if !ok {
			bucket = string(summary.SkippedReason)
		}
		stats.Skipped[bucket]++
	}

	if !summary.Ran {
		return
	}

	stats.Attempted++
	switch summary.Outcome {
	case model.OutcomeSucceeded:
		stats.Succeeded++
	case model.OutcomeInvalidJSON:
		stats.Failed++
		stats.Invalid++
	case model.OutcomeTimeout:
		stats.Failed++
		stats.Timeout++
	default:
		stats.Failed++
	}

	if summary.Outcome != model.OutcomeSucceeded || summary.Interpretation == nil {
		return
	}

	if h := summary.Interpretation.Handoff; h != nil && h.IsHandoff {
		stats.HandoffTrue++
		stats.HandoffConfidence[h.Confidence]++
	}
	if d := summary.Interpretation.Deferred; d != nil && d.IsDeferred {
		stats.DeferredTrue++
		stats.DeferredConfidence[d.Confidence]++
	}
}

// SummarizeRunStats 压缩成上报格式：总量、唯一的最高频跳过原因、命中计数
func SummarizeRunStats(stats *model.AiRunStats) model.AiRunSummary {
	summary := model.AiRunSummary{
		RunID:        stats.RunID,
		Attempted:    stats.Attempted,
		Succeeded:    stats.Succeeded,
		Failed:       stats.Failed,
		HandoffTrue:  stats.HandoffTrue,
		DeferredTrue: stats.DeferredTrue,
	}

	top, topCount := "", 0
	for bucket, count := range stats.Skipped {
		if count > topCount || (count == topCount && bucket < top) {
			top, topCount = bucket, count
		}
	}
	if topCount > 0 {
		summary.TopSkipReason = top
	}
	return summary
}
