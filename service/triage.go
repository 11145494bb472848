package service

import (
	"context"
	"log"
	"sync"
	"time"

	"inbox-triage/model"
)

// TriageService 对外门面：状态评估、歧义消解、批次统计
type TriageService struct {
	thresholds   model.Thresholds
	orchestrator *Orchestrator

	mu   sync.Mutex
	runs map[string]*model.AiRunStats
}

func NewTriageService(thresholds model.Thresholds, orchestrator *Orchestrator) *TriageService {
	return &TriageService{
		thresholds:   thresholds,
		orchestrator: orchestrator,
		runs:         make(map[string]*model.AiRunStats),
	}
}

// Evaluate 对一个会话快照做生命周期判定
// 快照缺了评估时刻或阈值时用服务端配置补齐，补齐后仍是纯函数评估
func (s *TriageService) Evaluate(c model.InboxStateMachineContext) model.InboxStateMachineResult {
	if c.EvaluatedAt.IsZero() {
		c.EvaluatedAt = time.Now().UTC()
	}
	if c.Thresholds == (model.Thresholds{}) {
		c.Thresholds = s.thresholds
	}
	result := EvaluateConversationState(c)
	log.Printf("[Triage] conversation=%s state=%s confidence=%s reasons=%d",
		c.ConversationID, result.State, result.Confidence, len(result.Reasons))
	return result
}

// Interpret 执行一次歧义消解尝试并计入所属批次的统计
func (s *TriageService) Interpret(ctx context.Context, input model.AiAttemptInput) model.AiAttemptResult {
	result := s.orchestrator.RunAmbiguityAttempt(ctx, input)

	if input.RunID != "" {
		s.mu.Lock()
		stats, ok := s.runs[input.RunID]
		if !ok {
			stats = NewRunStats(input.RunID)
			s.runs[input.RunID] = stats
		}
		RecordAttempt(stats, model.AttemptSummary{
			Ran:            result.Outcome != model.OutcomeSkipped,
			Outcome:        result.Outcome,
			SkippedReason:  result.SkippedReason,
			Interpretation: result.Interpretation,
		})
		s.mu.Unlock()
	}

	return result
}

// RunSummary 查询某个批次的压缩统计
func (s *TriageService) RunSummary(runID string) (model.AiRunSummary, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	stats, ok := s.runs[runID]
	if !ok {
		return model.AiRunSummary{}, false
	}
	return SummarizeRunStats(stats), true
}
