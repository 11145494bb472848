package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"inbox-triage/model"
)

// 2025-06-02 是周一
var evalNow = time.Date(2025, 6, 2, 12, 0, 0, 0, time.UTC)

func tp(t time.Time) *time.Time { return &t }

func baseContext() model.InboxStateMachineContext {
	lastIn := evalNow.Add(-2 * time.Hour)
	lastOut := evalNow.Add(-1 * time.Hour)
	return model.InboxStateMachineContext{
		ConversationID: "conv-1",
		EvaluatedAt:    evalNow,
		Timing: model.Timing{
			MessageCount:   4,
			InboundCount:   2,
			OutboundCount:  2,
			LastInboundAt:  tp(lastIn),
			LastOutboundAt: tp(lastOut),
			LastMessageAt:  tp(lastOut),
		},
		Thresholds: model.DefaultThresholds(),
	}
}

func TestEvaluateDeterministic(t *testing.T) {
	c := baseContext()
	c.Signals.HasPriceMention = true
	c.Timing.InboundCountNonFinal = 1
	c.Timing.LastNonFinalAt = tp(evalNow.Add(-3 * time.Hour))
	c.Timing.LastNonFinalDirection = model.DirectionInbound

	first := EvaluateConversationState(c)
	second := EvaluateConversationState(c)
	assert.Equal(t, first, second)
}

func TestOptOutOutranksConversion(t *testing.T) {
	c := baseContext()
	c.Signals.HasOptOut = true
	c.Signals.HasConversion = true

	r := EvaluateConversationState(c)
	assert.Equal(t, model.StateLost, r.State)
	assert.Equal(t, model.ConfidenceHigh, r.Confidence)
	assert.True(t, model.HasReason(r.Reasons, model.ReasonOptOut))
	assert.False(t, model.HasReason(r.Reasons, model.ReasonConversionPhrase))
}

func TestBlockedAndBounced(t *testing.T) {
	c := baseContext()
	c.Signals.IsBlockedByRecipient = true
	r := EvaluateConversationState(c)
	assert.Equal(t, model.StateLost, r.State)
	assert.True(t, model.HasReason(r.Reasons, model.ReasonBlockedByRecipient))

	c = baseContext()
	c.Signals.HasDeliveryBounce = true
	r = EvaluateConversationState(c)
	assert.Equal(t, model.StateLost, r.State)
	assert.True(t, model.HasReason(r.Reasons, model.ReasonBounced))
}

func TestExplicitRejectionRevivalFallsThrough(t *testing.T) {
	c := baseContext()
	c.Signals.HasExplicitRejection = true
	c.Signals.HasRejectionRevival = true

	// 拒绝被后续回复复活，走进度阶梯而不是丢单
	r := EvaluateConversationState(c)
	assert.Equal(t, model.StateProductive, r.State)
}

func TestExplicitLostCandidateOverride(t *testing.T) {
	c := baseContext()
	c.Signals.HasConversion = true
	c.LostCandidate = &model.ExplicitLostCandidate{
		Confidence: model.ConfidenceMedium,
		Evidence:   "do not contact me again",
		MessageID:  "msg-9",
	}

	r := EvaluateConversationState(c)
	assert.Equal(t, model.StateLost, r.State)
	assert.Equal(t, model.ConfidenceMedium, r.Confidence)
	assert.Equal(t, "msg-9", r.StateTriggerMessageID)
	require.Len(t, r.Reasons, 1)
	assert.Equal(t, model.ReasonExplicitLost, r.Reasons[0].Code)
	assert.Equal(t, "do not contact me again", r.Reasons[0].Evidence)
}

func TestSpamNeedsContextConfirmation(t *testing.T) {
	c := baseContext()
	c.Signals.HasSpamPhrase = true
	r := EvaluateConversationState(c)
	assert.NotEqual(t, model.StateSpam, r.State)

	c.Signals.SpamContextConfirmed = true
	c.Signals.HasSpamContent = true
	r = EvaluateConversationState(c)
	assert.Equal(t, model.StateSpam, r.State)
	assert.Equal(t, model.ConfidenceHigh, r.Confidence)
	assert.True(t, model.HasReason(r.Reasons, model.ReasonSpamPhrase))
	assert.True(t, model.HasReason(r.Reasons, model.ReasonSpamContent))
}

func TestPriceRejectionWithIndefiniteDeferral(t *testing.T) {
	c := baseContext()
	c.Signals.HasPriceRejection = true
	c.Signals.HasIndefiniteDeferral = true

	r := EvaluateConversationState(c)
	assert.Equal(t, model.StateLost, r.State)
	assert.True(t, model.HasReason(r.Reasons, model.ReasonPriceRejection))
	assert.True(t, model.HasReason(r.Reasons, model.ReasonWaitToProceed))
}

func TestIndefiniteDeferralWithoutConcreteDate(t *testing.T) {
	c := baseContext()
	c.Signals.HasIndefiniteDeferral = true

	r := EvaluateConversationState(c)
	assert.Equal(t, model.StateLost, r.State)
	assert.Equal(t, model.ConfidenceMedium, r.Confidence)
	assert.True(t, model.HasReason(r.Reasons, model.ReasonIndefiniteDeferral))

	// 有具体日期的延期同时存在时，不按无限期延期丢单
	c.Signals.HasConcreteDeferral = true
	r = EvaluateConversationState(c)
	assert.NotEqual(t, model.StateLost, r.State)
}

func TestProgressLadder(t *testing.T) {
	cases := []struct {
		name     string
		inbound  int
		outbound int
		want     model.ConversationState
		wantConf model.Confidence
	}{
		{"highly productive", 4, 5, model.StateHighlyProductive, model.ConfidenceMedium},
		{"productive", 2, 3, model.StateProductive, model.ConfidenceMedium},
		{"engaged", 1, 1, model.StateEngaged, model.ConfidenceLow},
		{"new", 0, 1, model.StateNew, model.ConfidenceLow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			c := baseContext()
			c.Timing.InboundCount = tc.inbound
			c.Timing.OutboundCount = tc.outbound
			r := EvaluateConversationState(c)
			assert.Equal(t, tc.want, r.State)
			assert.Equal(t, tc.wantConf, r.Confidence)
		})
	}
}

func TestDeferredReasonTags(t *testing.T) {
	c := baseContext()
	c.Deferral.HasDeferral = true
	c.Deferral.SeasonParsed = true

	r := EvaluateConversationState(c)
	assert.Equal(t, model.StateDeferred, r.State)
	assert.True(t, model.HasReason(r.Reasons, model.ReasonDeferralPhrase))
	assert.True(t, model.HasReason(r.Reasons, model.ReasonDeferralSeasonParsed))

	c.Deferral.FromAI = true
	r = EvaluateConversationState(c)
	assert.True(t, model.HasReason(r.Reasons, model.ReasonAiDeferred))
	assert.False(t, model.HasReason(r.Reasons, model.ReasonDeferralPhrase))
}

func TestResurrectedNeverProduced(t *testing.T) {
	// RESURRECTED 只能外部带入，穷举典型输入组合验证状态机不会产出它
	c := baseContext()
	c.PrevState = model.StateResurrected
	for _, mutate := range []func(*model.InboxStateMachineContext){
		func(c *model.InboxStateMachineContext) {},
		func(c *model.InboxStateMachineContext) { c.Signals.HasPriceMention = true },
		func(c *model.InboxStateMachineContext) { c.Deferral.HasDeferral = true },
		func(c *model.InboxStateMachineContext) { c.Signals.HasOffPlatform = true },
	} {
		cc := c
		mutate(&cc)
		r := EvaluateConversationState(cc)
		assert.NotEqual(t, model.StateResurrected, r.State)
	}
}

func TestTerminalClearing(t *testing.T) {
	due := evalNow.Add(48 * time.Hour)
	c := baseContext()
	c.Signals.HasConversion = true
	c.Deferral.DueAt = tp(due)
	c.Deferral.DueSource = model.DueSourceCustomerIntent
	c.Timing.InboundCountNonFinal = 2
	c.Timing.LastNonFinalAt = tp(evalNow.Add(-50 * time.Hour))
	c.Timing.LastNonFinalDirection = model.DirectionInbound

	r := EvaluateConversationState(c)
	assert.Equal(t, model.StateConverted, r.State)
	assert.Nil(t, r.FollowupDueAt)
	assert.Equal(t, model.DueSourceNone, r.FollowupDueSource)
	assert.Empty(t, r.FollowupSuggestion)
	assert.False(t, r.NeedsFollowup)
	assert.False(t, model.HasReason(r.Reasons, model.ReasonUnreplied))
	assert.False(t, model.HasReason(r.Reasons, model.ReasonSLABreach))
}

func TestInboundStaleOverride(t *testing.T) {
	c := baseContext()
	c.Timing.LastInboundAt = tp(evalNow.AddDate(0, 0, -30))

	r := EvaluateConversationState(c)
	assert.Equal(t, model.StateLost, r.State)
	assert.Equal(t, model.ConfidenceHigh, r.Confidence)
	assert.True(t, model.HasReason(r.Reasons, model.ReasonInboundStale))
	require.True(t, model.HasReason(r.Reasons, model.ReasonLostInactiveTimeout))
	for _, reason := range r.Reasons {
		if reason.Code == model.ReasonLostInactiveTimeout {
			assert.Equal(t, model.ConfidenceHigh, reason.Confidence)
		}
	}

	// 静默更久仍然是LOST，改写单调不回退
	c.Timing.LastInboundAt = tp(evalNow.AddDate(0, 0, -90))
	r = EvaluateConversationState(c)
	assert.Equal(t, model.StateLost, r.State)
}

func TestInboundStaleSuppressedByCustomerIntentDue(t *testing.T) {
	c := baseContext()
	c.Timing.LastInboundAt = tp(evalNow.AddDate(0, 0, -30))
	c.Deferral.HasDeferral = true
	c.Deferral.DueAt = tp(evalNow.AddDate(0, 0, 10))
	c.Deferral.DueSource = model.DueSourceCustomerIntent

	r := EvaluateConversationState(c)
	assert.NotEqual(t, model.StateLost, r.State)
}

func TestInboundStaleSuppressedByRevival(t *testing.T) {
	c := baseContext()
	c.Timing.LastInboundAt = tp(evalNow.AddDate(0, 0, -30))
	c.Signals.HasPriceRejection = true
	c.Signals.HasPriceRejectionRevival = true

	r := EvaluateConversationState(c)
	assert.False(t, model.HasReason(r.Reasons, model.ReasonInboundStale))
}

func TestPriceRejectionStale(t *testing.T) {
	c := baseContext()
	c.Signals.HasPriceRejection = true
	c.Timing.LastInboundAt = tp(evalNow.AddDate(0, 0, -15))

	r := EvaluateConversationState(c)
	assert.Equal(t, model.StateLost, r.State)
	assert.True(t, model.HasReason(r.Reasons, model.ReasonPriceRejectionStale))
	assert.Nil(t, r.FollowupDueAt)
}

func TestDeferredFreshKeepsState(t *testing.T) {
	c := baseContext()
	c.Signals.HasIndefiniteDeferral = true
	c.Signals.HasConcreteDeferral = true
	c.Deferral.HasDeferral = true

	r := EvaluateConversationState(c)
	assert.Equal(t, model.StateDeferred, r.State)
}

func TestOffPlatformStale(t *testing.T) {
	c := baseContext()
	c.Signals.HasOffPlatform = true
	old := evalNow.AddDate(0, 0, -20)
	c.Timing.LastInboundAt = tp(old)
	c.Timing.LastOutboundAt = tp(old)

	r := EvaluateConversationState(c)
	assert.Equal(t, model.StateLost, r.State)
	assert.True(t, model.HasReason(r.Reasons, model.ReasonOffPlatformNoContactInfo))
	assert.True(t, model.HasReason(r.Reasons, model.ReasonOffPlatformStale))

	// 已经换到手联系方式就不按失联丢单
	c.Signals.HasContactInfoExchanged = true
	r = EvaluateConversationState(c)
	assert.Equal(t, model.StateOffPlatform, r.State)
	assert.Equal(t, SuggestionOffPlatform, r.FollowupSuggestion)
}

func TestPriceGivenEndToEnd(t *testing.T) {
	c := baseContext()
	c.Timing.InboundCount = 3
	c.Timing.OutboundCount = 3
	c.Signals.HasPriceMention = true

	r := EvaluateConversationState(c)
	assert.Equal(t, model.StatePriceGiven, r.State)
	assert.Equal(t, model.ConfidenceMedium, r.Confidence)
	assert.True(t, model.HasReason(r.Reasons, model.ReasonPriceMention))

	// 报价后长期没动静，复评降为丢单
	old := evalNow.AddDate(0, 0, -11)
	c.Timing.LastInboundAt = tp(old)
	c.Timing.LastOutboundAt = tp(old)
	r = EvaluateConversationState(c)
	assert.Equal(t, model.StateLost, r.State)
	assert.Equal(t, model.ConfidenceMedium, r.Confidence)
	assert.True(t, model.HasReason(r.Reasons, model.ReasonPriceStale))
	assert.Nil(t, r.FollowupDueAt)
}

func TestMissingInputsDegradeToNew(t *testing.T) {
	r := EvaluateConversationState(model.InboxStateMachineContext{EvaluatedAt: evalNow})
	assert.Equal(t, model.StateNew, r.State)
	assert.Equal(t, model.ConfidenceLow, r.Confidence)
}
