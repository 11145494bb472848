package model

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReasonJSONShape(t *testing.T) {
	// 裸原因码输出为字符串，结构化原因输出为对象
	bare, err := json.Marshal([]Reason{NewReason(ReasonOptOut)})
	require.NoError(t, err)
	assert.JSONEq(t, `["OPT_OUT"]`, string(bare))

	evidenced, err := json.Marshal(NewEvidencedReason(ReasonLostInactiveTimeout, ConfidenceHigh, "21 days"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"code":"LOST_INACTIVE_TIMEOUT","confidence":"HIGH","evidence":"21 days"}`, string(evidenced))

	var mixed []Reason
	require.NoError(t, json.Unmarshal([]byte(`["UNREPLIED",{"code":"LOST_INACTIVE_TIMEOUT","confidence":"HIGH"}]`), &mixed))
	require.Len(t, mixed, 2)
	assert.True(t, mixed[0].IsBare())
	assert.Equal(t, ReasonUnreplied, mixed[0].Code)
	assert.Equal(t, ConfidenceHigh, mixed[1].Confidence)
}

func TestStripReasons(t *testing.T) {
	reasons := []Reason{
		NewReason(ReasonPriceMention),
		NewReason(ReasonUnreplied),
		NewReason(ReasonSLABreach),
	}
	stripped := StripReasons(reasons, ReasonUnreplied, ReasonSLABreach)
	require.Len(t, stripped, 1)
	assert.Equal(t, ReasonPriceMention, stripped[0].Code)
}

func TestTerminalStates(t *testing.T) {
	assert.True(t, StateLost.IsTerminal())
	assert.True(t, StateSpam.IsTerminal())
	assert.True(t, StateConverted.IsTerminal())
	assert.False(t, StateResurrected.IsTerminal())
	assert.False(t, StateDeferred.IsTerminal())
}
