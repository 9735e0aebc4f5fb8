package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordResponderCall(t *testing.T) {
	before := testutil.ToFloat64(ResponderCallsTotal.WithLabelValues("net", "ok"))
	RecordResponderCall("net", "ok", 0.02)
	RecordResponderCall("net", "ok", 0.03)
	assert.Equal(t, before+2, testutil.ToFloat64(ResponderCallsTotal.WithLabelValues("net", "ok")))
}

func TestRecordCache(t *testing.T) {
	RecordCacheHit("query")
	RecordCacheMiss("query")
	assert.GreaterOrEqual(t, testutil.ToFloat64(CacheHitsTotal.WithLabelValues("query")), 1.0)
	assert.GreaterOrEqual(t, testutil.ToFloat64(CacheMissesTotal.WithLabelValues("query")), 1.0)
}

func TestSetActiveConversations(t *testing.T) {
	SetActiveConversations(7)
	assert.Equal(t, 7.0, testutil.ToFloat64(ActiveConversations))
}

func TestRecordQuestion(t *testing.T) {
	before := testutil.ToFloat64(QuestionsTotal.WithLabelValues("fact-query", "direct"))
	RecordQuestion("fact-query", "direct", 0.1)
	assert.Equal(t, before+1, testutil.ToFloat64(QuestionsTotal.WithLabelValues("fact-query", "direct")))
}
