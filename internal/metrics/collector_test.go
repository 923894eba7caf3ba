package metrics

import (
	"fmt"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

var collectorNamespaceSeq uint64

// promauto registers on the default registry, so every test gets its own
// namespace.
func nextTestNamespace() string {
	return fmt.Sprintf("test_%d", atomic.AddUint64(&collectorNamespaceSeq, 1))
}

func TestNewCollector(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())
	assert.NotNil(t, c.httpRequestsTotal)
	assert.NotNil(t, c.turnsTotal)
	assert.NotNil(t, c.turnFragments)
	assert.NotNil(t, c.storeOpsTotal)
}

func TestRecordHTTPRequest(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())
	c.RecordHTTPRequest("POST", "/v1/turns", 200, 100*time.Millisecond)
	assert.Greater(t, testutil.CollectAndCount(c.httpRequestsTotal), 0)
}

func TestRecordTurn(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())
	c.RecordTurn("assistant", "single-agent", "completed", 2*time.Second)
	c.RecordTurn("assistant", "single-agent", "failed", time.Second)
	c.RecordFragment("assistant")
	c.RecordConversationWait("assistant", 5*time.Millisecond)

	assert.Equal(t, 2, testutil.CollectAndCount(c.turnsTotal))
	assert.Greater(t, testutil.CollectAndCount(c.turnFragments), 0)
}

func TestTurnStarted(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())
	done := c.TurnStarted()
	assert.Equal(t, 1.0, testutil.ToFloat64(c.turnsInFlight))
	done()
	assert.Equal(t, 0.0, testutil.ToFloat64(c.turnsInFlight))
}

func TestRecordStoreOp(t *testing.T) {
	c := NewCollector(nextTestNamespace(), zap.NewNop())
	c.RecordStoreOp("redis", "save", "ok", 3*time.Millisecond)
	c.RecordStoreOp("redis", "load", "error", time.Millisecond)
	assert.Equal(t, 2, testutil.CollectAndCount(c.storeOpsTotal))
}
