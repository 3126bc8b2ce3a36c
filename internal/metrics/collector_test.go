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

func nextTestNamespace() string {
	seq := atomic.AddUint64(&collectorNamespaceSeq, 1)
	return fmt.Sprintf("test_%d", seq)
}

// =============================================================================
// 🧪 Collector 测试
// =============================================================================

func TestNewCollector(t *testing.T) {
	logger := zap.NewNop()
	collector := NewCollector(nextTestNamespace(), logger)

	assert.NotNil(t, collector)
	assert.NotNil(t, collector.connectionsActive)
	assert.NotNil(t, collector.framesReceived)
	assert.NotNil(t, collector.evaluationsTotal)
	assert.NotNil(t, collector.swingsDetected)
	assert.NotNil(t, collector.sessionsTotal)
}

func TestCollector_ConnectionGauge(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordConnectionOpened()
	collector.RecordConnectionOpened()
	collector.RecordConnectionClosed()

	assert.InDelta(t, 1, testutil.ToFloat64(collector.connectionsActive), 0.001)
	assert.InDelta(t, 2, testutil.ToFloat64(collector.connectionsTotal), 0.001)
}

func TestCollector_FrameAndEvictionCounts(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordFrameReceived(0)
	collector.RecordFrameReceived(2)

	assert.InDelta(t, 2, testutil.ToFloat64(collector.framesReceived), 0.001)
	assert.InDelta(t, 2, testutil.ToFloat64(collector.framesEvicted), 0.001)
}

func TestCollector_RecordEvaluation(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordEvaluation("vision", 120*time.Millisecond)
	collector.RecordSwingDetected(0.91)

	count := testutil.CollectAndCount(collector.evaluationsTotal)
	assert.Greater(t, count, 0)
	assert.InDelta(t, 1, testutil.ToFloat64(collector.swingsDetected), 0.001)
}

func TestCollector_RecordSession(t *testing.T) {
	collector := NewCollector(nextTestNamespace(), zap.NewNop())

	collector.RecordSession("completed", 45*time.Second)
	collector.RecordSession("timeout", 120*time.Second)

	count := testutil.CollectAndCount(collector.sessionsTotal)
	assert.Greater(t, count, 0)
}
