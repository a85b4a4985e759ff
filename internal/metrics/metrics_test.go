package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestRecordRun(t *testing.T) {
	success := testutil.ToFloat64(Runs.WithLabelValues("success"))
	failure := testutil.ToFloat64(Runs.WithLabelValues("failure"))

	RecordRun(true, time.Second)
	RecordRun(false, time.Second)

	assert.Equal(t, success+1, testutil.ToFloat64(Runs.WithLabelValues("success")))
	assert.Equal(t, failure+1, testutil.ToFloat64(Runs.WithLabelValues("failure")))
	assert.Greater(t, testutil.ToFloat64(LastSuccessTimestamp), float64(0))
}

func TestRecordGroup(t *testing.T) {
	RecordGroup("db", 7, 3, 0, 2048)

	assert.Equal(t, float64(7), testutil.ToFloat64(Entries.WithLabelValues("db", "keep")))
	assert.Equal(t, float64(3), testutil.ToFloat64(Entries.WithLabelValues("db", "delete")))
	assert.Equal(t, float64(0), testutil.ToFloat64(Entries.WithLabelValues("db", "unset")))
	assert.Equal(t, float64(2048), testutil.ToFloat64(GroupSize.WithLabelValues("db")))
}

func TestRecordDeletions(t *testing.T) {
	deleted := testutil.ToFloat64(Deletions.WithLabelValues("success"))
	failed := testutil.ToFloat64(Deletions.WithLabelValues("failure"))
	reclaimed := testutil.ToFloat64(BytesReclaimed)

	RecordDeletions(3, 1, 300)
	RecordDeletions(0, 0, -5)

	assert.Equal(t, deleted+3, testutil.ToFloat64(Deletions.WithLabelValues("success")))
	assert.Equal(t, failed+1, testutil.ToFloat64(Deletions.WithLabelValues("failure")))
	assert.Equal(t, reclaimed+300, testutil.ToFloat64(BytesReclaimed))
}
