package provider_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tvp-go/internal/model"
	"tvp-go/internal/tv"
)

func TestMetrics_Operations(t *testing.T) {
	f := newFixture(t)
	f.addChannel(t, tuner, nil)
	_, err := f.store.Insert(context.Background(), tuner, tv.MustParseURI("channel"), model.Values{"input_id": "in", "browsable": 1})
	require.Error(t, err)

	expected := `
# HELP tvp_notifications_total Change notifications delivered after commit.
# TYPE tvp_notifications_total counter
tvp_notifications_total 1
# HELP tvp_operations_total Store operations by table, operation and outcome.
# TYPE tvp_operations_total counter
tvp_operations_total{op="insert",outcome="ok",table="channels"} 1
tvp_operations_total{op="insert",outcome="permission_denied",table="channels"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected),
		"tvp_operations_total", "tvp_notifications_total"))
}

func TestMetrics_LogoTasks(t *testing.T) {
	f := newFixture(t)
	id := f.addChannel(t, tuner, nil)
	require.NoError(t, f.writeLogo(t, tuner, id, pngBytes(t, 8, 8)))
	require.Error(t, f.writeLogo(t, tuner, id, bytes.Repeat([]byte{0}, 64)))

	expected := `
# HELP tvp_logo_tasks_total Completed logo tasks by outcome.
# TYPE tvp_logo_tasks_total counter
tvp_logo_tasks_total{outcome="decode_failure"} 1
tvp_logo_tasks_total{outcome="ok"} 1
`
	assert.NoError(t, testutil.GatherAndCompare(f.reg, strings.NewReader(expected), "tvp_logo_tasks_total"))
}
