package metrics_test

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nais/disquick/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestObserveStage(t *testing.T) {
	metrics.ObserveStage("activate", time.Second, nil)
	metrics.ObserveStage("activate", time.Second, errors.New("failed"))

	count, err := testutil.GatherAndCount(metrics.Registry(), "disquick_stage_duration_seconds")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, count, 2)
}

func TestWriteTextfile(t *testing.T) {
	before := testutil.ToFloat64(metrics.DeploySuccessful)
	metrics.DeploySuccessful.Inc()
	assert.Equal(t, before+1, testutil.ToFloat64(metrics.DeploySuccessful))

	path := filepath.Join(t.TempDir(), "disquick.prom")
	require.NoError(t, metrics.WriteTextfile(path))

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), "disquick_deploy_successful")
}
