package tier

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleConfig = `
default_tier: free
tiers:
  - name: free
    algorithm: fixed_window
    limit: 100
    window: 1m
  - name: pro
    algorithm: sliding_window_log
    limit: 1000
    window: 1h
    shared_across_endpoints: true
  - name: burst
    algorithm: token_bucket
    limit: 1000
    window: 1h
    capacity: 50
    refill_rate: 10.5
assignments:
  acme-corp: pro
  spiky-batch-job: burst
`

func TestParse(t *testing.T) {
	r, err := Parse([]byte(sampleConfig))
	require.NoError(t, err)

	free, err := r.Resolve("nobody", "")
	require.NoError(t, err)
	assert.Equal(t, "free", free.Name)
	assert.Equal(t, FixedWindow, free.Algorithm)
	assert.Equal(t, int64(100), free.Limit)
	assert.Equal(t, time.Minute, free.Window)
	assert.False(t, free.SharedAcrossEndpoints)

	pro, err := r.Resolve("acme-corp", "")
	require.NoError(t, err)
	assert.Equal(t, SlidingWindowLog, pro.Algorithm)
	assert.True(t, pro.SharedAcrossEndpoints)

	burst, err := r.Resolve("spiky-batch-job", "")
	require.NoError(t, err)
	assert.Equal(t, TokenBucket, burst.Algorithm)
	assert.Equal(t, int64(50), burst.Capacity)
	assert.Equal(t, 10.5, burst.RefillRate)
}

func TestParseErrors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{name: "not yaml", yaml: "{{nope"},
		{name: "empty", yaml: ""},
		{name: "no tiers", yaml: "default_tier: free"},
		{
			name: "misconfigured tier",
			yaml: `
tiers:
  - name: broken
    algorithm: fixed_window
    limit: 10
    window: 1m
    refill_rate: 3
`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			assert.ErrorIs(t, err, ErrMisconfigured)
		})
	}
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tiers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(sampleConfig), 0o600))

	r, err := Load(path)
	require.NoError(t, err)

	got, err := r.Resolve("acme-corp", "")
	require.NoError(t, err)
	assert.Equal(t, "pro", got.Name)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	require.Error(t, err)
}
