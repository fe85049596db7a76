package procmem

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProbe_ResidentMB(t *testing.T) {
	probe, err := NewProbe()
	require.NoError(t, err)

	rss, err := probe.ResidentMB()
	require.NoError(t, err)
	assert.Greater(t, rss, 0.0, "a running process has resident memory")
}
