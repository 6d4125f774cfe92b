package httpclient

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetClientReusesByFingerprint(t *testing.T) {
	m := NewManager()

	c1 := m.GetClient(DefaultConfig(30 * time.Second))
	c2 := m.GetClient(DefaultConfig(30 * time.Second))
	assert.Same(t, c1, c2, "identical configs should share one client")

	c3 := m.GetClient(DefaultConfig(10 * time.Second))
	assert.NotSame(t, c1, c3, "different timeouts should get distinct clients")
}

func TestGetClientAppliesTimeout(t *testing.T) {
	m := NewManager()

	client := m.GetClient(DefaultConfig(30 * time.Second))
	require.NotNil(t, client)
	assert.Equal(t, 30*time.Second, client.Timeout)
}

func TestCloseIdleConnections(t *testing.T) {
	m := NewManager()
	m.GetClient(DefaultConfig(30 * time.Second))

	// Must not panic with cached clients present.
	m.CloseIdleConnections()
}
