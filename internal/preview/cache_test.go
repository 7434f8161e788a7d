package preview

import (
	"fmt"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCache_FIFOEviction(t *testing.T) {
	c := newCache(3, nil)
	for i := range 3 {
		require.True(t, c.put(c.gen(), fmt.Sprintf("k%d", i), missing))
	}

	// Reading the oldest entry does not protect it.
	_, ok := c.get("path", "k0")
	require.True(t, ok)

	c.put(c.gen(), "k3", missing)

	assert.False(t, c.contains("k0"))
	assert.True(t, c.contains("k1"))
	assert.True(t, c.contains("k3"))
	assert.Equal(t, 3, c.len())
}

func TestCache_StaleGenerationIsDropped(t *testing.T) {
	c := newCache(3, nil)
	gen := c.gen()
	c.purge()

	assert.False(t, c.put(gen, "k", found("/a.png")))
	assert.False(t, c.contains("k"))
}

func TestCache_ExistingKeyKeepsFirstAnswer(t *testing.T) {
	c := newCache(3, nil)
	c.put(c.gen(), "k", found("/a.png"))

	assert.False(t, c.put(c.gen(), "k", missing))
	e, ok := c.get("path", "k")
	require.True(t, ok)
	assert.Equal(t, "/a.png", e.image)
}

func TestEntry_InconsistentPanics(t *testing.T) {
	assert.Panics(t, func() { entry{image: "/a.png", absent: true}.check("k") })
	assert.Panics(t, func() { entry{}.check("k") })
	assert.NotPanics(t, func() { missing.check("k") })
	assert.NotPanics(t, func() { found("/a.png").check("k") })
}

func TestCache_Metrics(t *testing.T) {
	m := NewMetrics(nil)
	c := newCache(1, m)

	c.get("path", "a")
	c.put(c.gen(), "a", missing)
	c.get("path", "a")
	c.put(c.gen(), "b", missing)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("path", "miss")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.lookups.WithLabelValues("path", "hit")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.evictions))
}
