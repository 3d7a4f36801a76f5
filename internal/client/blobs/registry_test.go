package blobs

import (
	"strings"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMint_ReturnsUniqueHandles(t *testing.T) {
	r := NewRegistry()

	h1 := r.Mint([]byte("one"), "audio/mpeg")
	h2 := r.Mint([]byte("two"), "audio/mpeg")

	assert.NotEqual(t, h1, h2)
	assert.True(t, IsHandle(h1))
	_, err := uuid.Parse(strings.TrimPrefix(h1, "blob:"))
	require.NoError(t, err)
	assert.Equal(t, 2, r.Len())
}

func TestGetAndRevoke(t *testing.T) {
	r := NewRegistry()
	h := r.Mint([]byte{1, 2, 3}, "audio/mpeg")

	b, ok := r.Get(h)
	require.True(t, ok)
	assert.Equal(t, []byte{1, 2, 3}, b.Data)
	assert.Equal(t, "audio/mpeg", b.ContentType)

	r.Revoke(h)
	_, ok = r.Get(h)
	assert.False(t, ok)
	assert.Equal(t, 0, r.Len())

	r.Revoke(h)
	r.Revoke("")
	r.Revoke("https://example.com/a.mp3")
}

func TestRegistry_Concurrent(t *testing.T) {
	r := NewRegistry()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			h := r.Mint([]byte("x"), "audio/mpeg")
			_, _ = r.Get(h)
		}()
	}
	wg.Wait()
	assert.Equal(t, 50, r.Len())
}
