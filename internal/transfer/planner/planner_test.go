package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPlan(t *testing.T) {
	t.Run("tiles the file with no gaps or overlaps", func(t *testing.T) {
		p := New(100, 32)

		var chunks []Chunk
		for {
			c, ok := p.Next()
			if !ok {
				break
			}
			chunks = append(chunks, c)
		}

		require.Len(t, chunks, 4)
		assert.Equal(t, Chunk{Offset: 0, Length: 32}, chunks[0])
		assert.Equal(t, Chunk{Offset: 32, Length: 32}, chunks[1])
		assert.Equal(t, Chunk{Offset: 64, Length: 32}, chunks[2])
		assert.Equal(t, Chunk{Offset: 96, Length: 4}, chunks[3])

		var next uint64
		for _, c := range chunks {
			assert.Equal(t, next, c.Offset)
			next = c.Offset + uint64(c.Length)
		}
		assert.Equal(t, uint64(100), next)
	})

	t.Run("exact multiple keeps full-size final chunk", func(t *testing.T) {
		p := New(64, 32)

		c1, ok := p.Next()
		require.True(t, ok)
		c2, ok := p.Next()
		require.True(t, ok)
		_, ok = p.Next()
		assert.False(t, ok)

		assert.Equal(t, uint32(32), c1.Length)
		assert.Equal(t, uint32(32), c2.Length)
	})

	t.Run("file smaller than a chunk yields one short chunk", func(t *testing.T) {
		p := New(10, 32)

		c, ok := p.Next()
		require.True(t, ok)
		assert.Equal(t, Chunk{Offset: 0, Length: 10}, c)

		_, ok = p.Next()
		assert.False(t, ok)
	})

	t.Run("zero-size file yields no chunks", func(t *testing.T) {
		p := New(0, 32)

		_, ok := p.Next()
		assert.False(t, ok)
		assert.Equal(t, uint64(0), p.Remaining())
	})

	t.Run("exhausted plan stays exhausted", func(t *testing.T) {
		p := New(8, 32)
		_, ok := p.Next()
		require.True(t, ok)

		for i := 0; i < 3; i++ {
			_, ok := p.Next()
			assert.False(t, ok)
		}
	})

	t.Run("cursor accounting", func(t *testing.T) {
		p := New(100, 40)

		assert.Equal(t, uint64(0), p.Offset())
		assert.Equal(t, uint64(100), p.Remaining())

		_, _ = p.Next()
		assert.Equal(t, uint64(40), p.Offset())
		assert.Equal(t, uint64(60), p.Remaining())

		_, _ = p.Next()
		_, _ = p.Next()
		assert.Equal(t, uint64(100), p.Offset())
		assert.Equal(t, uint64(0), p.Remaining())
	})
}
