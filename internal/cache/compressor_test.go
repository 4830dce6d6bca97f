package cache

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestZstdRoundTrip(t *testing.T) {
	z, err := NewZstdCompressor()
	require.NoError(t, err)
	defer z.Close()

	payload := bytes.Repeat([]byte(`{"couple_id":"c1","scheduled_date":"2024-05-01"}`), 50)
	compressed, err := z.Compress(payload)
	require.NoError(t, err)
	assert.Less(t, len(compressed), len(payload))

	restored, err := z.Decompress(compressed)
	require.NoError(t, err)
	assert.Equal(t, payload, restored)
}

func TestZstdDecompressGarbage(t *testing.T) {
	z, err := NewZstdCompressor()
	require.NoError(t, err)
	defer z.Close()

	_, err = z.Decompress([]byte("definitely not zstd"))
	assert.Error(t, err)
}

func TestZstdEmptyInput(t *testing.T) {
	z, err := NewZstdCompressor()
	require.NoError(t, err)
	defer z.Close()

	compressed, err := z.Compress(nil)
	require.NoError(t, err)
	restored, err := z.Decompress(compressed)
	require.NoError(t, err)
	assert.Empty(t, restored)
}
