package transform

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashSigns(t *testing.T) {
	assert.Equal(t, "011", HashSigns([]float32{-1, 0, 2}))
	assert.Equal(t, "", HashSigns(nil))
	assert.Equal(t, []string{"10", "01"}, HashAll([][]float32{{1, -1}, {-0.5, 0.5}}))
}

func TestRotateAndHash_SameSeedAgrees(t *testing.T) {
	queries := [][]float32{{0.1, 0.9, -0.2, 0.4}}
	docs := [][]float32{{0.1, 0.9, -0.2, 0.4}, {-0.7, 0.1, 0.3, -0.2}}
	qh, err := RotateAndHash(queries, 0, 8)
	require.NoError(t, err)
	dh, err := RotateAndHash(docs, 0, 8)
	require.NoError(t, err)
	require.Len(t, qh[0], 8)
	assert.Equal(t, qh[0], dh[0], "identical vectors must hash identically")
}
