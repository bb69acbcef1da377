package transform

import (
	"testing"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAssignClusters_OrdersByInnerProduct(t *testing.T) {
	centroids := [][]float32{{1, 0}, {0, 1}, {0.7, 0.7}}
	ids, err := AssignClusters([][]float32{{0.9, 0.1}, {0, 1}}, centroids, 2)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 2}, ids[0])
	assert.Equal(t, []int{1, 2}, ids[1])
}

func TestAssignClusters_ClampsK(t *testing.T) {
	ids, err := AssignClusters([][]float32{{1, 0}}, [][]float32{{1, 0}, {0, 1}}, 5)
	require.NoError(t, err)
	assert.Len(t, ids[0], 2)
}

func TestAssignClusters_TiesKeepCentroidOrder(t *testing.T) {
	ids, err := AssignClusters([][]float32{{0, 0}}, [][]float32{{1, 0}, {0, 1}, {1, 1}}, 3)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2}, ids[0])
}

func TestAssignClusters_Errors(t *testing.T) {
	_, err := AssignClusters([][]float32{{1, 0}}, nil, 1)
	assert.ErrorIs(t, err, evalerr.ErrInsufficientData)

	_, err = AssignClusters([][]float32{{1, 0, 0}}, [][]float32{{1, 0}}, 1)
	assert.ErrorIs(t, err, evalerr.ErrValidation)
}
