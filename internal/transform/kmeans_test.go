package transform

import (
	"testing"

	"github.com/hyperjump/hyoka/internal/evalerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func twoBlobs() [][]float32 {
	return [][]float32{
		{1, 0.05}, {0.95, 0.1}, {0.9, -0.05}, {1.05, 0},
		{0.05, 1}, {-0.1, 0.95}, {0, 1.1}, {0.1, 0.9},
	}
}

func TestTrainKMeans_SeparatesBlobs(t *testing.T) {
	vectors := twoBlobs()
	centroids, err := TrainKMeans(vectors, 2, KMeansOptions{Seed: 0})
	require.NoError(t, err)
	require.Len(t, centroids, 2)

	ids, err := AssignClusters(vectors, centroids, 1)
	require.NoError(t, err)
	for i := 1; i < 4; i++ {
		assert.Equal(t, ids[0][0], ids[i][0], "first blob should share a centroid")
	}
	for i := 5; i < 8; i++ {
		assert.Equal(t, ids[4][0], ids[i][0], "second blob should share a centroid")
	}
	assert.NotEqual(t, ids[0][0], ids[4][0])
}

func TestTrainKMeans_SphericalCentroidsAreUnit(t *testing.T) {
	centroids, err := TrainKMeans(twoBlobs(), 2, KMeansOptions{Seed: 3, Spherical: true})
	require.NoError(t, err)
	for _, c := range centroids {
		assert.InDelta(t, 1.0, norm(c), 1e-5)
	}
}

func TestTrainKMeans_Deterministic(t *testing.T) {
	a, err := TrainKMeans(twoBlobs(), 2, KMeansOptions{Seed: 9, Spherical: true})
	require.NoError(t, err)
	b, err := TrainKMeans(twoBlobs(), 2, KMeansOptions{Seed: 9, Spherical: true})
	require.NoError(t, err)
	assert.Equal(t, a, b)
}

func TestTrainKMeans_Errors(t *testing.T) {
	_, err := TrainKMeans(twoBlobs()[:1], 2, KMeansOptions{})
	assert.ErrorIs(t, err, evalerr.ErrInsufficientData)

	_, err = TrainKMeans([][]float32{{1, 2}, {1}}, 1, KMeansOptions{})
	assert.ErrorIs(t, err, evalerr.ErrValidation)

	_, err = TrainKMeans(twoBlobs(), 0, KMeansOptions{})
	assert.ErrorIs(t, err, evalerr.ErrValidation)
}
