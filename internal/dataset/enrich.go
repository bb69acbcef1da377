package dataset

import (
	"github.com/hyperjump/hyoka/internal/models"
	"github.com/hyperjump/hyoka/internal/transform"
)

// Each enrichment returns new rows; the input rows and their vectors are never modified.

func cloneRows(rows []models.Row) []models.Row {
	out := make([]models.Row, len(rows))
	copy(out, rows)
	return out
}

// QuantizeRows replaces both vector columns with int8 codes (widened to float32)
// calibrated on calibration.
func QuantizeRows(rows []models.Row, calibration [][]float32) ([]models.Row, error) {
	q, err := transform.CalibrateInt8(calibration)
	if err != nil {
		return nil, err
	}
	qv, err := q.Quantize(RowQueryVectors(rows))
	if err != nil {
		return nil, err
	}
	tv, err := q.Quantize(RowTitleVectors(rows))
	if err != nil {
		return nil, err
	}
	qf, tf := transform.Int8ToFloat32(qv), transform.Int8ToFloat32(tv)
	out := cloneRows(rows)
	for i := range out {
		out[i].QueryVector = qf[i]
		out[i].TitleVector = tf[i]
	}
	return out, nil
}

// RotateRows applies one seeded rotation to both vector columns.
func RotateRows(rows []models.Row, seed int64, outputDim int) ([]models.Row, error) {
	qv, tv, err := rotateColumns(rows, seed, outputDim)
	if err != nil {
		return nil, err
	}
	out := cloneRows(rows)
	for i := range out {
		out[i].QueryVector = qv[i]
		out[i].TitleVector = tv[i]
	}
	return out, nil
}

// HashRows fills query_hash and title_hash with sign hashes of the rotated vectors.
func HashRows(rows []models.Row, seed int64, outputDim int) ([]models.Row, error) {
	qv, tv, err := rotateColumns(rows, seed, outputDim)
	if err != nil {
		return nil, err
	}
	out := cloneRows(rows)
	for i := range out {
		out[i].QueryHash = transform.HashSigns(qv[i])
		out[i].TitleHash = transform.HashSigns(tv[i])
	}
	return out, nil
}

func rotateColumns(rows []models.Row, seed int64, outputDim int) ([][]float32, [][]float32, error) {
	dim, err := Dimension(rows)
	if err != nil {
		return nil, nil, err
	}
	rot, err := transform.NewRandomRotation(dim, outputDim, seed)
	if err != nil {
		return nil, nil, err
	}
	qv, err := rot.Apply(RowQueryVectors(rows))
	if err != nil {
		return nil, nil, err
	}
	tv, err := rot.Apply(RowTitleVectors(rows))
	if err != nil {
		return nil, nil, err
	}
	return qv, tv, nil
}

// TrainCentroids runs spherical k-means over the distinct train split title vectors.
func TrainCentroids(rows []models.Row, n int, iterations int, seed int64) ([][]float32, error) {
	_, docs := Split(FilterSplit(rows, models.SplitTrain))
	return transform.TrainKMeans(TitleVectors(docs), n, transform.KMeansOptions{
		Iterations: iterations,
		Seed:       seed,
		Spherical:  true,
	})
}

// CentroidRows fills title_centroids and query_centroids with the ids of the
// closest perDocument and perQuery centroids.
func CentroidRows(rows []models.Row, centroids [][]float32, perDocument, perQuery int) ([]models.Row, error) {
	tc, err := transform.AssignClusters(RowTitleVectors(rows), centroids, perDocument)
	if err != nil {
		return nil, err
	}
	qc, err := transform.AssignClusters(RowQueryVectors(rows), centroids, perQuery)
	if err != nil {
		return nil, err
	}
	out := cloneRows(rows)
	for i := range out {
		out[i].TitleCentroids = tc[i]
		out[i].QueryCentroids = qc[i]
	}
	return out, nil
}
