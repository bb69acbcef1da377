package backend

import "fmt"

// DefaultIndexOptions maps title_vector as a float knn_vector.
func DefaultIndexOptions(dimension int) map[string]any {
	return vectorMapping(map[string]any{
		"type":      "knn_vector",
		"dimension": dimension,
	})
}

// ByteIndexOptions maps title_vector as int8 codes.
func ByteIndexOptions(dimension int) map[string]any {
	return vectorMapping(map[string]any{
		"type":      "knn_vector",
		"dimension": dimension,
		"data_type": "byte",
	})
}

// HNSWIndexOptions enables native k-NN with a Lucene HNSW graph over inner product.
func HNSWIndexOptions(dimension int) map[string]any {
	opts := vectorMapping(map[string]any{
		"type":       "knn_vector",
		"dimension":  dimension,
		"space_type": "innerproduct",
		"method":     map[string]any{"engine": "lucene", "name": "hnsw"},
	})
	opts["settings"] = map[string]any{"index.knn": true}
	return opts
}

func vectorMapping(field map[string]any) map[string]any {
	return map[string]any{
		"mappings": map[string]any{
			"properties": map[string]any{
				VectorField: field,
			},
		},
	}
}

// Strategy names.
const (
	StrategyVector   = "vector"
	StrategyHash     = "hash"
	StrategyCentroid = "centroid"
	StrategyHNSW     = "hnsw"
	StrategyByte     = "byte"
)

// Strategy pairs a formatter with the index options it needs.
type Strategy struct {
	Name         string
	Formatter    Formatter
	IndexOptions map[string]any
}

// Strategies lists the supported strategy names.
func Strategies() []string {
	return []string{StrategyVector, StrategyHash, StrategyCentroid, StrategyHNSW, StrategyByte}
}

// NewStrategy returns the strategy called name for vectors of dimension, retrieving size hits.
func NewStrategy(name string, dimension, size int) (*Strategy, error) {
	switch name {
	case StrategyVector, "":
		return &Strategy{Name: StrategyVector, Formatter: VectorFormatter{}, IndexOptions: DefaultIndexOptions(dimension)}, nil
	case StrategyHash:
		return &Strategy{Name: name, Formatter: HashFormatter{}, IndexOptions: DefaultIndexOptions(dimension)}, nil
	case StrategyCentroid:
		return &Strategy{Name: name, Formatter: CentroidFormatter{}, IndexOptions: DefaultIndexOptions(dimension)}, nil
	case StrategyHNSW:
		return &Strategy{Name: name, Formatter: KNNFormatter{K: size}, IndexOptions: HNSWIndexOptions(dimension)}, nil
	case StrategyByte:
		return &Strategy{Name: name, Formatter: VectorFormatter{}, IndexOptions: ByteIndexOptions(dimension)}, nil
	default:
		return nil, fmt.Errorf("unknown strategy: %s (supported: vector, hash, centroid, hnsw, byte)", name)
	}
}
