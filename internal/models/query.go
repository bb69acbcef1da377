package models

import "fmt"

// Label is an ESCI relevance judgment.
type Label string

const (
	LabelExact      Label = "E"
	LabelSubstitute Label = "S"
	LabelComplement Label = "C"
	LabelIrrelevant Label = "I"
)

var labelGains = map[Label]float64{
	LabelExact:      1.0,
	LabelSubstitute: 0.01,
	LabelComplement: 0.1,
	LabelIrrelevant: 0.0,
}

// Gain returns the nDCG gain of l. Unknown labels count as irrelevant.
func (l Label) Gain() float64 {
	return labelGains[l]
}

// ParseLabel accepts the one-letter code or the full name, case-sensitive.
func ParseLabel(s string) (Label, error) {
	switch s {
	case "E", "Exact":
		return LabelExact, nil
	case "S", "Substitute":
		return LabelSubstitute, nil
	case "C", "Complement":
		return LabelComplement, nil
	case "I", "Irrelevant", "":
		return LabelIrrelevant, nil
	}
	return "", fmt.Errorf("unknown relevance label: %q", s)
}

// Query is the query-side projection of a row.
type Query struct {
	ID        string
	Text      string
	Vector    []float32
	Hash      string
	Centroids []int
}

// QueryPart projects the query columns of r.
func (r *Row) QueryPart() Query {
	return Query{
		ID:        r.QueryID,
		Text:      r.Query,
		Vector:    r.QueryVector,
		Hash:      r.QueryHash,
		Centroids: r.QueryCentroids,
	}
}
