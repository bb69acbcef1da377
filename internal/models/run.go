package models

import "time"

// Run modes.
const (
	RunModeIndex     = "index"
	RunModeBackend   = "backend"
	RunModePairwise  = "pairwise"
	RunModeJudgments = "judgments"
)

// Run is one persisted evaluation.
type Run struct {
	ID         string            `json:"id"`
	Name       string            `json:"name"`
	Mode       string            `json:"mode"`
	K          int               `json:"k"`
	MeanNDCG   float64           `json:"mean_ndcg"`
	SearchTook time.Duration     `json:"search_took"`
	Queries    int               `json:"queries"`
	Documents  int               `json:"documents"`
	Failed     int               `json:"failed"`
	Params     map[string]string `json:"params,omitempty"`
	CreatedAt  time.Time         `json:"created_at"`
}
