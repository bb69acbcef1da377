package models

import "testing"

func TestLabel_Gain(t *testing.T) {
	tests := []struct {
		label Label
		want  float64
	}{
		{LabelExact, 1.0},
		{LabelSubstitute, 0.01},
		{LabelComplement, 0.1},
		{LabelIrrelevant, 0.0},
		{Label("?"), 0.0},
	}
	for _, tt := range tests {
		t.Run(string(tt.label), func(t *testing.T) {
			if got := tt.label.Gain(); got != tt.want {
				t.Errorf("Gain() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestParseLabel(t *testing.T) {
	tests := []struct {
		in      string
		want    Label
		wantErr bool
	}{
		{"E", LabelExact, false},
		{"Substitute", LabelSubstitute, false},
		{"C", LabelComplement, false},
		{"", LabelIrrelevant, false},
		{"X", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseLabel(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseLabel(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseLabel(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestRow_Projections(t *testing.T) {
	r := Row{
		QueryID: "q1", Query: "hdmi cable", ProductID: "p1", ProductTitle: "HDMI 2m",
		Split: SplitTrain, QueryVector: []float32{1, 0}, TitleVector: []float32{0, 1},
		QueryHash: "10", TitleHash: "01", QueryCentroids: []int{3}, TitleCentroids: []int{1, 2},
	}
	q := r.QueryPart()
	if q.ID != "q1" || q.Text != "hdmi cable" || q.Hash != "10" || len(q.Centroids) != 1 {
		t.Errorf("unexpected query projection: %+v", q)
	}
	d := r.Document()
	if d.ID != "p1" || d.Title != "HDMI 2m" || d.Hash != "01" || d.Split != SplitTrain || len(d.Centroids) != 2 {
		t.Errorf("unexpected document projection: %+v", d)
	}
}
