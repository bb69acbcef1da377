package evalerr

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

func TestCategories(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"dimension", DimensionMismatch("query_vector", 4, 3), ErrValidation},
		{"invalid", Invalid("k", "must be positive, got %d", 0), ErrValidation},
		{"insufficient", Insufficient("calibration vectors", 0, 1), ErrInsufficientData},
		{"backend", &BackendOperationError{Op: "bulk", Index: "ch03", Status: 500}, ErrBackend},
		{"missing", &MissingPrecomputedDataError{Path: "x.jsonl", Stage: "vectorize"}, ErrMissingPrecomputedData},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := fmt.Errorf("evaluate: %w", tt.err)
			if !errors.Is(wrapped, tt.want) {
				t.Errorf("errors.Is(%v, %v) = false", wrapped, tt.want)
			}
		})
	}
}

func TestBackendOperationError_Unwrap(t *testing.T) {
	cause := errors.New("connection refused")
	err := &BackendOperationError{Op: "search", Index: "ch10", Cause: cause}
	if !errors.Is(err, cause) {
		t.Error("cause should be reachable through Unwrap")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("message should include cause: %s", err.Error())
	}
}

func TestMissingPrecomputedDataError_NamesStage(t *testing.T) {
	err := &MissingPrecomputedDataError{Path: "/tmp/tuned.jsonl", Stage: "vectorize"}
	if !strings.Contains(err.Error(), `"vectorize"`) {
		t.Errorf("message should name the stage: %s", err.Error())
	}
	var target *MissingPrecomputedDataError
	if !errors.As(fmt.Errorf("load: %w", err), &target) || target.Stage != "vectorize" {
		t.Error("errors.As should recover the stage")
	}
}
