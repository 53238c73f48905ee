// Package encoder serializes metric snapshots to their canonical wire form.
// The format is JSON with a stable field order (struct declaration order)
// and explicit nulls for unmeasured sections, so the collector can tell
// "not measured" from "measured as zero". The transformation is pure; an
// encode failure on a valid snapshot is a programming defect, not an
// environmental one.
//
// The wire shape lives entirely in this package — swapping the format means
// swapping this package, nothing else.
package encoder

import (
	"encoding/json"
	"fmt"

	"github.com/msle237-lees/homelab-agent/internal/models"
)

// Encode serializes a snapshot to its canonical JSON representation.
func Encode(s *models.MetricSnapshot) ([]byte, error) {
	if s == nil {
		return nil, fmt.Errorf("nil snapshot")
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return data, nil
}

// Decode parses a canonical payload back into a snapshot and re-validates
// it. Used by tests for round-trip checks and available to any local
// consumer of the wire format.
func Decode(data []byte) (*models.MetricSnapshot, error) {
	var s models.MetricSnapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if err := s.Validate(); err != nil {
		return nil, fmt.Errorf("decoded snapshot invalid: %w", err)
	}
	return &s, nil
}
