package patcher

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/google/uuid"

	"github.com/studioph/StaticPatcher/internal/classifier"
	"github.com/studioph/StaticPatcher/internal/record"
)

// Outcome is what the planner decided for one placement.
type Outcome string

const (
	OutcomeSelected  Outcome = "selected"
	OutcomeUnmatched Outcome = "unmatched"
	OutcomeSkipped   Outcome = "skipped"
)

// Candidate is a placement selected by a rule.
type Candidate struct {
	Placement        record.ID           `json:"placement"`
	Base             record.ID           `json:"base"`
	BaseName         string              `json:"base_name,omitempty"`
	Cell             record.ID           `json:"cell"`
	Static           string              `json:"static_category"`
	StaticStrategy   classifier.Strategy `json:"static_strategy"`
	Location         string              `json:"location_category"`
	LocationStrategy classifier.Strategy `json:"location_strategy"`
	Rule             string              `json:"rule"`
}

// Stats counts placements by outcome.
type Stats struct {
	Placements int `json:"placements"`
	Selected   int `json:"selected"`
	Unmatched  int `json:"unmatched"`
	Skipped    int `json:"skipped"`
}

func (s *Stats) add(o Outcome) {
	s.Placements++
	switch o {
	case OutcomeSelected:
		s.Selected++
	case OutcomeUnmatched:
		s.Unmatched++
	case OutcomeSkipped:
		s.Skipped++
	}
}

// Plan is the result of a planning run. Candidates are sorted by placement
// ID, so two runs over the same records differ only in RunID.
type Plan struct {
	RunID      uuid.UUID   `json:"run_id"`
	Candidates []Candidate `json:"candidates"`
	Stats      Stats       `json:"stats"`
}

// Encode writes p as indented JSON.
func (p *Plan) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(p); err != nil {
		return fmt.Errorf("failed to encode plan: %w", err)
	}
	return nil
}

// WriteFile writes p to path, replacing any existing file.
func (p *Plan) WriteFile(path string) error {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0644)
	if err != nil {
		return fmt.Errorf("failed to create plan file: %w", err)
	}
	if err := p.Encode(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close plan file: %w", err)
	}
	return nil
}
