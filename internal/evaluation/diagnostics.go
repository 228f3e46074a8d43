package evaluation

import (
	"fmt"
	"sync"

	"github.com/rs/zerolog"
)

// Diagnostic kinds recorded during a job. None of them abort the pipeline.
const (
	DiagnosticMalformedLogLine     = "malformed_log_line"
	DiagnosticMissingRoutingLog    = "missing_routing_log"
	DiagnosticDuplicateGroundTruth = "duplicate_ground_truth"
	DiagnosticJudgeError           = "judge_error"
	DiagnosticUnmatched            = "unmatched"
	DiagnosticArtifactMirror       = "artifact_mirror"
)

// Diagnostic is a non-fatal data-quality or scoring signal.
type Diagnostic struct {
	Kind    string `json:"kind"`
	ItemID  string `json:"item_id,omitempty"`
	Message string `json:"message"`
}

func (d Diagnostic) String() string {
	if d.ItemID == "" {
		return fmt.Sprintf("%s: %s", d.Kind, d.Message)
	}
	return fmt.Sprintf("%s [%s]: %s", d.Kind, d.ItemID, d.Message)
}

// Diagnostics collects job-local warnings. Safe for concurrent use.
type Diagnostics struct {
	mu     sync.Mutex
	items  []Diagnostic
	logger zerolog.Logger
}

// NewDiagnostics returns a collector that also logs each entry at warn level.
func NewDiagnostics(logger zerolog.Logger) *Diagnostics {
	return &Diagnostics{logger: logger}
}

// Add records a diagnostic.
func (d *Diagnostics) Add(kind, itemID, message string) {
	if d == nil {
		return
	}
	entry := Diagnostic{Kind: kind, ItemID: itemID, Message: message}

	d.mu.Lock()
	d.items = append(d.items, entry)
	d.mu.Unlock()

	d.logger.Warn().Str("kind", kind).Str("item_id", itemID).Msg(message)
}

// Items returns a copy of the recorded diagnostics in insertion order.
func (d *Diagnostics) Items() []Diagnostic {
	if d == nil {
		return nil
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	out := make([]Diagnostic, len(d.items))
	copy(out, d.items)
	return out
}

// Count returns the number of diagnostics of the given kind.
func (d *Diagnostics) Count(kind string) int {
	if d == nil {
		return 0
	}
	d.mu.Lock()
	defer d.mu.Unlock()

	n := 0
	for _, item := range d.items {
		if item.Kind == kind {
			n++
		}
	}
	return n
}

// Strings renders every diagnostic as a single line.
func (d *Diagnostics) Strings() []string {
	items := d.Items()
	if len(items) == 0 {
		return nil
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		out = append(out, item.String())
	}
	return out
}
