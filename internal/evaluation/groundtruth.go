package evaluation

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Ground truth column names. Header matching ignores case and surrounding spaces.
const (
	ColumnQuestion = "Question"
	ColumnAnswers  = "Answers"
	ColumnSource   = "Source_Name"
)

// GroundTruthTable holds reference answers keyed by normalized question.
// It is read-only once built.
type GroundTruthTable struct {
	records map[string]GroundTruthRecord
	// Duplicates counts rows dropped because their key was already present.
	Duplicates int
}

// Lookup returns the reference record for an already normalized key.
func (t *GroundTruthTable) Lookup(key string) (GroundTruthRecord, bool) {
	if t == nil {
		return GroundTruthRecord{}, false
	}
	record, ok := t.records[key]
	return record, ok
}

// LookupQuestion normalizes question and looks it up.
func (t *GroundTruthTable) LookupQuestion(question string) (GroundTruthRecord, bool) {
	return t.Lookup(NormalizeQuestion(question))
}

// Len returns the number of distinct keys.
func (t *GroundTruthTable) Len() int {
	if t == nil {
		return 0
	}
	return len(t.records)
}

// LoadGroundTruthFile opens path and parses it with LoadGroundTruth.
func LoadGroundTruthFile(path string, diags *Diagnostics) (*GroundTruthTable, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open ground truth %q: %w: %v", path, ErrSourceUnreadable, err)
	}
	defer file.Close()

	if err := ensureText(file); err != nil {
		return nil, fmt.Errorf("ground truth %q: %w", path, err)
	}

	return LoadGroundTruth(file, diags)
}

// LoadGroundTruth parses CSV ground truth. The first row with a given
// normalized question wins; later collisions are recorded as diagnostics.
func LoadGroundTruth(r io.Reader, diags *Diagnostics) (*GroundTruthTable, error) {
	reader := csv.NewReader(r)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, fmt.Errorf("ground truth header: %w: %s", ErrMissingRequiredColumn, ColumnQuestion)
		}
		return nil, fmt.Errorf("ground truth header: %w: %v", ErrSourceUnreadable, err)
	}

	columns := indexColumns(header)
	questionCol, ok := columns[strings.ToLower(ColumnQuestion)]
	if !ok {
		return nil, fmt.Errorf("ground truth: %w: %s", ErrMissingRequiredColumn, ColumnQuestion)
	}
	answerCol, ok := columns[strings.ToLower(ColumnAnswers)]
	if !ok {
		return nil, fmt.Errorf("ground truth: %w: %s", ErrMissingRequiredColumn, ColumnAnswers)
	}
	sourceCol, hasSource := columns[strings.ToLower(ColumnSource)]

	table := &GroundTruthTable{records: map[string]GroundTruthRecord{}}
	row := 1
	for {
		fields, err := reader.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		row++
		if err != nil {
			return nil, fmt.Errorf("ground truth row %d: %w: %v", row, ErrSourceUnreadable, err)
		}

		question := strings.TrimSpace(field(fields, questionCol))
		key := NormalizeQuestion(question)
		if key == "" {
			continue
		}

		record := GroundTruthRecord{
			Key:      key,
			Question: question,
			Answer:   strings.TrimSpace(field(fields, answerCol)),
			Row:      row,
		}
		if hasSource {
			record.Source = strings.TrimSpace(field(fields, sourceCol))
		}

		if first, exists := table.records[key]; exists {
			table.Duplicates++
			diags.Add(DiagnosticDuplicateGroundTruth, "", fmt.Sprintf("row %d repeats question from row %d; keeping row %d", row, first.Row, first.Row))
			continue
		}
		table.records[key] = record
	}

	return table, nil
}

func indexColumns(header []string) map[string]int {
	columns := make(map[string]int, len(header))
	for i, name := range header {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		key := strings.ToLower(strings.TrimSpace(name))
		if _, exists := columns[key]; !exists {
			columns[key] = i
		}
	}
	return columns
}

func field(fields []string, idx int) string {
	if idx < 0 || idx >= len(fields) {
		return ""
	}
	return fields[idx]
}
