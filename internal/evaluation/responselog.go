package evaluation

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
)

const maxLogLineBytes = 16 * 1024 * 1024

// ResponseIndex maps response identifiers to their most recent log entry.
// It is read-only once built.
type ResponseIndex struct {
	records map[string]ResponseRecord
	// Skipped counts malformed response log lines.
	Skipped int
}

// Lookup returns the record for id. A miss is an expected outcome, not an error.
func (ix *ResponseIndex) Lookup(id string) (ResponseRecord, bool) {
	if ix == nil {
		return ResponseRecord{}, false
	}
	record, ok := ix.records[id]
	return record, ok
}

// Len returns the number of distinct identifiers indexed.
func (ix *ResponseIndex) Len() int {
	if ix == nil {
		return 0
	}
	return len(ix.records)
}

// LoadResponseIndex opens the response log and, when routingPath is not empty,
// the routing log. A missing routing log is recorded as a diagnostic.
func LoadResponseIndex(responsePath, routingPath string, diags *Diagnostics) (*ResponseIndex, error) {
	responses, err := os.Open(responsePath)
	if err != nil {
		return nil, fmt.Errorf("open response log %q: %w: %v", responsePath, ErrLogUnreadable, err)
	}
	defer responses.Close()

	var routing io.Reader
	if routingPath != "" {
		file, err := os.Open(routingPath)
		switch {
		case err == nil:
			defer file.Close()
			routing = file
		case errors.Is(err, fs.ErrNotExist):
			diags.Add(DiagnosticMissingRoutingLog, "", fmt.Sprintf("routing log %s not found; questions must come from the response log", routingPath))
		default:
			return nil, fmt.Errorf("open routing log %q: %w: %v", routingPath, ErrLogUnreadable, err)
		}
	}

	return BuildResponseIndex(responses, routing, diags)
}

// BuildResponseIndex reads JSONL response entries keyed by response_id. Later
// entries supersede earlier ones. Question text and source labels missing from
// a response entry are taken from the routing entry sharing its
// orchestrator_request_id.
func BuildResponseIndex(responses io.Reader, routing io.Reader, diags *Diagnostics) (*ResponseIndex, error) {
	routes := map[string]map[string]any{}
	if routing != nil {
		var err error
		routes, _, err = readJSONL(routing, "orchestrator_request_id", "routing", diags)
		if err != nil {
			return nil, err
		}
	}

	entries, stats, err := readJSONL(responses, "response_id", "response", diags)
	if err != nil {
		return nil, err
	}

	if stats.lines > 0 && len(entries) == 0 {
		return nil, fmt.Errorf("response log: %w: no valid entries in %d lines", ErrLogUnreadable, stats.lines)
	}

	index := &ResponseIndex{
		records: make(map[string]ResponseRecord, len(entries)),
		Skipped: stats.skipped,
	}

	for id, entry := range entries {
		requestID := stringify(entry["orchestrator_request_id"])
		route := routes[requestID]
		index.records[id] = newResponseRecord(id, requestID, entry, route)
	}

	index.linkConversations()
	return index, nil
}

func newResponseRecord(id, requestID string, entry, route map[string]any) ResponseRecord {
	metadata := make(map[string]any, len(entry)+len(route))
	for k, v := range route {
		metadata[k] = v
	}
	for k, v := range entry {
		metadata[k] = v
	}

	question := firstString(entry, "question", "user_query")
	if question == "" {
		question = firstString(route, "question", "user_query")
	}

	sources := sourceLabels(entry)
	if len(sources) == 0 {
		sources = sourceLabels(route)
	}

	return ResponseRecord{
		ID:         id,
		RequestID:  requestID,
		PreviousID: stringify(entry["previous_response_id"]),
		Question:   question,
		Answer:     firstString(entry, "assistant_response", "answer", "response"),
		Sources:    sources,
		Metadata:   metadata,
	}
}

// linkConversations derives conversation root and turn number by following
// previous_response_id chains.
func (ix *ResponseIndex) linkConversations() {
	for id, record := range ix.records {
		root := id
		turn := 1
		seen := map[string]struct{}{id: {}}
		prev := record.PreviousID
		for prev != "" {
			if _, loop := seen[prev]; loop {
				break
			}
			seen[prev] = struct{}{}
			root = prev
			turn++
			parent, ok := ix.records[prev]
			if !ok {
				break
			}
			prev = parent.PreviousID
		}
		record.ConversationID = root
		record.Turn = turn
		ix.records[id] = record
	}
}

type jsonlStats struct {
	lines   int
	skipped int
}

func readJSONL(r io.Reader, keyField, label string, diags *Diagnostics) (map[string]map[string]any, jsonlStats, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLogLineBytes)

	entries := map[string]map[string]any{}
	stats := jsonlStats{}
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := bytes.TrimSpace(scanner.Bytes())
		if lineNo == 1 {
			line = bytes.TrimPrefix(line, []byte(utf8BOM))
		}
		if len(line) == 0 {
			continue
		}
		stats.lines++

		var entry map[string]any
		if err := json.Unmarshal(line, &entry); err != nil {
			stats.skipped++
			diags.Add(DiagnosticMalformedLogLine, "", fmt.Sprintf("%s log line %d: %v", label, lineNo, err))
			continue
		}
		key := strings.TrimSpace(stringify(entry[keyField]))
		if key == "" {
			stats.skipped++
			diags.Add(DiagnosticMalformedLogLine, "", fmt.Sprintf("%s log line %d: missing %s", label, lineNo, keyField))
			continue
		}
		entries[key] = entry
	}
	if err := scanner.Err(); err != nil {
		return nil, stats, fmt.Errorf("read %s log: %w: %v", label, ErrLogUnreadable, err)
	}

	return entries, stats, nil
}

func firstString(entry map[string]any, keys ...string) string {
	for _, key := range keys {
		if value, ok := entry[key]; ok && value != nil {
			if s := strings.TrimSpace(stringify(value)); s != "" {
				return s
			}
		}
	}
	return ""
}

func sourceLabels(entry map[string]any) []string {
	if entry == nil {
		return nil
	}
	for _, key := range []string{"selected_sources", "sources", "source_name", "source"} {
		value, ok := entry[key]
		if !ok || value == nil {
			continue
		}
		var labels []string
		switch v := value.(type) {
		case []any:
			for _, item := range v {
				if s := strings.TrimSpace(stringify(item)); s != "" {
					labels = append(labels, s)
				}
			}
		case string:
			if s := strings.TrimSpace(v); s != "" {
				labels = append(labels, s)
			}
		}
		if len(labels) > 0 {
			return labels
		}
	}
	return nil
}
