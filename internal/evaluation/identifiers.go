package evaluation

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LoadIdentifiersFile reads newline-delimited response identifiers from path.
func LoadIdentifiersFile(path string) ([]string, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open identifiers %q: %w: %v", path, ErrSourceUnreadable, err)
	}
	defer file.Close()

	if err := ensureText(file); err != nil {
		return nil, fmt.Errorf("identifiers %q: %w", path, err)
	}

	return LoadIdentifiers(file)
}

// LoadIdentifiers returns the trimmed, non-empty lines of r in order.
// Duplicates are kept.
func LoadIdentifiers(r io.Reader) ([]string, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var ids []string
	for scanner.Scan() {
		line := strings.TrimSpace(strings.TrimPrefix(scanner.Text(), utf8BOM))
		if line == "" {
			continue
		}
		ids = append(ids, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read identifiers: %w: %v", ErrSourceUnreadable, err)
	}

	if len(ids) == 0 {
		return nil, ErrEmptyInput
	}

	return ids, nil
}
