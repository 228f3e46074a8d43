package evaluation

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

const utf8BOM = "\uFEFF"

const sniffLimit = 3072

// ensureText rejects sources whose leading bytes are not detected as text and
// rewinds the source afterwards.
func ensureText(src io.ReadSeeker) error {
	buf := make([]byte, sniffLimit)
	n, err := io.ReadFull(src, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}
	if _, err := src.Seek(0, io.SeekStart); err != nil {
		return fmt.Errorf("%w: %v", ErrSourceUnreadable, err)
	}
	if n == 0 {
		return nil
	}

	detected := mimetype.Detect(buf[:n])
	for m := detected; m != nil; m = m.Parent() {
		if m.Is("text/plain") {
			return nil
		}
	}

	return fmt.Errorf("%w: unsupported content type %s", ErrSourceUnreadable, detected.String())
}

// NormalizeQuestion case-folds, trims and collapses internal whitespace.
// It is idempotent.
func NormalizeQuestion(text string) string {
	return strings.Join(strings.Fields(strings.ToLower(text)), " ")
}

func stringify(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case []string:
		return strings.Join(v, ",")
	case []any:
		parts := make([]string, 0, len(v))
		for _, item := range v {
			parts = append(parts, stringify(item))
		}
		return strings.Join(parts, ",")
	case fmt.Stringer:
		return v.String()
	default:
		data, err := json.Marshal(v)
		if err != nil {
			return fmt.Sprintf("%v", v)
		}
		return string(data)
	}
}
