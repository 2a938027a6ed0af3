package detection

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// LabelTable maps class indices to human-readable names.
type LabelTable []string

// Lookup returns the name for class i and whether i is in range.
func (t LabelTable) Lookup(i int) (string, bool) {
	if i < 0 || i >= len(t) {
		return "", false
	}
	return t[i], true
}

// Len returns the number of labels.
func (t LabelTable) Len() int { return len(t) }

// ParseLabels reads one label per line (Darknet .names format).
// Blank lines are skipped and surrounding whitespace is trimmed.
func ParseLabels(r io.Reader) (LabelTable, error) {
	var labels LabelTable
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		labels = append(labels, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("read labels: %w", err)
	}
	return labels, nil
}

// LoadLabels reads a label file from disk.
func LoadLabels(path string) (LabelTable, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open labels: %w", err)
	}
	defer f.Close()

	return ParseLabels(f)
}
