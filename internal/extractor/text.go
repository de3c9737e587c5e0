package extractor

import (
	"bufio"
	"bytes"
	"strings"
)

// Text handles plain text and CSV content.
type Text struct{}

func (e *Text) Extract(data []byte) (string, error) {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var out strings.Builder
	for scanner.Scan() {
		if out.Len() > 0 {
			out.WriteString("\n")
		}
		out.WriteString(scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return out.String(), nil
}
