package extractor

import (
	"bytes"
	"fmt"

	"code.sajari.com/docconv/v2"
)

// Universal delegates to docconv for formats without a dedicated
// extractor (odt, rtf, legacy doc).
type Universal struct {
	MIMEType string
}

func (e *Universal) Extract(data []byte) (string, error) {
	res, err := docconv.Convert(bytes.NewReader(data), e.MIMEType, true)
	if err != nil {
		return "", fmt.Errorf("convert document: %w", err)
	}
	return res.Body, nil
}
