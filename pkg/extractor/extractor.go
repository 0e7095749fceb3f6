// Package extractor turns raw uploaded bytes into plain text, selected by the
// declared content type. PDF and HTML get real extraction; everything else is
// treated as UTF-8 text.
package extractor

import (
	"fmt"
	"mime"
	"strings"
	"unicode/utf8"

	"github.com/xhad/graphrag/internal/errs"
)

// Extract returns the plain text content of data according to contentType.
func Extract(data []byte, contentType string) (string, error) {
	mediaType := contentType
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}

	switch strings.ToLower(mediaType) {
	case "application/pdf":
		text, err := fromPDF(data)
		if err != nil {
			return "", fmt.Errorf("%w: extracting PDF text: %v", errs.ErrValidation, err)
		}
		return text, nil
	case "text/html":
		text, err := fromHTML(data)
		if err != nil {
			return "", fmt.Errorf("%w: extracting HTML text: %v", errs.ErrValidation, err)
		}
		return text, nil
	default:
		return sanitizeUTF8(string(data)), nil
	}
}

func sanitizeUTF8(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	v := make([]rune, 0, len(s))
	for i, r := range s {
		if r == utf8.RuneError {
			_, size := utf8.DecodeRuneInString(s[i:])
			if size == 1 {
				continue
			}
		}
		v = append(v, r)
	}
	return string(v)
}
