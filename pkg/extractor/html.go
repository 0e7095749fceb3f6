package extractor

import (
	"bytes"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

func fromHTML(data []byte) (string, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(data))
	if err != nil {
		return "", err
	}

	doc.Find("script, style, noscript").Remove()

	root := doc.Find("body")
	if root.Length() == 0 {
		root = doc.Selection
	}

	var parts []string
	root.Find("*").Each(func(i int, s *goquery.Selection) {
		if s.Children().Length() == 0 {
			if text := strings.TrimSpace(s.Text()); text != "" {
				parts = append(parts, text)
			}
		}
	})
	if len(parts) == 0 {
		return strings.TrimSpace(root.Text()), nil
	}
	return strings.Join(parts, "\n"), nil
}
