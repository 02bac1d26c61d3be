package textprep

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Clean normalizes stored article text before it is embedded or tagged.
// Scraped full text occasionally retains markup fragments; any tags are
// stripped and whitespace is collapsed to single spaces.
func Clean(raw string) string {
	if !strings.Contains(raw, "<") {
		return collapse(raw)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return collapse(raw)
	}
	return collapse(doc.Text())
}

func collapse(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
