package extract

import (
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// LastPage scans the paginator links and returns the highest integer label.
// Malformed labels are ignored; a document without paginator markup is a
// single-page source and yields 1. Never fails.
func LastPage(doc *goquery.Document) int {
	last := 1
	doc.Find(".pagination a, .pager a, nav a").Each(func(_ int, link *goquery.Selection) {
		label := strings.TrimSpace(link.Text())
		n, err := strconv.Atoi(label)
		if err != nil {
			return
		}
		if n > last {
			last = n
		}
	})
	return last
}
