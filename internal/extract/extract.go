// Package extract turns fetched documents into player records. Extraction is
// deliberately forgiving: a layout mismatch yields zero records for that
// page, never an error, so one malformed page cannot kill a whole crawl.
package extract

import (
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"

	"github.com/futdex/futdex/internal/roster"
)

// minRowCells is the number of leading cells a row must carry to produce a
// record: name, position, team, nationality, height, weight, age, rating.
const minRowCells = 8

// Parse builds a queryable document tree from response body text.
func Parse(body string) (*goquery.Document, error) {
	return goquery.NewDocumentFromReader(strings.NewReader(body))
}

// TableLocator finds the data table in a document. Pluggable so that
// source-markup drift only requires swapping the strategy.
type TableLocator interface {
	// Locate returns the target table selection, or nil when absent.
	Locate(doc *goquery.Document) *goquery.Selection
}

// HeaderTextLocator picks the first table whose header row text contains a
// name marker and a rating marker, case-insensitive.
type HeaderTextLocator struct {
	NameMarker    string
	RatingMarkers []string
}

// DefaultLocator matches the source's current table layout.
func DefaultLocator() HeaderTextLocator {
	return HeaderTextLocator{
		NameMarker:    "name",
		RatingMarkers: []string{"rating", "overall"},
	}
}

// Locate implements TableLocator.
func (l HeaderTextLocator) Locate(doc *goquery.Document) *goquery.Selection {
	var found *goquery.Selection
	doc.Find("table").EachWithBreak(func(_ int, table *goquery.Selection) bool {
		header := strings.ToLower(table.Find("tr").First().Text())
		if !strings.Contains(header, strings.ToLower(l.NameMarker)) {
			return true
		}
		for _, marker := range l.RatingMarkers {
			if strings.Contains(header, strings.ToLower(marker)) {
				found = table
				return false
			}
		}
		return true
	})
	return found
}

// idPattern matches the numeric id parameter in a detail link, either as a
// query parameter or a path segment.
var idPattern = regexp.MustCompile(`(?i)(?:[?&](?:id|player_id)=|/player/)(\d+)`)

// leadingInt matches the integer prefix of a cell like "187 cm".
var leadingInt = regexp.MustCompile(`^\d+`)

// Extractor reads player rows out of located tables.
type Extractor struct {
	locator TableLocator
	baseURL *url.URL
	logger  *zap.Logger
}

// New builds an Extractor resolving detail links against baseURL. A nil or
// unparsable base leaves source URLs as found in the markup.
func New(locator TableLocator, baseURL string, logger *zap.Logger) *Extractor {
	if locator == nil {
		locator = DefaultLocator()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	var base *url.URL
	if baseURL != "" {
		if parsed, err := url.Parse(baseURL); err == nil {
			base = parsed
		}
	}
	return &Extractor{locator: locator, baseURL: base, logger: logger}
}

// Players extracts all complete rows from the document's data table. Rows
// with fewer than the minimum cell count are dropped whole, not partially
// populated.
func (e *Extractor) Players(doc *goquery.Document) []roster.Player {
	table := e.locator.Locate(doc)
	if table == nil {
		e.logger.Debug("no data table located on page")
		return nil
	}

	var players []roster.Player
	table.Find("tr").Each(func(i int, row *goquery.Selection) {
		if i == 0 {
			return // header row
		}
		cells := row.Find("td")
		if cells.Length() < minRowCells {
			return
		}
		player := e.readRow(cells)
		if player.Name == "" {
			return
		}
		players = append(players, player)
	})
	return players
}

func (e *Extractor) readRow(cells *goquery.Selection) roster.Player {
	text := func(i int) string {
		return strings.TrimSpace(cells.Eq(i).Text())
	}
	player := roster.Player{
		Name:        text(0),
		Position:    text(1),
		Team:        text(2),
		Nationality: text(3),
		Height:      parseCellInt(text(4)),
		Weight:      parseCellInt(text(5)),
		Age:         parseCellInt(text(6)),
		Rating:      parseCellInt(text(7)),
	}
	if href, ok := cells.Eq(0).Find("a").First().Attr("href"); ok {
		player.SourceURL = e.resolve(href)
		if m := idPattern.FindStringSubmatch(player.SourceURL); m != nil {
			player.ExternalID = m[1]
		}
	}
	return player
}

func (e *Extractor) resolve(href string) string {
	ref, err := url.Parse(strings.TrimSpace(href))
	if err != nil {
		return ""
	}
	if e.baseURL != nil {
		return e.baseURL.ResolveReference(ref).String()
	}
	return ref.String()
}

// parseCellInt applies empty-on-failure numeric coercion: a cell that does
// not start with digits yields no value rather than zero.
func parseCellInt(cell string) *int {
	match := leadingInt.FindString(cell)
	if match == "" {
		return nil
	}
	n, err := strconv.Atoi(match)
	if err != nil {
		return nil
	}
	return &n
}
