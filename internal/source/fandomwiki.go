package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"regexp"
	"strconv"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skatetrax/ice-maker/internal/fetcher"
	"github.com/skatetrax/ice-maker/internal/model"
)

const (
	fandomWikiAPIURL = "https://figure-skating.fandom.com/api.php"
	fandomWikiPage   = "List_of_ice_rinks_in_the_USA"
)

// Bottom-of-page sections that hold summary tables, not rink rows.
var wikiSkipSections = map[string]struct{}{
	"Clubs":          {},
	"Defunct Clubs":  {},
	"Data":           {},
	"Sources":        {},
	"Contents":       {},
	"References":     {},
	"External links": {},
}

var wikiCountySynonyms = map[string]struct{}{
	"County":  {},
	"Borough": {},
	"Parish":  {},
}

var (
	wikiBlockRe    = regexp.MustCompile(`(?is)<h2[^>]*>.*?</h2>|<h3[^>]*>.*?</h3>|<table[^>]*>.*?</table>`)
	wikiHeadlineRe = regexp.MustCompile(`(?is)<span[^>]*class="[^"]*mw-headline[^"]*"[^>]*>(.*?)</span>`)
	rowspanRe      = regexp.MustCompile(`(?i)rowspan\s*=\s*["']?(\d+)`)
)

// FandomWiki pulls the figure-skating wiki's US rink directory through
// the MediaWiki parse API, which hands back the rendered page HTML as
// JSON and sidesteps the Cloudflare front end.
//
// The page is organised by state: an h2 headline per state, an h3
// "Defunct Rinks" sub-headline where the state lists closed rinks, and
// one table per section. City and county cells use rowspan when a city
// has several rinks, and column headers drift between states (County vs
// Borough vs Parish, Rink vs Name).
type FandomWiki struct {
	client  *fetcher.Client
	baseURL string
	logger  *zap.Logger
}

// NewFandomWiki creates the fandom_wiki fetcher.
func NewFandomWiki(client *fetcher.Client) *FandomWiki {
	return &FandomWiki{
		client:  client,
		baseURL: fandomWikiAPIURL,
		logger:  zap.L().With(zap.String("component", "source.fandom_wiki")),
	}
}

// Name returns the fetcher module name.
func (f *FandomWiki) Name() string { return "fandom_wiki" }

type wikiParseResponse struct {
	Parse struct {
		Text map[string]string `json:"text"`
	} `json:"parse"`
}

// wikiCell is one resolved table cell: its segmented text plus the
// first external link found inside it, if any.
type wikiCell struct {
	text string
	href string
}

type wikiColumns struct {
	city, county, rink, club, notes int
}

// Fetch walks the page blocks in document order, tracking the current
// state section and whether a defunct sub-section is open. Defunct
// rinks are collected and flagged rather than dropped; downstream
// decides what to do with them.
func (f *FandomWiki) Fetch(ctx context.Context) ([]model.FetchResult, error) {
	html, err := f.fetchHTML(ctx)
	if err != nil {
		return nil, eris.Wrap(err, "fandom_wiki: fetch page")
	}
	if !strings.Contains(html, "mw-parser-output") {
		f.logger.Error("content div not found in API response")
		return nil, nil
	}

	var results []model.FetchResult
	currentState := ""
	isDefunct := false

	for _, block := range wikiBlockRe.FindAllString(html, -1) {
		lower := strings.ToLower(block[:3])
		switch {
		case lower == "<h2":
			m := wikiHeadlineRe.FindStringSubmatch(block)
			if m == nil {
				continue
			}
			name := flatText(m[1])
			if _, skip := wikiSkipSections[name]; skip {
				currentState = ""
				continue
			}
			currentState = name
			isDefunct = false

		case lower == "<h3":
			m := wikiHeadlineRe.FindStringSubmatch(block)
			if m != nil && strings.Contains(strings.ToLower(flatText(m[1])), "defunct") {
				isDefunct = true
			}

		default: // table
			if currentState == "" {
				continue
			}
			headers, rows := resolveWikiTable(block)
			cols := mapWikiColumns(headers)
			if cols == nil {
				f.logger.Debug("skipping non-rink table",
					zap.String("state", currentState),
					zap.Strings("headers", headers))
				continue
			}

			for _, row := range rows {
				rink := cellAt(row, cols.rink)
				name := rink.text
				if name == "" || strings.ToLower(name) == "none" {
					continue
				}
				city := cellAt(row, cols.city).text
				results = append(results, model.FetchResult{
					Name:    name,
					Address: fmt.Sprintf("%s, %s", city, currentState),
					Extras: model.Extras{
						City:      city,
						State:     currentState,
						County:    cellAt(row, cols.county).text,
						Club:      cellAt(row, cols.club).text,
						Notes:     cellAt(row, cols.notes).text,
						Website:   rink.href,
						IsDefunct: isDefunct,
					},
				})
			}
		}
	}

	active := 0
	for _, r := range results {
		if !r.Extras.IsDefunct {
			active++
		}
	}
	f.logger.Info("fetch complete",
		zap.Int("rinks", len(results)),
		zap.Int("active", active),
		zap.Int("defunct", len(results)-active))
	return results, nil
}

func (f *FandomWiki) fetchHTML(ctx context.Context) (string, error) {
	params := url.Values{
		"action": {"parse"},
		"page":   {fandomWikiPage},
		"format": {"json"},
		"prop":   {"text"},
	}

	body, err := f.client.Get(ctx, f.baseURL+"?"+params.Encode())
	if err != nil {
		return "", err
	}

	var resp wikiParseResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", eris.Wrap(err, "decode parse envelope")
	}
	return resp.Parse.Text["*"], nil
}

// resolveWikiTable parses a table block into header names and cell
// rows, expanding rowspans so every row carries its inherited city and
// county values. Tables without a header row resolve to nothing.
func resolveWikiTable(tableHTML string) ([]string, [][]wikiCell) {
	rawRows := trRe.FindAllString(tableHTML, -1)
	if len(rawRows) == 0 {
		return nil, nil
	}

	var headers []string
	for _, m := range thRe.FindAllStringSubmatch(rawRows[0], -1) {
		headers = append(headers, flatText(m[1]))
	}
	if len(headers) == 0 {
		return nil, nil
	}

	ncols := len(headers)
	// One slot per column: a pending rowspan holds the cell value and
	// how many more rows it covers.
	type spanState struct {
		remaining int
		cell      wikiCell
	}
	active := make([]*spanState, ncols)

	var grid [][]wikiCell
	for _, tr := range rawRows[1:] {
		cells := cellRe.FindAllStringSubmatch(tr, -1)
		row := make([]wikiCell, ncols)
		ci := 0

		for col := 0; col < ncols; col++ {
			if active[col] != nil {
				row[col] = active[col].cell
				active[col].remaining--
				if active[col].remaining == 0 {
					active[col] = nil
				}
				continue
			}
			if ci >= len(cells) {
				continue
			}
			c := cells[ci]
			ci++
			row[col] = wikiCell{text: segmentedText(c[3]), href: firstHref(c[3])}
			if rs := rowspanOf(c[2]); rs > 1 {
				active[col] = &spanState{remaining: rs - 1, cell: row[col]}
			}
		}
		grid = append(grid, row)
	}

	return headers, grid
}

func rowspanOf(attrs string) int {
	m := rowspanRe.FindStringSubmatch(attrs)
	if m == nil {
		return 1
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n < 1 {
		return 1
	}
	return n
}

// mapWikiColumns resolves the drifting header names to semantic roles.
// A table with no Rink or Name column is not rink data.
func mapWikiColumns(headers []string) *wikiColumns {
	cols := &wikiColumns{city: -1, county: -1, rink: -1, club: -1, notes: -1}
	for i, h := range headers {
		h = strings.TrimSpace(h)
		switch {
		case h == "City":
			cols.city = i
		case h == "Rink" || h == "Name":
			cols.rink = i
		case h == "Notes":
			cols.notes = i
		case strings.Contains(h, "Club"):
			cols.club = i
		default:
			if _, ok := wikiCountySynonyms[h]; ok {
				cols.county = i
			}
		}
	}
	if cols.rink < 0 {
		return nil
	}
	return cols
}

func cellAt(row []wikiCell, idx int) wikiCell {
	if idx < 0 || idx >= len(row) {
		return wikiCell{}
	}
	return row[idx]
}
