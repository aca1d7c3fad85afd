package source

import (
	"context"
	"encoding/json"
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
	arenaGuideSiteURL = "https://www.arena-guide.com"
	arenaGuideAjax    = "/wp-admin/admin-ajax.php?action=jet-engines/arenas-with-pagination"
	arenaGuideWarmup  = "/locations/usa"

	// Pagination circuit breakers: the endpoint has no real error
	// signaling, it just starts returning junk.
	arenaMaxFailedStreak = 5
	arenaMaxEmptyStreak  = 3
)

var (
	arenaH2Re = regexp.MustCompile(`(?is)<h2[^>]*>(.*?)</h2>`)
	arenaAddrRe = regexp.MustCompile(
		`(?is)<span[^>]*class="[^"]*elementor-icon-list-text[^"]*"[^>]*>(.*?)</span>`)
	trailingZipRe = regexp.MustCompile(`\s?\d+$`)
)

// ArenaGuide scrapes arena-guide.com through its jet-smart-filters
// ajax pagination. The rendered listing HTML comes back inside a JSON
// envelope along with pagination metadata.
type ArenaGuide struct {
	client  *fetcher.Client
	baseURL string
	logger  *zap.Logger
}

// NewArenaGuide creates the arena-guide fetcher.
func NewArenaGuide(client *fetcher.Client) *ArenaGuide {
	return &ArenaGuide{
		client:  client,
		baseURL: arenaGuideSiteURL,
		logger:  zap.L().With(zap.String("component", "source.arena_guide")),
	}
}

// Name returns the fetcher module name.
func (a *ArenaGuide) Name() string { return "arena_guide" }

// arenaPage is the ajax response envelope.
type arenaPage struct {
	Content    string `json:"content"`
	Pagination struct {
		FoundPosts  json.Number `json:"found_posts"`
		MaxNumPages json.Number `json:"max_num_pages"`
	} `json:"pagination"`
}

// Fetch walks every listing page. Individual bad pages are dropped; a
// streak of failed or empty pages ends the walk early since the
// endpoint pages past the end without erroring.
func (a *ArenaGuide) Fetch(ctx context.Context) ([]model.FetchResult, error) {
	// Warm-up GET establishes the session cookies the ajax endpoint
	// expects. A failure here is survivable.
	if _, err := a.client.Get(ctx, a.baseURL+arenaGuideWarmup); err != nil {
		a.logger.Warn("warm-up request failed", zap.Error(err))
	}

	first, err := a.fetchPage(ctx, 1)
	if err != nil {
		return nil, eris.Wrap(err, "arena_guide: first page")
	}

	maxPages64, err := first.Pagination.MaxNumPages.Int64()
	if err != nil {
		return nil, eris.Wrapf(err, "arena_guide: bad max_num_pages %q", first.Pagination.MaxNumPages)
	}
	maxPages := int(maxPages64)
	a.logger.Info("pagination discovered",
		zap.Int("pages", maxPages),
		zap.String("found_posts", first.Pagination.FoundPosts.String()),
	)

	results := a.parsePage(1, first.Content)

	failedStreak, emptyStreak := 0, 0
	for page := 2; page <= maxPages; page++ {
		if err := ctx.Err(); err != nil {
			return nil, eris.Wrap(err, "arena_guide: fetch")
		}

		resp, err := a.fetchPage(ctx, page)
		if err != nil {
			failedStreak++
			a.logger.Warn("page fetch failed",
				zap.Int("page", page),
				zap.Int("streak", failedStreak),
				zap.Error(err))
			if failedStreak >= arenaMaxFailedStreak {
				a.logger.Warn("stopping after failed-page streak", zap.Int("page", page))
				break
			}
			continue
		}
		failedStreak = 0

		rows := a.parsePage(page, resp.Content)
		if len(rows) == 0 && strings.TrimSpace(resp.Content) == "" {
			emptyStreak++
			if emptyStreak >= arenaMaxEmptyStreak {
				a.logger.Warn("stopping after empty-page streak", zap.Int("page", page))
				break
			}
			continue
		}
		emptyStreak = 0
		results = append(results, rows...)
	}

	a.logger.Info("fetch complete", zap.Int("rinks", len(results)))
	return results, nil
}

func (a *ArenaGuide) fetchPage(ctx context.Context, page int) (*arenaPage, error) {
	form := url.Values{
		"action":                        {"jet_smart_filters"},
		"provider":                      {"jet-engine/arenas-with-pagination"},
		"settings[lisitng_id]":          {"40"}, // upstream's own typo; the endpoint wants it spelled this way
		"settings[columns]":             {"2"},
		"settings[post_status][]":       {"publish"},
		"settings[is_archive_template]": {"yes"},
		"settings[custom_query]":        {"yes"},
		"settings[_element_id]":         {"arenas-with-pagination"},
		"props[page]":                   {"1"},
		"props[query_type]":             {"posts"},
		"paged":                         {strconv.Itoa(page)},
		"referrer[uri]":                 {"/locations/usa/"},
	}

	body, err := a.client.PostForm(ctx, a.baseURL+arenaGuideAjax, form)
	if err != nil {
		return nil, err
	}

	var resp arenaPage
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "decode page envelope")
	}
	return &resp, nil
}

// parsePage pairs the page's h2 rink names with its icon-list address
// spans. A page where the two counts disagree can't be paired reliably
// and is dropped whole.
func (a *ArenaGuide) parsePage(page int, content string) []model.FetchResult {
	var names []string
	for _, m := range arenaH2Re.FindAllStringSubmatch(content, -1) {
		if name := flatText(m[1]); name != "" {
			names = append(names, name)
		}
	}

	var addrs []string
	for _, m := range arenaAddrRe.FindAllStringSubmatch(content, -1) {
		addr := cleanArenaAddress(flatText(m[1]))
		// Some icon-list spans carry the rink's website instead of an
		// address.
		if strings.Contains(addr, "http") {
			continue
		}
		addrs = append(addrs, addr)
	}

	if len(names) != len(addrs) {
		a.logger.Warn("dropping page with unpairable rows",
			zap.Int("page", page),
			zap.Int("names", len(names)),
			zap.Int("addresses", len(addrs)))
		return nil
	}

	results := make([]model.FetchResult, 0, len(names))
	for i := range names {
		results = append(results, model.FetchResult{Name: names[i], Address: addrs[i]})
	}
	return results
}

// cleanArenaAddress strips the inconsistent country and zip suffixes
// unique to this source.
func cleanArenaAddress(addr string) string {
	addr = strings.TrimSpace(strings.TrimSuffix(addr, "United States of America"))
	addr = strings.TrimSpace(strings.TrimSuffix(addr, "United States"))
	addr = strings.TrimSpace(strings.TrimSuffix(addr, "USA"))
	addr = strings.TrimSpace(trailingZipRe.ReplaceAllString(addr, ""))
	return strings.TrimRight(addr, ",")
}
