package source

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skatetrax/ice-maker/internal/fetcher"
	"github.com/skatetrax/ice-maker/internal/model"
	"github.com/skatetrax/ice-maker/internal/normalize"
)

const sk8stuffBaseURL = "http://sk8stuff.com/utility/lister_rinks.asp"

// Sk8stuff scrapes the per-state rink lister at sk8stuff.com. One GET
// per state/territory code; the page is a single HTML table with two
// header rows.
type Sk8stuff struct {
	client  *fetcher.Client
	baseURL string
	states  []string
	logger  *zap.Logger
}

// NewSk8stuff creates the sk8stuff fetcher covering every US state and
// territory code.
func NewSk8stuff(client *fetcher.Client) *Sk8stuff {
	return &Sk8stuff{
		client:  client,
		baseURL: sk8stuffBaseURL,
		states:  normalize.StateCodes,
		logger:  zap.L().With(zap.String("component", "source.sk8stuff")),
	}
}

// Name returns the fetcher module name.
func (s *Sk8stuff) Name() string { return "sk8stuff" }

// Fetch pulls all states sequentially. A state that fails after retries
// aborts the run; the fingerprint layer makes the rerun cheap.
func (s *Sk8stuff) Fetch(ctx context.Context) ([]model.FetchResult, error) {
	var results []model.FetchResult
	for _, state := range s.states {
		rows, err := s.fetchState(ctx, state)
		if err != nil {
			return nil, eris.Wrapf(err, "sk8stuff: state %s", state)
		}
		results = append(results, rows...)
	}
	s.logger.Info("fetch complete", zap.Int("rinks", len(results)))
	return results, nil
}

func (s *Sk8stuff) fetchState(ctx context.Context, state string) ([]model.FetchResult, error) {
	body, err := s.client.Get(ctx, fmt.Sprintf("%s?stap=%s", s.baseURL, state))
	if err != nil {
		return nil, err
	}

	table := tableRe.FindString(string(body))
	if table == "" {
		return nil, eris.New("no table in response")
	}

	rows := trRe.FindAllString(table, -1)
	if len(rows) <= 2 {
		return nil, nil
	}

	var results []model.FetchResult
	// First two rows are the lister's banner and column headers.
	for _, row := range rows[2:] {
		cells := cellRe.FindAllStringSubmatch(row, -1)
		if len(cells) < 3 {
			continue
		}

		name := cleanSk8stuffName(flatText(cells[0][3]))
		street := cleanSk8stuffStreet(flatText(cells[1][3]))
		cityState := flatText(cells[2][3])

		// The upstream seeds a dummy row into every state.
		if strings.Contains(name, "Junk Rink") {
			continue
		}

		// Third cell is "city ST"; drop the trailing state token.
		city := cityState
		if i := strings.LastIndex(cityState, " "); i >= 0 {
			city = cityState[:i]
		}

		results = append(results, model.FetchResult{
			Name:    name,
			Address: fmt.Sprintf("%s, %s, %s", street, city, state),
		})
	}
	return results, nil
}

// cleanSk8stuffName repairs the lister's delimiter abuse: semicolons
// and commas inside names collide with the downstream address commas.
func cleanSk8stuffName(name string) string {
	name = strings.ReplaceAll(name, ";", " -")
	return strings.TrimSpace(strings.ReplaceAll(name, ",", " -"))
}

func cleanSk8stuffStreet(street string) string {
	return strings.TrimSpace(strings.ReplaceAll(street, ",", " "))
}
