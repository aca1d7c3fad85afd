package source

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/skatetrax/ice-maker/internal/fetcher"
	"github.com/skatetrax/ice-maker/internal/model"
)

const (
	learnToSkateURL = "https://www.learntoskateusa.com/umbraco/surface/Map/GetPointsFromSearch"

	// The facility finder keys its search on sequential state ids, not
	// postal codes. 1..50 covers the states it knows about.
	learnToSkateStates = 50
)

// LearnToSkate pulls skating programs from the Learn To Skate USA
// facility finder, one state id at a time.
type LearnToSkate struct {
	client     *fetcher.Client
	baseURL    string
	stateCount int
	logger     *zap.Logger
}

// NewLearnToSkate creates the learntoskate fetcher.
func NewLearnToSkate(client *fetcher.Client) *LearnToSkate {
	return &LearnToSkate{
		client:     client,
		baseURL:    learnToSkateURL,
		stateCount: learnToSkateStates,
		logger:     zap.L().With(zap.String("component", "source.learntoskate")),
	}
}

// Name returns the fetcher module name.
func (l *LearnToSkate) Name() string { return "learntoskate" }

// ltsProgram is one facility row in the finder's response. Latitude and
// Longitude arrive as bare numbers or quoted strings depending on the
// row, so they decode through json.Number.
type ltsProgram struct {
	FacilityName string      `json:"FacilityName"`
	StreetOne    string      `json:"StreetOne"`
	City         string      `json:"City"`
	StateCode    string      `json:"StateCode"`
	PostalCode   string      `json:"PostalCode"`
	Latitude     json.Number `json:"Latitude"`
	Longitude    json.Number `json:"Longitude"`
}

type ltsResponse struct {
	Programs []ltsProgram `json:"programs"`
}

// Fetch queries every state id and flattens the programs into rows.
// The finder supplies coordinates and zip directly, so those ride in
// the extras and let downstream skip the geocoder.
func (l *LearnToSkate) Fetch(ctx context.Context) ([]model.FetchResult, error) {
	var results []model.FetchResult

	for stateID := 1; stateID <= l.stateCount; stateID++ {
		programs, err := l.fetchState(ctx, stateID)
		if err != nil {
			return nil, eris.Wrapf(err, "learntoskate: state id %d", stateID)
		}

		for _, p := range programs {
			row := model.FetchResult{
				Name:    p.FacilityName,
				Address: fmt.Sprintf("%s, %s, %s", p.StreetOne, p.City, p.StateCode),
				Extras:  model.Extras{Zip: p.PostalCode},
			}
			lat, latErr := strconv.ParseFloat(p.Latitude.String(), 64)
			lon, lonErr := strconv.ParseFloat(p.Longitude.String(), 64)
			if latErr == nil && lonErr == nil {
				row.Extras.Lat = &lat
				row.Extras.Lon = &lon
			}
			results = append(results, row)
		}
	}

	l.logger.Info("fetch complete", zap.Int("programs", len(results)))
	return results, nil
}

func (l *LearnToSkate) fetchState(ctx context.Context, stateID int) ([]ltsProgram, error) {
	form := url.Values{
		"facilityName": {""},
		"stateId":      {strconv.Itoa(stateID)},
		"zip":          {""},
		"radius":       {"2000"},
	}

	body, err := l.client.PostForm(ctx, l.baseURL, form)
	if err != nil {
		return nil, err
	}

	var resp ltsResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, eris.Wrap(err, "decode programs")
	}
	return resp.Programs, nil
}
