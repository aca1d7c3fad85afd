package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skatetrax/ice-maker/internal/model"
)

func newCandidate(id int, name, street, city, state string) *model.Candidate {
	return &model.Candidate{
		ID:     id,
		Name:   name,
		Street: street,
		City:   city,
		State:  state,
	}
}

func coords(c *model.Candidate, lat, lon float64) *model.Candidate {
	c.Lat = &lat
	c.Lon = &lon
	return c
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "100 main street", NormalizeKey("100 MAIN   STREET."))
	assert.Equal(t, "st cloud", NormalizeKey("  St. Cloud "))
	assert.Equal(t, "", NormalizeKey("!!!"))
}

func TestRatio(t *testing.T) {
	assert.Equal(t, 1.0, Ratio("Ice House", "ice house"))
	assert.Equal(t, 0.0, Ratio("abc", ""))
	assert.Equal(t, 1.0, Ratio("", ""))
	assert.InDelta(t, 6.0/7.0, Ratio("abcd", "bcd"), 1e-9)
	assert.Greater(t, Ratio("polar ice arena", "polar ice rink"), 0.8)
	assert.Less(t, Ratio("polar ice arena", "flyers skate zone"), 0.7)
}

func TestHaversine(t *testing.T) {
	assert.InDelta(t, 0.0, Haversine(42.0, -71.0, 42.0, -71.0), 1e-9)
	// NYC to LA.
	assert.InDelta(t, 2445.6, Haversine(40.7128, -74.0060, 34.0522, -118.2437), 5.0)
	// 0.007 degrees of latitude is just under half a mile.
	assert.Less(t, Haversine(40.0, -75.0, 40.007, -75.0), 0.5)
	assert.Greater(t, Haversine(40.0, -75.0, 40.008, -75.0), 0.5)
}

func TestFindDuplicate_AddressExact(t *testing.T) {
	cand := newCandidate(10, "New Rink", "100 MAIN STREET", "Springfield", "IL")
	existing := newCandidate(3, "Old Rink", "100 Main Street.", "Springfield", "IL")

	dup := FindDuplicate(cand, []*model.Candidate{existing}, nil)
	require.NotNil(t, dup)
	assert.Equal(t, MethodAddressExact, dup.Method)
	assert.Equal(t, 3, dup.Candidate.ID)
}

func TestFindDuplicate_FuzzyName(t *testing.T) {
	cand := newCandidate(10, "Polar Ice Rink", "200 OAK AVENUE", "Springfield", "IL")
	existing := newCandidate(4, "Polar Ice Arena", "100 MAIN STREET", "Springfield", "IL")

	dup := FindDuplicate(cand, []*model.Candidate{existing}, nil)
	require.NotNil(t, dup)
	assert.Equal(t, MethodFuzzyName, dup.Method)
}

func TestFindDuplicate_FuzzyRequiresSameLocality(t *testing.T) {
	cand := newCandidate(10, "Polar Ice Rink", "200 OAK AVENUE", "Chicago", "IL")
	existing := newCandidate(4, "Polar Ice Arena", "100 MAIN STREET", "Springfield", "IL")

	assert.Nil(t, FindDuplicate(cand, []*model.Candidate{existing}, nil))
}

func TestFindDuplicate_StreetlessUsesExtendedPool(t *testing.T) {
	cand := newCandidate(10, "Municipal Rink", "", "Springfield", "IL")
	unverified := newCandidate(7, "Springfield Municipal Ice Rink", "", "Springfield", "IL")

	dup := FindDuplicate(cand, nil, []*model.Candidate{unverified})
	require.NotNil(t, dup)
	assert.Equal(t, MethodFuzzyName, dup.Method)
	assert.Equal(t, 7, dup.Candidate.ID)
}

func TestFindDuplicate_StreetBoundCandidateIgnoresUnverified(t *testing.T) {
	cand := newCandidate(10, "Municipal Rink", "500 ELM STREET", "Springfield", "IL")
	unverified := newCandidate(7, "Municipal Rink", "", "Springfield", "IL")

	assert.Nil(t, FindDuplicate(cand, nil, []*model.Candidate{unverified}))
}

func TestFindDuplicate_GeoProximity(t *testing.T) {
	cand := coords(newCandidate(10, "East Entrance", "1 ARENA WAY", "Springfield", "IL"), 40.0, -75.0)
	near := coords(newCandidate(5, "Civic Center", "2 PLAZA DRIVE", "Chatham", "IL"), 40.005, -75.0)

	dup := FindDuplicate(cand, []*model.Candidate{near}, nil)
	require.NotNil(t, dup)
	assert.Equal(t, MethodGeoProximity, dup.Method)
}

func TestFindDuplicate_GeoBeyondHalfMile(t *testing.T) {
	cand := coords(newCandidate(10, "East Entrance", "1 ARENA WAY", "Springfield", "IL"), 40.0, -75.0)
	far := coords(newCandidate(5, "Civic Center", "2 PLAZA DRIVE", "Chatham", "IL"), 40.05, -75.0)

	assert.Nil(t, FindDuplicate(cand, []*model.Candidate{far}, nil))
}

func TestFindDuplicate_ExcludesSelf(t *testing.T) {
	cand := newCandidate(10, "Polar Ice Arena", "100 MAIN STREET", "Springfield", "IL")
	self := newCandidate(10, "Polar Ice Arena", "100 MAIN STREET", "Springfield", "IL")

	assert.Nil(t, FindDuplicate(cand, []*model.Candidate{self}, nil))
}

func TestMatchPlace_ExactAddress(t *testing.T) {
	cand := newCandidate(10, "Ice House", "6119 LANDMARK CENTER BOULEVARD", "Greensboro", "NC")
	records := []Record{
		{ID: "aaa", Name: "Other Rink", Street: "1 Elsewhere Rd", City: "Greensboro", State: "NC"},
		{ID: "bbb", Name: "Greensboro Ice House", Street: "6119 Landmark Center Boulevard", City: "Greensboro", State: "NC"},
	}

	rec := MatchPlace(cand, records)
	require.NotNil(t, rec)
	assert.Equal(t, "bbb", rec.ID)
}

func TestMatchPlace_FuzzyName(t *testing.T) {
	cand := newCandidate(10, "Polar Ice Rink", "200 OAK AVENUE", "Springfield", "IL")
	records := []Record{
		{ID: "ccc", Name: "Polar Ice Arena", Street: "100 Main Street", City: "Springfield", State: "IL"},
	}

	rec := MatchPlace(cand, records)
	require.NotNil(t, rec)
	assert.Equal(t, "ccc", rec.ID)
}

func TestMatchPlace_StreetlessRelaxedThreshold(t *testing.T) {
	cand := newCandidate(10, "Municipal Rink", "", "Springfield", "IL")
	records := []Record{
		{ID: "ddd", Name: "Springfield Municipal Ice Rink", Street: "300 Civic Plaza", City: "Springfield", State: "IL"},
	}

	rec := MatchPlace(cand, records)
	require.NotNil(t, rec)
	assert.Equal(t, "ddd", rec.ID)
}

func TestMatchPlace_NoMatch(t *testing.T) {
	cand := newCandidate(10, "Brand New Rink", "999 NOWHERE LANE", "Tulsa", "OK")
	records := []Record{
		{ID: "eee", Name: "Polar Ice Arena", Street: "100 Main Street", City: "Springfield", State: "IL"},
	}

	assert.Nil(t, MatchPlace(cand, records))
}
