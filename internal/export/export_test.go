package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/jonas-p/go-shp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"

	"github.com/skatetrax/ice-maker/internal/model"
	"github.com/skatetrax/ice-maker/internal/store"
)

// fakeStore serves the two directory queries the exporter reads.
type fakeStore struct {
	store.Store

	summaries []store.LocationSummary
	coords    map[string]store.Coordinates
}

func (f *fakeStore) LocationsWithSourceCounts(_ context.Context) ([]store.LocationSummary, error) {
	return f.summaries, nil
}

func (f *fakeStore) LocationCoordinates(_ context.Context) (map[string]store.Coordinates, error) {
	return f.coords, nil
}

// exportFixture is three promoted locations: two with street addresses,
// one wiki-sourced without, and only the first with geocoded coordinates.
func exportFixture() *fakeStore {
	return &fakeStore{
		summaries: []store.LocationSummary{
			{
				Location: model.Location{
					ID: "loc-steriti", Name: "Steriti Memorial Rink",
					Address: "561 COMMERCIAL STREET", City: "Boston", State: "MA",
					Country: "US", Zip: "02109", Status: model.LocationActive,
					DataSource: "sk8stuff",
				},
				SourceCount: 2,
			},
			{
				Location: model.Location{
					ID: "loc-matthews", Name: "Matthews Arena",
					Address: "238 STREET BOTOLPH STREET", City: "Boston", State: "MA",
					Country: "US", Zip: "02115", Status: model.LocationActive,
					DataSource: "arena_guide",
				},
				SourceCount: 1,
			},
			{
				Location: model.Location{
					ID: "loc-veterans", Name: "Veterans Memorial Rink",
					Address: "", City: "Pittsfield", State: "MA",
					Country: "US", Zip: "01201", Status: model.LocationSeasonal,
					DataSource: "fandom_wiki",
				},
				SourceCount: 1,
			},
		},
		coords: map[string]store.Coordinates{
			"loc-steriti": {Lat: 42.3688, Lon: -71.0565},
		},
	}
}

func TestParseFormat(t *testing.T) {
	f, err := ParseFormat("GeoJSON")
	require.NoError(t, err)
	assert.Equal(t, FormatGeoJSON, f)

	_, err = ParseFormat("tsv")
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "tsv"`)
}

func TestExportCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.csv")
	e := New(exportFixture())

	n, err := e.Export(context.Background(), path, FormatCSV)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)
	assert.Equal(t, columns, records[0])
	assert.Equal(t, []string{
		"loc-steriti", "Steriti Memorial Rink", "561 COMMERCIAL STREET",
		"Boston", "MA", "02109", "active", "sk8stuff", "2",
	}, records[1])
	// The wiki location has no street address and the column stays empty.
	assert.Equal(t, "", records[3][2])
	assert.Equal(t, "seasonal", records[3][6])
}

func TestExportXLSX(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.xlsx")
	e := New(exportFixture())

	n, err := e.Export(context.Background(), path, FormatXLSX)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	f, err := xlsx.OpenFile(path)
	require.NoError(t, err)
	sheet, ok := f.Sheet["locations"]
	require.True(t, ok)
	require.Len(t, sheet.Rows, 4)

	assert.Equal(t, "rink_id", sheet.Rows[0].Cells[0].String())
	assert.Equal(t, "source_count", sheet.Rows[0].Cells[8].String())
	assert.Equal(t, "Steriti Memorial Rink", sheet.Rows[1].Cells[1].String())
	assert.Equal(t, "2", sheet.Rows[1].Cells[8].String())
	assert.Equal(t, "fandom_wiki", sheet.Rows[3].Cells[7].String())
}

func TestExportGeoJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.geojson")
	e := New(exportFixture())

	// Only the geocoded location becomes a feature.
	n, err := e.Export(context.Background(), path, FormatGeoJSON)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	var fc geojson.FeatureCollection
	require.NoError(t, json.Unmarshal(data, &fc))
	require.Len(t, fc.Features, 1)

	feat := fc.Features[0]
	point, ok := feat.Geometry.(*geom.Point)
	require.True(t, ok)
	assert.InDelta(t, -71.0565, point.X(), 1e-9)
	assert.InDelta(t, 42.3688, point.Y(), 1e-9)

	assert.Equal(t, "loc-steriti", feat.Properties["rink_id"])
	assert.Equal(t, "Steriti Memorial Rink", feat.Properties["rink_name"])
	assert.Equal(t, float64(2), feat.Properties["source_count"])
}

func TestExportSHP(t *testing.T) {
	path := filepath.Join(t.TempDir(), "locations.shp")
	e := New(exportFixture())

	n, err := e.Export(context.Background(), path, FormatSHP)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	reader, err := shp.Open(path)
	require.NoError(t, err)
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	require.Len(t, fields, 9)

	require.True(t, reader.Next())
	_, shape := reader.Shape()
	point, ok := shape.(*shp.Point)
	require.True(t, ok)
	assert.InDelta(t, -71.0565, point.X, 1e-9)
	assert.InDelta(t, 42.3688, point.Y, 1e-9)

	attr := func(i int) string {
		return strings.TrimSpace(strings.TrimRight(reader.Attribute(i), "\x00"))
	}
	assert.Equal(t, "loc-steriti", attr(0))
	assert.Equal(t, "Steriti Memorial Rink", attr(1))
	assert.Equal(t, "sk8stuff", attr(7))
	assert.Equal(t, "2", attr(8))

	assert.False(t, reader.Next())
}

func TestExportUnknownFormat(t *testing.T) {
	e := New(exportFixture())

	_, err := e.Export(context.Background(), filepath.Join(t.TempDir(), "out"), Format("tsv"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown format "tsv"`)
}
