// Package export renders the locations directory to interchange files:
// CSV and XLSX carry every location, GeoJSON and shapefile carry the
// subset with known coordinates.
package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/tealeg/xlsx/v2"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"

	"github.com/skatetrax/ice-maker/internal/store"
)

// Format selects an output encoding.
type Format string

const (
	FormatCSV     Format = "csv"
	FormatXLSX    Format = "xlsx"
	FormatGeoJSON Format = "geojson"
	FormatSHP     Format = "shp"
)

// ParseFormat recognizes one of csv, xlsx, geojson or shp.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(s))
	switch f {
	case FormatCSV, FormatXLSX, FormatGeoJSON, FormatSHP:
		return f, nil
	}
	return "", eris.Errorf("export: unknown format %q (want csv, xlsx, geojson or shp)", s)
}

// columns is the CSV/XLSX header, in the order downstream consumers of
// the old exports expect.
var columns = []string{
	"rink_id", "rink_name", "rink_address", "rink_city", "rink_state",
	"rink_zip", "rink_status", "data_source", "source_count",
}

// Row is one directory location flattened for export. Coordinates are
// set when a promoted candidate carried them.
type Row struct {
	ID          string
	Name        string
	Address     string
	City        string
	State       string
	Zip         string
	Status      string
	DataSource  string
	SourceCount int
	Lat         *float64
	Lon         *float64
}

func (r Row) hasCoords() bool {
	return r.Lat != nil && r.Lon != nil
}

// Exporter renders the locations directory to a file.
type Exporter struct {
	store  store.Store
	logger *zap.Logger
}

func New(st store.Store) *Exporter {
	return &Exporter{
		store:  st,
		logger: zap.L().With(zap.String("component", "export")),
	}
}

// Export writes every location to path in the given format, ordered by
// state then city. It returns the number of rows written, which for the
// geometry formats excludes locations without coordinates.
func (e *Exporter) Export(ctx context.Context, path string, format Format) (int, error) {
	rows, err := e.collect(ctx)
	if err != nil {
		return 0, err
	}

	var written int
	switch format {
	case FormatCSV:
		written, err = writeCSV(path, rows)
	case FormatXLSX:
		written, err = writeXLSX(path, rows)
	case FormatGeoJSON:
		written, err = writeGeoJSON(path, rows)
	case FormatSHP:
		written, err = writeSHP(path, rows)
	default:
		return 0, eris.Errorf("export: unknown format %q", format)
	}
	if err != nil {
		return 0, err
	}

	e.logger.Info("exported locations",
		zap.String("path", path),
		zap.String("format", string(format)),
		zap.Int("locations", len(rows)),
		zap.Int("written", written))
	return written, nil
}

// collect pulls every location with its source count and the best-known
// coordinates from its promoted candidates.
func (e *Exporter) collect(ctx context.Context) ([]Row, error) {
	summaries, err := e.store.LocationsWithSourceCounts(ctx)
	if err != nil {
		return nil, err
	}
	coords, err := e.store.LocationCoordinates(ctx)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(summaries))
	for _, sum := range summaries {
		loc := sum.Location
		row := Row{
			ID:          loc.ID,
			Name:        loc.Name,
			Address:     loc.Address,
			City:        loc.City,
			State:       loc.State,
			Zip:         loc.Zip,
			Status:      string(loc.Status),
			DataSource:  loc.DataSource,
			SourceCount: sum.SourceCount,
		}
		if c, ok := coords[loc.ID]; ok {
			lat, lon := c.Lat, c.Lon
			row.Lat, row.Lon = &lat, &lon
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r Row) record() []string {
	return []string{
		r.ID, r.Name, r.Address, r.City, r.State,
		r.Zip, r.Status, r.DataSource, fmt.Sprintf("%d", r.SourceCount),
	}
}

func writeCSV(path string, rows []Row) (int, error) {
	f, err := os.Create(path)
	if err != nil {
		return 0, eris.Wrapf(err, "export: create %s", path)
	}
	defer f.Close()

	cw := csv.NewWriter(f)
	if err := cw.Write(columns); err != nil {
		return 0, eris.Wrap(err, "export: write csv header")
	}
	for _, r := range rows {
		if err := cw.Write(r.record()); err != nil {
			return 0, eris.Wrap(err, "export: write csv row")
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return 0, eris.Wrap(err, "export: flush csv")
	}
	return len(rows), nil
}

func writeXLSX(path string, rows []Row) (int, error) {
	file := xlsx.NewFile()
	sheet, err := file.AddSheet("locations")
	if err != nil {
		return 0, eris.Wrap(err, "export: add xlsx sheet")
	}

	header := sheet.AddRow()
	for _, col := range columns {
		header.AddCell().Value = col
	}
	for _, r := range rows {
		xr := sheet.AddRow()
		xr.AddCell().Value = r.ID
		xr.AddCell().Value = r.Name
		xr.AddCell().Value = r.Address
		xr.AddCell().Value = r.City
		xr.AddCell().Value = r.State
		xr.AddCell().Value = r.Zip
		xr.AddCell().Value = r.Status
		xr.AddCell().Value = r.DataSource
		xr.AddCell().SetInt(r.SourceCount)
	}

	if err := file.Save(path); err != nil {
		return 0, eris.Wrapf(err, "export: save %s", path)
	}
	return len(rows), nil
}

func writeGeoJSON(path string, rows []Row) (int, error) {
	fc := &geojson.FeatureCollection{}
	for _, r := range rows {
		if !r.hasCoords() {
			continue
		}
		fc.Features = append(fc.Features, &geojson.Feature{
			Geometry: geom.NewPointFlat(geom.XY, []float64{*r.Lon, *r.Lat}),
			Properties: map[string]any{
				"rink_id":      r.ID,
				"rink_name":    r.Name,
				"rink_address": r.Address,
				"rink_city":    r.City,
				"rink_state":   r.State,
				"rink_zip":     r.Zip,
				"rink_status":  r.Status,
				"data_source":  r.DataSource,
				"source_count": r.SourceCount,
			},
		})
	}

	data, err := json.MarshalIndent(fc, "", "  ")
	if err != nil {
		return 0, eris.Wrap(err, "export: marshal geojson")
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return 0, eris.Wrapf(err, "export: write %s", path)
	}
	return len(fc.Features), nil
}

// shpFields is the DBF attribute schema. DBF caps field names at ten
// characters, so the CSV column names are shortened.
var shpFields = []shp.Field{
	shp.StringField("RINK_ID", 36),
	shp.StringField("NAME", 80),
	shp.StringField("ADDRESS", 80),
	shp.StringField("CITY", 40),
	shp.StringField("STATE", 2),
	shp.StringField("ZIP", 10),
	shp.StringField("STATUS", 20),
	shp.StringField("SOURCE", 20),
	shp.NumberField("SRC_COUNT", 8),
}

func writeSHP(path string, rows []Row) (int, error) {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return 0, eris.Wrapf(err, "export: create shapefile %s", path)
	}
	defer w.Close()

	w.SetFields(shpFields)

	n := 0
	for _, r := range rows {
		if !r.hasCoords() {
			continue
		}
		w.Write(&shp.Point{X: *r.Lon, Y: *r.Lat})
		w.WriteAttribute(n, 0, r.ID)
		w.WriteAttribute(n, 1, r.Name)
		w.WriteAttribute(n, 2, r.Address)
		w.WriteAttribute(n, 3, r.City)
		w.WriteAttribute(n, 4, r.State)
		w.WriteAttribute(n, 5, r.Zip)
		w.WriteAttribute(n, 6, r.Status)
		w.WriteAttribute(n, 7, r.DataSource)
		w.WriteAttribute(n, 8, r.SourceCount)
		n++
	}
	return n, nil
}
