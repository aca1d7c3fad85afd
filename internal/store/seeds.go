package store

import (
	"context"
	_ "embed"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"
)

//go:embed seeds.yaml
var seedsYAML []byte

type sourceSeed struct {
	Name             string  `yaml:"name"`
	FetcherModule    string  `yaml:"fetcher_module"`
	FormatterModule  string  `yaml:"formatter_module"`
	Enabled          bool    `yaml:"enabled"`
	ConfidenceWeight float64 `yaml:"confidence_weight"`
	Notes            string  `yaml:"notes"`
}

type seedCatalog struct {
	Sources []sourceSeed `yaml:"sources"`
}

func loadSeedCatalog() (*seedCatalog, error) {
	var catalog seedCatalog
	if err := yaml.Unmarshal(seedsYAML, &catalog); err != nil {
		return nil, eris.Wrap(err, "store: parse seed catalog")
	}
	if len(catalog.Sources) == 0 {
		return nil, eris.New("store: seed catalog is empty")
	}
	return &catalog, nil
}

// SeedSources inserts any missing catalog sources. Existing rows are left
// untouched so operator edits (disabling a source, tuning a weight)
// survive re-runs. Returns the number of rows inserted.
func (s *PostgresStore) SeedSources(ctx context.Context) (int, error) {
	catalog, err := loadSeedCatalog()
	if err != nil {
		return 0, err
	}

	inserted := 0
	for _, seed := range catalog.Sources {
		tag, err := s.pool.Exec(ctx,
			`INSERT INTO sources (name, fetcher_module, formatter_module, enabled, confidence_weight, notes)
			 VALUES ($1, $2, $3, $4, $5, $6)
			 ON CONFLICT (name) DO NOTHING`,
			seed.Name, seed.FetcherModule, seed.FormatterModule, seed.Enabled,
			seed.ConfidenceWeight, seed.Notes,
		)
		if err != nil {
			return inserted, eris.Wrapf(err, "store: seed source %s", seed.Name)
		}
		inserted += int(tag.RowsAffected())
	}
	return inserted, nil
}
