package source

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

// Fetcher retrieves the raw model table of one year.
type Fetcher interface {
	Fetch(ctx context.Context, year int) ([]byte, error)
}

// ModelFileName is the file name of a year's model table, both upstream and
// in a local data directory.
func ModelFileName(year int) string {
	return fmt.Sprintf("teotil2_results_%d.csv", year)
}

// CSVSource loads catchment records from model tables in CSV form.
// It implements pipeline.Source.
type CSVSource struct {
	fetcher Fetcher
}

// NewCSVSource creates a source that parses the tables returned by f.
func NewCSVSource(f Fetcher) *CSVSource {
	return &CSVSource{fetcher: f}
}

// Load fetches and parses one year for nutrient n.
func (s *CSVSource) Load(ctx context.Context, year int, n domain.Nutrient) ([]domain.CatchmentRecord, error) {
	data, err := s.fetcher.Fetch(ctx, year)
	if err != nil {
		return nil, err
	}
	records, err := ParseModelCSV(bytes.NewReader(data), year, n)
	if err != nil {
		return nil, fmt.Errorf("model table %d: %w", year, err)
	}
	return records, nil
}

// DirFetcher reads model tables from a local directory.
type DirFetcher struct {
	dir string
}

// NewDirFetcher creates a fetcher for tables named by ModelFileName in dir.
func NewDirFetcher(dir string) *DirFetcher {
	return &DirFetcher{dir: dir}
}

func (f *DirFetcher) Fetch(ctx context.Context, year int) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(filepath.Join(f.dir, ModelFileName(year)))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDataUnavailable, err)
	}
	return data, nil
}
