package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

var validate = validator.New()

// RegionCatalog is the set of report regions with optional per-region
// cutoff years.
type RegionCatalog struct {
	Regions []domain.RegionDefinition
	// Cutoffs overrides CUTOFF_YEAR for the named regions.
	Cutoffs map[string]int
}

type regionFile struct {
	Regions []regionEntry `yaml:"regions" validate:"required,min=1,dive"`
}

type regionEntry struct {
	Name       string       `yaml:"name" validate:"required"`
	Group      string       `yaml:"group" validate:"omitempty,oneof=coastal_section water_region management_area"`
	Ranges     []rangeEntry `yaml:"ranges" validate:"dive"`
	Extra      []int        `yaml:"extra" validate:"dive,gte=0"`
	CutoffYear *int         `yaml:"cutoff_year" validate:"omitempty,gte=0"`
}

type rangeEntry struct {
	Start int `yaml:"start" validate:"gte=0"`
	End   int `yaml:"end" validate:"gtfield=Start"`
}

// DefaultCatalog is the built-in region table without cutoff overrides.
func DefaultCatalog() RegionCatalog {
	return RegionCatalog{Regions: domain.DefaultRegions(), Cutoffs: map[string]int{}}
}

// LoadRegions reads the region catalog from path, or returns DefaultCatalog
// when path is empty.
func LoadRegions(path string) (RegionCatalog, error) {
	if path == "" {
		return DefaultCatalog(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return RegionCatalog{}, fmt.Errorf("regions: read %s: %w", path, err)
	}
	return ParseRegionsYAML(data)
}

// ParseRegionsYAML decodes and validates a region catalog. Unknown keys are
// rejected.
func ParseRegionsYAML(data []byte) (RegionCatalog, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return RegionCatalog{}, errors.New("regions: payload is empty")
	}
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var file regionFile
	if err := dec.Decode(&file); err != nil {
		return RegionCatalog{}, fmt.Errorf("regions: decode: %w", err)
	}
	if err := validate.Struct(file); err != nil {
		return RegionCatalog{}, fmt.Errorf("regions: %w", err)
	}

	catalog := RegionCatalog{Cutoffs: make(map[string]int)}
	for _, e := range file.Regions {
		r := domain.RegionDefinition{
			Name:  e.Name,
			Group: domain.RegionGroup(e.Group),
			Extra: e.Extra,
		}
		for _, rg := range e.Ranges {
			r.Ranges = append(r.Ranges, domain.CatchmentRange{Start: rg.Start, End: rg.End})
		}
		catalog.Regions = append(catalog.Regions, r)
		if e.CutoffYear != nil {
			catalog.Cutoffs[e.Name] = *e.CutoffYear
		}
	}
	if err := domain.ValidateRegions(catalog.Regions); err != nil {
		return RegionCatalog{}, fmt.Errorf("regions: %w", err)
	}
	return catalog, nil
}
