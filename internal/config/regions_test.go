package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

const regionsYAML = `
regions:
  - name: Glomma
    group: water_region
    ranges:
      - {start: 1, end: 11}
    cutoff_year: 2012
  - name: Nordsjøen
    group: management_area
    ranges:
      - {start: 1, end: 91}
    extra: [315]
  - name: Ytre Oslofjord
    ranges:
      - {start: 1, end: 5}
    cutoff_year: 0
`

func TestParseRegionsYAML(t *testing.T) {
	catalog, err := ParseRegionsYAML([]byte(regionsYAML))
	require.NoError(t, err)

	require.Len(t, catalog.Regions, 3)
	assert.Equal(t, domain.RegionDefinition{
		Name:   "Glomma",
		Group:  domain.WaterRegion,
		Ranges: []domain.CatchmentRange{{Start: 1, End: 11}},
	}, catalog.Regions[0])
	assert.Equal(t, []int{315}, catalog.Regions[1].Extra)
	assert.Equal(t, map[string]int{"Glomma": 2012, "Ytre Oslofjord": 0}, catalog.Cutoffs)

	sections := domain.BuildSections(catalog.Regions, []domain.Nutrient{domain.Nitrogen}, 1995, catalog.Cutoffs)
	assert.Equal(t, 2012, sections[0].CutoffYear)
	assert.Equal(t, 1995, sections[1].CutoffYear, "default applies without override")
	assert.Equal(t, 0, sections[2].CutoffYear, "explicit zero disables reconciliation")
}

func TestParseRegionsYAML_Errors(t *testing.T) {
	tests := []struct {
		name   string
		data   string
		errMsg string
	}{
		{"empty", "  \n", "empty"},
		{"no regions", "regions: []\n", "Regions"},
		{"unknown key", "regions:\n  - name: x\n    ranges: [{start: 1, end: 2}]\n    colour: blue\n", "colour"},
		{"missing name", "regions:\n  - ranges: [{start: 1, end: 2}]\n", "Name"},
		{"bad group", "regions:\n  - name: x\n    group: ocean\n    ranges: [{start: 1, end: 2}]\n", "Group"},
		{"inverted range", "regions:\n  - name: x\n    ranges: [{start: 5, end: 2}]\n", "End"},
		{"negative extra", "regions:\n  - name: x\n    extra: [-1]\n", "Extra"},
		{"no catchments", "regions:\n  - name: x\n", "no catchments"},
		{"duplicate", "regions:\n  - name: x\n    extra: [1]\n  - name: x\n    extra: [2]\n", "duplicate"},
		{"colon in name", "regions:\n  - name: 'a: b'\n    extra: [1]\n", "must not contain"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegionsYAML([]byte(tt.data))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestLoadRegions(t *testing.T) {
	t.Run("default catalog", func(t *testing.T) {
		catalog, err := LoadRegions("")
		require.NoError(t, err)
		assert.Len(t, catalog.Regions, 20)
		assert.Empty(t, catalog.Cutoffs)
	})
	t.Run("file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "regions.yaml")
		require.NoError(t, os.WriteFile(path, []byte(regionsYAML), 0o600))
		catalog, err := LoadRegions(path)
		require.NoError(t, err)
		assert.Len(t, catalog.Regions, 3)
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := LoadRegions(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.ErrorContains(t, err, "regions: read")
	})
}
