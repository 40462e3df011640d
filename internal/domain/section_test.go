package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSection_Names(t *testing.T) {
	s := Section{Region: "Indre Oslofjord", Nutrient: Phosphorus}
	assert.Equal(t, "Indre Oslofjord: fosfor", s.Heading())
	assert.Equal(t, "Indre Oslofjord_p.csv", s.FileName())
	assert.Equal(t, "Indre Oslofjord_p", s.Stem())

	n := Section{Region: "Finnmark", Nutrient: Nitrogen}
	assert.Equal(t, "Finnmark: nitrogen", n.Heading())
	assert.Equal(t, "Finnmark_n.csv", n.FileName())
}

func TestFileNameFromHeading(t *testing.T) {
	tests := []struct {
		heading  string
		expected string
		wantErr  bool
	}{
		{"Glomma: fosfor", "Glomma_p.csv", false},
		{"Glomma: nitrogen", "Glomma_n.csv", false},
		{"Glomma:Fosfor", "Glomma_p.csv", false},
		{"Sverige – Strømtangen fyr: nitrogen", "Sverige – Strømtangen fyr_n.csv", false},
		{"Glomma", "", true},
		{": fosfor", "", true},
		{"Glomma: ", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.heading, func(t *testing.T) {
			got, err := FileNameFromHeading(tt.heading)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}

	t.Run("round trip", func(t *testing.T) {
		for _, r := range DefaultRegions() {
			for _, n := range Nutrients {
				s := Section{Region: r.Name, Nutrient: n}
				got, err := FileNameFromHeading(s.Heading())
				require.NoError(t, err)
				assert.Equal(t, s.FileName(), got)
			}
		}
	})
}

func TestBuildSections(t *testing.T) {
	regions := []RegionDefinition{
		{Name: "Glomma", Ranges: []CatchmentRange{{1, 11}}},
		{Name: "Agder", Ranges: []CatchmentRange{{18, 27}}},
	}
	sections := BuildSections(regions, []Nutrient{Nitrogen, Phosphorus}, 2012, map[string]int{"Agder": 0})

	require.Len(t, sections, 4)
	assert.Equal(t, Section{Region: "Glomma", Nutrient: Nitrogen, CutoffYear: 2012}, sections[0])
	assert.Equal(t, Section{Region: "Agder", Nutrient: Nitrogen, CutoffYear: 0}, sections[1])
	assert.Equal(t, Phosphorus, sections[2].Nutrient)
}

func TestSectionFromFileName(t *testing.T) {
	s, err := SectionFromFileName("Norges kystområder_n.csv")
	require.NoError(t, err)
	assert.Equal(t, Section{Region: "Norges kystområder", Nutrient: Nitrogen}, s)

	s, err = SectionFromFileName("Vest_Agder_p.csv")
	require.NoError(t, err)
	assert.Equal(t, "Vest_Agder", s.Region)

	for _, bad := range []string{"Glomma.csv", "Glomma_x.csv", "_p.csv", "Glomma_p.txt"} {
		_, err := SectionFromFileName(bad)
		assert.Error(t, err, bad)
	}

	for _, r := range DefaultRegions() {
		for _, n := range Nutrients {
			want := Section{Region: r.Name, Nutrient: n}
			got, err := SectionFromFileName(want.FileName())
			require.NoError(t, err)
			assert.Equal(t, want, got)
		}
	}
}
