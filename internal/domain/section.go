package domain

import (
	"fmt"
	"strings"
)

// Section is one (region, nutrient) table of the report.
type Section struct {
	Region   string
	Nutrient Nutrient
	// CutoffYear is the last year taken from legacy tables. Zero disables
	// legacy reconciliation for the section.
	CutoffYear int
}

// Heading is the document heading of the section, e.g. "Glomma: fosfor".
func (s Section) Heading() string {
	return s.Region + ": " + s.Nutrient.Word()
}

// FileName is the CSV file name shared by the output and legacy tables,
// e.g. "Glomma_p.csv".
func (s Section) FileName() string {
	return s.Region + "_" + string(s.Nutrient) + ".csv"
}

// Stem is FileName without the extension.
func (s Section) Stem() string {
	return strings.TrimSuffix(s.FileName(), ".csv")
}

// FileNameFromHeading derives a table file name from a document heading.
// The nutrient word after the colon selects the suffix: words starting with
// "f" (fosfor) give "_p", anything else "_n".
func FileNameFromHeading(heading string) (string, error) {
	name, word, ok := strings.Cut(heading, ":")
	word = strings.TrimSpace(word)
	if !ok || strings.TrimSpace(name) == "" || word == "" {
		return "", fmt.Errorf("invalid section heading %q", heading)
	}
	suffix := Nitrogen
	if strings.HasPrefix(strings.ToLower(word), "f") {
		suffix = Phosphorus
	}
	return fmt.Sprintf("%s_%s.csv", strings.TrimSpace(name), suffix), nil
}

// SectionFromFileName parses a table file name such as "Glomma_p.csv" back
// into its region and nutrient. The cutoff is left at zero.
func SectionFromFileName(name string) (Section, error) {
	stem, ok := strings.CutSuffix(name, ".csv")
	i := strings.LastIndex(stem, "_")
	if !ok || i <= 0 {
		return Section{}, fmt.Errorf("invalid table file name %q", name)
	}
	n, err := ParseNutrient(stem[i+1:])
	if err != nil {
		return Section{}, fmt.Errorf("invalid table file name %q: %w", name, err)
	}
	return Section{Region: stem[:i], Nutrient: n}, nil
}

// BuildSections expands regions × nutrients into report sections. cutoffs
// overrides defaultCutoff per region name.
func BuildSections(regions []RegionDefinition, nutrients []Nutrient, defaultCutoff int, cutoffs map[string]int) []Section {
	sections := make([]Section, 0, len(regions)*len(nutrients))
	for _, n := range nutrients {
		for _, r := range regions {
			cutoff := defaultCutoff
			if c, ok := cutoffs[r.Name]; ok {
				cutoff = c
			}
			sections = append(sections, Section{Region: r.Name, Nutrient: n, CutoffYear: cutoff})
		}
	}
	return sections
}
