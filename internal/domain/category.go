package domain

import (
	"fmt"
	"strings"
)

// Nutrient selects one of the two parallel report tracks.
type Nutrient string

const (
	Nitrogen   Nutrient = "n"
	Phosphorus Nutrient = "p"
)

// Nutrients lists both tracks in report order.
var Nutrients = []Nutrient{Nitrogen, Phosphorus}

// ParseNutrient accepts the short code or the English/Norwegian name.
func ParseNutrient(s string) (Nutrient, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "nitrogen", "tot-n":
		return Nitrogen, nil
	case "p", "phosphorus", "fosfor", "tot-p":
		return Phosphorus, nil
	default:
		return "", fmt.Errorf("unknown nutrient %q", s)
	}
}

// Word is the Norwegian name used in report headings.
func (n Nutrient) Word() string {
	if n == Phosphorus {
		return "fosfor"
	}
	return "nitrogen"
}

func (n Nutrient) Valid() bool {
	return n == Nitrogen || n == Phosphorus
}

// Category is one of the fixed report columns.
type Category int

const (
	Aquaculture Category = iota
	Agriculture
	Wastewater
	Industry
	Background
	Total
	Anthropogenic

	// NumCategories is the number of report categories.
	NumCategories = int(Anthropogenic) + 1
)

// Categories lists every category in report column order.
var Categories = [NumCategories]Category{
	Aquaculture, Agriculture, Wastewater, Industry, Background, Total, Anthropogenic,
}

var categoryNames = [NumCategories]string{
	"Aquaculture", "Agriculture", "Wastewater", "Industry", "Background", "Total", "Anthropogenic",
}

var categoryColumns = [NumCategories]string{
	"Akvakultur", "Jordbruk", "Avløp", "Industri", "Bakgrunn", "Totalt", "Menneskeskapt",
}

// categoryStems maps each category to the raw variable stems it sums.
// The table is shared by both nutrients.
var categoryStems = [NumCategories][]string{
	Aquaculture:   {"aqu_tot"},
	Agriculture:   {"agri_diff_tot", "agri_pt_tot"},
	Wastewater:    {"ren_tot", "spr_tot"},
	Industry:      {"ind_tot"},
	Background:    {"nat_diff_tot", "urban_tot"},
	Total:         {"all_sources_tot"},
	Anthropogenic: {"anth_diff_tot", "all_point_tot"},
}

func init() {
	if err := validateCategoryStems(categoryStems); err != nil {
		panic(err)
	}
}

// validateCategoryStems rejects empty categories and stems that are claimed
// by more than one category.
func validateCategoryStems(stems [NumCategories][]string) error {
	seen := make(map[string]Category)
	for _, c := range Categories {
		if len(stems[c]) == 0 {
			return fmt.Errorf("category %s has no raw variables", c)
		}
		for _, stem := range stems[c] {
			if prev, ok := seen[stem]; ok {
				return fmt.Errorf("raw variable stem %q mapped to both %s and %s", stem, prev, c)
			}
			seen[stem] = c
		}
	}
	return nil
}

func (c Category) String() string {
	if c < 0 || int(c) >= NumCategories {
		return fmt.Sprintf("Category(%d)", int(c))
	}
	return categoryNames[c]
}

// Column returns the Norwegian report column name.
func (c Category) Column() string {
	return categoryColumns[c]
}

// CategoryFromColumn looks up a category by its (normalized) column name.
func CategoryFromColumn(col string) (Category, bool) {
	for _, c := range Categories {
		if categoryColumns[c] == col {
			return c, true
		}
	}
	return 0, false
}

// RawVariable builds the full model column name for a stem.
func RawVariable(stem string, n Nutrient) string {
	return "accum_" + stem + "-" + string(n) + "_tonnes"
}

// RawVariables returns the model columns summed into c for nutrient n.
func RawVariables(c Category, n Nutrient) []string {
	stems := categoryStems[c]
	vars := make([]string, len(stems))
	for i, stem := range stems {
		vars[i] = RawVariable(stem, n)
	}
	return vars
}

// RequiredVariables returns every raw variable any category needs, in
// category order.
func RequiredVariables(n Nutrient) []string {
	var vars []string
	for _, c := range Categories {
		vars = append(vars, RawVariables(c, n)...)
	}
	return vars
}

// IsNutrientVariable reports whether a model column carries a raw variable
// for nutrient n.
func IsNutrientVariable(col string, n Nutrient) bool {
	return strings.HasPrefix(col, "accum_") && strings.HasSuffix(col, "-"+string(n)+"_tonnes")
}
