// Command genmock writes a deterministic set of mock inputs for local report
// runs with SOURCE_KIND=dir: one model table per year, one legacy table per
// report section and a single-year baseline table.
//
// Usage:
//
//	go run ./cmd/genmock -out data/mock -start 1990 -end 2023 -cutoff 1995
//
// then
//
//	SOURCE_KIND=dir SOURCE_DIR=data/mock/model \
//	LEGACY_DIR=data/mock/legacy BASELINE_FILE=data/mock/legacy/baseline.csv \
//	CUTOFF_YEAR=1995 go run ./cmd/report
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"

	"github.com/couchcryptid/coastal-loads-etl/internal/adapter/source"
	"github.com/couchcryptid/coastal-loads-etl/internal/config"
	"github.com/couchcryptid/coastal-loads-etl/internal/domain"
)

// sourceStems are the independent model variables. Totals are derived from
// them so the mock tables are internally consistent.
var sourceStems = []string{
	"aqu_tot", "agri_diff_tot", "agri_pt_tot", "ren_tot", "spr_tot", "ind_tot", "nat_diff_tot", "urban_tot",
}

// legacyColumns uses the historic spellings the report normalizes on read.
var legacyColumns = []string{"Akvakultur", "Jordbruk", "Befolkning", "Industri", "Bakgrun", "Totalt", "Menneskeskapt"}

// nonCoastal rows must be dropped by the loader.
var nonCoastal = []string{"002.A1", "248.", "316."}

type options struct {
	out          string
	start, end   int
	cutoff       int
	legacyStart  int
	baselineYear int
	seed         int64
	regionsFile  string
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	var o options
	flag.StringVar(&o.out, "out", "data/mock", "output directory")
	flag.IntVar(&o.start, "start", 1990, "first model year")
	flag.IntVar(&o.end, "end", 2023, "last model year")
	flag.IntVar(&o.cutoff, "cutoff", 1995, "last legacy year")
	flag.IntVar(&o.legacyStart, "legacy-start", 1990, "first legacy year")
	flag.IntVar(&o.baselineYear, "baseline-year", 1985, "year of the single-year baseline table, 0 to skip")
	flag.Int64Var(&o.seed, "seed", 1, "random seed")
	flag.StringVar(&o.regionsFile, "regions", "", "optional YAML region catalog")
	flag.Parse()

	if o.start > o.end || o.legacyStart > o.cutoff {
		flag.Usage()
		return fmt.Errorf("invalid year range")
	}
	if o.baselineYear != 0 && o.baselineYear >= o.legacyStart {
		return fmt.Errorf("baseline year %d must precede legacy start %d", o.baselineYear, o.legacyStart)
	}

	catalog, err := config.LoadRegions(o.regionsFile)
	if err != nil {
		return err
	}
	rng := rand.New(rand.NewSource(o.seed)) //nolint:gosec // deterministic fixtures

	modelDir := filepath.Join(o.out, "model")
	for year := o.start; year <= o.end; year++ {
		path := filepath.Join(modelDir, source.ModelFileName(year))
		if err := writeCSV(path, modelTable(rng, year)); err != nil {
			return fmt.Errorf("model %d: %w", year, err)
		}
	}
	log.Printf("wrote %d model tables to %s", o.end-o.start+1, modelDir)

	legacyDir := filepath.Join(o.out, "legacy")
	sections := domain.BuildSections(catalog.Regions, domain.Nutrients, o.cutoff, catalog.Cutoffs)
	baseline := [][]string{append([]string{domain.SectionColumn, domain.YearColumn}, legacyColumns...)}
	for _, s := range sections {
		rows := [][]string{append([]string{domain.YearColumn}, legacyColumns...)}
		for year := o.legacyStart; year <= o.cutoff; year++ {
			rows = append(rows, legacyRow(rng, strconv.Itoa(year)))
		}
		if err := writeCSV(filepath.Join(legacyDir, s.FileName()), rows); err != nil {
			return fmt.Errorf("legacy %s: %w", s.Heading(), err)
		}
		if o.baselineYear != 0 {
			baseline = append(baseline, append([]string{s.Heading()}, legacyRow(rng, strconv.Itoa(o.baselineYear))...))
		}
	}
	log.Printf("wrote %d legacy tables to %s", len(sections), legacyDir)

	if o.baselineYear != 0 {
		path := filepath.Join(legacyDir, "baseline.csv")
		if err := writeCSV(path, baseline); err != nil {
			return fmt.Errorf("baseline: %w", err)
		}
		log.Printf("wrote baseline %s", path)
	}
	return nil
}

// modelTable renders one year in the model's wide layout: a catchment
// column, a year column and every raw variable of both nutrients.
func modelTable(rng *rand.Rand, year int) [][]string {
	header := []string{domain.CatchmentColumn, "year"}
	for _, n := range domain.Nutrients {
		header = append(header, domain.RequiredVariables(n)...)
	}
	rows := [][]string{header}

	codes := append(domain.CoastalCatchments(), nonCoastal...)
	for _, code := range codes {
		row := []string{code, strconv.Itoa(year)}
		for _, n := range domain.Nutrients {
			vals := catchmentValues(rng, n)
			for _, v := range domain.RequiredVariables(n) {
				row = append(row, strconv.FormatFloat(vals[v], 'f', 3, 64))
			}
		}
		rows = append(rows, row)
	}
	return rows
}

func catchmentValues(rng *rand.Rand, n domain.Nutrient) map[string]float64 {
	scale := 1.0
	if n == domain.Nitrogen {
		scale = 20
	}
	vals := make(map[string]float64, len(sourceStems)+3)
	var total float64
	for _, stem := range sourceStems {
		v := math.Round(rng.Float64()*scale*1000) / 1000
		vals[domain.RawVariable(stem, n)] = v
		total += v
	}
	natural := vals[domain.RawVariable("nat_diff_tot", n)] + vals[domain.RawVariable("urban_tot", n)]
	point := vals[domain.RawVariable("aqu_tot", n)] + vals[domain.RawVariable("agri_pt_tot", n)] +
		vals[domain.RawVariable("ren_tot", n)] + vals[domain.RawVariable("ind_tot", n)]
	vals[domain.RawVariable("all_sources_tot", n)] = total
	vals[domain.RawVariable("all_point_tot", n)] = point
	vals[domain.RawVariable("anth_diff_tot", n)] = total - natural - point
	return vals
}

// legacyRow returns a year cell followed by one value per legacy column.
// Aquaculture is left empty now and then, as in the hand-curated tables.
func legacyRow(rng *rand.Rand, year string) []string {
	row := []string{year}
	parts := make([]float64, 5)
	for i := range parts {
		parts[i] = math.Round(rng.Float64()*500*10) / 10
	}
	total := parts[0] + parts[1] + parts[2] + parts[3] + parts[4]
	anthropogenic := total - parts[4]

	aqu := strconv.FormatFloat(parts[0], 'f', 1, 64)
	if rng.Intn(10) == 0 {
		aqu = ""
	}
	row = append(row,
		aqu,
		strconv.FormatFloat(parts[1], 'f', 1, 64),
		strconv.FormatFloat(parts[2], 'f', 1, 64),
		strconv.FormatFloat(parts[3], 'f', 1, 64),
		strconv.FormatFloat(parts[4], 'f', 1, 64),
		strconv.FormatFloat(total, 'f', 1, 64),
		strconv.FormatFloat(anthropogenic, 'f', 1, 64),
	)
	return row
}

func writeCSV(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
