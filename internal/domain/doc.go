// Package domain models the annual nutrient-loading report for Norwegian
// coastal catchments.
//
// # Data Source
//
// Annual model output comes from the TEOTIL2 nutrient-transport model, one
// CSV per year (teotil2_results_<year>.csv). Each row is a regine catchment;
// each accum_* column is the load accumulated down the river network for one
// source and flow type. This package never runs the model; it consumes the
// finished annual tables.
//
// # Catchment Codes
//
// Main catchments are zero-padded three digit codes with a trailing period:
//
//	"001." ... "247."  drain directly to the coast
//	"315."             drains to Skagerrak through the Iddefjord
//
// Only these codes are eligible for the report. Sub-catchment codes such as
// "001.1A" never match the allow-list. See [IsCoastalCatchment].
//
// # Raw Variables
//
// Variable names follow accum_<stem>-<nutrient>_tonnes, e.g.
//
//	accum_agri_diff_tot-n_tonnes  diffuse agricultural nitrogen
//	accum_all_point_tot-p_tonnes  all point-source phosphorus
//
// The stem table is identical for N and P; only the suffix changes.
//
// # Report Categories
//
// Seven fixed columns in report order, with their Norwegian column names:
//
//	Aquaculture    Akvakultur     aqu_tot
//	Agriculture    Jordbruk       agri_diff_tot + agri_pt_tot
//	Wastewater     Avløp          ren_tot + spr_tot
//	Industry       Industri       ind_tot
//	Background     Bakgrunn       nat_diff_tot + urban_tot
//	Total          Totalt         all_sources_tot
//	Anthropogenic  Menneskeskapt  anth_diff_tot + all_point_tot
//
// A category is always the exact sum of its variables. Missing variables are
// a schema error, never zero.
//
// # Legacy Tables
//
// Historic report tables were patched by hand and cannot be reproduced from
// the model database. They use two outdated column names:
//
//	"Bakgrun"    typo for Bakgrunn
//	"Befolkning" renamed to Avløp
//
// [NormalizeColumn] maps both; applying it twice is a no-op.
//
// # Rounding
//
// Region totals are reported in whole tonnes using round-half-to-even, the
// rule used when the historic reports were produced.
package domain
