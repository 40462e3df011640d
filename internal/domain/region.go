package domain

import (
	"errors"
	"fmt"
	"strings"
)

// RegionGroup is the report chapter a region belongs to.
type RegionGroup string

const (
	CoastalSection RegionGroup = "coastal_section"
	WaterRegion    RegionGroup = "water_region"
	ManagementArea RegionGroup = "management_area"
)

// CatchmentRange is a half-open range of main catchment numbers: Start is
// included, End is not.
type CatchmentRange struct {
	Start int
	End   int
}

// RegionDefinition declares the catchments that make up a reporting region.
// Membership is purely code based; regions may overlap.
type RegionDefinition struct {
	Name   string
	Group  RegionGroup
	Ranges []CatchmentRange
	Extra  []int
}

// Validate checks that the definition names a non-empty catchment set.
func (r RegionDefinition) Validate() error {
	if strings.TrimSpace(r.Name) == "" {
		return errors.New("region name is required")
	}
	if strings.ContainsAny(r.Name, ":/\\") {
		return fmt.Errorf("region %q: name must not contain ':' or path separators", r.Name)
	}
	if len(r.Ranges) == 0 && len(r.Extra) == 0 {
		return fmt.Errorf("region %q: no catchments", r.Name)
	}
	for _, rg := range r.Ranges {
		if rg.Start < 0 || rg.End <= rg.Start {
			return fmt.Errorf("region %q: invalid range [%d, %d)", r.Name, rg.Start, rg.End)
		}
	}
	for _, id := range r.Extra {
		if id < 0 {
			return fmt.Errorf("region %q: invalid extra catchment %d", r.Name, id)
		}
	}
	return nil
}

// Members resolves the catchment codes of the region: every range expanded
// in declaration order, then the extra singletons. Duplicates are kept once.
func (r RegionDefinition) Members() []string {
	var codes []string
	seen := make(map[int]bool)
	add := func(n int) {
		if seen[n] {
			return
		}
		seen[n] = true
		codes = append(codes, CatchmentCode(n))
	}
	for _, rg := range r.Ranges {
		for n := rg.Start; n < rg.End; n++ {
			add(n)
		}
	}
	for _, n := range r.Extra {
		add(n)
	}
	return codes
}

// MemberSet returns Members as a lookup set.
func (r RegionDefinition) MemberSet() map[string]struct{} {
	members := r.Members()
	set := make(map[string]struct{}, len(members))
	for _, code := range members {
		set[code] = struct{}{}
	}
	return set
}

// ValidateRegions validates each definition and rejects duplicate names.
func ValidateRegions(regions []RegionDefinition) error {
	seen := make(map[string]bool, len(regions))
	for _, r := range regions {
		if err := r.Validate(); err != nil {
			return err
		}
		if seen[r.Name] {
			return fmt.Errorf("duplicate region %q", r.Name)
		}
		seen[r.Name] = true
	}
	return nil
}

// DefaultRegions returns the report's region catalog: coastal sections,
// water regions and management-plan sea areas.
func DefaultRegions() []RegionDefinition {
	return []RegionDefinition{
		{Name: "Norges kystområder", Group: CoastalSection, Ranges: []CatchmentRange{{1, 248}}, Extra: []int{315}},
		{Name: "Sverige – Strømtangen fyr", Group: CoastalSection, Ranges: []CatchmentRange{{1, 3}}},
		{Name: "Indre Oslofjord", Group: CoastalSection, Ranges: []CatchmentRange{{5, 10}}},
		{Name: "Svenskegrensa – Lindesnes", Group: CoastalSection, Ranges: []CatchmentRange{{1, 24}}},
		{Name: "Lindesnes – Stad", Group: CoastalSection, Ranges: []CatchmentRange{{24, 92}}},
		{Name: "Stad – Russland", Group: CoastalSection, Ranges: []CatchmentRange{{92, 248}}},

		{Name: "Glomma", Group: WaterRegion, Ranges: []CatchmentRange{{1, 11}}},
		{Name: "Vest-Viken", Group: WaterRegion, Ranges: []CatchmentRange{{11, 18}}},
		{Name: "Agder", Group: WaterRegion, Ranges: []CatchmentRange{{18, 27}}},
		{Name: "Rogaland", Group: WaterRegion, Ranges: []CatchmentRange{{27, 41}}},
		{Name: "Hordaland", Group: WaterRegion, Ranges: []CatchmentRange{{41, 68}}},
		{Name: "Sogn og Fjordane", Group: WaterRegion, Ranges: []CatchmentRange{{68, 92}}},
		{Name: "Møre og Romsdal", Group: WaterRegion, Ranges: []CatchmentRange{{92, 117}}},
		{Name: "Trøndelag", Group: WaterRegion, Ranges: []CatchmentRange{{117, 144}}},
		{Name: "Nordland", Group: WaterRegion, Ranges: []CatchmentRange{{144, 186}}},
		{Name: "Troms", Group: WaterRegion, Ranges: []CatchmentRange{{186, 211}}},
		{Name: "Finnmark", Group: WaterRegion, Ranges: []CatchmentRange{{211, 248}}},

		// 315 is part of Nordsjøen in the historic report database as well.
		{Name: "Nordsjøen", Group: ManagementArea, Ranges: []CatchmentRange{{1, 91}}, Extra: []int{315}},
		{Name: "Norskehavet", Group: ManagementArea, Ranges: []CatchmentRange{{91, 171}}},
		{Name: "Barentshavet", Group: ManagementArea, Ranges: []CatchmentRange{{171, 248}}},
	}
}
