// Command validate performs offline contract checks on a wire-format climate
// dataset fixture: it decodes the payload, identifies coordinate roles, runs
// the canonical transformation, and aggregates along the time axis, reporting
// pass/fail per phase. It exists so fixture regressions surface before a
// broker round trip.
//
// Usage:
//
//	go run ./cmd/validate \
//	  -fixture data/mock/tas_daily_raw.json \
//	  -stat mean -freq monthly
package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/climate-data-normalizer/internal/coordid"
	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
	"github.com/couchcryptid/climate-data-normalizer/internal/pipeline"
	"github.com/couchcryptid/climate-data-normalizer/internal/timestat"
	"github.com/couchcryptid/climate-data-normalizer/internal/transformer"
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	fixture := flag.String("fixture", "", "path to a wire-format dataset fixture")
	stat := flag.String("stat", "mean", "statistic to aggregate with")
	freq := flag.String("freq", "monthly", "aggregation frequency")
	flag.Parse()

	if *fixture == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*fixture, *stat, *freq); code != 0 {
		os.Exit(code)
	}
}

func run(fixturePath, statName, freq string) int {
	fmt.Println("=== Climate Dataset Contract Validation ===")
	fmt.Println()

	data, err := os.ReadFile(fixturePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: read fixture: %v\n", err)
		return 1
	}

	logger := slog.New(slog.DiscardHandler)

	wire, id, ds := validateWireFormat(data)
	var ident *phase
	var canon *phase
	var agg *phase
	var canonical *dataset.Dataset
	var assignment coordid.RoleAssignment

	if wire.passed() {
		ident, canonical, assignment = validateIdentification(ds, logger)
		if canonical != nil {
			canon = validateCanonicalForm(canonical, assignment)
			agg = validateAggregation(canonical, statName, freq, logger)
		}
	}

	phases := []*phase{wire}
	for _, p := range []*phase{ident, canon, agg} {
		if p != nil {
			phases = append(phases, p)
		}
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	if ds != nil {
		fmt.Println()
		fmt.Printf("Dataset: %s (%d coords, %d vars)\n", id, len(ds.Coords), len(ds.Vars))
	}

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Phase 1: Wire Format ──
// The payload must decode and every variable must be internally consistent.

func validateWireFormat(data []byte) (*phase, string, *dataset.Dataset) {
	p := &phase{name: "Phase 1: Wire Format (decode)"}

	id, ds, err := pipeline.DecodeDataset(data)
	if err != nil {
		p.errorf("decode: %v", err)
		return p, "", nil
	}
	if id == "" {
		p.errorf("dataset id is empty")
	}
	if len(ds.Vars) == 0 {
		p.errorf("dataset has no variables")
	}
	for name, v := range ds.Vars {
		if err := v.Validate(); err != nil {
			p.errorf("variable %s: %v", name, err)
		}
	}
	return p, id, ds
}

// ── Phase 2: Coordinate Identification ──
// Latitude, longitude, and time must resolve; the rest may stay open.

func validateIdentification(ds *dataset.Dataset, logger *slog.Logger) (*phase, *dataset.Dataset, coordid.RoleAssignment) {
	p := &phase{name: "Phase 2: Coordinate Identification"}

	canonical, assignment, err := transformer.New(nil, logger).Transform(ds)
	if err != nil {
		p.errorf("transform: %v", err)
		return p, nil, nil
	}

	for _, role := range []coordid.Role{coordid.RoleLatitude, coordid.RoleLongitude, coordid.RoleTime} {
		info := assignment[role]
		if info == nil {
			p.errorf("role %s unresolved", role)
			continue
		}
		fmt.Printf("  %-10s -> %s (score %d)\n", role, info.Name, info.ConfidenceScore)
	}
	fmt.Printf("  grid type: %s\n", canonical.Attrs.Get("grid_type"))
	return p, canonical, assignment
}

// ── Phase 3: Canonical Form ──
// Renames, units, and stored directions must match convention.

func validateCanonicalForm(ds *dataset.Dataset, assignment coordid.RoleAssignment) *phase {
	p := &phase{name: "Phase 3: Canonical Form"}

	checkAxis(p, ds, "lat", "degrees_north")
	checkAxis(p, ds, "lon", "degrees_east")

	if assignment[coordid.RoleIsobaric] != nil {
		plev, ok := ds.Coords["plev"]
		if !ok {
			p.errorf("isobaric level identified but no plev coordinate present")
		} else if plev.Attrs.Get("units") != "Pa" {
			p.errorf("plev units %q, expected Pa", plev.Attrs.Get("units"))
		}
	}
	return p
}

func checkAxis(p *phase, ds *dataset.Dataset, name, units string) {
	c, ok := ds.Coords[name]
	if !ok {
		p.errorf("canonical coordinate %q missing", name)
		return
	}
	if got := c.Attrs.Get("units"); got != units {
		p.errorf("%s units %q, expected %q", name, got, units)
	}
	for i := 1; i < len(c.Values); i++ {
		if c.Values[i] <= c.Values[i-1] {
			p.errorf("%s values not strictly increasing at index %d", name, i)
			return
		}
	}
}

// ── Phase 4: Aggregation ──
// The dataset must survive a full aggregation pass with a monotone output axis.

func validateAggregation(ds *dataset.Dataset, statName, freq string, logger *slog.Logger) *phase {
	p := &phase{name: "Phase 4: Aggregation"}

	stat, err := timestat.Named(statName)
	if err != nil {
		p.errorf("statistic: %v", err)
		return p
	}

	clock := clockwork.NewFakeClockAt(time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC))
	out, err := timestat.NewAggregator(logger, clock).Aggregate(ds, stat, freq, timestat.Options{})
	if err != nil {
		p.errorf("aggregate: %v", err)
		return p
	}

	if out.Attrs.Get("history") == "" {
		p.errorf("aggregated dataset carries no history attribute")
	}

	tc := out.TimeCoord()
	if tc == nil {
		if freq != "" {
			p.errorf("aggregated dataset has no time coordinate")
		}
		return p
	}
	if times, ok := tc.Times.(dataset.StdTimes); ok {
		for i := 1; i < len(times); i++ {
			if !times[i-1].Before(times[i]) {
				p.errorf("output time axis not strictly increasing at index %d", i)
				break
			}
		}
	}
	fmt.Printf("  aggregated to %d windows by stat %s\n", tc.Times.Len(), statName)
	return p
}
