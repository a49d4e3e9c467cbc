// Command genmock generates wire-format climate dataset fixtures for the
// normalizer test suites. It emits a deliberately messy raw fixture (long
// coordinate names, descending latitude, pressure in hPa) and optionally a
// normalized fixture produced by running the actual pipeline stages, so
// fixture output matches real service behavior.
//
// Usage:
//
//	go run ./cmd/genmock \
//	  -raw-out data/mock/tas_daily_raw.json \
//	  -normalized-out data/mock/tas_monthly_mean.json \
//	  -calendar standard -steps 120 -freq D -stat mean -agg-freq monthly
package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/climate-data-normalizer/internal/caltime"
	"github.com/couchcryptid/climate-data-normalizer/internal/dataset"
	"github.com/couchcryptid/climate-data-normalizer/internal/pipeline"
	"github.com/couchcryptid/climate-data-normalizer/internal/timeaxis"
	"github.com/couchcryptid/climate-data-normalizer/internal/timestat"
	"github.com/couchcryptid/climate-data-normalizer/internal/transformer"
)

// Fixed clock for reproducible history timestamps.
var fixtureClock = clockwork.NewFakeClockAt(
	time.Date(2024, time.April, 27, 6, 0, 0, 0, time.UTC),
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	rawOut := flag.String("raw-out", "", "output path for the raw wire-format fixture")
	normalizedOut := flag.String("normalized-out", "", "output path for the normalized fixture (optional)")
	id := flag.String("id", "mock-tas", "dataset id")
	calendar := flag.String("calendar", "standard", "time axis calendar: standard or a model calendar (360_day, noleap, all_leap)")
	steps := flag.Int("steps", 120, "number of timesteps")
	freq := flag.String("freq", "D", "sampling frequency of the generated axis")
	stat := flag.String("stat", "mean", "statistic for the normalized fixture")
	aggFreq := flag.String("agg-freq", "monthly", "aggregation frequency for the normalized fixture")
	startYear := flag.Int("start-year", 2000, "first year of the time axis")
	nlat := flag.Int("nlat", 3, "latitude points")
	nlon := flag.Int("nlon", 4, "longitude points")
	flag.Parse()

	if *rawOut == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -raw-out")
	}

	f, err := timeaxis.ParseFrequency(*freq)
	if err != nil {
		return fmt.Errorf("parsing -freq: %w", err)
	}

	ds, err := buildRawDataset(*calendar, *startYear, *steps, f, *nlat, *nlon)
	if err != nil {
		return fmt.Errorf("building dataset: %w", err)
	}

	if err := writeDataset(*rawOut, *id, ds); err != nil {
		return fmt.Errorf("writing raw fixture: %w", err)
	}
	log.Printf("wrote raw fixture: %s (%d timesteps, calendar=%s)", *rawOut, *steps, *calendar)

	if *normalizedOut == "" {
		printStats(ds, nil)
		return nil
	}

	normalized, err := normalize(ds, *stat, *aggFreq)
	if err != nil {
		return fmt.Errorf("normalizing fixture: %w", err)
	}
	if err := writeDataset(*normalizedOut, *id, normalized); err != nil {
		return fmt.Errorf("writing normalized fixture: %w", err)
	}
	log.Printf("wrote normalized fixture: %s", *normalizedOut)

	printStats(ds, normalized)
	return nil
}

// buildRawDataset assembles a dataset the way upstream providers tend to ship
// them: verbose coordinate names, latitude from north to south, and a time
// variable carrying its own bounds reference.
func buildRawDataset(calendar string, startYear, steps int, f timeaxis.Frequency, nlat, nlon int) (*dataset.Dataset, error) {
	times, err := buildTimeAxis(calendar, startYear, steps, f)
	if err != nil {
		return nil, err
	}

	lats := make([]float64, nlat)
	for i := range lats {
		// North to south so the normalizer has an axis to flip.
		lats[i] = 60 - float64(i)*30
	}
	lons := make([]float64, nlon)
	for i := range lons {
		lons[i] = float64(i) * 90
	}

	values := make([]float64, 0, steps*nlat*nlon)
	for t := 0; t < steps; t++ {
		seasonal := 10 * math.Sin(2*math.Pi*float64(t)/365)
		for j := range lats {
			for k := range lons {
				values = append(values, 273.15+seasonal+0.5*float64(j)+0.25*float64(k)+0.01*float64(t))
			}
		}
	}

	ds := dataset.New()
	ds.Attrs["title"] = "synthetic near-surface air temperature"
	ds.Coords["time"] = &dataset.Coordinate{
		Name: "time", Dims: []string{"time"}, Times: times,
		Attrs: dataset.Attrs{"standard_name": "time"},
	}
	ds.Coords["latitude"] = &dataset.Coordinate{
		Name: "latitude", Dims: []string{"latitude"}, Values: lats,
		Attrs: dataset.Attrs{"standard_name": "latitude", "units": "degrees_north"},
	}
	ds.Coords["longitude"] = &dataset.Coordinate{
		Name: "longitude", Dims: []string{"longitude"}, Values: lons,
		Attrs: dataset.Attrs{"standard_name": "longitude", "units": "degrees_east"},
	}
	ds.Vars["tas"] = &dataset.Variable{
		Name: "tas", Dims: []string{"time", "latitude", "longitude"},
		Shape:  []int{steps, nlat, nlon},
		Values: values,
		Attrs:  dataset.Attrs{"units": "K", "standard_name": "air_temperature"},
	}
	return ds, nil
}

func buildTimeAxis(calendar string, startYear, steps int, f timeaxis.Frequency) (dataset.TimeValues, error) {
	if calendar == "standard" {
		out := make(dataset.StdTimes, steps)
		cur := time.Date(startYear, 1, 1, 0, 0, 0, 0, time.UTC)
		for i := 0; i < steps; i++ {
			out[i] = cur
			if f.Fixed() {
				cur = cur.Add(f.Duration())
			} else {
				cur = cur.AddDate(0, f.Months(), 0)
			}
		}
		return out, nil
	}

	cur, err := caltime.New(startYear, 1, 1, 0, 0, 0, calendar)
	if err != nil {
		return nil, err
	}
	out := make(dataset.CalTimes, steps)
	for i := 0; i < steps; i++ {
		out[i] = cur
		if f.Fixed() {
			cur, err = cur.AddDays(f.Duration().Hours() / 24)
			if err != nil {
				return nil, err
			}
		} else {
			cur = cur.AddMonths(f.Months())
		}
	}
	return out, nil
}

// normalize runs the raw fixture through the same stages the service uses.
func normalize(ds *dataset.Dataset, statName, freq string) (*dataset.Dataset, error) {
	logger := slog.New(slog.DiscardHandler)

	stat, err := timestat.Named(statName)
	if err != nil {
		return nil, err
	}

	canonical, _, err := transformer.New(nil, logger).Transform(ds)
	if err != nil {
		return nil, err
	}
	return timestat.NewAggregator(logger, fixtureClock).Aggregate(canonical, stat, freq, timestat.Options{})
}

func writeDataset(path, id string, ds *dataset.Dataset) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	data, err := pipeline.EncodeDataset(id, ds)
	if err != nil {
		return err
	}
	data = append(data, '\n')
	return os.WriteFile(path, data, 0o600)
}

func printStats(raw, normalized *dataset.Dataset) {
	fmt.Println("\n=== Stats for updating test assertions ===")
	printDatasetStats("raw", raw)
	if normalized != nil {
		printDatasetStats("normalized", normalized)
		fmt.Printf("History: %s\n", normalized.Attrs.Get("history"))
	}
}

func printDatasetStats(label string, ds *dataset.Dataset) {
	fmt.Printf("\n%s dataset:\n", label)
	for _, name := range []string{"time", "lat", "latitude", "lon", "longitude"} {
		c, ok := ds.Coords[name]
		if !ok {
			continue
		}
		n := len(c.Values)
		if c.IsTime() {
			n = c.Times.Len()
		}
		fmt.Printf("  coord %-10s len=%d\n", name, n)
	}
	for name, v := range ds.Vars {
		minV, maxV := math.Inf(1), math.Inf(-1)
		for _, x := range v.Values {
			minV = math.Min(minV, x)
			maxV = math.Max(maxV, x)
		}
		fmt.Printf("  var   %-10s shape=%v min=%.3f max=%.3f\n", name, v.Shape, minV, maxV)
	}
}
