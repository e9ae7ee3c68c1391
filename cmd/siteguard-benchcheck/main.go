// Command siteguard-benchcheck compares two `go test -bench` outputs and fails
// when a tracked hot-path benchmark regressed past the threshold.
//
//	go test -run '^$' -bench . -count 6 . > new.txt
//	siteguard-benchcheck --baseline old.txt --candidate new.txt
package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/pflag"
)

const defaultThreshold = 0.30

// The request path costs: session read, CSRF check and a rate limit hit.
var trackedMetrics = map[string][]string{
	"BenchmarkGetSession":       {"ns/op", "allocs/op"},
	"BenchmarkValidateCSRF":     {"ns/op", "allocs/op"},
	"BenchmarkCheckLimitMemory": {"ns/op", "allocs/op"},
	"BenchmarkCheckLimitRedis":  {"ns/op"},
	"BenchmarkMetricsInc":       {"ns/op"},
}

type sampleSet map[string]map[string][]float64

type comparison struct {
	Benchmark string
	Metric    string
	Baseline  float64
	Candidate float64
	Delta     float64
}

func main() {
	var (
		baselinePath  string
		candidatePath string
		threshold     float64
	)
	pflag.StringVar(&baselinePath, "baseline", "", "path to baseline benchmark output")
	pflag.StringVar(&candidatePath, "candidate", "", "path to candidate benchmark output")
	pflag.Float64Var(&threshold, "threshold", defaultThreshold, "maximum allowed regression ratio (0.30 = +30%)")
	pflag.Parse()

	if baselinePath == "" || candidatePath == "" {
		fmt.Fprintln(os.Stderr, "--baseline and --candidate are required")
		os.Exit(2)
	}
	if threshold < 0 {
		fmt.Fprintln(os.Stderr, "--threshold must be >= 0")
		os.Exit(2)
	}

	baseline, err := parseBenchmarkFile(baselinePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse baseline: %v\n", err)
		os.Exit(1)
	}
	candidate, err := parseBenchmarkFile(candidatePath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "parse candidate: %v\n", err)
		os.Exit(1)
	}

	rows, err := compare(baseline, candidate, threshold)
	fmt.Println("benchmark metric baseline candidate delta")
	for _, r := range rows {
		fmt.Printf("%s %s %.3f %.3f %+0.2f%%\n", r.Benchmark, r.Metric, r.Baseline, r.Candidate, r.Delta*100)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "performance regression threshold exceeded:\n%v\n", err)
		os.Exit(1)
	}
}

// compare returns one row per tracked metric in stable order, and an error
// listing every missing or regressed metric.
func compare(baseline, candidate sampleSet, threshold float64) ([]comparison, error) {
	names := make([]string, 0, len(trackedMetrics))
	for name := range trackedMetrics {
		names = append(names, name)
	}
	slices.Sort(names)

	var rows []comparison
	var errs []error
	for _, name := range names {
		for _, metric := range trackedMetrics[name] {
			base, cand := baseline[name][metric], candidate[name][metric]
			if len(base) == 0 || len(cand) == 0 {
				errs = append(errs, fmt.Errorf("missing samples for %s %s", name, metric))
				continue
			}

			baseMedian, candMedian := median(base), median(cand)
			if baseMedian <= 0 {
				// allocs/op of zero cannot regress by ratio; any allocation is a regression.
				if candMedian > 0 {
					errs = append(errs, fmt.Errorf("%s %s went from 0 to %.0f", name, metric, candMedian))
				}
				rows = append(rows, comparison{Benchmark: name, Metric: metric, Baseline: baseMedian, Candidate: candMedian})
				continue
			}

			delta := (candMedian - baseMedian) / baseMedian
			rows = append(rows, comparison{Benchmark: name, Metric: metric, Baseline: baseMedian, Candidate: candMedian, Delta: delta})
			if delta > threshold {
				errs = append(errs, fmt.Errorf("%s %s regressed by %+0.2f%% (limit %+0.2f%%)", name, metric, delta*100, threshold*100))
			}
		}
	}
	return rows, errors.Join(errs...)
}

func parseBenchmarkFile(path string) (sampleSet, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return parseBenchmarks(file)
}

func parseBenchmarks(r io.Reader) (sampleSet, error) {
	samples := sampleSet{}
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.HasPrefix(line, "Benchmark") {
			continue
		}

		fields := strings.Fields(line)
		if len(fields) < 4 {
			continue
		}

		name := normalizeBenchmarkName(fields[0])
		if _, ok := trackedMetrics[name]; !ok {
			continue
		}
		if _, ok := samples[name]; !ok {
			samples[name] = map[string][]float64{}
		}

		for i := 2; i+1 < len(fields); i += 2 {
			value, err := strconv.ParseFloat(fields[i], 64)
			if err != nil {
				continue
			}
			unit := fields[i+1]
			samples[name][unit] = append(samples[name][unit], value)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	return samples, nil
}

// normalizeBenchmarkName strips the GOMAXPROCS suffix.
func normalizeBenchmarkName(raw string) string {
	if idx := strings.LastIndexByte(raw, '-'); idx > 0 {
		if _, err := strconv.Atoi(raw[idx+1:]); err == nil {
			return raw[:idx]
		}
	}
	return raw
}

func median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}

	sorted := slices.Clone(values)
	slices.Sort(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}
