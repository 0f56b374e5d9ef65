// Command scenario runs one assessment offline from a JSON scenario file and
// prints the resulting assessment. The triage clock is pinned so repeated runs
// produce identical output apart from the assessment ID.
//
// Usage:
//
//	go run ./cmd/scenario -in cmd/scenario/testdata/austin.json
//	go run ./cmd/scenario -in scenario.json -out assessment.json -at 2024-04-26T15:10:00Z
//
// Structural checks on the result (ring closure, threshold ordering, score
// ordering) are reported on stderr; the command exits 1 if any fail.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"sort"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/couchcryptid/plume-triage/internal/adapter/store"
	"github.com/couchcryptid/plume-triage/internal/contour"
	"github.com/couchcryptid/plume-triage/internal/dispersion"
	"github.com/couchcryptid/plume-triage/internal/domain"
	"github.com/couchcryptid/plume-triage/internal/observability"
	"github.com/couchcryptid/plume-triage/internal/pipeline"
	"github.com/couchcryptid/plume-triage/internal/plumemap"
	"github.com/couchcryptid/plume-triage/internal/triage"
)

var defaultAt = time.Date(2024, time.April, 26, 15, 10, 0, 0, time.UTC)

// scenario is the input file format.
type scenario struct {
	Pathogens []domain.PathogenProfile `json:"pathogens"`
	Request   domain.AssessmentRequest `json:"request"`
}

// phase tracks pass/fail for a group of checks.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	in := flag.String("in", "", "path to scenario JSON")
	out := flag.String("out", "", "output path for the assessment JSON (default stdout)")
	at := flag.String("at", defaultAt.Format(time.RFC3339), "fixed triage timestamp (RFC3339)")
	logLevel := flag.String("log-level", "warn", "log level: debug, info, warn, error")
	flag.Parse()

	if *in == "" {
		flag.Usage()
		os.Exit(1)
	}
	now, err := time.Parse(time.RFC3339, *at)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid -at: %v\n", err)
		os.Exit(1)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: observability.ParseLevel(*logLevel)}))
	if code := run(*in, *out, now, logger, os.Stdout, os.Stderr); code != 0 {
		os.Exit(code)
	}
}

func run(inPath, outPath string, now time.Time, logger *slog.Logger, stdout, stderr io.Writer) int {
	triage.SetClock(clockwork.NewFakeClockAt(now))
	defer triage.SetClock(nil)

	sc, err := loadScenario(inPath)
	if err != nil {
		fmt.Fprintf(stderr, "load scenario: %v\n", err)
		return 1
	}

	mapperCfg := plumemap.DefaultConfig()
	contourCfg := contour.DefaultConfig()
	assessor := pipeline.NewAssessor(
		store.StaticSource(sc.Pathogens),
		nil,
		plumemap.NewMapper(mapperCfg, logger),
		dispersion.NewCalculator(dispersion.NewCoefficientCache(dispersion.DefaultCacheSize)),
		pipeline.AssessorConfig{FieldResolution: 50, FieldMaxDistance: 5000, Contour: contourCfg},
		logger,
		nil,
	)

	a, err := assessor.Assess(context.Background(), sc.Request)
	if err != nil {
		fmt.Fprintf(stderr, "assess: %v\n", err)
		return 1
	}

	if err := writeJSON(outPath, stdout, a); err != nil {
		fmt.Fprintf(stderr, "write assessment: %v\n", err)
		return 1
	}

	printStats(stderr, a)

	phases := []*phase{checkTriage(a), checkPolygons(a, contourCfg)}
	failed := false
	for _, p := range phases {
		if p.passed() {
			fmt.Fprintf(stderr, "PASS %s\n", p.name)
			continue
		}
		failed = true
		fmt.Fprintf(stderr, "FAIL %s\n", p.name)
		for _, e := range p.errors {
			fmt.Fprintf(stderr, "  - %s\n", e)
		}
	}
	if failed {
		return 1
	}
	return 0
}

func loadScenario(path string) (scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return scenario{}, err
	}
	var sc scenario
	if err := json.Unmarshal(data, &sc); err != nil {
		return scenario{}, fmt.Errorf("decode %s: %w", path, err)
	}
	if sc.Request.RequestID == "" {
		sc.Request.RequestID = "scenario"
	}
	return sc, nil
}

// writeJSON writes v to path, or to fallback when path is empty.
func writeJSON(path string, fallback io.Writer, v any) error {
	w := fallback
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return err
		}
		defer f.Close()
		w = f
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func printStats(w io.Writer, a domain.Assessment) {
	fmt.Fprintf(w, "request %s at %s\n", a.RequestID, a.GeneratedAt.Format(time.RFC3339))
	for _, s := range a.Triage.Scores {
		fmt.Fprintf(w, "  %-12s score=%6.2f viable=%t\n", s.PathogenID, s.Score, s.IsViable)
	}
	for _, warning := range a.Triage.Warnings {
		fmt.Fprintf(w, "  warning: %s\n", warning)
	}
	if a.Selected == nil {
		fmt.Fprintln(w, "no viable candidate")
		return
	}
	fmt.Fprintf(w, "selected %s: Q=%.1f g/s H=%.0f m u=%.1f m/s from %.0f°\n",
		a.Selected.PathogenID, a.Plume.EmissionRate, a.Plume.StackHeight, a.Plume.WindSpeed, a.Plume.WindDirection)
	fmt.Fprintf(w, "field: %d points, max %.3g g/m³\n", a.FieldPoints, a.FieldMax)
	for _, p := range a.Polygons {
		fmt.Fprintf(w, "  %s threshold=%.3g vertices=%d\n", p.Color, p.Threshold, len(p.Ring))
	}
	for _, issue := range a.Issues {
		fmt.Fprintf(w, "  issue: %s\n", issue)
	}
}

func checkTriage(a domain.Assessment) *phase {
	p := &phase{name: "triage ordering"}
	scores := a.Triage.Scores
	sorted := sort.SliceIsSorted(scores, func(i, j int) bool {
		if scores[i].Score != scores[j].Score {
			return scores[i].Score > scores[j].Score
		}
		return scores[i].PathogenID < scores[j].PathogenID
	})
	if !sorted {
		p.errorf("scores are not sorted by score desc, id asc")
	}
	for _, s := range scores {
		if !s.IsViable && s.Score != 0 {
			p.errorf("%s is non-viable but scored %g", s.PathogenID, s.Score)
		}
		if s.Score < 0 || s.Score > 100 {
			p.errorf("%s score %g outside [0, 100]", s.PathogenID, s.Score)
		}
	}
	return p
}

func checkPolygons(a domain.Assessment, cfg contour.Config) *phase {
	p := &phase{name: "polygon structure"}
	prev := math.Inf(1)
	for i, poly := range a.Polygons {
		if poly.Threshold > prev {
			p.errorf("polygon %d threshold %g exceeds previous %g", i, poly.Threshold, prev)
		}
		prev = poly.Threshold
		if poly.Threshold > a.FieldMax {
			p.errorf("polygon %d threshold %g exceeds field max %g", i, poly.Threshold, a.FieldMax)
		}
		n := len(poly.Ring)
		if n < 4 {
			p.errorf("polygon %d has %d vertices", i, n)
			continue
		}
		if n > cfg.MaxPolygonPoints {
			p.errorf("polygon %d has %d vertices, limit %d", i, n, cfg.MaxPolygonPoints)
		}
		if poly.Ring[0] != poly.Ring[n-1] {
			p.errorf("polygon %d is not closed", i)
		}
	}
	return p
}
