package pipeline

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/divar-cli/internal/model"
)

// Output formats accepted by Report.Format and Status.Format.
const (
	FormatTable = "table"
	FormatYAML  = "yaml"
)

// Collection kinds.
const (
	KindCategory = "category"
	KindStore    = "store"
)

// StageResult records the outcome of one stage for one collection.
type StageResult struct {
	Stage      model.Stage     `yaml:"stage"`
	Status     model.RunStatus `yaml:"status"`
	DurationMs int64           `yaml:"duration_ms"`
	Error      string          `yaml:"error,omitempty"`
}

// CollectionReport summarizes the work done for one category or store.
type CollectionReport struct {
	Name     string        `yaml:"name"`
	Kind     string        `yaml:"kind"`
	Pages    int           `yaml:"pages"`
	Items    int           `yaml:"items"`
	Seen     int           `yaml:"seen"`
	Cleaned  int           `yaml:"cleaned"`
	Skipped  int           `yaml:"skipped"`
	Artifact string        `yaml:"artifact,omitempty"`
	Stages   []StageResult `yaml:"stages"`
}

// Report is the result of Runner.Run.
type Report struct {
	RunID       string              `yaml:"run_id"`
	Stage       model.Stage         `yaml:"stage"`
	Status      model.RunStatus     `yaml:"status"`
	Collections []*CollectionReport `yaml:"collections"`
}

func (r *Report) add(name, kind string) *CollectionReport {
	cr := &CollectionReport{Name: name, Kind: kind}
	r.Collections = append(r.Collections, cr)
	return cr
}

// Format writes the report to w as a table or as YAML.
func (r *Report) Format(w io.Writer, format string) error {
	switch format {
	case FormatYAML:
		return writeYAML(w, r)
	case FormatTable, "":
	default:
		return eris.Errorf("pipeline: unknown format %q", format)
	}

	fmt.Fprintf(w, "run %s (%s): %s\n", r.RunID, r.Stage, r.Status)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tKIND\tPAGES\tITEMS\tSEEN\tCLEANED\tSKIPPED\tSTAGES\tARTIFACT")
	for _, c := range r.Collections {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%d\t%d\t%s\t%s\n",
			c.Name, c.Kind, c.Pages, c.Items, c.Seen, c.Cleaned, c.Skipped,
			stageSummary(c.Stages), dash(c.Artifact))
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "pipeline: write report")
	}
	for _, c := range r.Collections {
		for _, s := range c.Stages {
			if s.Error != "" {
				fmt.Fprintf(w, "error: %s %s: %s\n", c.Name, s.Stage, s.Error)
			}
		}
	}
	return nil
}

func stageSummary(stages []StageResult) string {
	if len(stages) == 0 {
		return "-"
	}
	parts := make([]string, 0, len(stages))
	for _, s := range stages {
		parts = append(parts, fmt.Sprintf("%s:%s(%dms)", s.Stage, s.Status, s.DurationMs))
	}
	return strings.Join(parts, ",")
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func writeYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return eris.Wrap(err, "pipeline: encode yaml")
	}
	return eris.Wrap(enc.Close(), "pipeline: encode yaml")
}
