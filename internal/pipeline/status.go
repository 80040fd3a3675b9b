package pipeline

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/divar-cli/internal/exporter"
	"github.com/sells-group/divar-cli/internal/model"
	"github.com/sells-group/divar-cli/internal/store"
)

// CollectionStatus describes the persisted state of one category.
type CollectionStatus struct {
	Name     string `yaml:"name"`
	Raw      int    `yaml:"raw"`
	Cleaned  int    `yaml:"cleaned"`
	Artifact string `yaml:"artifact,omitempty"`
	// ArtifactRows counts data rows, excluding the header.
	ArtifactRows int `yaml:"artifact_rows"`
}

// Status is a snapshot of the store and exported artifacts.
type Status struct {
	Collections []CollectionStatus `yaml:"collections"`
	LastRun     *model.Run         `yaml:"last_run,omitempty"`
}

// Artifacts resolves artifact paths. *exporter.Exporter implements it.
type Artifacts interface {
	Path(name string) string
}

// LoadStatus reports collection sizes and artifacts for names, plus the most
// recent recorded run.
func LoadStatus(ctx context.Context, st store.Store, artifacts Artifacts, names []string) (*Status, error) {
	s := &Status{}
	for _, name := range names {
		raw, err := st.Stat(ctx, name)
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: stat %s", name)
		}
		cleaned, err := st.Stat(ctx, model.CleanedCollection(name))
		if err != nil {
			return nil, eris.Wrapf(err, "pipeline: stat %s", model.CleanedCollection(name))
		}

		cs := CollectionStatus{Name: name, Raw: raw.Items, Cleaned: cleaned.Items}
		if artifacts != nil {
			path := artifacts.Path(name)
			rows, err := exporter.ReadArtifact(path)
			if err != nil {
				return nil, err
			}
			if rows != nil {
				cs.Artifact = path
				cs.ArtifactRows = max(len(rows)-1, 0)
			}
		}
		s.Collections = append(s.Collections, cs)
	}

	last, err := LastRun(ctx, st)
	if err != nil {
		return nil, err
	}
	s.LastRun = last
	return s, nil
}

// LastRun returns the most recently recorded run, or nil if none exists.
func LastRun(ctx context.Context, st store.Store) (*model.Run, error) {
	runs, err := store.ReadItems[model.Run](ctx, st, model.RunsCollection)
	if err != nil {
		return nil, eris.Wrap(err, "pipeline: read run history")
	}
	if len(runs) == 0 {
		return nil, nil
	}
	last := runs[len(runs)-1]
	return &last, nil
}

// Format writes the status to w as a table or as YAML.
func (s *Status) Format(w io.Writer, format string) error {
	switch format {
	case FormatYAML:
		return writeYAML(w, s)
	case FormatTable, "":
	default:
		return eris.Errorf("pipeline: unknown format %q", format)
	}

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tRAW\tCLEANED\tROWS\tARTIFACT")
	for _, c := range s.Collections {
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%s\n", c.Name, c.Raw, c.Cleaned, c.ArtifactRows, dash(c.Artifact))
	}
	if err := tw.Flush(); err != nil {
		return eris.Wrap(err, "pipeline: write status")
	}

	if s.LastRun == nil {
		fmt.Fprintln(w, "last run: none")
		return nil
	}
	r := s.LastRun
	fmt.Fprintf(w, "last run: %s stage=%s status=%s finished=%s\n",
		r.ID, r.Stage, r.Status, r.FinishedAt.Format(time.RFC3339))
	if r.Error != "" {
		fmt.Fprintf(w, "last error: %s\n", r.Error)
	}
	return nil
}
