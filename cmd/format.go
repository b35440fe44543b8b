package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/sells-group/osm-cameras/internal/harvest"
	"github.com/sells-group/osm-cameras/internal/region"
	"github.com/sells-group/osm-cameras/internal/store"
)

// formatSummary writes a per-country table for a finished harvest.
func formatSummary(out io.Writer, sum *harvest.Summary) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COUNTRY\tBOXES\tSKIPPED\tCAMERAS\tFILE")
	for _, c := range sum.Countries {
		file := "-"
		switch {
		case c.Written != nil:
			file = c.Written.Path
		case c.Err != nil:
			file = "error: " + c.Err.Error()
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\n", c.Code, c.Boxes, c.BoxesSkipped, c.Cameras, file)
	}
	_ = w.Flush()

	status := "complete"
	if sum.Interrupted {
		status = "interrupted"
	}
	_, _ = fmt.Fprintf(out, "\n%s: %d written, %d failed, %d cameras, %d/%d boxes skipped in %s\n",
		status, sum.Written(), sum.Failed(), sum.Cameras(), sum.BoxesSkipped(), sum.Boxes(),
		sum.Duration.Round(time.Second))
}

// formatRegions writes the region table with one line per bounding box.
func formatRegions(out io.Writer, table *region.Table) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "CODE\tNAME\tBOX\tLAT_MIN\tLON_MIN\tLAT_MAX\tLON_MAX")
	for _, c := range table.All() {
		for i, b := range c.Boxes {
			code, name := c.Code, c.Name()
			if i > 0 {
				code, name = "", ""
			}
			_, _ = fmt.Fprintf(w, "%s\t%s\t%d\t%g\t%g\t%g\t%g\n",
				code, name, i+1, b.LatMin, b.LonMin, b.LatMax, b.LonMax)
		}
	}
	_ = w.Flush()
}

// formatRunsList writes a tabular list of runs to w.
func formatRunsList(out io.Writer, runs []store.Run) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "ID\tSTATUS\tSTARTED\tDURATION\tCOUNTRIES\tWRITTEN\tFAILED\tCAMERAS")
	for _, r := range runs {
		id := r.ID
		if len(id) > 8 {
			id = id[:8]
		}
		dur := "-"
		if r.FinishedAt != nil {
			dur = r.FinishedAt.Sub(r.StartedAt).Round(time.Second).String()
		}
		written, failed, cams := "-", "-", "-"
		if r.Summary != nil {
			written = fmt.Sprint(r.Summary.Written)
			failed = fmt.Sprint(r.Summary.Failed)
			cams = fmt.Sprint(r.Summary.Cameras)
		}
		_, _ = fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
			id,
			r.Status,
			r.StartedAt.UTC().Format("2006-01-02 15:04"),
			dur,
			strings.Join(r.Countries, ","),
			written, failed, cams,
		)
	}
	_ = w.Flush()
}

// formatCountryOutcomes writes the per-country rows of one run.
func formatCountryOutcomes(out io.Writer, outcomes []store.CountryOutcome) {
	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	_, _ = fmt.Fprintln(w, "COUNTRY\tBOXES\tSKIPPED\tCAMERAS\tPATH\tERROR")
	for _, o := range outcomes {
		path, errMsg := o.Path, "-"
		if path == "" {
			path = "-"
		}
		if o.Error != "" {
			errMsg = o.ErrorClass + ": " + o.Error
		}
		_, _ = fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%s\t%s\n", o.Code, o.Boxes, o.BoxesSkipped, o.Cameras, path, errMsg)
	}
	_ = w.Flush()
}
