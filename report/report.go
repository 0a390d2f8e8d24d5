package report

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/afg1/bqeval/core"
)

// Format selects an output encoding.
type Format string

const (
	FormatTable Format = "table"
	FormatCSV   Format = "csv"
	FormatJSON  Format = "json"
)

// ParseFormat parses a format name, case-insensitively.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatTable, "":
		return FormatTable, nil
	case FormatCSV:
		return FormatCSV, nil
	case FormatJSON:
		return FormatJSON, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

var header = []string{
	"oversampling", "rescore", "limit", "accuracy", "found", "queries", "errors",
	"mean_ms", "p50_ms", "p95_ms", "p99_ms", "max_ms",
}

// Write renders cells in the given format.
func Write(w io.Writer, format Format, cells []core.CellResult) error {
	switch format {
	case FormatTable:
		return WriteTable(w, cells)
	case FormatCSV:
		return WriteCSV(w, cells)
	case FormatJSON:
		return WriteJSON(w, cells)
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}
}

// WriteTable writes an aligned plain-text table.
func WriteTable(w io.Writer, cells []core.CellResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, strings.Join(header, "\t")+"\t")
	for _, c := range cells {
		fmt.Fprintln(tw, strings.Join(row(c), "\t")+"\t")
	}
	return tw.Flush()
}

// WriteCSV writes a header line followed by one record per cell.
func WriteCSV(w io.Writer, cells []core.CellResult) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, c := range cells {
		if err := cw.Write(row(c)); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

type jsonCell struct {
	Oversampling float64 `json:"oversampling"`
	Rescore      bool    `json:"rescore"`
	Limit        int     `json:"limit"`
	Accuracy     float64 `json:"accuracy"`
	Found        int     `json:"found"`
	Queries      int     `json:"queries"`
	Errors       int     `json:"errors"`
	MeanMS       float64 `json:"mean_ms"`
	P50MS        float64 `json:"p50_ms"`
	P95MS        float64 `json:"p95_ms"`
	P99MS        float64 `json:"p99_ms"`
	MaxMS        float64 `json:"max_ms"`
}

// WriteJSON writes the cells as an indented JSON array.
func WriteJSON(w io.Writer, cells []core.CellResult) error {
	out := make([]jsonCell, 0, len(cells))
	for _, c := range cells {
		out = append(out, jsonCell{
			Oversampling: c.Params.Oversampling,
			Rescore:      c.Params.Rescore,
			Limit:        c.Params.Limit,
			Accuracy:     c.Accuracy,
			Found:        c.Found,
			Queries:      c.Queries,
			Errors:       c.Errors,
			MeanMS:       ms(c.MeanLatency),
			P50MS:        ms(c.P50Latency),
			P95MS:        ms(c.P95Latency),
			P99MS:        ms(c.P99Latency),
			MaxMS:        ms(c.MaxLatency),
		})
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

// WriteRunSummary writes a short header describing a stored run.
func WriteRunSummary(w io.Writer, run *core.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", run.ID)
	fmt.Fprintf(tw, "Collection:\t%s\n", run.Collection)
	fmt.Fprintf(tw, "Dataset:\t%s\n", run.Dataset)
	fmt.Fprintf(tw, "Started:\t%s\n", run.StartedAt.Format(time.RFC3339))
	fmt.Fprintf(tw, "Duration:\t%s\n", run.Duration().Round(time.Millisecond))
	fmt.Fprintf(tw, "Queries:\t%d (seed %d, noise %g)\n", run.QueryCount, run.Seed, run.NoiseStdDev)
	fmt.Fprintf(tw, "Cells:\t%d\n", len(run.Cells))
	for _, k := range sortedKeys(run.Labels) {
		fmt.Fprintf(tw, "Label %s:\t%s\n", k, run.Labels[k])
	}
	return tw.Flush()
}

// WriteRunList writes one line per run.
func WriteRunList(w io.Writer, runs []*core.Run) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tCOLLECTION\tQUERIES\tCELLS\tDURATION")
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.StartedAt.Format(time.RFC3339), r.Collection, r.QueryCount, len(r.Cells),
			r.Duration().Round(time.Millisecond))
	}
	return tw.Flush()
}

func row(c core.CellResult) []string {
	return []string{
		strconv.FormatFloat(c.Params.Oversampling, 'f', 1, 64),
		strconv.FormatBool(c.Params.Rescore),
		strconv.Itoa(c.Params.Limit),
		strconv.FormatFloat(c.Accuracy, 'f', 4, 64),
		strconv.Itoa(c.Found),
		strconv.Itoa(c.Queries),
		strconv.Itoa(c.Errors),
		strconv.FormatFloat(ms(c.MeanLatency), 'f', 3, 64),
		strconv.FormatFloat(ms(c.P50Latency), 'f', 3, 64),
		strconv.FormatFloat(ms(c.P95Latency), 'f', 3, 64),
		strconv.FormatFloat(ms(c.P99Latency), 'f', 3, 64),
		strconv.FormatFloat(ms(c.MaxLatency), 'f', 3, 64),
	}
}

func ms(d time.Duration) float64 {
	return float64(d) / float64(time.Millisecond)
}
