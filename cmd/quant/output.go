package main

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"quant-systemv1/internal/calendar"
)

// record is one output row keyed by column name.
type record map[string]any

// num maps the undefined sentinel to nil so JSON shows null and tables "-".
func num(v float64) any {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return v
}

// wantJSON reports whether output should be JSON: forced by --json, or
// when stdout is not a terminal.
func wantJSON(cmd *cobra.Command) bool {
	if j, _ := cmd.Flags().GetBool("json"); j {
		return true
	}
	return !term.IsTerminal(int(os.Stdout.Fd()))
}

// emit prints rows as a JSON array or an aligned table with columns in order.
func emit(cmd *cobra.Command, columns []string, rows []record) error {
	out := cmd.OutOrStdout()
	if wantJSON(cmd) {
		if rows == nil {
			rows = []record{}
		}
		return writeJSON(out, rows)
	}
	return writeTable(out, columns, rows)
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func writeTable(w io.Writer, columns []string, rows []record) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, strings.ToUpper(strings.Join(columns, "\t")))
	for _, r := range rows {
		cells := make([]string, len(columns))
		for i, c := range columns {
			cells[i] = cell(r[c])
		}
		fmt.Fprintln(tw, strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func cell(v any) string {
	switch x := v.(type) {
	case nil:
		return "-"
	case float64:
		return strconv.FormatFloat(x, 'f', 4, 64)
	case time.Time:
		return x.Format(dateLayout)
	default:
		return fmt.Sprint(x)
	}
}

const dateLayout = "2006-01-02"

// parseDate reads a YYYY-MM-DD flag; empty means today's exchange date.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		now := time.Now().In(calendar.CST)
		return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC), nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("bad date %q, want YYYY-MM-DD", s)
	}
	return t, nil
}

// parseRange reads optional --from/--to flags; empty bounds stay open.
func parseRange(cmd *cobra.Command) (from, to time.Time, err error) {
	f, _ := cmd.Flags().GetString("from")
	t, _ := cmd.Flags().GetString("to")
	if f != "" {
		if from, err = parseDate(f); err != nil {
			return
		}
	}
	if t != "" {
		if to, err = parseDate(t); err != nil {
			return
		}
	}
	return
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
