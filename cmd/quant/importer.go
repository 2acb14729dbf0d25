package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"quant-systemv1/internal/model"
)

func importCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Load CSV files into the store",
		Long: "Each file needs a header row. Column order is free and empty cells are stored as undefined.\n" +
			"  bars:         code,date,open,high,low,close,volume\n" +
			"  instruments:  code,name[,special_treatment,list_date,float_shares]\n" +
			"  fundamentals: instrument,report_date,publish_date[,total_shares,net_profit,...]",
	}
	cmd.AddCommand(
		importSub("bars", func(a *app, cmd *cobra.Command, r io.Reader) (int, error) {
			series, err := parseBars(r)
			if err != nil {
				return 0, err
			}
			n := 0
			for _, s := range series {
				if err := a.store.UpsertSeries(cmd.Context(), s); err != nil {
					return n, err
				}
				n += s.Len()
			}
			return n, nil
		}),
		importSub("instruments", func(a *app, cmd *cobra.Command, r io.Reader) (int, error) {
			in, err := parseInstruments(r)
			if err != nil {
				return 0, err
			}
			return len(in), a.store.UpsertInstruments(cmd.Context(), in)
		}),
		importSub("fundamentals", func(a *app, cmd *cobra.Command, r io.Reader) (int, error) {
			recs, err := parseFundamentals(r)
			if err != nil {
				return 0, err
			}
			return len(recs), a.store.UpsertFundamentals(cmd.Context(), recs)
		}),
	)
	return cmd
}

func importSub(kind string, load func(a *app, cmd *cobra.Command, r io.Reader) (int, error)) *cobra.Command {
	return &cobra.Command{
		Use:   kind + " FILE",
		Short: "Import " + kind + " from a CSV file (- for stdin)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd)
			if err != nil {
				return err
			}
			defer a.close()

			var r io.Reader = cmd.InOrStdin()
			if args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
			}
			n, err := load(a, cmd, r)
			if err != nil {
				return fmt.Errorf("import %s: %w", kind, err)
			}
			slog.Info("import complete", "kind", kind, "rows", n)
			return nil
		},
	}
}

// table is a CSV body addressed by header name.
type table struct {
	cols map[string]int
	rows [][]string
}

func readTable(r io.Reader, required ...string) (*table, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, errors.New("empty file")
		}
		return nil, err
	}
	t := &table{cols: make(map[string]int, len(header))}
	for i, h := range header {
		t.cols[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, c := range required {
		if _, ok := t.cols[c]; !ok {
			return nil, fmt.Errorf("missing column %q", c)
		}
	}
	if t.rows, err = cr.ReadAll(); err != nil {
		return nil, err
	}
	return t, nil
}

func (t *table) str(row []string, col string) string {
	i, ok := t.cols[col]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// float parses a cell; empty or missing is undefined.
func (t *table) float(row []string, col string) (float64, error) {
	s := t.str(row, col)
	if s == "" {
		return model.Undefined(), nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("column %s: %w", col, err)
	}
	return v, nil
}

func (t *table) date(row []string, col string) (time.Time, error) {
	s := t.str(row, col)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range []string{dateLayout, "20060102"} {
		if d, err := time.Parse(layout, s); err == nil {
			return d, nil
		}
	}
	return time.Time{}, fmt.Errorf("column %s: bad date %q", col, s)
}

// parseBars groups bar rows by code, each series sorted by date.
func parseBars(r io.Reader) ([]model.Series, error) {
	t, err := readTable(r, "code", "date", "open", "high", "low", "close", "volume")
	if err != nil {
		return nil, err
	}
	byCode := map[string]*model.Series{}
	var order []string
	for i, row := range t.rows {
		code := t.str(row, "code")
		d, err := t.date(row, "date")
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		b := model.Bar{Date: d}
		for _, f := range []struct {
			col string
			dst *float64
		}{{"open", &b.Open}, {"high", &b.High}, {"low", &b.Low}, {"close", &b.Close}, {"volume", &b.Volume}} {
			if *f.dst, err = t.float(row, f.col); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+2, err)
			}
		}
		s, ok := byCode[code]
		if !ok {
			s = &model.Series{Instrument: code}
			byCode[code] = s
			order = append(order, code)
		}
		s.Bars = append(s.Bars, b)
	}
	out := make([]model.Series, len(order))
	for i, code := range order {
		s := byCode[code]
		sort.Slice(s.Bars, func(a, b int) bool { return s.Bars[a].Date.Before(s.Bars[b].Date) })
		out[i] = *s
	}
	return out, nil
}

func parseInstruments(r io.Reader) ([]model.Instrument, error) {
	t, err := readTable(r, "code", "name")
	if err != nil {
		return nil, err
	}
	out := make([]model.Instrument, 0, len(t.rows))
	for i, row := range t.rows {
		in := model.Instrument{Code: t.str(row, "code"), Name: t.str(row, "name")}
		if st := t.str(row, "special_treatment"); st != "" {
			if in.SpecialTreatment, err = strconv.ParseBool(st); err != nil {
				return nil, fmt.Errorf("row %d: special_treatment: %w", i+2, err)
			}
		}
		if in.ListDate, err = t.date(row, "list_date"); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if in.FloatShares, err = t.float(row, "float_shares"); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		out = append(out, in)
	}
	return out, nil
}

// fundamentalColumns maps CSV headers to statement fields.
var fundamentalColumns = []struct {
	col string
	set func(f *model.Fundamentals) *float64
}{
	{"total_shares", func(f *model.Fundamentals) *float64 { return &f.TotalShares }},
	{"net_profit", func(f *model.Fundamentals) *float64 { return &f.NetProfit }},
	{"book_value", func(f *model.Fundamentals) *float64 { return &f.BookValue }},
	{"revenue", func(f *model.Fundamentals) *float64 { return &f.Revenue }},
	{"operating_cash_flow", func(f *model.Fundamentals) *float64 { return &f.OperatingCashFlow }},
	{"dividend_per_share", func(f *model.Fundamentals) *float64 { return &f.DividendPerShare }},
	{"equity", func(f *model.Fundamentals) *float64 { return &f.Equity }},
	{"nopat", func(f *model.Fundamentals) *float64 { return &f.NOPAT }},
	{"invested_capital", func(f *model.Fundamentals) *float64 { return &f.InvestedCapital }},
	{"cogs", func(f *model.Fundamentals) *float64 { return &f.COGS }},
	{"total_assets", func(f *model.Fundamentals) *float64 { return &f.TotalAssets }},
	{"actual_eps", func(f *model.Fundamentals) *float64 { return &f.ActualEPS }},
	{"expected_eps", func(f *model.Fundamentals) *float64 { return &f.ExpectedEPS }},
	{"std_eps", func(f *model.Fundamentals) *float64 { return &f.StdEPS }},
}

func parseFundamentals(r io.Reader) ([]model.Fundamentals, error) {
	t, err := readTable(r, "instrument", "report_date", "publish_date")
	if err != nil {
		return nil, err
	}
	out := make([]model.Fundamentals, 0, len(t.rows))
	for i, row := range t.rows {
		f := model.Fundamentals{Instrument: t.str(row, "instrument")}
		if f.ReportDate, err = t.date(row, "report_date"); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if f.PublishDate, err = t.date(row, "publish_date"); err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		if f.PublishDate.IsZero() {
			return nil, fmt.Errorf("row %d: publish_date is required", i+2)
		}
		for _, c := range fundamentalColumns {
			if *c.set(&f), err = t.float(row, c.col); err != nil {
				return nil, fmt.Errorf("row %d: %w", i+2, err)
			}
		}
		out = append(out, f)
	}
	return out, nil
}
