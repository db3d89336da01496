package main

import (
	"io"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"

	"github.com/RobinCoderZhao/stocker/internal/stocker/pipeline"
	"github.com/RobinCoderZhao/stocker/internal/stocker/query"
	"github.com/RobinCoderZhao/stocker/internal/stocker/store"
	"github.com/RobinCoderZhao/stocker/internal/stocker/tickers"
)

func newTable(w io.Writer, header table.Row) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	t.AppendHeader(header)
	return t
}

func renderQueries(w io.Writer, items []query.WorkItem) {
	t := newTable(w, table.Row{"#", "Ticker", "Source", "Query"})
	for i, it := range items {
		t.AppendRow(table.Row{i + 1, it.Ticker, it.Source, it.Query})
	}
	t.AppendFooter(table.Row{"", "", "Total", len(items)})
	t.Render()
}

func renderCompanies(w io.Writer, companies []tickers.Company) {
	t := newTable(w, table.Row{"Symbol", "Name", "Sector", "Industry"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, WidthMax: 40},
		{Number: 4, WidthMax: 40},
	})
	for _, c := range companies {
		t.AppendRow(table.Row{c.Symbol, c.Name, c.Sector, c.Industry})
	}
	t.AppendFooter(table.Row{"Total", len(companies), "", ""})
	t.Render()
}

func renderSources(w io.Writer, sources []string) {
	t := newTable(w, table.Row{"#", "Source"})
	for i, s := range sources {
		t.AppendRow(table.Row{i + 1, s})
	}
	t.Render()
}

func renderSummary(w io.Writer, sum *pipeline.Summary) {
	t := newTable(w, table.Row{"Ticker", "Articles"})
	for _, tk := range sum.Tickers() {
		t.AppendRow(table.Row{tk, sum.PerTicker[tk]})
	}
	t.AppendFooter(table.Row{"Total", sum.Rows})
	t.Render()

	s := newTable(w, table.Row{"Run", "Queries", "New URLs", "Failures", "Search errors", "Duration"})
	s.AppendRow(table.Row{
		sum.RunID,
		sum.Processed,
		sum.URLs,
		sum.Failures,
		sum.SearchErrors,
		sum.Duration().Round(time.Millisecond),
	})
	s.Render()
}

func renderRuns(w io.Writer, runs []store.Run) {
	t := newTable(w, table.Row{"Run", "Started", "Finished", "Queries", "Rows", "URLs", "Failures"})
	for _, r := range runs {
		finished := "-"
		if !r.FinishedAt.IsZero() {
			finished = r.FinishedAt.Local().Format(time.DateTime)
		}
		t.AppendRow(table.Row{
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			finished,
			r.Queries,
			r.Rows,
			r.URLs,
			r.Failures,
		})
	}
	t.Render()
}
