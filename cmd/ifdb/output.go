package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/John-Robertt/IFDB/internal/domain"
	"github.com/John-Robertt/IFDB/internal/store"
)

// 输出契约：stdout 是 TTY 时打印表格；否则 stdout 只输出一个 JSON 文档，摘要走 stderr。

func emitSearch(cmd *cobra.Command, out domain.SearchOutcome) error {
	w := cmd.OutOrStdout()
	summary := fmt.Sprintf("完成：found=%d shown=%d no_results=%v", out.Found, len(out.Results), out.NoResults)
	if !isTTY(w) {
		if out.Results == nil {
			out.Results = []domain.RankedResult{}
		}
		if err := writeJSON(w, out); err != nil {
			return err
		}
		fmt.Fprintln(stderr(cmd), summary)
		return nil
	}

	if out.NoResults {
		fmt.Fprintf(w, "没有找到与 %q 匹配的结果\n", out.Query.Name)
		return nil
	}
	rows := make([][]string, 0, len(out.Results))
	for _, r := range out.Results {
		rows = append(rows, []string{r.ID, strconv.Itoa(r.Score), r.Name})
	}
	fmt.Fprintln(w, renderTable([]string{"ID", "Score", "Name"}, rows, []columnAlignment{alignRight, alignRight, alignLeft}))
	fmt.Fprintln(w, summary)
	return nil
}

func emitRecord(cmd *cobra.Command, rec domain.FaneditMeta) error {
	w := cmd.OutOrStdout()
	if !isTTY(w) {
		if err := writeJSON(w, rec); err != nil {
			return err
		}
		fmt.Fprintf(stderr(cmd), "完成：id=%s title=%q\n", rec.ID, rec.Title)
		return nil
	}

	rows := [][]string{
		{"ID", rec.ID},
		{"Title", rec.Title},
		{"Original title", rec.OriginalTitle},
		{"Editor", strings.Join(rec.Editors.Items(), ", ")},
		{"Rating", formatRating(rec.Rating)},
		{"Year", strconv.Itoa(rec.Year)},
		{"Tagline", rec.Tagline},
		{"Genres", strings.Join(rec.Genres.Items(), ", ")},
		{"Collections", strings.Join(rec.Collections.Items(), ", ")},
		{"Tags", strings.Join(rec.Tags.Items(), ", ")},
		{"Posters", strconv.Itoa(len(rec.Posters))},
		{"Website", rec.Website},
	}
	fmt.Fprintln(w, renderTable([]string{"Field", "Value"}, rows, nil))
	if s := strings.TrimSpace(rec.Summary); s != "" {
		fmt.Fprintln(w)
		fmt.Fprintln(w, text.WrapSoft(s, 100))
	}
	return nil
}

func emitList(cmd *cobra.Command, items []store.Summary) error {
	w := cmd.OutOrStdout()
	if !isTTY(w) {
		if items == nil {
			items = []store.Summary{}
		}
		if err := writeJSON(w, items); err != nil {
			return err
		}
		fmt.Fprintf(stderr(cmd), "完成：records=%d\n", len(items))
		return nil
	}
	rows := make([][]string, 0, len(items))
	for _, it := range items {
		rows = append(rows, []string{it.ID, it.Title, it.UpdatedAt.Local().Format("2006-01-02 15:04")})
	}
	fmt.Fprintln(w, renderTable([]string{"ID", "Title", "Updated"}, rows, []columnAlignment{alignRight}))
	return nil
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTTY(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := f.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type columnAlignment int

const (
	alignLeft columnAlignment = iota
	alignRight
)

func renderTable(headers []string, rows [][]string, aligns []columnAlignment) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)

	header := make(table.Row, len(headers))
	for i, h := range headers {
		header[i] = h
	}
	tw.AppendHeader(header)
	for _, row := range rows {
		r := make(table.Row, len(headers))
		for i := range headers {
			if i < len(row) {
				r[i] = row[i]
			}
		}
		tw.AppendRow(r)
	}

	configs := make([]table.ColumnConfig, 0, len(headers))
	for i := range headers {
		align := text.AlignLeft
		if i < len(aligns) && aligns[i] == alignRight {
			align = text.AlignRight
		}
		configs = append(configs, table.ColumnConfig{Number: i + 1, Align: align, AlignHeader: text.AlignLeft, WidthMax: 80})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}
