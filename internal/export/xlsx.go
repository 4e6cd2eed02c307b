// Package export writes analysis summaries to spreadsheets.
package export

import (
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"

	"github.com/nhle/mail-organizer/internal/analytics"
)

// Sheet names, in workbook order.
const (
	SheetOverview    = "Overview"
	SheetSenders     = "Senders"
	SheetDomains     = "Domains"
	SheetHours       = "Hours"
	SheetKeywords    = "Keywords"
	SheetAttachments = "Attachments"
)

const (
	topSenders     = 10
	topDomains     = 8
	topAttachments = 6
)

// WriteXLSX saves s as a workbook at path.
func WriteXLSX(s analytics.Summary, path string) error {
	f, err := build(s)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.SaveAs(path); err != nil {
		return fmt.Errorf("saving workbook %s: %w", path, err)
	}
	return nil
}

// Write streams s as a workbook to w.
func Write(s analytics.Summary, w io.Writer) error {
	f, err := build(s)
	if err != nil {
		return err
	}
	defer f.Close()

	if err := f.Write(w); err != nil {
		return fmt.Errorf("writing workbook: %w", err)
	}
	return nil
}

func build(s analytics.Summary) (*excelize.File, error) {
	f := excelize.NewFile()
	if err := f.SetSheetName("Sheet1", SheetOverview); err != nil {
		f.Close()
		return nil, fmt.Errorf("naming overview sheet: %w", err)
	}

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("creating header style: %w", err)
	}
	w := &sheetWriter{f: f, header: bold}

	w.overview(s)
	w.ranked(SheetSenders, "Sender", analytics.TopSenders(s, topSenders))
	w.ranked(SheetDomains, "Domain", analytics.DomainDistribution(s, topDomains))
	w.hours(s)
	w.ranked(SheetKeywords, "Keyword", analytics.SignificantKeywords(s, analytics.OverviewKeywordFraction))
	w.ranked(SheetAttachments, "Extension", analytics.TopAttachmentTypes(s, topAttachments))

	if w.err != nil {
		f.Close()
		return nil, w.err
	}
	return f, nil
}

// sheetWriter keeps the first error so the sheet builders stay linear.
type sheetWriter struct {
	f      *excelize.File
	header int
	err    error
}

func (w *sheetWriter) sheet(name string) {
	if w.err != nil || name == SheetOverview {
		return
	}
	if _, err := w.f.NewSheet(name); err != nil {
		w.err = fmt.Errorf("creating sheet %s: %w", name, err)
	}
}

func (w *sheetWriter) row(sheet string, n int, values ...any) {
	if w.err != nil {
		return
	}
	cell, err := excelize.CoordinatesToCellName(1, n)
	if err == nil {
		err = w.f.SetSheetRow(sheet, cell, &values)
	}
	if err != nil {
		w.err = fmt.Errorf("writing %s row %d: %w", sheet, n, err)
	}
}

func (w *sheetWriter) headerRow(sheet string, values ...any) {
	w.row(sheet, 1, values...)
	if w.err != nil {
		return
	}
	last, _ := excelize.CoordinatesToCellName(len(values), 1)
	if err := w.f.SetCellStyle(sheet, "A1", last, w.header); err != nil {
		w.err = fmt.Errorf("styling %s header: %w", sheet, err)
	}
}

func (w *sheetWriter) overview(s analytics.Summary) {
	sizes := analytics.Sizes(s)
	hour, peak := analytics.PeakHour(s)

	w.headerRow(SheetOverview, "Metric", "Value")
	rows := [][]any{
		{"Period (days)", s.Days},
		{"Generated", s.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"Total messages", s.Total},
		{"Unique senders", len(s.Senders)},
		{"Response pairs", s.ResponsePairs},
		{"Average response (minutes)", s.AverageResponseMinutes},
		{"Peak hour", fmt.Sprintf("%02d:00 (%d)", hour, peak)},
		{"Median size", analytics.FormatSize(int(sizes.Median))},
		{"Largest message", analytics.FormatSize(sizes.Max)},
	}
	for _, p := range analytics.TimeOfDay(s) {
		rows = append(rows, []any{p.Label, p.Count})
	}
	for i, r := range rows {
		w.row(SheetOverview, i+2, r...)
	}
}

func (w *sheetWriter) ranked(sheet, label string, entries []analytics.Ranked) {
	w.sheet(sheet)
	w.headerRow(sheet, label, "Messages")
	for i, e := range entries {
		w.row(sheet, i+2, e.Key, e.Count)
	}
}

func (w *sheetWriter) hours(s analytics.Summary) {
	w.sheet(SheetHours)
	w.headerRow(SheetHours, "Hour", "Messages")
	for h, c := range s.Hours {
		w.row(SheetHours, h+2, h, c)
	}
	if w.err != nil {
		return
	}
	err := w.f.AddChart(SheetHours, "D2", &excelize.Chart{
		Type: excelize.Col,
		Series: []excelize.ChartSeries{{
			Name:       SheetHours + "!$B$1",
			Categories: SheetHours + "!$A$2:$A$25",
			Values:     SheetHours + "!$B$2:$B$25",
		}},
		Title:  []excelize.RichTextRun{{Text: "Messages by hour"}},
		Legend: excelize.ChartLegend{Position: "none"},
	})
	if err != nil {
		w.err = fmt.Errorf("adding hour chart: %w", err)
	}
}
