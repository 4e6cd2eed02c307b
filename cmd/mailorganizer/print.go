package main

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/nhle/mail-organizer/internal/analytics"
	"github.com/nhle/mail-organizer/internal/model"
	"github.com/nhle/mail-organizer/internal/rules"
	"github.com/nhle/mail-organizer/internal/ui/history"
)

const timeLayout = "2006-01-02 15:04:05"

func printSummary(w io.Writer, s analytics.Summary) {
	fmt.Fprintf(w, "Last %d days: %d messages\n", s.Days, s.Total)
	if s.ResponsePairs > 0 {
		fmt.Fprintf(w, "Average response time: %.1f minutes over %d replies\n", s.AverageResponseMinutes, s.ResponsePairs)
	}
	if hour, count := analytics.PeakHour(s); count > 0 {
		fmt.Fprintf(w, "Busiest hour: %02d:00 (%d messages)\n", hour, count)
	}
	if st := analytics.Sizes(s); st.Count > 0 {
		fmt.Fprintf(w, "Sizes: mean %s, median %s, largest %s\n",
			analytics.FormatSize(int(st.Mean)), analytics.FormatSize(int(st.Median)), analytics.FormatSize(st.Max))
	}

	printRanked(w, "Top senders", analytics.TopSenders(s, 10))
	printRanked(w, "Sender domains", analytics.DomainDistribution(s, 8))
	printRanked(w, "Keywords", analytics.SignificantKeywords(s, analytics.OverviewKeywordFraction))
	printRanked(w, "Attachment types", analytics.TopAttachmentTypes(s, 6))

	fmt.Fprintln(w, "\nTime of day")
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, p := range analytics.TimeOfDay(s) {
		fmt.Fprintf(tw, "  %s\t%02d-%02d\t%d\n", p.Label, p.Start, p.End, p.Count)
	}
	tw.Flush()
}

func printRanked(w io.Writer, title string, entries []analytics.Ranked) {
	if len(entries) == 0 {
		return
	}
	fmt.Fprintf(w, "\n%s\n", title)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, e := range entries {
		fmt.Fprintf(tw, "  %s\t%d\n", e.Key, e.Count)
	}
	tw.Flush()
}

func printReport(w io.Writer, r *rules.Report) {
	fmt.Fprintf(w, "%d unseen, %d moved, %d replied", r.Scanned, r.Moved, r.Replied)
	if r.ReplyFailed > 0 {
		fmt.Fprintf(w, ", %d replies failed", r.ReplyFailed)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, a := range r.Actions {
		if !a.Moved() {
			continue
		}
		fmt.Fprintf(tw, "  %s\t%s\t-> %s\t(%s)\n", a.Sender, a.Subject, a.Folder, a.Rule)
	}
	tw.Flush()
}

func printHits(w io.Writer, hits []model.SearchHit) {
	if len(hits) == 0 {
		fmt.Fprintln(w, "No matching messages.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, h := range hits {
		date := h.Date
		if date == "" {
			date = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", date, h.Sender, h.Subject)
	}
	tw.Flush()
}

func printRules(w io.Writer, rs []model.Rule) {
	if len(rs) == 0 {
		fmt.Fprintln(w, "No rules.")
		return
	}
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "NAME\tCONDITION\tVALUE\tFOLDER")
	for _, r := range rs {
		fmt.Fprintf(tw, "%s\t%s\t%q\t%s\n", r.Name, r.Type, r.Value, r.Folder)
	}
	tw.Flush()
}

func printAutoReply(w io.Writer, s model.AutoReplySettings) {
	state := "disabled"
	if s.Enabled {
		state = "enabled"
	}
	fmt.Fprintf(w, "Auto-reply %s\n", state)
	if s.Message != "" {
		fmt.Fprintf(w, "\n%s\n", s.Message)
	}
}

func printHistory(w io.Writer, runs []model.Run) {
	if len(runs) == 0 {
		fmt.Fprintln(w, "No runs recorded yet.")
		return
	}
	now := time.Now()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, r := range runs {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
			r.StartedAt.Local().Format(timeLayout),
			history.Ago(r.StartedAt, now),
			r.Kind,
			history.Describe(r),
			r.Duration().Round(time.Millisecond),
		)
	}
	tw.Flush()
}
