package analytics

import (
	"cmp"
	"fmt"
	"slices"
	"strings"
)

// OtherLabel names the bucket that collects entries beyond a top-N cut.
const OtherLabel = "Other"

// Keyword significance thresholds relative to the most frequent keyword.
const (
	OverviewKeywordFraction = 0.05
	ContentKeywordFraction  = 0.03
)

// Ranked is one entry of a frequency table.
type Ranked struct {
	Key   string `json:"key"`
	Count int    `json:"count"`
}

// Rank orders counts by descending frequency, ties broken by key.
func Rank(counts map[string]int) []Ranked {
	out := make([]Ranked, 0, len(counts))
	for k, v := range counts {
		out = append(out, Ranked{Key: k, Count: v})
	}
	slices.SortFunc(out, func(a, b Ranked) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Key, b.Key)
	})
	return out
}

// TopSenders returns at most n senders by message count.
func TopSenders(s Summary, n int) []Ranked {
	return head(Rank(s.Senders), n)
}

// DomainDistribution groups senders by domain and keeps the top n, with
// the remainder folded into an Other entry.
func DomainDistribution(s Summary, n int) []Ranked {
	domains := make(map[string]int)
	for sender, count := range s.Senders {
		domains[domainOf(sender)] += count
	}
	return withOther(Rank(domains), n)
}

// TopAttachmentTypes keeps the n most common extensions and folds the
// rest into Other.
func TopAttachmentTypes(s Summary, n int) []Ranked {
	return withOther(Rank(s.AttachmentTypes), n)
}

// SignificantKeywords returns keywords whose frequency exceeds fraction
// of the most frequent keyword's.
func SignificantKeywords(s Summary, fraction float64) []Ranked {
	ranked := Rank(s.Keywords)
	if len(ranked) == 0 {
		return nil
	}
	threshold := float64(ranked[0].Count) * fraction
	var out []Ranked
	for _, r := range ranked {
		if float64(r.Count) > threshold {
			out = append(out, r)
		}
	}
	return out
}

// Period is a named range of hours [Start, End).
type Period struct {
	Label string
	Start int
	End   int
	Count int
}

// TimeOfDay buckets the hourly histogram into four six-hour periods.
func TimeOfDay(s Summary) []Period {
	periods := []Period{
		{Label: "Night", Start: 0, End: 6},
		{Label: "Morning", Start: 6, End: 12},
		{Label: "Afternoon", Start: 12, End: 18},
		{Label: "Evening", Start: 18, End: 24},
	}
	for i := range periods {
		for h := periods[i].Start; h < periods[i].End; h++ {
			periods[i].Count += s.Hours[h]
		}
	}
	return periods
}

// PeakHour returns the busiest hour and its count. Ties go to the
// earliest hour.
func PeakHour(s Summary) (hour, count int) {
	for h, c := range s.Hours {
		if c > count {
			hour, count = h, c
		}
	}
	return hour, count
}

// SizeStats describes the message size distribution in bytes.
type SizeStats struct {
	Count  int
	Total  int
	Min    int
	Max    int
	Mean   float64
	Median float64
}

// Sizes computes SizeStats over the summary's message sizes.
func Sizes(s Summary) SizeStats {
	if len(s.Sizes) == 0 {
		return SizeStats{}
	}
	sorted := slices.Clone(s.Sizes)
	slices.Sort(sorted)

	st := SizeStats{
		Count: len(sorted),
		Min:   sorted[0],
		Max:   sorted[len(sorted)-1],
	}
	for _, v := range sorted {
		st.Total += v
	}
	st.Mean = float64(st.Total) / float64(st.Count)

	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		st.Median = float64(sorted[mid-1]+sorted[mid]) / 2
	} else {
		st.Median = float64(sorted[mid])
	}
	return st
}

// FormatSize renders a byte count as whole kilobytes below one megabyte
// and as megabytes with one decimal above.
func FormatSize(bytes int) string {
	const mb = 1024 * 1024
	if bytes < mb {
		return fmt.Sprintf("%.0fK", float64(bytes)/1024)
	}
	return fmt.Sprintf("%.1fM", float64(bytes)/mb)
}

func domainOf(addr string) string {
	if i := strings.LastIndex(addr, "@"); i >= 0 {
		return addr[i+1:]
	}
	return addr
}

func head(r []Ranked, n int) []Ranked {
	if n >= 0 && len(r) > n {
		return r[:n]
	}
	return r
}

func withOther(ranked []Ranked, n int) []Ranked {
	if n < 0 || len(ranked) <= n {
		return ranked
	}
	other := 0
	for _, r := range ranked[n:] {
		other += r.Count
	}
	out := slices.Clone(ranked[:n])
	if other > 0 {
		out = append(out, Ranked{Key: OtherLabel, Count: other})
	}
	return out
}
