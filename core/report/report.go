// Package report summarizes the audit trail: admissions, rejections per
// reason, suspected cloned identities and session duration statistics.
package report

import (
	"fmt"
	"io"
	"math"
	"sort"
	"text/tabwriter"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/kilianp07/chargeguard/core/allocator"
	"github.com/kilianp07/chargeguard/core/audit"
)

// Suspect is an identity that triggered at least one identity conflict.
type Suspect struct {
	UserID    string   `json:"user_id"`
	Conflicts int      `json:"conflicts"`
	Stations  []string `json:"stations"`
}

// Summary aggregates audit records.
type Summary struct {
	From       time.Time      `json:"from"`
	To         time.Time      `json:"to"`
	Admitted   int            `json:"admitted"`
	Stopped    int            `json:"stopped"`
	Rejected   map[string]int `json:"rejected"`
	Suspects   []Suspect      `json:"suspects"`
	PerStation map[string]int `json:"admitted_per_station"`

	MeanDurationS   float64 `json:"mean_duration_s"`
	StdDevDurationS float64 `json:"stddev_duration_s"`
	MedianDurationS float64 `json:"median_duration_s"`
	MaxDurationS    float64 `json:"max_duration_s"`
}

// Summarize builds a Summary from records in any order.
func Summarize(recs []audit.Record) Summary {
	s := Summary{Rejected: map[string]int{}, PerStation: map[string]int{}}
	suspects := map[string]*Suspect{}
	var durations []float64
	for _, r := range recs {
		if s.From.IsZero() || r.Timestamp.Before(s.From) {
			s.From = r.Timestamp
		}
		if r.Timestamp.After(s.To) {
			s.To = r.Timestamp
		}
		switch r.Kind {
		case audit.KindAdmitted:
			s.Admitted++
			s.PerStation[r.StationID]++
		case audit.KindStopped:
			s.Stopped++
			durations = append(durations, r.DurationSeconds)
		case audit.KindRejected:
			s.Rejected[r.Reason]++
			if r.Reason != allocator.ReasonIdentityConflict.String() {
				continue
			}
			sp, ok := suspects[r.UserID]
			if !ok {
				sp = &Suspect{UserID: r.UserID}
				suspects[r.UserID] = sp
			}
			sp.Conflicts++
			sp.Stations = appendUnique(sp.Stations, r.ConflictStationID, r.StationID)
		}
	}
	for _, sp := range suspects {
		sort.Strings(sp.Stations)
		s.Suspects = append(s.Suspects, *sp)
	}
	sort.Slice(s.Suspects, func(i, j int) bool {
		if s.Suspects[i].Conflicts == s.Suspects[j].Conflicts {
			return s.Suspects[i].UserID < s.Suspects[j].UserID
		}
		return s.Suspects[i].Conflicts > s.Suspects[j].Conflicts
	})
	if len(durations) > 0 {
		sort.Float64s(durations)
		s.MeanDurationS, s.StdDevDurationS = stat.MeanStdDev(durations, nil)
		if math.IsNaN(s.StdDevDurationS) {
			s.StdDevDurationS = 0
		}
		s.MedianDurationS = stat.Quantile(0.5, stat.Empirical, durations, nil)
		s.MaxDurationS = durations[len(durations)-1]
	}
	return s
}

// RejectedTotal returns the number of refused requests.
func (s Summary) RejectedTotal() int {
	n := 0
	for _, v := range s.Rejected {
		n += v
	}
	return n
}

// WriteText renders the summary as an aligned plain-text table.
func WriteText(w io.Writer, s Summary) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "period\t%s .. %s\n", s.From.Format(time.RFC3339), s.To.Format(time.RFC3339))
	fmt.Fprintf(tw, "admitted\t%d\n", s.Admitted)
	fmt.Fprintf(tw, "stopped\t%d\n", s.Stopped)
	fmt.Fprintf(tw, "rejected\t%d\n", s.RejectedTotal())
	for _, reason := range sortedKeys(s.Rejected) {
		fmt.Fprintf(tw, "  %s\t%d\n", reason, s.Rejected[reason])
	}
	fmt.Fprintf(tw, "session duration (s)\tmean %.1f  stddev %.1f  median %.1f  max %.1f\n",
		s.MeanDurationS, s.StdDevDurationS, s.MedianDurationS, s.MaxDurationS)
	for _, sp := range s.Suspects {
		fmt.Fprintf(tw, "suspect %s\t%d conflicts across %v\n", sp.UserID, sp.Conflicts, sp.Stations)
	}
	return tw.Flush()
}

func appendUnique(list []string, vals ...string) []string {
	for _, v := range vals {
		if v == "" {
			continue
		}
		found := false
		for _, x := range list {
			if x == v {
				found = true
				break
			}
		}
		if !found {
			list = append(list, v)
		}
	}
	return list
}

func sortedKeys(m map[string]int) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
