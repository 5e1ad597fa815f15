// Package export writes audit records in formats suited to external tools.
package export

import (
	"encoding/csv"
	"encoding/json"
	"io"
	"strconv"
	"time"

	"github.com/kilianp07/chargeguard/core/audit"
)

// CSVHeader lists the columns written by WriteCSV.
var CSVHeader = []string{
	"timestamp", "kind", "user_id", "station_id", "location", "session_id",
	"reason", "conflict_station_id", "conflict_session_id", "duration_s",
}

// WriteJSON writes the records to w as a JSON array.
func WriteJSON(w io.Writer, recs []audit.Record) error {
	if recs == nil {
		recs = []audit.Record{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(recs)
}

// WriteCSV writes the records to w in CSV format with a header row.
func WriteCSV(w io.Writer, recs []audit.Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(CSVHeader); err != nil {
		return err
	}
	for _, r := range recs {
		dur := ""
		if r.Kind == audit.KindStopped {
			dur = strconv.FormatFloat(r.DurationSeconds, 'f', -1, 64)
		}
		rec := []string{
			r.Timestamp.UTC().Format(time.RFC3339),
			string(r.Kind),
			r.UserID,
			r.StationID,
			r.Location,
			r.SessionID,
			r.Reason,
			r.ConflictStationID,
			r.ConflictSessionID,
			dur,
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}
