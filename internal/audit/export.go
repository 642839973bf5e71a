package audit

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"
)

// csvHeader is the column layout of exported audit files.
var csvHeader = []string{
	"id", "ts", "time_utc", "actor", "target_type", "target_id", "level", "applied_to", "result",
}

// WriteCSV streams entries to w in CSV form, oldest first, with a
// header row. The time_utc column repeats ts as RFC 3339 for humans;
// applied_to is a semicolon-joined panel list.
func WriteCSV(w io.Writer, entries []Entry) error {
	cw := csv.NewWriter(w)

	if err := cw.Write(csvHeader); err != nil {
		return fmt.Errorf("writing csv header: %w", err)
	}

	// Entries arrive newest first from List; exports read better in
	// chronological order.
	for i := len(entries) - 1; i >= 0; i-- {
		e := entries[i]
		record := []string{
			strconv.FormatInt(e.ID, 10),
			strconv.FormatInt(e.TS, 10),
			time.Unix(e.TS, 0).UTC().Format(time.RFC3339),
			e.Actor,
			e.TargetType,
			e.TargetID,
			strconv.Itoa(e.Level),
			strings.Join(e.AppliedTo, ";"),
			e.Result,
		}
		if err := cw.Write(record); err != nil {
			return fmt.Errorf("writing csv record %d: %w", e.ID, err)
		}
	}

	cw.Flush()
	if err := cw.Error(); err != nil {
		return fmt.Errorf("flushing csv: %w", err)
	}
	return nil
}
