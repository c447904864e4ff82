package audit

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"time"
)

// WriteCSV renders timeline entries as CSV for the export endpoint.
// Snapshots are excluded; the export mirrors the list view.
func WriteCSV(entries []Entry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write([]string{"occurred_at", "actor", "role", "action", "outcome", "entity", "entity_id", "description", "ip"}); err != nil {
		return nil, fmt.Errorf("audit: write csv header: %w", err)
	}
	for _, entry := range entries {
		record := []string{
			entry.At.UTC().Format(time.RFC3339),
			entry.ActorName,
			entry.ActorRole,
			string(entry.Action),
			string(entry.Outcome),
			entry.Entity,
			entry.EntityID,
			entry.Description,
			entry.IP,
		}
		if err := w.Write(record); err != nil {
			return nil, fmt.Errorf("audit: write csv row: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("audit: flush csv: %w", err)
	}
	return buf.Bytes(), nil
}
