package audit

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"time"

	"github.com/hopebridge/donor-portal/internal/store"
)

var csvHeader = []string{"timestamp", "actor_user_id", "action", "entity_type", "entity_id", "details"}

// WriteCSV renders audit entries as CSV.
func WriteCSV(rows []store.AuditEntry) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(csvHeader); err != nil {
		return nil, err
	}
	for _, row := range rows {
		details := ""
		if len(row.Details) > 0 {
			raw, err := json.Marshal(row.Details)
			if err != nil {
				return nil, err
			}
			details = string(raw)
		}
		record := []string{
			row.Timestamp.UTC().Format(time.RFC3339),
			row.ActorUserID,
			row.Action,
			row.EntityType,
			row.EntityID,
			details,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
