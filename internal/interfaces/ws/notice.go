package ws

import "time"

// RefreshNotice is pushed to every connected client after a successful
// batch swap so dashboards can re-query /api/assets.
type RefreshNotice struct {
	Type            string    `json:"type"` // always "refresh"
	BatchID         string    `json:"batch_id"`
	FetchedAt       time.Time `json:"fetched_at"`
	Records         int       `json:"records"`
	HighVolumeCount int       `json:"high_volume_count"`
}
