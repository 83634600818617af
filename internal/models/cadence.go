package models

// Cadence is a named polling frequency. Each cadence maps to a canonical
// timestamp-bucketing interval (see internal/polling).
type Cadence string

const (
	CadenceTesting Cadence = "testing"
	CadenceHourly  Cadence = "hourly"
	CadenceDaily   Cadence = "daily"
	CadenceManual  Cadence = "manual"
)
