package model

import (
	"encoding/json"
	"time"
)

// VersionedRecord captures schema and codec evolution for persistent data.
type VersionedRecord struct {
	SchemaVersion int `json:"schema_version"`
	CodecVersion  int `json:"codec_version"`
}

// Computation is a named, saved engine result. Payload is the result's
// wire form and is opaque to the store.
type Computation struct {
	VersionedRecord
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Payload   json.RawMessage   `json:"payload"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	Checksum  string            `json:"checksum"`
	CreatedAt time.Time         `json:"created_at"`
}

// ComputationSummary is the listing view of a Computation.
type ComputationSummary struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Type      string            `json:"type"`
	Size      int               `json:"size"`
	Metadata  map[string]string `json:"metadata,omitempty"`
	CreatedAt time.Time         `json:"created_at"`
}

func (c Computation) Summary() ComputationSummary {
	return ComputationSummary{
		ID:        c.ID,
		Name:      c.Name,
		Type:      c.Type,
		Size:      len(c.Payload),
		Metadata:  c.Metadata,
		CreatedAt: c.CreatedAt,
	}
}

// CayleyRecord caches a multiplication table for one signature under the
// id cayley_p_q_r.
type CayleyRecord struct {
	VersionedRecord
	ID            string          `json:"id"`
	Signature     [3]int          `json:"signature"`
	BasisCount    int             `json:"basis_count"`
	Table         json.RawMessage `json:"table"`
	Checksum      string          `json:"checksum"`
	ComputedAt    time.Time       `json:"computed_at"`
	ComputeMillis int64           `json:"compute_millis"`
}

type CayleySummary struct {
	ID            string    `json:"id"`
	Signature     [3]int    `json:"signature"`
	BasisCount    int       `json:"basis_count"`
	Size          int       `json:"size"`
	ComputedAt    time.Time `json:"computed_at"`
	ComputeMillis int64     `json:"compute_millis"`
}

func (r CayleyRecord) Summary() CayleySummary {
	return CayleySummary{
		ID:            r.ID,
		Signature:     r.Signature,
		BasisCount:    r.BasisCount,
		Size:          len(r.Table),
		ComputedAt:    r.ComputedAt,
		ComputeMillis: r.ComputeMillis,
	}
}
