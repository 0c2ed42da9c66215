package storage

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/blake2b"

	"amari/internal/model"
)

const (
	CurrentSchemaVersion = 1
	CurrentCodecVersion  = 1
)

var (
	ErrVersionMismatch    = errors.New("record version mismatch")
	ErrChecksumMismatch   = errors.New("record checksum mismatch")
	ErrNotInitialized     = errors.New("store is not initialized")
	ErrBackendUnavailable = errors.New("store backend unavailable")
)

func currentVersion() model.VersionedRecord {
	return model.VersionedRecord{SchemaVersion: CurrentSchemaVersion, CodecVersion: CurrentCodecVersion}
}

// Checksum is the hex BLAKE2b-256 digest of payload.
func Checksum(payload []byte) string {
	sum := blake2b.Sum256(payload)
	return hex.EncodeToString(sum[:])
}

// canonical re-encodes payload the way json.Marshal emits a RawMessage, so
// checksums survive a round trip through any backend.
func canonical(payload json.RawMessage) (json.RawMessage, error) {
	if len(payload) == 0 {
		return nil, errors.New("payload is required")
	}
	out, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("payload is not valid JSON: %w", err)
	}
	return out, nil
}

// NewComputation stamps a fresh record with an id, versions and checksum.
func NewComputation(name, typ string, payload json.RawMessage, metadata map[string]string, now time.Time) (model.Computation, error) {
	if name == "" {
		return model.Computation{}, errors.New("computation name is required")
	}
	payload, err := canonical(payload)
	if err != nil {
		return model.Computation{}, err
	}
	var meta map[string]string
	if len(metadata) > 0 {
		meta = make(map[string]string, len(metadata))
		for k, v := range metadata {
			meta[k] = v
		}
	}
	return model.Computation{
		VersionedRecord: currentVersion(),
		ID:              "comp_" + uuid.NewString(),
		Name:            name,
		Type:            typ,
		Payload:         payload,
		Metadata:        meta,
		Checksum:        Checksum(payload),
		CreatedAt:       now.UTC(),
	}, nil
}

func NewCayleyRecord(id string, signature [3]int, basisCount int, table json.RawMessage, computedAt time.Time, took time.Duration) (model.CayleyRecord, error) {
	table, err := canonical(table)
	if err != nil {
		return model.CayleyRecord{}, err
	}
	return model.CayleyRecord{
		VersionedRecord: currentVersion(),
		ID:              id,
		Signature:       signature,
		BasisCount:      basisCount,
		Table:           table,
		Checksum:        Checksum(table),
		ComputedAt:      computedAt.UTC(),
		ComputeMillis:   took.Milliseconds(),
	}, nil
}

func EncodeComputation(c model.Computation) ([]byte, error) {
	if err := verifyComputation(c); err != nil {
		return nil, err
	}
	return json.Marshal(c)
}

func DecodeComputation(data []byte) (model.Computation, error) {
	var c model.Computation
	if err := json.Unmarshal(data, &c); err != nil {
		return model.Computation{}, err
	}
	if err := verifyComputation(c); err != nil {
		return model.Computation{}, err
	}
	return c, nil
}

func EncodeCayleyRecord(r model.CayleyRecord) ([]byte, error) {
	if err := verifyCayley(r); err != nil {
		return nil, err
	}
	return json.Marshal(r)
}

func DecodeCayleyRecord(data []byte) (model.CayleyRecord, error) {
	var r model.CayleyRecord
	if err := json.Unmarshal(data, &r); err != nil {
		return model.CayleyRecord{}, err
	}
	if err := verifyCayley(r); err != nil {
		return model.CayleyRecord{}, err
	}
	return r, nil
}

func verifyComputation(c model.Computation) error {
	if c.Name == "" {
		return errors.New("computation name is required")
	}
	if err := checkVersion(c.VersionedRecord); err != nil {
		return err
	}
	if Checksum(c.Payload) != c.Checksum {
		return fmt.Errorf("%w: computation %s", ErrChecksumMismatch, c.Name)
	}
	return nil
}

func verifyCayley(r model.CayleyRecord) error {
	if r.ID == "" {
		return errors.New("cayley table id is required")
	}
	if err := checkVersion(r.VersionedRecord); err != nil {
		return err
	}
	if Checksum(r.Table) != r.Checksum {
		return fmt.Errorf("%w: cayley table %s", ErrChecksumMismatch, r.ID)
	}
	return nil
}

func checkVersion(v model.VersionedRecord) error {
	if v.SchemaVersion != CurrentSchemaVersion || v.CodecVersion != CurrentCodecVersion {
		return ErrVersionMismatch
	}
	return nil
}
