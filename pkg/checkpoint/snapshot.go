// Package checkpoint provides chain state persistence: event-table
// snapshots that can seed an equivalent chain on resume.
package checkpoint

import (
	"errors"
	"fmt"
	"time"

	"github.com/bomeara/bamm/pkg/chain"
)

// MetadataVersion is the current snapshot format version.
const MetadataVersion = 1

// Sentinel errors for snapshot validation.
var (
	ErrVersionMismatch  = errors.New("snapshot version mismatch")
	ErrChecksumMismatch = errors.New("snapshot checksum mismatch")
	ErrChainNotFresh    = errors.New("snapshot restore requires a chain without events")
	ErrCorruptSnapshot  = errors.New("corrupt snapshot")
)

// ParamsEncoder serializes a model-specific payload.
type ParamsEncoder func(chain.Params) ([]byte, error)

// ParamsDecoder deserializes a model-specific payload.
type ParamsDecoder func([]byte) (chain.Params, error)

// Metadata describes a snapshot for validation and resume.
type Metadata struct {
	Version    int     `json:"version"`
	CreatedAt  string  `json:"created_at"`
	Generation int     `json:"generation"`
	EventCount int     `json:"event_count"`
	EventRate  float64 `json:"event_rate"`
	Accepts    int     `json:"accepts"`
	Rejects    int     `json:"rejects"`

	// Compressed reports whether the event table file is lz4-compressed;
	// incompressible tables are stored raw.
	Compressed      bool   `json:"compressed"`
	UncompressedLen int    `json:"uncompressed_len"`
	Checksum        string `json:"checksum"`
}

// EventRecord is one non-root event in the snapshot. NodeIndex is the
// preorder index of the owning node, kept for cross-checking the map
// position against the tree on restore.
type EventRecord struct {
	NodeIndex int     `json:"node_index"`
	MapTime   float64 `json:"map_time"`
	Params    []byte  `json:"params"`
}

// Snapshot is a complete captured chain state.
type Snapshot struct {
	Meta       Metadata
	RootParams []byte
	Events     []EventRecord
}

// Capture snapshots the chain's current event configuration.
func Capture(c *chain.Chain, encode ParamsEncoder) (*Snapshot, error) {
	rootParams, err := encode(c.RootEvent().Params())
	if err != nil {
		return nil, fmt.Errorf("encode root event params: %w", err)
	}

	accepts, rejects := c.Counters()

	s := &Snapshot{
		Meta: Metadata{
			Version:    MetadataVersion,
			CreatedAt:  time.Now().UTC().Format(time.RFC3339),
			Generation: c.Generation(),
			EventCount: c.EventCount(),
			EventRate:  c.EventRate(),
			Accepts:    accepts,
			Rejects:    rejects,
		},
		RootParams: rootParams,
	}

	for _, e := range c.Events() {
		params, encErr := encode(e.Params())
		if encErr != nil {
			return nil, fmt.Errorf("encode event params at map time %g: %w", e.MapTime(), encErr)
		}

		s.Events = append(s.Events, EventRecord{
			NodeIndex: e.Node().Index,
			MapTime:   e.MapTime(),
			Params:    params,
		})
	}

	return s, nil
}

// Restore replays a snapshot into a freshly constructed chain over the
// same tree: every recorded event is re-inserted at its saved position and
// the rate, generation, and counters are restored.
func Restore(c *chain.Chain, s *Snapshot, decode ParamsDecoder) error {
	if s.Meta.Version != MetadataVersion {
		return fmt.Errorf("%w: got %d, want %d", ErrVersionMismatch, s.Meta.Version, MetadataVersion)
	}

	if c.EventCount() != 0 {
		return fmt.Errorf("%w: chain already has %d events", ErrChainNotFresh, c.EventCount())
	}

	rootParams, err := decode(s.RootParams)
	if err != nil {
		return fmt.Errorf("decode root event params: %w", err)
	}

	c.RootEvent().SetParams(rootParams)

	for _, rec := range s.Events {
		node := c.Tree().NodeAtMapPosition(rec.MapTime)
		if node == nil || node.Index != rec.NodeIndex {
			return fmt.Errorf("%w: event at map time %g does not land on node %d (tree mismatch?)",
				ErrCorruptSnapshot, rec.MapTime, rec.NodeIndex)
		}

		params, decErr := decode(rec.Params)
		if decErr != nil {
			return fmt.Errorf("decode event params at map time %g: %w", rec.MapTime, decErr)
		}

		c.AddEventAt(rec.MapTime, params)
	}

	c.SetEventRate(s.Meta.EventRate)
	c.SetGeneration(s.Meta.Generation)
	c.SetCounters(s.Meta.Accepts, s.Meta.Rejects)

	return nil
}
