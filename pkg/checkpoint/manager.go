package checkpoint

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pierrec/lz4/v4"
)

// On-disk layout inside a checkpoint directory.
const (
	metaFile   = "meta.json"
	eventsFile = "events.bin"
)

// File and directory permissions for checkpoints.
const (
	dirPerm  = 0o750
	filePerm = 0o600
)

// snapshotBody is the serialized, compressible part of a snapshot.
type snapshotBody struct {
	RootParams []byte        `json:"root_params"`
	Events     []EventRecord `json:"events"`
}

// Save writes the snapshot into dir: an lz4-compressed event table plus a
// plain-JSON metadata file carrying the checksum needed to validate it.
func Save(dir string, s *Snapshot) error {
	err := os.MkdirAll(dir, dirPerm)
	if err != nil {
		return fmt.Errorf("create checkpoint dir: %w", err)
	}

	body, err := json.Marshal(snapshotBody{RootParams: s.RootParams, Events: s.Events})
	if err != nil {
		return fmt.Errorf("marshal event table: %w", err)
	}

	stored := body
	compressed := false

	buf := make([]byte, lz4.CompressBlockBound(len(body)))

	n, err := lz4.CompressBlock(body, buf, nil)
	if err == nil && n > 0 && n < len(body) {
		stored = buf[:n]
		compressed = true
	}

	meta := s.Meta
	meta.Compressed = compressed
	meta.UncompressedLen = len(body)
	meta.Checksum = checksum(stored)

	metaBytes, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal metadata: %w", err)
	}

	err = os.WriteFile(filepath.Join(dir, eventsFile), stored, filePerm)
	if err != nil {
		return fmt.Errorf("write event table: %w", err)
	}

	err = os.WriteFile(filepath.Join(dir, metaFile), metaBytes, filePerm)
	if err != nil {
		return fmt.Errorf("write metadata: %w", err)
	}

	return nil
}

// Load reads a snapshot previously written by Save, verifying the stored
// checksum before decompressing.
func Load(dir string) (*Snapshot, error) {
	metaBytes, err := os.ReadFile(filepath.Join(dir, metaFile))
	if err != nil {
		return nil, fmt.Errorf("read metadata: %w", err)
	}

	var meta Metadata

	err = json.Unmarshal(metaBytes, &meta)
	if err != nil {
		return nil, fmt.Errorf("unmarshal metadata: %w", err)
	}

	stored, err := os.ReadFile(filepath.Join(dir, eventsFile))
	if err != nil {
		return nil, fmt.Errorf("read event table: %w", err)
	}

	if checksum(stored) != meta.Checksum {
		return nil, ErrChecksumMismatch
	}

	body := stored

	if meta.Compressed {
		body = make([]byte, meta.UncompressedLen)

		_, err = lz4.UncompressBlock(stored, body)
		if err != nil {
			return nil, fmt.Errorf("%w: decompress event table: %w", ErrCorruptSnapshot, err)
		}
	}

	var decoded snapshotBody

	err = json.Unmarshal(body, &decoded)
	if err != nil {
		return nil, fmt.Errorf("%w: unmarshal event table: %w", ErrCorruptSnapshot, err)
	}

	return &Snapshot{
		Meta:       meta,
		RootParams: decoded.RootParams,
		Events:     decoded.Events,
	}, nil
}

func checksum(data []byte) string {
	h := sha256.Sum256(data)

	return hex.EncodeToString(h[:])
}
