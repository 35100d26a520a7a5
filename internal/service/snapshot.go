package service

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"ledger-wallet/internal/core/domain"

	"github.com/ulikunitz/xz"
)

// encodeSnapshotPayload serializes the payload and optionally compresses it.
func encodeSnapshotPayload(p domain.SnapshotPayload, compress bool) ([]byte, string, error) {
	raw, err := json.Marshal(p)
	if err != nil {
		return nil, "", fmt.Errorf("encoding snapshot payload: %w", err)
	}
	if !compress {
		return raw, domain.CompressionNone, nil
	}

	var buf bytes.Buffer
	w, err := xz.NewWriter(&buf)
	if err != nil {
		return nil, "", fmt.Errorf("creating xz writer: %w", err)
	}
	if _, err := w.Write(raw); err != nil {
		return nil, "", fmt.Errorf("compressing snapshot payload: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, "", fmt.Errorf("closing xz writer: %w", err)
	}
	return buf.Bytes(), domain.CompressionXZ, nil
}

func decodeSnapshotPayload(data []byte, compression string) (*domain.SnapshotPayload, error) {
	switch compression {
	case domain.CompressionXZ:
		r, err := xz.NewReader(bytes.NewReader(data))
		if err != nil {
			return nil, fmt.Errorf("opening xz stream: %w", err)
		}
		if data, err = io.ReadAll(r); err != nil {
			return nil, fmt.Errorf("decompressing snapshot payload: %w", err)
		}
	case domain.CompressionNone, "":
	default:
		return nil, fmt.Errorf("unsupported snapshot compression %q", compression)
	}

	var p domain.SnapshotPayload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("decoding snapshot payload: %w", err)
	}
	return &p, nil
}

// resolveSnapshotPath returns destination itself unless it names a
// directory, in which case a timestamped file inside it is used.
func resolveSnapshotPath(destination string, now time.Time) string {
	name := fmt.Sprintf("%s-%s%s", domain.SnapshotFileStem, now.UTC().Format("20060102T150405Z"), domain.SnapshotFileExt)
	if strings.HasSuffix(destination, string(os.PathSeparator)) {
		return filepath.Join(destination, name)
	}
	if info, err := os.Stat(destination); err == nil && info.IsDir() {
		return filepath.Join(destination, name)
	}
	return destination
}

// writeFileAtomic writes data next to path and renames it into place, so a
// crash never leaves a truncated file at path.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, ".snapshot-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("writing temp file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("syncing temp file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing temp file: %w", err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		return fmt.Errorf("chmod temp file: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("renaming snapshot into place: %w", err)
	}
	committed = true
	return nil
}

func marshalSnapshot(snap domain.Snapshot) ([]byte, error) {
	raw, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding snapshot: %w", err)
	}
	return raw, nil
}

func parseSnapshot(data []byte) (*domain.Snapshot, error) {
	var snap domain.Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, fmt.Errorf("decoding snapshot: %w", err)
	}
	if snap.Format != domain.SnapshotFormat {
		return nil, fmt.Errorf("not a wallet snapshot (format %q)", snap.Format)
	}
	if snap.Version != domain.SnapshotVersion {
		return nil, fmt.Errorf("unsupported snapshot version %d", snap.Version)
	}
	return &snap, nil
}
