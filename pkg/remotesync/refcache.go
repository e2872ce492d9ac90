package remotesync

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/klauspost/compress/zstd"

	"github.com/preflightvcs/preflight/pkg/vcs"
)

// Snapshot is one cached remote-ref advertisement.
type Snapshot struct {
	Remote  string                  `json:"remote"`
	SavedAt time.Time               `json:"saved_at"`
	Refs    map[string]vcs.CommitID `json:"refs"`
}

// RefCache persists the last advertised refs per remote so a check can
// fall back to known-stale data when the remote is unreachable. Files are
// zstd-compressed JSON, written atomically, advisory only: deleting the
// cache directory is always safe.
type RefCache struct {
	dir string
}

// NewRefCache returns a cache rooted at dir. The directory is created on
// first write.
func NewRefCache(dir string) *RefCache {
	return &RefCache{dir: dir}
}

func (c *RefCache) path(remote string) string {
	return filepath.Join(c.dir, remote+".refs.zst")
}

// Load reads the snapshot for remote. ok is false when no snapshot exists.
func (c *RefCache) Load(remote string) (*Snapshot, bool, error) {
	raw, err := os.ReadFile(c.path(remote))
	if err != nil {
		if os.IsNotExist(err) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("ref cache: read: %w", err)
	}

	dec, err := zstd.NewReader(nil)
	if err != nil {
		return nil, false, fmt.Errorf("ref cache: %w", err)
	}
	defer dec.Close()
	data, err := dec.DecodeAll(raw, nil)
	if err != nil {
		return nil, false, fmt.Errorf("ref cache: decompress: %w", err)
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		return nil, false, fmt.Errorf("ref cache: unmarshal: %w", err)
	}
	if snap.Refs == nil {
		snap.Refs = make(map[string]vcs.CommitID)
	}
	return &snap, true, nil
}

// Store atomically writes the snapshot for remote.
func (c *RefCache) Store(remote string, refs map[string]vcs.CommitID) error {
	if err := os.MkdirAll(c.dir, 0o755); err != nil {
		return fmt.Errorf("ref cache: mkdir: %w", err)
	}

	snap := Snapshot{Remote: remote, SavedAt: time.Now().UTC(), Refs: refs}
	data, err := json.Marshal(&snap)
	if err != nil {
		return fmt.Errorf("ref cache: marshal: %w", err)
	}

	enc, err := zstd.NewWriter(nil)
	if err != nil {
		return fmt.Errorf("ref cache: %w", err)
	}
	defer enc.Close()
	compressed := enc.EncodeAll(data, nil)

	tmp, err := os.CreateTemp(c.dir, ".refs-tmp-*")
	if err != nil {
		return fmt.Errorf("ref cache: tmpfile: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(compressed); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("ref cache: write: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ref cache: close: %w", err)
	}
	if err := os.Rename(tmpName, c.path(remote)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("ref cache: rename: %w", err)
	}
	return nil
}
