package store

import (
	"github.com/DataDog/zstd"
	"github.com/cockroachdb/pebble"

	"github.com/horizon-games/arcadeum/pkg/arcadeum"
)

// Checkpointer persists a Store's serialized bytes across restarts, keyed
// by game ID, so an owner/server process doesn't need to keep every live
// game resident in memory. Snapshots are zstd-compressed: a Proof's
// transcript grows with every diff until the next compaction, and is
// plain-text-ish wire framing that compresses well.
type Checkpointer struct {
	db *pebble.DB
}

// OpenCheckpointer opens (creating if absent) a pebble store at dir.
func OpenCheckpointer(dir string) (*Checkpointer, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, arcadeum.SoftErrorf("store: open checkpoint db: %v", err)
	}
	return &Checkpointer{db: db}, nil
}

// Close releases the underlying database handle.
func (c *Checkpointer) Close() error {
	return c.db.Close()
}

// Save compresses and writes s's serialized form under key.
func (c *Checkpointer) Save(key string, s *Store) error {
	compressed, err := zstd.Compress(nil, s.Serialize())
	if err != nil {
		return arcadeum.SoftErrorf("store: compress checkpoint: %v", err)
	}
	if err := c.db.Set([]byte(key), compressed, pebble.Sync); err != nil {
		return arcadeum.SoftErrorf("store: write checkpoint: %v", err)
	}
	return nil
}

// Load reads and decompresses the Store previously saved under key.
func (c *Checkpointer) Load(key string, codec *arcadeum.Codec, logger *Logger) (*Store, error) {
	compressed, closer, err := c.db.Get([]byte(key))
	if err != nil {
		return nil, arcadeum.SoftErrorf("store: read checkpoint: %v", err)
	}
	defer closer.Close()

	data, err := zstd.Decompress(nil, compressed)
	if err != nil {
		return nil, arcadeum.SoftErrorf("store: decompress checkpoint: %v", err)
	}
	return Deserialize(data, codec, logger)
}

// Delete removes any checkpoint stored under key.
func (c *Checkpointer) Delete(key string) error {
	if err := c.db.Delete([]byte(key), pebble.Sync); err != nil {
		return arcadeum.SoftErrorf("store: delete checkpoint: %v", err)
	}
	return nil
}
