package gacha

import (
	"bytes"
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.etcd.io/bbolt"

	"github.com/bitfsorg/libgacha-go/identity"
)

var (
	bucketMeta           = []byte("meta")
	bucketPools          = []byte("pools")
	bucketRequests       = []byte("requests")
	bucketRequesterIndex = []byte("requester_index")
	bucketEvents         = []byte("events")

	keyPoolCount = []byte("pool_count")
)

// BoltStore is a durable Store backed by a bbolt database. Every Commit is a
// single bbolt write transaction.
type BoltStore struct {
	db *bbolt.DB
}

// Compile-time interface check.
var _ Store = (*BoltStore)(nil)

// OpenBoltStore opens or creates the database at dbPath.
// The parent directory is created if it does not exist.
func OpenBoltStore(dbPath string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0700); err != nil {
		return nil, fmt.Errorf("gacha: create directory: %w", err)
	}
	db, err := bbolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("gacha: open bolt db: %w", err)
	}

	err = db.Update(func(tx *bbolt.Tx) error {
		for _, name := range [][]byte{bucketMeta, bucketPools, bucketRequests, bucketRequesterIndex, bucketEvents} {
			if _, err := tx.CreateBucketIfNotExists(name); err != nil {
				return fmt.Errorf("boltstore: create bucket %q: %w", name, err)
			}
		}
		return nil
	})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("gacha: create buckets: %w", err)
	}

	return &BoltStore{db: db}, nil
}

// Close closes the underlying database.
func (s *BoltStore) Close() error { return s.db.Close() }

func poolKey(id PoolID) []byte {
	return binary.BigEndian.AppendUint64(nil, uint64(id))
}

func requestKeyBytes(pool PoolID, nonce uint64) []byte {
	return binary.BigEndian.AppendUint64(poolKey(pool), nonce)
}

func requesterKey(pool PoolID, requester identity.ID, nonce uint64) []byte {
	k := append(poolKey(pool), requester[:]...)
	return binary.BigEndian.AppendUint64(k, nonce)
}

func eventKey(pool PoolID, seq uint64) []byte {
	return binary.BigEndian.AppendUint64(poolKey(pool), seq)
}

// ---------------------------------------------------------------------------
// Reads
// ---------------------------------------------------------------------------

// PoolCount returns the number of pools ever created.
func (s *BoltStore) PoolCount(_ context.Context) (uint64, error) {
	var n uint64
	err := s.db.View(func(tx *bbolt.Tx) error {
		n = readCount(tx)
		return nil
	})
	return n, err
}

func readCount(tx *bbolt.Tx) uint64 {
	v := tx.Bucket(bucketMeta).Get(keyPoolCount)
	if len(v) != 8 {
		return 0
	}
	return binary.BigEndian.Uint64(v)
}

// Pool loads and decodes pool id.
func (s *BoltStore) Pool(_ context.Context, id PoolID) (*Pool, error) {
	var p Pool
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketPools).Get(poolKey(id))
		if data == nil {
			return fmt.Errorf("%w: %d", ErrPoolNotFound, id)
		}
		if err := p.UnmarshalBinary(data); err != nil {
			return fmt.Errorf("boltstore: decode pool %d: %w", id, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// Request loads one pull request.
func (s *BoltStore) Request(_ context.Context, pool PoolID, nonce uint64) (*PullRequest, error) {
	var req PullRequest
	err := s.db.View(func(tx *bbolt.Tx) error {
		data := tx.Bucket(bucketRequests).Get(requestKeyBytes(pool, nonce))
		if data == nil {
			return fmt.Errorf("%w: pool %d nonce %d", ErrRequestNotFound, pool, nonce)
		}
		return decodeRequest(data, &req)
	})
	if err != nil {
		return nil, err
	}
	return &req, nil
}

// Requests walks the requests bucket, or the requester index when requester
// is set. Keys sort by nonce within a prefix.
func (s *BoltStore) Requests(_ context.Context, pool PoolID, requester identity.ID) ([]*PullRequest, error) {
	var out []*PullRequest
	err := s.db.View(func(tx *bbolt.Tx) error {
		requests := tx.Bucket(bucketRequests)
		if requester.IsZero() {
			prefix := poolKey(pool)
			c := requests.Cursor()
			for k, v := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
				var req PullRequest
				if err := decodeRequest(v, &req); err != nil {
					return err
				}
				out = append(out, &req)
			}
			return nil
		}

		prefix := append(poolKey(pool), requester[:]...)
		c := tx.Bucket(bucketRequesterIndex).Cursor()
		for k, _ := c.Seek(prefix); k != nil && bytes.HasPrefix(k, prefix); k, _ = c.Next() {
			nonce := binary.BigEndian.Uint64(k[len(prefix):])
			data := requests.Get(requestKeyBytes(pool, nonce))
			if data == nil {
				return fmt.Errorf("boltstore: index points at missing request %d/%d", pool, nonce)
			}
			var req PullRequest
			if err := decodeRequest(data, &req); err != nil {
				return err
			}
			out = append(out, &req)
		}
		return nil
	})
	return out, err
}

func decodeRequest(data []byte, req *PullRequest) error {
	if err := json.Unmarshal(data, req); err != nil {
		return fmt.Errorf("boltstore: decode request: %w", err)
	}
	return nil
}

// Events returns events of pool with Seq > after.
func (s *BoltStore) Events(_ context.Context, pool PoolID, after uint64) ([]Event, error) {
	var out []Event
	err := s.db.View(func(tx *bbolt.Tx) error {
		prefix := poolKey(pool)
		c := tx.Bucket(bucketEvents).Cursor()
		for k, v := c.Seek(eventKey(pool, after+1)); k != nil && bytes.HasPrefix(k, prefix); k, v = c.Next() {
			ev, err := UnmarshalEvent(v)
			if err != nil {
				return err
			}
			out = append(out, ev)
		}
		return nil
	})
	return out, err
}

// ---------------------------------------------------------------------------
// Writes
// ---------------------------------------------------------------------------

// Commit writes the pool, request, index entry and events in one transaction.
func (s *BoltStore) Commit(_ context.Context, b *Batch) error {
	if b == nil || b.Pool == nil {
		return fmt.Errorf("gacha: commit: empty batch")
	}
	poolData, err := b.Pool.MarshalBinary()
	if err != nil {
		return err
	}
	var reqData []byte
	if b.Request != nil {
		if reqData, err = json.Marshal(b.Request); err != nil {
			return fmt.Errorf("boltstore: encode request: %w", err)
		}
	}
	events := make([][]byte, len(b.Events))
	for i, ev := range b.Events {
		if events[i], err = MarshalEvent(ev); err != nil {
			return err
		}
	}

	return s.db.Update(func(tx *bbolt.Tx) error {
		id := b.Pool.ID
		pools := tx.Bucket(bucketPools)
		exists := pools.Get(poolKey(id)) != nil
		count := readCount(tx)
		switch {
		case b.Create && exists:
			return fmt.Errorf("%w: %d", ErrPoolExists, id)
		case b.Create && uint64(id) != count+1:
			return fmt.Errorf("gacha: commit: pool id %d out of sequence, next is %d", id, count+1)
		case !b.Create && !exists:
			return fmt.Errorf("%w: %d", ErrPoolNotFound, id)
		}

		if b.Create {
			if err := tx.Bucket(bucketMeta).Put(keyPoolCount, binary.BigEndian.AppendUint64(nil, count+1)); err != nil {
				return fmt.Errorf("boltstore: put pool count: %w", err)
			}
		}
		if err := pools.Put(poolKey(id), poolData); err != nil {
			return fmt.Errorf("boltstore: put pool: %w", err)
		}
		if b.Request != nil {
			r := b.Request
			if err := tx.Bucket(bucketRequests).Put(requestKeyBytes(r.Pool, r.Nonce), reqData); err != nil {
				return fmt.Errorf("boltstore: put request: %w", err)
			}
			if err := tx.Bucket(bucketRequesterIndex).Put(requesterKey(r.Pool, r.Requester, r.Nonce), []byte{}); err != nil {
				return fmt.Errorf("boltstore: put requester index: %w", err)
			}
		}
		eb := tx.Bucket(bucketEvents)
		for i, ev := range b.Events {
			if err := eb.Put(eventKey(ev.Pool, ev.Seq), events[i]); err != nil {
				return fmt.Errorf("boltstore: put event: %w", err)
			}
		}
		return nil
	})
}
