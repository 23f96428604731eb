// Package kvstore implements spec §4.4: a single bbolt database holding
// two tables — search_history and proto_schemas — each mirrored into an
// in-memory cache so reads never touch disk.
package kvstore

import (
	"encoding/json"
	"strings"
	"sync"

	"go.etcd.io/bbolt"

	"github.com/bigtree-zedis/zedis-core/errs"
	"github.com/bigtree-zedis/zedis-core/model"
)

var (
	bucketHistory = []byte("search_history")
	bucketProtos  = []byte("proto_schemas")
)

// Store is the embedded key-value database described in spec §4.4.
type Store struct {
	db *bbolt.DB

	mu        sync.RWMutex
	history   map[string]model.History
	protos    map[string]model.ProtoSchema
}

// Open opens (creating if necessary) the bbolt file at path and primes the
// in-memory caches from its current contents.
func Open(path string) (*Store, error) {
	db, err := bbolt.Open(path, 0o600, nil)
	if err != nil {
		return nil, errs.Wrap(errs.KindStorageOpen, err, "opening kv store %s", path)
	}

	s := &Store{db: db, history: map[string]model.History{}, protos: map[string]model.ProtoSchema{}}

	err = db.Update(func(tx *bbolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketHistory); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists(bucketProtos); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, errs.Wrap(errs.KindStorageTable, err, "creating tables")
	}

	if err := s.primeCaches(); err != nil {
		db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Store) primeCaches() error {
	return s.db.View(func(tx *bbolt.Tx) error {
		hb := tx.Bucket(bucketHistory)
		if err := hb.ForEach(func(k, v []byte) error {
			var h model.History
			if err := json.Unmarshal(v, &h); err != nil {
				return errs.Wrap(errs.KindSerdeJSON, err, "decoding history for %s", k)
			}
			s.history[string(k)] = h
			return nil
		}); err != nil {
			return errs.Wrap(errs.KindStorageRead, err, "priming history cache")
		}

		pb := tx.Bucket(bucketProtos)
		return pb.ForEach(func(k, v []byte) error {
			var p model.ProtoSchema
			if err := json.Unmarshal(v, &p); err != nil {
				return errs.Wrap(errs.KindSerdeJSON, err, "decoding schema for %s", k)
			}
			s.protos[string(k)] = p
			return nil
		})
	})
}

// Close closes the underlying bbolt database.
func (s *Store) Close() error {
	return s.db.Close()
}

// History returns the cached history for serverID, empty if none recorded.
func (s *Store) History(serverID string) model.History {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.history[serverID]
}

// AddHistory normalises term (trims; no-op if empty) and persists the
// updated list through write-then-cache.
func (s *Store) AddHistory(serverID, term string) error {
	s.mu.Lock()
	h := s.history[serverID]
	h.Add(term)
	s.mu.Unlock()

	if strings.TrimSpace(term) == "" {
		return nil
	}

	raw, err := json.Marshal(h)
	if err != nil {
		return errs.Wrap(errs.KindSerdeJSON, err, "encoding history")
	}

	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketHistory).Put([]byte(serverID), raw)
	})
	if err != nil {
		return errs.Wrap(errs.KindStorageWrite, err, "writing history")
	}

	s.mu.Lock()
	s.history[serverID] = h
	s.mu.Unlock()
	return nil
}

// ListSchemas returns every registered Protobuf schema.
func (s *Store) ListSchemas() []model.ProtoSchema {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]model.ProtoSchema, 0, len(s.protos))
	for _, p := range s.protos {
		out = append(out, p)
	}
	return out
}

// UpsertSchema writes through to disk then the cache.
func (s *Store) UpsertSchema(p model.ProtoSchema) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return errs.Wrap(errs.KindSerdeJSON, err, "encoding schema")
	}
	err = s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketProtos).Put([]byte(p.ID), raw)
	})
	if err != nil {
		return errs.Wrap(errs.KindStorageWrite, err, "writing schema")
	}

	s.mu.Lock()
	s.protos[p.ID] = p
	s.mu.Unlock()
	return nil
}

// DeleteSchema removes a schema from disk and cache.
func (s *Store) DeleteSchema(id string) error {
	err := s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketProtos).Delete([]byte(id))
	})
	if err != nil {
		return errs.Wrap(errs.KindStorageWrite, err, "deleting schema")
	}

	s.mu.Lock()
	delete(s.protos, id)
	s.mu.Unlock()
	return nil
}

// MatchSchema returns the schema (if any, at most one) matching key for
// serverID, per spec §3's ProtoSchema invariant.
func (s *Store) MatchSchema(serverID, key string) (model.ProtoSchema, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, p := range s.protos {
		if p.ServerID != serverID {
			continue
		}
		if schemaMatches(p, key) {
			return p, true
		}
	}
	return model.ProtoSchema{}, false
}

func schemaMatches(p model.ProtoSchema, key string) bool {
	switch p.MatchMode {
	case model.MatchExact:
		return key == p.MatchPattern
	case model.MatchPrefix:
		return len(key) >= len(p.MatchPattern) && key[:len(p.MatchPattern)] == p.MatchPattern
	case model.MatchSuffix:
		return len(key) >= len(p.MatchPattern) && key[len(key)-len(p.MatchPattern):] == p.MatchPattern
	case model.MatchRegex:
		return regexMatch(p.MatchPattern, key)
	default:
		return false
	}
}
