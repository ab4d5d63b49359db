package client

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"stefabooks/internal/domain/book"
)

var (
	bucketBooks = []byte("books")
	bucketMeta  = []byte("meta")
)

// BoltStorage держит эксклюзивную блокировку файла, поэтому второй процесс не откроет
// тот же кеш, а получит ошибку по таймауту.
type BoltStorage struct {
	db   *bolt.DB
	path string
}

func NewBoltStorage(path string) (*BoltStorage, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open bolt database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists(bucketBooks); err != nil {
			return err
		}
		_, err := tx.CreateBucketIfNotExists(bucketMeta)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("init bolt buckets: %w", err)
	}

	return &BoltStorage{db: db, path: path}, nil
}

func (s *BoltStorage) Load() (*State, error) {
	state := NewState()

	err := s.db.View(func(tx *bolt.Tx) error {
		// ключи big-endian, поэтому курсор идет в порядке позиций
		err := tx.Bucket(bucketBooks).ForEach(func(_, v []byte) error {
			var b book.Book
			if err := json.Unmarshal(v, &b); err != nil {
				return fmt.Errorf("parse book: %w", err)
			}
			state.Books = append(state.Books, b)
			return nil
		})
		if err != nil {
			return err
		}

		meta := tx.Bucket(bucketMeta)
		if v := meta.Get([]byte(metaLastSync)); v != nil {
			ms := int64(binary.BigEndian.Uint64(v))
			state.LastSync = &ms
		}
		if v := meta.Get([]byte(metaCacheVersion)); v != nil {
			state.CacheVersion = string(v)
		}
		if v := meta.Get([]byte(metaDataHash)); v != nil {
			hash := string(v)
			state.DataHash = &hash
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("load bolt state: %w", err)
	}

	return state.normalize(), nil
}

func (s *BoltStorage) Save(state *State) error {
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(bucketBooks); err != nil {
			return err
		}
		books, err := tx.CreateBucket(bucketBooks)
		if err != nil {
			return err
		}

		for i, b := range state.Books {
			payload, err := json.Marshal(b)
			if err != nil {
				return fmt.Errorf("encode book %s: %w", b.ID, err)
			}
			if err := books.Put(positionKey(i), payload); err != nil {
				return err
			}
		}

		meta := tx.Bucket(bucketMeta)
		if state.LastSync != nil {
			buf := make([]byte, 8)
			binary.BigEndian.PutUint64(buf, uint64(*state.LastSync))
			if err := meta.Put([]byte(metaLastSync), buf); err != nil {
				return err
			}
		} else if err := meta.Delete([]byte(metaLastSync)); err != nil {
			return err
		}

		if err := meta.Put([]byte(metaCacheVersion), []byte(state.CacheVersion)); err != nil {
			return err
		}

		if state.DataHash != nil {
			return meta.Put([]byte(metaDataHash), []byte(*state.DataHash))
		}
		return meta.Delete([]byte(metaDataHash))
	})
	if err != nil {
		return fmt.Errorf("save bolt state: %w", err)
	}

	return nil
}

func (s *BoltStorage) Path() string {
	return s.path
}

func (s *BoltStorage) Close() error {
	return s.db.Close()
}

func positionKey(i int) []byte {
	key := make([]byte, 8)
	binary.BigEndian.PutUint64(key, uint64(i))
	return key
}
