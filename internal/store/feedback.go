package store

import (
	"bytes"
	"encoding/binary"
	"encoding/gob"
	"fmt"
	"time"

	"fjacquet/fin-insights/internal/models"

	"github.com/boltdb/bolt"
)

var feedbackBucket = []byte("feedback")

// BoltFeedbackLog is an append-only feedback log backed by a bolt file.
// Keys are big-endian sequence numbers, so cursor order is append order.
type BoltFeedbackLog struct {
	db *bolt.DB
}

// OpenFeedbackLog opens or creates the log at path.
func OpenFeedbackLog(path string) (*BoltFeedbackLog, error) {
	db, err := bolt.Open(path, models.PermissionConfigFile, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open feedback log: %w", err)
	}
	if err := db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(feedbackBucket)
		return err
	}); err != nil {
		db.Close()
		return nil, fmt.Errorf("create feedback bucket: %w", err)
	}
	return &BoltFeedbackLog{db: db}, nil
}

// Append stores rec under the next sequence number and returns it with Seq set.
func (l *BoltFeedbackLog) Append(rec models.FeedbackRecord) (models.FeedbackRecord, error) {
	err := l.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(feedbackBucket)
		seq, err := b.NextSequence()
		if err != nil {
			return err
		}
		rec.Seq = seq

		var val bytes.Buffer
		if err := gob.NewEncoder(&val).Encode(rec); err != nil {
			return fmt.Errorf("encode feedback: %w", err)
		}
		return b.Put(seqKey(seq), val.Bytes())
	})
	if err != nil {
		return models.FeedbackRecord{}, fmt.Errorf("append feedback: %w", err)
	}
	return rec, nil
}

// All returns every record in append order.
func (l *BoltFeedbackLog) All() ([]models.FeedbackRecord, error) {
	var records []models.FeedbackRecord
	err := l.db.View(func(tx *bolt.Tx) error {
		c := tx.Bucket(feedbackBucket).Cursor()
		for k, v := c.First(); k != nil; k, v = c.Next() {
			var rec models.FeedbackRecord
			if err := gob.NewDecoder(bytes.NewReader(v)).Decode(&rec); err != nil {
				return fmt.Errorf("decode feedback %d: %w", binary.BigEndian.Uint64(k), err)
			}
			records = append(records, rec)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Close releases the bolt file lock.
func (l *BoltFeedbackLog) Close() error {
	return l.db.Close()
}

func seqKey(seq uint64) []byte {
	k := make([]byte, 8)
	binary.BigEndian.PutUint64(k, seq)
	return k
}
