// Package storage persists per-chat conversation history in a bolt database.
package storage

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	bolt "github.com/boltdb/bolt"
)

var db *bolt.DB

var errNotOpen = errors.New("storage is not open")

func ready() error {
	if db == nil {
		return errNotOpen
	}
	return nil
}

const (
	bucketHistory = "history" // parent bucket, one sub-bucket per chat id
	bucketLimits  = "limits"  // key: chat id, value: memory window size
)

// Message is a stored conversation turn.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	When    int64  `json:"when"`
}

// Init opens the database file and creates buckets if needed.
func Init(path string) error {
	var err error
	db, err = bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketHistory)); err != nil {
			return err
		}
		if _, err := tx.CreateBucketIfNotExists([]byte(bucketLimits)); err != nil {
			return err
		}
		return nil
	})
}

// Close closes the database.
func Close() error {
	if db == nil {
		return nil
	}
	err := db.Close()
	db = nil
	return err
}

func chatKey(chatID int64) []byte {
	return []byte(strconv.FormatInt(chatID, 10))
}

// AddMessage appends a message to the chat history.
func AddMessage(chatID int64, msg Message) error {
	if err := ready(); err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		hb := tx.Bucket([]byte(bucketHistory))
		cb, err := hb.CreateBucketIfNotExists(chatKey(chatID))
		if err != nil {
			return err
		}
		id, _ := cb.NextSequence()
		key := make([]byte, 8)
		binary.BigEndian.PutUint64(key, id)
		data, err := json.Marshal(msg)
		if err != nil {
			return err
		}
		return cb.Put(key, data)
	})
}

// History returns all stored messages for a chat, oldest first.
func History(chatID int64) ([]Message, error) {
	if err := ready(); err != nil {
		return nil, err
	}
	var items []Message
	err := db.View(func(tx *bolt.Tx) error {
		hb := tx.Bucket([]byte(bucketHistory))
		cb := hb.Bucket(chatKey(chatID))
		if cb == nil {
			return nil
		}
		return cb.ForEach(func(_, v []byte) error {
			var m Message
			if err := json.Unmarshal(v, &m); err != nil {
				return err
			}
			items = append(items, m)
			return nil
		})
	})
	return items, err
}

// CountHistory returns the number of stored messages for a chat.
func CountHistory(chatID int64) (int, error) {
	if err := ready(); err != nil {
		return 0, err
	}
	var count int
	err := db.View(func(tx *bolt.Tx) error {
		hb := tx.Bucket([]byte(bucketHistory))
		cb := hb.Bucket(chatKey(chatID))
		if cb == nil {
			return nil
		}
		count = cb.Stats().KeyN
		return nil
	})
	return count, err
}

// TrimHistory deletes the oldest messages until at most limit remain.
func TrimHistory(chatID int64, limit int) error {
	if limit <= 0 {
		return nil
	}
	if err := ready(); err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		hb := tx.Bucket([]byte(bucketHistory))
		cb := hb.Bucket(chatKey(chatID))
		if cb == nil {
			return nil
		}
		excess := cb.Stats().KeyN - limit
		if excess <= 0 {
			return nil
		}
		c := cb.Cursor()
		for i := 0; i < excess; i++ {
			k, _ := c.First()
			if k == nil {
				break
			}
			if err := c.Delete(); err != nil {
				return err
			}
		}
		return nil
	})
}

// ClearHistory deletes all stored messages for a chat and returns the number
// removed.
func ClearHistory(chatID int64) (int, error) {
	count, err := CountHistory(chatID)
	if err != nil {
		return 0, err
	}
	if count == 0 {
		return 0, nil
	}
	err = db.Update(func(tx *bolt.Tx) error {
		hb := tx.Bucket([]byte(bucketHistory))
		if hb.Bucket(chatKey(chatID)) == nil {
			return nil
		}
		return hb.DeleteBucket(chatKey(chatID))
	})
	return count, err
}

// SaveLimit stores the memory window size for a chat.
func SaveLimit(chatID int64, limit int) error {
	if err := ready(); err != nil {
		return err
	}
	return db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketLimits))
		return b.Put(chatKey(chatID), []byte(strconv.Itoa(limit)))
	})
}

// LoadLimit retrieves the memory window size for a chat. Zero means unset.
func LoadLimit(chatID int64) (int, error) {
	if err := ready(); err != nil {
		return 0, err
	}
	var limit int
	err := db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(bucketLimits))
		v := b.Get(chatKey(chatID))
		if v == nil {
			return nil
		}
		i, err := strconv.Atoi(string(v))
		if err != nil {
			return errors.New("corrupt limit value for chat " + string(chatKey(chatID)))
		}
		limit = i
		return nil
	})
	return limit, err
}
