// Package notification persists per-member notification inboxes in Badger.
package notification

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"time"

	"github.com/dgraph-io/badger/v4"

	"github.com/amarpathagar/pathagar-server/internal/domain"
	"github.com/amarpathagar/pathagar-server/internal/store"
)

// Key layout:
//
//	notif:{userID}:{inverted_ts}:{id} -> Notification JSON
//	notif:id:{id}                     -> primary key
//
// Inverted timestamps make forward iteration return newest first.
const (
	notifPrefix   = "notif:"
	notifIDPrefix = "notif:id:"
)

// invertedTimestamp returns a string that sorts in descending time order.
func invertedTimestamp(t time.Time) string {
	return fmt.Sprintf("%019d", math.MaxInt64-t.UnixNano())
}

func userPrefix(userID string) string {
	return notifPrefix + userID + ":"
}

func primaryKey(n *domain.Notification) string {
	return userPrefix(n.UserID) + invertedTimestamp(n.CreatedAt) + ":" + n.ID
}

// Inbox stores notifications keyed by recipient.
type Inbox struct {
	db     *badger.DB
	logger *slog.Logger
}

// Open opens (or creates) the inbox database at path.
func Open(path string, logger *slog.Logger) (*Inbox, error) {
	opts := badger.DefaultOptions(path)
	opts.Logger = nil
	opts.SyncWrites = true
	opts.CompactL0OnClose = true
	return open(opts, logger)
}

// OpenInMemory opens a throwaway inbox, used by tests.
func OpenInMemory(logger *slog.Logger) (*Inbox, error) {
	opts := badger.DefaultOptions("").WithInMemory(true)
	opts.Logger = nil
	return open(opts, logger)
}

func open(opts badger.Options, logger *slog.Logger) (*Inbox, error) {
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open inbox db: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Inbox{db: db, logger: logger}, nil
}

// Close closes the underlying database.
func (i *Inbox) Close() error {
	return i.db.Close()
}

// Add stores a notification for its recipient.
func (i *Inbox) Add(ctx context.Context, n *domain.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if n.UserID == "" || n.ID == "" {
		return store.ErrInvalidInput.WithMessage("notification needs an id and a recipient")
	}

	data, err := json.Marshal(n)
	if err != nil {
		return fmt.Errorf("marshaling notification: %w", err)
	}
	key := primaryKey(n)

	return i.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set([]byte(key), data); err != nil {
			return fmt.Errorf("setting notification: %w", err)
		}
		if err := txn.Set([]byte(notifIDPrefix+n.ID), []byte(key)); err != nil {
			return fmt.Errorf("setting id index: %w", err)
		}
		return nil
	})
}

// List returns the user's notifications newest first. The cursor is the
// last key of the previous page.
func (i *Inbox) List(ctx context.Context, userID string, params store.PaginationParams) (*store.PaginatedResult[*domain.Notification], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	params.Validate()

	after, err := store.DecodeCursor(params.Cursor)
	if err != nil {
		return nil, store.ErrInvalidInput.WithCause(err)
	}
	prefix := []byte(userPrefix(userID))
	if after != "" && !strings.HasPrefix(after, string(prefix)) {
		return nil, store.ErrInvalidInput.WithMessage("cursor does not belong to this inbox")
	}

	result := &store.PaginatedResult[*domain.Notification]{Items: []*domain.Notification{}}
	var lastKey string

	err = i.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		seek := prefix
		if after != "" {
			seek = []byte(after)
		}
		for it.Seek(seek); it.ValidForPrefix(prefix); it.Next() {
			key := string(it.Item().Key())
			if key == after {
				continue
			}
			if len(result.Items) == params.Limit {
				result.HasMore = true
				break
			}
			var n domain.Notification
			if err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &n)
			}); err != nil {
				return fmt.Errorf("decoding notification %s: %w", key, err)
			}
			result.Items = append(result.Items, &n)
			lastKey = key
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.HasMore {
		result.NextCursor = store.EncodeCursor(lastKey)
	}
	return result, nil
}

// UnreadCount returns how many of the user's notifications are unread.
func (i *Inbox) UnreadCount(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	count := 0
	err := i.forEach(userID, func(_ []byte, n *domain.Notification) error {
		if !n.IsRead {
			count++
		}
		return nil
	})
	return count, err
}

// MarkRead marks one notification read. Only the recipient may do so;
// anyone else gets store.ErrNotFound.
func (i *Inbox) MarkRead(ctx context.Context, userID, id string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	return i.db.Update(func(txn *badger.Txn) error {
		ref, err := txn.Get([]byte(notifIDPrefix + id))
		if errors.Is(err, badger.ErrKeyNotFound) {
			return store.ErrNotFound.WithMessage("notification not found")
		}
		if err != nil {
			return err
		}
		key, err := ref.ValueCopy(nil)
		if err != nil {
			return err
		}
		if !strings.HasPrefix(string(key), userPrefix(userID)) {
			return store.ErrNotFound.WithMessage("notification not found")
		}

		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		var n domain.Notification
		if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &n) }); err != nil {
			return err
		}
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		data, err := json.Marshal(&n)
		if err != nil {
			return err
		}
		return txn.Set(key, data)
	})
}

// MarkAllRead marks every unread notification of the user read and returns
// how many changed.
func (i *Inbox) MarkAllRead(ctx context.Context, userID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}

	type pending struct {
		key  []byte
		data []byte
	}
	var updates []pending
	err := i.forEach(userID, func(key []byte, n *domain.Notification) error {
		if n.IsRead {
			return nil
		}
		n.IsRead = true
		data, err := json.Marshal(n)
		if err != nil {
			return err
		}
		updates = append(updates, pending{key: key, data: data})
		return nil
	})
	if err != nil {
		return 0, err
	}
	if len(updates) == 0 {
		return 0, nil
	}

	wb := i.db.NewWriteBatch()
	defer wb.Cancel()
	for _, u := range updates {
		if err := wb.Set(u.key, u.data); err != nil {
			return 0, fmt.Errorf("batch set: %w", err)
		}
	}
	if err := wb.Flush(); err != nil {
		return 0, fmt.Errorf("flushing read marks: %w", err)
	}
	return len(updates), nil
}

func (i *Inbox) forEach(userID string, fn func(key []byte, n *domain.Notification) error) error {
	prefix := []byte(userPrefix(userID))
	return i.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Prefix = prefix
		it := txn.NewIterator(opts)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			item := it.Item()
			var n domain.Notification
			if err := item.Value(func(val []byte) error { return json.Unmarshal(val, &n) }); err != nil {
				return err
			}
			if err := fn(item.KeyCopy(nil), &n); err != nil {
				return err
			}
		}
		return nil
	})
}
