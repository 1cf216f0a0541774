// pkg/storage/storage.go
package storage

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// StorageError reports a failure of the record or artifact store. The
// pipeline aborts and discards the cleaned table when one occurs; no
// partial artifact is left behind.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// IsStorageError reports whether err is (or wraps) a StorageError.
func IsStorageError(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}

// ResultRecord is the metadata persisted for one completed cleaning run.
type ResultRecord struct {
	RunID          string
	Filename       string
	Artifact       string
	RowsBefore     int
	RowsAfter      int
	ColumnsBefore  int
	ColumnsAfter   int
	GuidanceSource string
	CreatedAt      time.Time
}

// Message is one persisted chat message.
type Message struct {
	Role    string
	Content string
	At      time.Time
}

// RecordStore persists users, chat history and cleaning-run metadata.
// The core never knows the storage medium behind it.
type RecordStore interface {
	// Init creates the schema if it does not exist. Idempotent.
	Init(ctx context.Context) error

	UpsertUser(ctx context.Context, userID int64) error
	SetChatMode(ctx context.Context, userID int64, enabled bool) error
	ChatMode(ctx context.Context, userID int64) (bool, error)

	AppendMessage(ctx context.Context, userID int64, role, content string) error

	// RecentMessages returns up to limit messages for the user, oldest first.
	RecentMessages(ctx context.Context, userID int64, limit int) ([]Message, error)

	SaveResult(ctx context.Context, userID int64, rec ResultRecord) error

	Close() error
}

// Opener creates a RecordStore for a DSN.
type Opener func(ctx context.Context, dsn string) (RecordStore, error)

var (
	driversMu sync.RWMutex
	drivers   = map[string]Opener{}
)

// Register makes a record-store driver available under a name. Called
// from driver package init functions.
func Register(name string, open Opener) {
	driversMu.Lock()
	defer driversMu.Unlock()
	if _, dup := drivers[name]; dup {
		panic("storage: duplicate driver " + name)
	}
	drivers[name] = open
}

// Open creates a RecordStore using a registered driver.
func Open(ctx context.Context, driver, dsn string) (RecordStore, error) {
	driversMu.RLock()
	open, ok := drivers[driver]
	driversMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("storage: unknown driver %q (registered: %s)", driver, strings.Join(driverNames(), ", "))
	}
	return open(ctx, dsn)
}

func driverNames() []string {
	names := make([]string, 0, len(drivers))
	for name := range drivers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
