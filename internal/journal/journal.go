// Package journal keeps an append-only audit trail of settled store actions
// in SQLite. It never feeds data back into the stores.
package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"stockdash/internal/apiclient"
	"stockdash/internal/logger"
	"stockdash/internal/store"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const (
	defaultBuffer = 256
	maxRecent     = 1000
)

// ActionRecord is one settled action.
type ActionRecord struct {
	ID         string         `gorm:"column:id;primaryKey;size:36"`
	Store      string         `gorm:"column:store;index"`
	Action     string         `gorm:"column:action;index"`
	StartedAt  int64          `gorm:"column:started_at;index"`
	DurationMS int64          `gorm:"column:duration_ms"`
	OK         bool           `gorm:"column:ok"`
	ErrorKind  string         `gorm:"column:error_kind"`
	StatusCode int            `gorm:"column:status_code"`
	Error      string         `gorm:"column:error"`
	Detail     datatypes.JSON `gorm:"column:detail"`
}

func (ActionRecord) TableName() string { return "action_journal" }

// Started returns StartedAt as a time.
func (r ActionRecord) Started() time.Time { return time.UnixMilli(r.StartedAt) }

type Journal struct {
	db *gorm.DB

	mu     sync.RWMutex
	closed bool
	queue  chan store.ActionEvent
	done   chan struct{}
}

// Open creates the database file and its directory when missing and starts
// the background writer.
func Open(path string) (*Journal, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("journal: path is required")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("journal: create dir: %w", err)
		}
	}
	// modernc registers itself as "sqlite"; the gorm dialector defaults to the
	// cgo "sqlite3" driver otherwise.
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)
	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite", DSN: dsn}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", path, err)
	}
	if err := db.AutoMigrate(&ActionRecord{}); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1)

	j := &Journal{
		db:    db,
		queue: make(chan store.ActionEvent, defaultBuffer),
		done:  make(chan struct{}),
	}
	go j.drain()
	return j, nil
}

// Hook enqueues every settled action. Events are dropped with a warning when
// the queue is full or the journal is closed.
func (j *Journal) Hook() store.Hook {
	return func(ev store.ActionEvent) {
		j.mu.RLock()
		defer j.mu.RUnlock()
		if j.closed {
			return
		}
		select {
		case j.queue <- ev:
		default:
			logger.Warnf("journal: queue full, dropped %s.%s", ev.Store, ev.Action)
		}
	}
}

func (j *Journal) drain() {
	defer close(j.done)
	for ev := range j.queue {
		if err := j.Record(context.Background(), ev); err != nil {
			logger.Warnf("journal: write %s.%s: %v", ev.Store, ev.Action, err)
		}
	}
}

// Record writes ev synchronously.
func (j *Journal) Record(ctx context.Context, ev store.ActionEvent) error {
	rec := newRecord(ev)
	return j.db.WithContext(ctx).Create(&rec).Error
}

func newRecord(ev store.ActionEvent) ActionRecord {
	id := ev.ID
	if id == "" {
		id = uuid.NewString()
	}
	rec := ActionRecord{
		ID:         id,
		Store:      ev.Store,
		Action:     ev.Action,
		StartedAt:  ev.Started.UnixMilli(),
		DurationMS: ev.Duration.Milliseconds(),
		OK:         ev.Err == nil,
	}
	if ev.Err != nil {
		rec.Error = ev.Err.Error()
		rec.ErrorKind = "error"
		if ne, ok := apiclient.AsNetworkError(ev.Err); ok {
			rec.ErrorKind = ne.Kind.String()
			rec.StatusCode = ne.StatusCode
		}
	}
	if len(ev.Params) > 0 {
		if raw, err := json.Marshal(ev.Params); err == nil {
			rec.Detail = datatypes.JSON(raw)
		}
	}
	return rec
}

// Recent returns up to limit records, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]ActionRecord, error) {
	if limit <= 0 || limit > maxRecent {
		limit = maxRecent
	}
	var out []ActionRecord
	err := j.db.WithContext(ctx).
		Order("started_at DESC").
		Order("id").
		Limit(limit).
		Find(&out).Error
	return out, err
}

// Close flushes queued events and closes the database.
func (j *Journal) Close() error {
	if j == nil {
		return nil
	}
	j.mu.Lock()
	if j.closed {
		j.mu.Unlock()
		return nil
	}
	j.closed = true
	close(j.queue)
	j.mu.Unlock()

	<-j.done
	sqlDB, err := j.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
