package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Type names the document a queued change applies to.
type Type string

const (
	TypeClassPlan   Type = "CLASS_PLAN"
	TypeExercise    Type = "EXERCISE"
	TypePreferences Type = "PREFERENCES"
)

// Action names the kind of change.
type Action string

const (
	ActionCreate Action = "CREATE"
	ActionUpdate Action = "UPDATE"
	ActionDelete Action = "DELETE"
)

// Status is an item's replay state.
type Status string

const (
	StatusPending Status = "pending"
	StatusDead    Status = "dead"
)

const (
	defaultMaxAttempts = 8
	defaultBaseBackoff = 2 * time.Second
	defaultMaxBackoff  = 5 * time.Minute
)

// ErrNotFound is returned by Remove for an unknown id.
var ErrNotFound = errors.New("queue item not found")

// Item is one queued change.
type Item struct {
	ID            string
	Type          Type
	Action        Action
	Data          json.RawMessage
	Timestamp     time.Time
	Attempts      int
	NextAttemptAt time.Time
	LastError     string
	Status        Status
}

// row is the sync_queue table. Seq is the insertion order used for replay.
type row struct {
	Seq           uint64    `gorm:"column:seq;primaryKey;autoIncrement"`
	ItemID        string    `gorm:"column:item_id;size:36;not null;uniqueIndex:idx_sync_queue_item_id"`
	Type          string    `gorm:"column:type;size:32;not null;index:idx_sync_queue_type"`
	Action        string    `gorm:"column:action;size:16;not null"`
	Data          string    `gorm:"column:data;type:text;not null"`
	Timestamp     time.Time `gorm:"column:timestamp;not null;index:idx_sync_queue_timestamp"`
	Attempts      int       `gorm:"column:attempts;not null;default:0"`
	NextAttemptAt time.Time `gorm:"column:next_attempt_at"`
	LastError     string    `gorm:"column:last_error;type:text"`
	Status        string    `gorm:"column:status;size:16;not null;default:pending;index:idx_sync_queue_status"`
}

func (row) TableName() string {
	return "sync_queue"
}

func (r row) item() Item {
	return Item{
		ID:            r.ItemID,
		Type:          Type(r.Type),
		Action:        Action(r.Action),
		Data:          json.RawMessage(r.Data),
		Timestamp:     r.Timestamp,
		Attempts:      r.Attempts,
		NextAttemptAt: r.NextAttemptAt,
		LastError:     r.LastError,
		Status:        Status(r.Status),
	}
}

// Options configure a Queue.
type Options struct {
	Path        string // SQLite file; ":memory:" is accepted for tests
	MaxAttempts int
	BaseBackoff time.Duration
	MaxBackoff  time.Duration
	Logger      *slog.Logger
	Now         func() time.Time
}

// Queue is a durable, ordered queue of changes waiting for the backend.
type Queue struct {
	db          *gorm.DB
	maxAttempts int
	baseBackoff time.Duration
	maxBackoff  time.Duration
	logger      *slog.Logger
	now         func() time.Time

	processing sync.Mutex
}

// Open opens or creates the queue database at opts.Path.
func Open(opts Options) (*Queue, error) {
	path := strings.TrimSpace(opts.Path)
	if path == "" {
		return nil, fmt.Errorf("queue path is empty")
	}
	dsn := path
	if path != ":memory:" {
		dsn = path + "?_journal_mode=WAL&_busy_timeout=5000"
	}
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open queue db: %w", err)
	}

	// SQLite works best with a single writer.
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("queue sql handle: %w", err)
	}
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(0)

	if err := db.AutoMigrate(&row{}); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("migrate queue: %w", err)
	}

	q := &Queue{
		db:          db,
		maxAttempts: opts.MaxAttempts,
		baseBackoff: opts.BaseBackoff,
		maxBackoff:  opts.MaxBackoff,
		logger:      opts.Logger,
		now:         opts.Now,
	}
	if q.maxAttempts <= 0 {
		q.maxAttempts = defaultMaxAttempts
	}
	if q.baseBackoff <= 0 {
		q.baseBackoff = defaultBaseBackoff
	}
	if q.maxBackoff <= 0 {
		q.maxBackoff = defaultMaxBackoff
	}
	if q.logger == nil {
		q.logger = slog.Default()
	}
	if q.now == nil {
		q.now = time.Now
	}
	return q, nil
}

// Close releases the database handle.
func (q *Queue) Close() error {
	sqlDB, err := q.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// Add appends a change. data is encoded as JSON.
func (q *Queue) Add(ctx context.Context, typ Type, action Action, data any) (Item, error) {
	encoded, err := json.Marshal(data)
	if err != nil {
		return Item{}, fmt.Errorf("encode queue data: %w", err)
	}
	r := row{
		ItemID:    uuid.NewString(),
		Type:      string(typ),
		Action:    string(action),
		Data:      string(encoded),
		Timestamp: q.now().UTC(),
		Status:    string(StatusPending),
	}
	if err := q.db.WithContext(ctx).Create(&r).Error; err != nil {
		return Item{}, fmt.Errorf("enqueue %s %s: %w", typ, action, err)
	}
	return r.item(), nil
}

// List returns every queued item, oldest first, including dead letters.
func (q *Queue) List(ctx context.Context) ([]Item, error) {
	return q.find(ctx, q.db.WithContext(ctx))
}

// Pending returns items still eligible for replay, oldest first.
func (q *Queue) Pending(ctx context.Context) ([]Item, error) {
	return q.find(ctx, q.db.WithContext(ctx).Where("status = ?", string(StatusPending)))
}

// DeadLetters returns items that exhausted their attempts.
func (q *Queue) DeadLetters(ctx context.Context) ([]Item, error) {
	return q.find(ctx, q.db.WithContext(ctx).Where("status = ?", string(StatusDead)))
}

// ByType returns pending items of one type, oldest first.
func (q *Queue) ByType(ctx context.Context, typ Type) ([]Item, error) {
	return q.find(ctx, q.db.WithContext(ctx).Where("status = ? AND type = ?", string(StatusPending), string(typ)))
}

func (q *Queue) find(_ context.Context, tx *gorm.DB) ([]Item, error) {
	var rows []row
	if err := tx.Order("seq ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	items := make([]Item, len(rows))
	for i, r := range rows {
		items[i] = r.item()
	}
	return items, nil
}

// Remove deletes one item by id.
func (q *Queue) Remove(ctx context.Context, id string) error {
	res := q.db.WithContext(ctx).Where("item_id = ?", id).Delete(&row{})
	if res.Error != nil {
		return fmt.Errorf("remove queue item %s: %w", id, res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// Clear deletes every item, dead letters included.
func (q *Queue) Clear(ctx context.Context) error {
	if err := q.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&row{}).Error; err != nil {
		return fmt.Errorf("clear queue: %w", err)
	}
	return nil
}

// Len returns the number of pending items.
func (q *Queue) Len(ctx context.Context) (int, error) {
	var n int64
	if err := q.db.WithContext(ctx).Model(&row{}).Where("status = ?", string(StatusPending)).Count(&n).Error; err != nil {
		return 0, fmt.Errorf("count queue: %w", err)
	}
	return int(n), nil
}

// ReplayFunc sends one item to the backend.
type ReplayFunc func(ctx context.Context, item Item) error

// Result summarizes one processing pass.
type Result struct {
	Replayed     int
	Failed       int
	Deferred     int
	DeadLettered int
}

// Process replays pending items oldest first. An item is removed only after
// replay succeeds. A failed item stays queued with a growing delay and does
// not stop later items; after MaxAttempts failures it becomes a dead letter.
// Items whose delay has not elapsed are left for a later pass.
func (q *Queue) Process(ctx context.Context, replay ReplayFunc) (Result, error) {
	if !q.processing.TryLock() {
		return Result{}, nil
	}
	defer q.processing.Unlock()

	var result Result
	items, err := q.Pending(ctx)
	if err != nil {
		return result, err
	}

	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return result, err
		}
		now := q.now()
		if !item.NextAttemptAt.IsZero() && now.Before(item.NextAttemptAt) {
			result.Deferred++
			continue
		}

		replayErr := replay(ctx, item)
		if replayErr == nil {
			if err := q.Remove(ctx, item.ID); err != nil && !errors.Is(err, ErrNotFound) {
				return result, err
			}
			result.Replayed++
			continue
		}

		attempts := item.Attempts + 1
		updates := map[string]any{
			"attempts":   attempts,
			"last_error": replayErr.Error(),
		}
		if attempts >= q.maxAttempts {
			updates["status"] = string(StatusDead)
			result.DeadLettered++
			q.logger.Warn("queue item moved to dead letters",
				"id", item.ID, "type", item.Type, "action", item.Action, "attempts", attempts, "error", replayErr)
		} else {
			delay := retryDelay(attempts, q.baseBackoff, q.maxBackoff)
			updates["next_attempt_at"] = now.Add(delay)
			result.Failed++
			q.logger.Info("queue replay failed",
				"id", item.ID, "type", item.Type, "action", item.Action, "attempts", attempts, "retry_in", delay, "error", replayErr)
		}
		if err := q.db.WithContext(ctx).Model(&row{}).Where("item_id = ?", item.ID).Updates(updates).Error; err != nil {
			return result, fmt.Errorf("record replay failure for %s: %w", item.ID, err)
		}
	}
	return result, nil
}

// retryDelay doubles base for every prior failure, capped at limit.
func retryDelay(attempts int, base, limit time.Duration) time.Duration {
	if attempts <= 1 {
		return base
	}
	delay := base
	for i := 1; i < attempts; i++ {
		delay *= 2
		if delay >= limit {
			return limit
		}
	}
	return delay
}
