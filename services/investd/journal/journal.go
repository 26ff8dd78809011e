package journal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync/atomic"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"stakebank/core/events"
)

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	defaultListLimit = 100
	maxListLimit     = 1000
)

var (
	errNilJournal     = errors.New("journal: not configured")
	errUnknownDriver  = errors.New("journal: unknown driver")
	errDSNRequired    = errors.New("journal: dsn required")
	errInvalidPayload = errors.New("journal: invalid attributes payload")
)

// EventRecord is one contract event persisted after its invocation
// committed.
type EventRecord struct {
	ID         uint64    `gorm:"primaryKey;autoIncrement"`
	EventID    uuid.UUID `gorm:"type:uuid;uniqueIndex"`
	Type       string    `gorm:"size:64;index"`
	Height     uint64    `gorm:"index"`
	Attributes string    `gorm:"type:text"`
	CreatedAt  time.Time
}

// TableName pins the table name independent of gorm's pluralisation rules.
func (EventRecord) TableName() string { return "contract_events" }

// Decode returns the attribute map stored with the record.
func (r EventRecord) Decode() (map[string]string, error) {
	attrs := map[string]string{}
	if strings.TrimSpace(r.Attributes) == "" {
		return attrs, nil
	}
	if err := json.Unmarshal([]byte(r.Attributes), &attrs); err != nil {
		return nil, fmt.Errorf("%w: %v", errInvalidPayload, err)
	}
	return attrs, nil
}

// Filter narrows a journal listing.
type Filter struct {
	Type    string
	AfterID uint64
	Limit   int
}

// Journal appends contract events to a relational database. It implements
// events.Emitter so it can sit behind the host's event fanout.
type Journal struct {
	db     *gorm.DB
	logger *slog.Logger
	height atomic.Uint64
	now    func() time.Time
}

// Open connects to the configured database.
func Open(driver, dsn string) (*gorm.DB, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errDSNRequired
	}
	var dialector gorm.Dialector
	switch strings.ToLower(strings.TrimSpace(driver)) {
	case DriverPostgres:
		dialector = postgres.Open(dsn)
	case DriverSQLite:
		dialector = sqlite.Open(dsn)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownDriver, driver)
	}
	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("journal: open %s: %w", driver, err)
	}
	return db, nil
}

// AutoMigrate creates or updates the journal schema.
func AutoMigrate(db *gorm.DB) error {
	return db.AutoMigrate(&EventRecord{})
}

// New wraps db, migrating the schema first.
func New(db *gorm.DB) (*Journal, error) {
	if db == nil {
		return nil, errNilJournal
	}
	if err := AutoMigrate(db); err != nil {
		return nil, fmt.Errorf("journal: migrate: %w", err)
	}
	return &Journal{db: db, logger: slog.Default(), now: time.Now}, nil
}

// SetLogger configures the logger used for write failures.
func (j *Journal) SetLogger(logger *slog.Logger) {
	if j == nil || logger == nil {
		return
	}
	j.logger = logger
}

// SetHeight stamps subsequent records with the block height they were
// emitted at.
func (j *Journal) SetHeight(height uint64) {
	if j == nil {
		return
	}
	j.height.Store(height)
}

// Emit implements events.Emitter. Write failures are logged and never
// propagate into the committed invocation.
func (j *Journal) Emit(evt events.Event) {
	if j == nil || j.db == nil || evt == nil {
		return
	}
	if err := j.Append(context.Background(), evt); err != nil {
		j.logger.Error("journal append failed", "type", evt.EventType(), "error", err)
	}
}

// Append persists evt.
func (j *Journal) Append(ctx context.Context, evt events.Event) error {
	if j == nil || j.db == nil {
		return errNilJournal
	}
	attrs := map[string]string{}
	if renderer, ok := evt.(events.Renderer); ok {
		if rendered := renderer.Event(); rendered != nil && rendered.Attributes != nil {
			attrs = rendered.Attributes
		}
	}
	payload, err := json.Marshal(attrs)
	if err != nil {
		return fmt.Errorf("journal: encode attributes: %w", err)
	}
	record := EventRecord{
		EventID:    uuid.New(),
		Type:       evt.EventType(),
		Height:     j.height.Load(),
		Attributes: string(payload),
		CreatedAt:  j.now().UTC(),
	}
	if err := j.db.WithContext(ctx).Create(&record).Error; err != nil {
		return fmt.Errorf("journal: insert: %w", err)
	}
	return nil
}

// List returns records in insertion order.
func (j *Journal) List(ctx context.Context, filter Filter) ([]EventRecord, error) {
	if j == nil || j.db == nil {
		return nil, errNilJournal
	}
	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	query := j.db.WithContext(ctx).Model(&EventRecord{}).Where("id > ?", filter.AfterID)
	if typ := strings.TrimSpace(filter.Type); typ != "" {
		query = query.Where("type = ?", typ)
	}
	var records []EventRecord
	if err := query.Order("id asc").Limit(limit).Find(&records).Error; err != nil {
		return nil, fmt.Errorf("journal: list: %w", err)
	}
	return records, nil
}
