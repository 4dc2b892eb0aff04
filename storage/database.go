package storage

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// ═══════════════════════════════════════════════════════════════════════════════
// DATABASE - Trade and session journal
// ═══════════════════════════════════════════════════════════════════════════════

type Database struct {
	db      *gorm.DB
	enabled bool
}

// TradeRecord journals one executed (or rejected) order action.
type TradeRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Symbol    string `gorm:"index"`
	Side      string
	Action    string          // open, close
	Price     decimal.Decimal `gorm:"type:decimal(18,5)"`
	Volume    decimal.Decimal `gorm:"type:decimal(18,5)"`
	TP        decimal.Decimal `gorm:"type:decimal(18,5)"`
	SL        decimal.Decimal `gorm:"type:decimal(18,5)"`
	Ticket    int64           `gorm:"index"`
	Magic     int             `gorm:"index"`
	Strategy  string
	Error     string
	CreatedAt time.Time
}

// SessionRecord journals one completed trading sub-session.
type SessionRecord struct {
	ID        uint   `gorm:"primaryKey;autoIncrement"`
	Symbol    string `gorm:"index"`
	Strategy  string
	Hour      int
	Magic     int
	StartedAt time.Time
	EndedAt   time.Time
	Opened    int64
	Closed    int64
	Failed    int64
	Error     string
	CreatedAt time.Time
}

// New opens the journal. An empty path disables persistence; a
// postgres:// DSN selects PostgreSQL, anything else is a SQLite path.
func New(dbPath string) (*Database, error) {
	if dbPath == "" {
		log.Warn().Msg("DATABASE_PATH not set, running without persistence")
		return &Database{enabled: false}, nil
	}

	var db *gorm.DB
	var err error

	if strings.HasPrefix(dbPath, "postgres://") || strings.HasPrefix(dbPath, "postgresql://") {
		db, err = gorm.Open(postgres.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Msg("💾 Journal connected (PostgreSQL)")
	} else {
		dir := filepath.Dir(dbPath)
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, err
		}
		db, err = gorm.Open(sqlite.Open(dbPath), &gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		})
		if err != nil {
			return nil, err
		}
		log.Info().Str("path", dbPath).Msg("💾 Journal initialized (SQLite)")
	}

	if err := db.AutoMigrate(&TradeRecord{}, &SessionRecord{}); err != nil {
		return nil, err
	}

	return &Database{db: db, enabled: true}, nil
}

// IsEnabled reports whether persistence is active.
func (d *Database) IsEnabled() bool {
	return d != nil && d.enabled
}

// SaveTrade appends a trade journal row.
func (d *Database) SaveTrade(rec *TradeRecord) error {
	if !d.IsEnabled() {
		return nil
	}
	return d.db.Create(rec).Error
}

// SaveSession appends a session journal row.
func (d *Database) SaveSession(rec *SessionRecord) error {
	if !d.IsEnabled() {
		return nil
	}
	return d.db.Create(rec).Error
}

// RecentTrades returns the newest trade rows, newest first.
func (d *Database) RecentTrades(limit int) ([]TradeRecord, error) {
	if !d.IsEnabled() {
		return nil, nil
	}
	var out []TradeRecord
	err := d.db.Order("created_at DESC").Limit(limit).Find(&out).Error
	return out, err
}

// SessionsForDay returns the session rows recorded since midnight.
func (d *Database) SessionsForDay(day time.Time) ([]SessionRecord, error) {
	if !d.IsEnabled() {
		return nil, nil
	}
	start := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, day.Location())
	var out []SessionRecord
	err := d.db.Where("started_at >= ?", start).Order("started_at").Find(&out).Error
	return out, err
}
