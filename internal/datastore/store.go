// Package datastore persists merge runs and their events to SQLite or MySQL
// through GORM.
package datastore

import (
	"context"
	"net"
	"os"
	"path/filepath"
	"time"

	gomysql "github.com/go-sql-driver/mysql"
	"gorm.io/driver/mysql"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/Stennix/tilemerge/internal/conf"
	"github.com/Stennix/tilemerge/internal/errors"
	"github.com/Stennix/tilemerge/internal/logger"
)

// Database types
const (
	TypeSQLite = "sqlite"
	TypeMySQL  = "mysql"
)

// DefaultListLimit caps ListRuns when no limit is given.
const DefaultListLimit = 50

// Store is an open audit database.
type Store struct {
	db     *gorm.DB
	dbType string
	log    logger.Logger
}

// Open connects to the database selected by settings and migrates the schema.
func Open(settings *conf.DatabaseSettings, log logger.Logger) (*Store, error) {
	if log == nil {
		log = GetLogger()
	}

	switch settings.Type {
	case TypeSQLite, "":
		return OpenSQLite(settings.SQLite.Path, log)
	case TypeMySQL:
		m := settings.MySQL
		s, err := open(mysql.Open(MySQLDSN(settings)), TypeMySQL, log)
		if err != nil {
			log.Error("failed to open MySQL database",
				logger.String("host", m.Host),
				logger.String("port", m.Port),
				logger.String("database", m.Database),
				logger.Error(err))
			return nil, err
		}
		return s, nil
	default:
		return nil, errors.Newf("unsupported database type %q", settings.Type).
			Component("datastore").
			Category(errors.CategoryConfiguration).
			Context("db_type", settings.Type).
			Build()
	}
}

// MySQLDSN builds the driver DSN for settings. Times are stored in UTC.
func MySQLDSN(settings *conf.DatabaseSettings) string {
	m := settings.MySQL
	cfg := gomysql.NewConfig()
	cfg.User = m.Username
	cfg.Passwd = m.Password
	cfg.Net = "tcp"
	cfg.Addr = net.JoinHostPort(m.Host, m.Port)
	cfg.DBName = m.Database
	cfg.ParseTime = true
	cfg.Loc = time.UTC
	cfg.Params = map[string]string{"charset": "utf8mb4"}
	return cfg.FormatDSN()
}

// OpenSQLite opens or creates the SQLite database at path.
func OpenSQLite(path string, log logger.Logger) (*Store, error) {
	if log == nil {
		log = GetLogger()
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o750); err != nil {
			return nil, errors.FileError(err, path)
		}
	}
	return open(sqlite.Open(path), TypeSQLite, log)
}

func open(dialector gorm.Dialector, dbType string, log logger.Logger) (*Store, error) {
	db, err := gorm.Open(dialector, &gorm.Config{Logger: createGormLogger(log)})
	if err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_type", dbType).
			Context("operation", "open").
			Build()
	}

	s := &Store{db: db, dbType: dbType, log: log}
	if err := s.migrate(); err != nil {
		_ = s.Close()
		return nil, err
	}

	log.Debug("audit database ready", logger.String("db_type", dbType))
	return s, nil
}

func (s *Store) migrate() error {
	if err := s.db.AutoMigrate(&Run{}, &MergeEvent{}); err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("db_type", s.dbType).
			Context("operation", "auto_migrate").
			Build()
	}
	return nil
}

// SaveRun stores run and its events in one transaction. Events get run's ID
// and, when unset, a sequence number following slice order.
func (s *Store) SaveRun(ctx context.Context, run *Run, events []MergeEvent) error {
	if run.ID == "" {
		return errors.ValidationError("run id is required")
	}

	start := time.Now()
	for i := range events {
		events[i].RunID = run.ID
		if events[i].Seq == 0 {
			events[i].Seq = i + 1
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit("Events").Create(run).Error; err != nil {
			return err
		}
		if len(events) == 0 {
			return nil
		}
		return tx.CreateInBatches(events, 500).Error
	})
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("run_id", run.ID).
			Context("events", len(events)).
			Timing("save_run", time.Since(start)).
			Build()
	}

	s.log.Info("run saved",
		logger.String("run_id", run.ID),
		logger.Int("events", len(events)))
	return nil
}

// GetRun loads a run without its events.
func (s *Store) GetRun(ctx context.Context, id string) (*Run, error) {
	var run Run
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&run).Error; err != nil {
		category := errors.CategoryDatabase
		if errors.Is(err, gorm.ErrRecordNotFound) {
			category = errors.CategoryNotFound
		}
		return nil, errors.New(err).
			Component("datastore").
			Category(category).
			Context("run_id", id).
			Build()
	}
	return &run, nil
}

// ListEvents returns the events of a run in decision order.
func (s *Store) ListEvents(ctx context.Context, runID string) ([]MergeEvent, error) {
	var events []MergeEvent
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("seq ASC").Find(&events).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Context("run_id", runID).
			Build()
	}
	return events, nil
}

// ListRuns returns the most recent runs first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	var runs []Run
	if err := s.db.WithContext(ctx).Order("started_at DESC").Limit(limit).Find(&runs).Error; err != nil {
		return nil, errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return runs, nil
}

// Type returns the database type name.
func (s *Store) Type() string {
	return s.dbType
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return errors.New(err).
			Component("datastore").
			Category(errors.CategoryDatabase).
			Build()
	}
	return sqlDB.Close()
}
