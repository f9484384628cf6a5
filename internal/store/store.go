package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/ikbir-singh-unisys/DRM-Worker/pkg/job"
)

type Config struct {
	// Driver is one of mysql, postgres or sqlite.
	Driver   string
	DSN      string
	LogLevel string

	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration

	// AutoMigrate creates the tables on open. Meant for sqlite and tests.
	AutoMigrate bool
}

type StoreCtx struct {
	logger zerolog.Logger
	db     *gorm.DB
	sqlDB  *sql.DB
}

func Open(config Config) (*StoreCtx, error) {
	logger := log.With().Str("module", "store").Logger()

	dialector, err := getDialector(config)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger:                 &gormLogger{logger: logger, level: gormLogLevel(config.LogLevel)},
		SkipDefaultTransaction: true,
	})
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}

	if config.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(config.MaxOpenConns)
	}
	if config.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(config.MaxIdleConns)
	}
	if config.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(config.ConnMaxLifetime)
	}

	if config.AutoMigrate {
		if err := db.AutoMigrate(Models...); err != nil {
			//nolint
			_ = sqlDB.Close()
			return nil, fmt.Errorf("migrating database: %w", err)
		}
	}

	logger.Info().Str("driver", config.Driver).Msg("database opened")

	return &StoreCtx{
		logger: logger,
		db:     db,
		sqlDB:  sqlDB,
	}, nil
}

func getDialector(config Config) (gorm.Dialector, error) {
	switch config.Driver {
	case "sqlite":
		dsn := config.DSN
		if !strings.Contains(dsn, "?") {
			dsn += "?"
		} else {
			dsn += "&"
		}
		dsn += "_pragma=busy_timeout(30000)&_pragma=journal_mode(WAL)"
		return sqlite.Open(dsn), nil
	case "postgres":
		return postgres.Open(config.DSN), nil
	case "mysql":
		return mysql.Open(config.DSN), nil
	default:
		return nil, fmt.Errorf("unsupported database driver: %q", config.Driver)
	}
}

// Session pins one pooled connection for the lifetime of a job. It must be closed.
func (s *StoreCtx) Session(ctx context.Context) (*SessionCtx, error) {
	conn, err := s.sqlDB.Conn(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquiring database connection: %w", err)
	}

	tx := s.db.WithContext(ctx)
	tx.Statement.ConnPool = conn

	return &SessionCtx{db: tx, conn: conn}, nil
}

func (s *StoreCtx) Close() error {
	return s.sqlDB.Close()
}

type SessionCtx struct {
	db   *gorm.DB
	conn *sql.Conn
}

func (s *SessionCtx) Close() error {
	return s.conn.Close()
}

// Credential looks up a credential by the id carried in a job descriptor.
// Errors are left untagged, the caller knows which stage needed it.
func (s *SessionCtx) Credential(id string) (*Credential, error) {
	num, err := strconv.ParseUint(strings.TrimSpace(id), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid credential id %q", id)
	}

	var cred Credential
	err = s.db.First(&cred, num).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("credential %d not found", num)
	}
	if err != nil {
		return nil, fmt.Errorf("loading credential %d: %w", num, err)
	}

	return &cred, nil
}

// AudioTracks returns the job's audio tracks in insertion order.
func (s *SessionCtx) AudioTracks(jobID string) ([]job.Track, error) {
	var rows []AudioTrack
	if err := s.db.Where("job_id = ?", jobID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading audio tracks: %w", err)
	}

	tracks := make([]job.Track, 0, len(rows))
	for _, r := range rows {
		tracks = append(tracks, job.Track{
			Kind:       job.TrackAudio,
			JobID:      r.JobID,
			Language:   strings.TrimSpace(r.Language),
			SourcePath: strings.TrimSpace(r.FilePath),
		})
	}
	return tracks, nil
}

// SubtitleTracks returns the job's subtitle tracks in insertion order.
func (s *SessionCtx) SubtitleTracks(jobID string) ([]job.Track, error) {
	var rows []SubtitleTrack
	if err := s.db.Where("job_id = ?", jobID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("loading subtitle tracks: %w", err)
	}

	tracks := make([]job.Track, 0, len(rows))
	for _, r := range rows {
		tracks = append(tracks, job.Track{
			Kind:       job.TrackSubtitle,
			JobID:      r.JobID,
			Language:   strings.TrimSpace(r.Language),
			SourcePath: strings.TrimSpace(r.FilePath),
		})
	}
	return tracks, nil
}
