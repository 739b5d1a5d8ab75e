package loto

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

func OpenDB(path string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{})
	if err != nil {
		return nil, err
	}
	if err := db.AutoMigrate(&DrawRecord{}, &CorpusMeta{}, &ProcessedArchive{}); err != nil {
		return nil, err
	}
	return db, nil
}

// OpenQueryDB opens an existing SQLite DB for reading without touching its schema.
func OpenQueryDB(path string) (*gorm.DB, error) {
	return gorm.Open(sqlite.Open(path), &gorm.Config{})
}

var errStoreClosed = errors.New("store is closed")

// Store persists the corpus and the ingestion ledger in SQLite.
type Store struct {
	db *gorm.DB
}

func NewStore(db *gorm.DB) *Store {
	return &Store{db: db}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	err = sqlDB.Close()
	s.db = nil
	return err
}

// Persist replaces the stored corpus in one transaction; readers never see a partial corpus.
func (s *Store) Persist(ctx context.Context, c *Corpus) error {
	if s == nil || s.db == nil {
		return errStoreClosed
	}
	if err := c.Validate(); err != nil {
		return err
	}
	records := make([]DrawRecord, 0, len(c.Draws))
	for i, d := range c.Draws {
		rec, err := toRecord(i, d)
		if err != nil {
			return err
		}
		records = append(records, rec)
	}
	cols, err := json.Marshal(c.Columns)
	if err != nil {
		return err
	}
	oldest, newest := c.Period()
	meta := CorpusMeta{ColumnsJSON: string(cols), Draws: len(c.Draws), Oldest: oldest, Newest: newest, PersistedAt: time.Now().UTC()}

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&DrawRecord{}).Error; err != nil {
			return err
		}
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&CorpusMeta{}).Error; err != nil {
			return err
		}
		if err := tx.CreateInBatches(records, 200).Error; err != nil {
			return err
		}
		return tx.Create(&meta).Error
	})
}

func toRecord(pos int, d Draw) (DrawRecord, error) {
	balls, err := json.Marshal(d.Balls)
	if err != nil {
		return DrawRecord{}, err
	}
	extras, err := json.Marshal(d.Extras)
	if err != nil {
		return DrawRecord{}, err
	}
	return DrawRecord{
		Position:     pos,
		Source:       d.SourceFile,
		TypeLoto:     string(d.Category),
		YearIndex:    d.YearIndex,
		Weekday:      d.Weekday,
		Date:         d.Date,
		DrawnOn:      d.Time(),
		Boule1:       d.Ball("boule_1"),
		Boule2:       d.Ball("boule_2"),
		Boule3:       d.Ball("boule_3"),
		Boule4:       d.Ball("boule_4"),
		Boule5:       d.Ball("boule_5"),
		NumeroChance: d.Ball(ColChance),
		Boule1Second: d.Ball(SecondDrawColumns[0]),
		Boule2Second: d.Ball(SecondDrawColumns[1]),
		Boule3Second: d.Ball(SecondDrawColumns[2]),
		Boule4Second: d.Ball(SecondDrawColumns[3]),
		BallsJSON:    string(balls),
		ExtrasJSON:   string(extras),
	}, nil
}

// LoadCorpus reads back the last persisted corpus.
func (s *Store) LoadCorpus(ctx context.Context) (*Corpus, error) {
	var meta CorpusMeta
	if err := s.db.WithContext(ctx).First(&meta).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrEmptyCorpus
		}
		return nil, err
	}
	c := &Corpus{}
	if err := json.Unmarshal([]byte(meta.ColumnsJSON), &c.Columns); err != nil {
		return nil, fmt.Errorf("corpus columns: %w", err)
	}

	var records []DrawRecord
	if err := s.db.WithContext(ctx).Order("position asc").Find(&records).Error; err != nil {
		return nil, err
	}
	c.Draws = make([]Draw, 0, len(records))
	for _, r := range records {
		d := Draw{
			SourceFile: r.Source,
			Category:   Category(r.TypeLoto),
			YearIndex:  r.YearIndex,
			Weekday:    r.Weekday,
			Date:       r.Date,
		}
		if err := json.Unmarshal([]byte(r.BallsJSON), &d.Balls); err != nil {
			return nil, fmt.Errorf("draw %d balls: %w", r.ID, err)
		}
		if err := json.Unmarshal([]byte(r.ExtrasJSON), &d.Extras); err != nil {
			return nil, fmt.Errorf("draw %d extras: %w", r.ID, err)
		}
		c.Draws = append(c.Draws, d)
	}
	return c, nil
}

// RecordArchive upserts the ledger row of one archive location.
func (s *Store) RecordArchive(ctx context.Context, rec ProcessedArchive) error {
	if rec.ProcessedAt.IsZero() {
		rec.ProcessedAt = time.Now().UTC()
	}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "location"}},
		DoUpdates: clause.AssignmentColumns([]string{"source_file", "sha256", "category", "rows", "unmatched_second", "status", "last_error", "processed_at"}),
	}).Create(&rec).Error
}

// Archives lists the ledger, most recent first.
func (s *Store) Archives(ctx context.Context) ([]ProcessedArchive, error) {
	var out []ProcessedArchive
	err := s.db.WithContext(ctx).Order("processed_at desc, id desc").Find(&out).Error
	return out, err
}
