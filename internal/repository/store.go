package repository

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Store bundles the repositories over one *gorm.DB so services can run
// multi-entity writes inside a single transaction.
type Store struct {
	db           *gorm.DB
	Content      ContentRepository
	Sessions     SessionRepository
	Results      ResultRepository
	Attempts     AttemptRepository
	FinalResults FinalResultRepository
}

// NewStore builds a Store bound to the given database handle.
func NewStore(db *gorm.DB) *Store {
	return &Store{
		db:           db,
		Content:      NewContentRepository(db),
		Sessions:     NewSessionRepository(db),
		Results:      NewResultRepository(db),
		Attempts:     NewAttemptRepository(db),
		FinalResults: NewFinalResultRepository(db),
	}
}

// WithinTransaction runs fn against a Store whose repositories share one
// database transaction; any error rolls the whole transaction back.
func (s *Store) WithinTransaction(ctx context.Context, fn func(tx *Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewStore(tx))
	})
}

// lockForUpdate applies a row lock where the dialect supports it. The sqlite
// driver used in tests serialises writers already and rejects FOR UPDATE.
func lockForUpdate(db *gorm.DB) *gorm.DB {
	if db.Dialector.Name() == "postgres" {
		return db.Clauses(clause.Locking{Strength: "UPDATE"})
	}

	return db
}
