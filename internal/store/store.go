// Package store is the content store. It owns every SQL statement the services issue and
// runs each of them under the retry and timeout policy of dbretry.
package store

import (
	"context"
	"strings"

	"ficehub/internal/dbretry"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type Store struct {
	db   *gorm.DB
	opts dbretry.Options
}

func New(db *gorm.DB, opts dbretry.Options) *Store {
	return &Store{db: db, opts: opts}
}

// DB exposes the handle for health checks and migrations.
func (s *Store) DB() *gorm.DB {
	return s.db
}

func (s *Store) isPostgres() bool {
	return s.db.Dialector.Name() == "postgres"
}

// forUpdate row-locks the selected rows where the database supports it. SQLite serializes
// writers on its own.
func (s *Store) forUpdate(tx *gorm.DB) *gorm.DB {
	if s.isPostgres() {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

func (s *Store) read(ctx context.Context, op func(db *gorm.DB) error) error {
	return dbretry.NoResult(ctx, s.opts, func(ctx context.Context) error {
		return op(s.db.WithContext(ctx))
	})
}

func (s *Store) write(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return dbretry.Transaction(ctx, s.db, s.opts, fn)
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// escapeLike makes s match literally inside a LIKE pattern using '\' as the escape character.
func escapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// uniq drops duplicate ids, keeping first-seen order.
func uniq(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := ids[:0:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
