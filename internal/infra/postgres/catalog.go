package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/uptrace/bun"
	"riddle-hunt-service/internal/domain"
)

// CatalogLoader reads the riddle catalog from the riddles table.
type CatalogLoader struct {
	pool *pgxpool.Pool
}

func NewCatalogLoader(pool *pgxpool.Pool) *CatalogLoader {
	return &CatalogLoader{pool: pool}
}

// LoadCatalog returns the validated catalog, ordered by position.
func (l *CatalogLoader) LoadCatalog(ctx context.Context) (*domain.Catalog, error) {
	rows, err := l.pool.Query(ctx, `SELECT unique_key, prompt, options, correct_option FROM riddles ORDER BY position`)
	if err != nil {
		return nil, fmt.Errorf("load riddles: %w", err)
	}
	defer rows.Close()

	var entries []domain.CatalogEntry
	for rows.Next() {
		var entry domain.CatalogEntry
		if err := rows.Scan(&entry.Key, &entry.Riddle.Prompt, &entry.Riddle.Options, &entry.Riddle.CorrectOption); err != nil {
			return nil, fmt.Errorf("scan riddle: %w", err)
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load riddles: %w", err)
	}
	return domain.NewCatalog(entries)
}

// SeedCatalog writes entries into the riddles table, replacing rows at the
// same positions.
func SeedCatalog(ctx context.Context, db *bun.DB, entries []domain.CatalogEntry) error {
	if _, err := domain.NewCatalog(entries); err != nil {
		return err
	}
	rows := make([]riddleRow, 0, len(entries))
	for i, entry := range entries {
		rows = append(rows, riddleRow{
			Position:      i,
			UniqueKey:     domain.NormalizeKey(entry.Key),
			Prompt:        entry.Riddle.Prompt,
			Options:       entry.Riddle.Options,
			CorrectOption: entry.Riddle.CorrectOption,
		})
	}
	_, err := db.NewInsert().
		Model(&rows).
		On("CONFLICT (position) DO UPDATE").
		Set("unique_key = EXCLUDED.unique_key").
		Set("prompt = EXCLUDED.prompt").
		Set("options = EXCLUDED.options").
		Set("correct_option = EXCLUDED.correct_option").
		Exec(ctx)
	if err != nil {
		return fmt.Errorf("seed riddles: %w", err)
	}
	return nil
}
