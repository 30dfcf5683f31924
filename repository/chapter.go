package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/catalogizer/medialibrary/db"
	"github.com/catalogizer/medialibrary/models"
	"go.uber.org/zap"
)

// ChapterRepository stores per-media chapter markers (spec §3).
// Chapters are inserted one at a time with Add or replaced as a whole
// with ReplaceAll; there is no update or single-chapter delete.
type ChapterRepository struct {
	conn   *db.DB
	logger *zap.Logger
}

func NewChapterRepository(conn *db.DB, logger *zap.Logger) *ChapterRepository {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChapterRepository{conn: conn, logger: logger}
}

const chapterColumns = `id_chapter, offset, duration, name, media_id`

func scanChapter(row interface{ Scan(...interface{}) error }) (*models.Chapter, error) {
	var c models.Chapter
	var name sql.NullString
	if err := row.Scan(&c.ID, &c.Offset, &c.Duration, &name, &c.MediaID); err != nil {
		return nil, err
	}
	c.Name = name.String
	return &c, nil
}

// Add inserts one chapter for mediaID.
func (r *ChapterRepository) Add(ctx context.Context, mediaID, offset, duration int64, name string) (*models.Chapter, error) {
	id, err := r.conn.InsertReturningID(ctx, `
		INSERT INTO chapter(offset, duration, name, media_id) VALUES (?, ?, ?, ?)`,
		offset, duration, nullString(name), mediaID)
	if err != nil {
		return nil, wrapErr(err, "add chapter")
	}
	row := r.conn.QueryRowContext(ctx, fmt.Sprintf(`SELECT %s FROM chapter WHERE id_chapter = ?`, chapterColumns), id)
	return scanChapter(row)
}

// Of lists mediaID's chapters in offset order.
func (r *ChapterRepository) Of(ctx context.Context, mediaID int64) ([]*models.Chapter, error) {
	rows, err := r.conn.QueryContext(ctx, fmt.Sprintf(`SELECT %s FROM chapter WHERE media_id = ? ORDER BY offset`, chapterColumns), mediaID)
	if err != nil {
		return nil, wrapErr(err, "list chapters")
	}
	defer rows.Close()
	var out []*models.Chapter
	for rows.Next() {
		c, err := scanChapter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// ReplaceAll drops and re-inserts mediaID's chapters, the path a
// reparse takes.
func (r *ChapterRepository) ReplaceAll(ctx context.Context, mediaID int64, chapters []*models.Chapter) error {
	tx, txCtx, release, err := r.conn.Begin(ctx, r.logger)
	if err != nil {
		return err
	}
	defer release()
	defer tx.Rollback()

	if _, err := tx.ExecContext(txCtx, `DELETE FROM chapter WHERE media_id = ?`, mediaID); err != nil {
		return wrapErr(err, "clear chapters")
	}
	for _, c := range chapters {
		if _, err := tx.ExecContext(txCtx, `
			INSERT INTO chapter(offset, duration, name, media_id) VALUES (?, ?, ?, ?)`,
			c.Offset, c.Duration, nullString(c.Name), mediaID); err != nil {
			return wrapErr(err, "insert chapter")
		}
	}
	return tx.Commit()
}
