// Copyright (c) 2024 Telar Social
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package repository

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	commentsErrors "github.com/kickback/api/comments/errors"
	"github.com/kickback/api/comments/models"
	"github.com/kickback/api/internal/database/postgres"
)

//go:embed schema.sql
var schemaSQL string

// EnsureSchema creates the comment tables when they are missing
func EnsureSchema(ctx context.Context, client *postgres.Client) error {
	if _, err := client.DB().ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("failed to apply comments schema: %w", err)
	}
	return nil
}

// postgresCommentRepository implements CommentRepository using raw SQL queries
type postgresCommentRepository struct {
	client *postgres.Client
}

// NewPostgresCommentRepository creates a new PostgreSQL repository for comments
func NewPostgresCommentRepository(client *postgres.Client) CommentRepository {
	return &postgresCommentRepository{client: client}
}

type commentRow struct {
	ID            string         `db:"id"`
	EventID       string         `db:"event_id"`
	UserID        string         `db:"user_id"`
	ParentID      sql.NullString `db:"parent_id"`
	Content       string         `db:"content"`
	ImageURL      sql.NullString `db:"image_url"`
	UserFirstName string         `db:"user_first_name"`
	UserLastName  string         `db:"user_last_name"`
	UserNickname  string         `db:"user_nickname"`
	UserAvatar    string         `db:"user_avatar"`
	CreatedAt     time.Time      `db:"created_at"`
	UpdatedAt     time.Time      `db:"updated_at"`
	EditedAt      sql.NullTime   `db:"edited_at"`
}

func (r commentRow) toModel() *models.Comment {
	c := &models.Comment{
		ID:        r.ID,
		Content:   r.Content,
		EventID:   r.EventID,
		UserID:    r.UserID,
		CreatedAt: r.CreatedAt,
		UpdatedAt: r.UpdatedAt,
		User: models.UserSnapshot{
			ID:        r.UserID,
			FirstName: r.UserFirstName,
			LastName:  r.UserLastName,
			Nickname:  r.UserNickname,
			Avatar:    r.UserAvatar,
		},
		Replies:   []*models.Comment{},
		Reactions: []models.Reaction{},
	}
	if r.ParentID.Valid {
		parent := r.ParentID.String
		c.ParentID = &parent
	}
	if r.ImageURL.Valid {
		img := r.ImageURL.String
		c.ImageURL = &img
	}
	if r.EditedAt.Valid {
		edited := r.EditedAt.Time
		c.EditedAt = &edited
	}
	return c
}

type reactionRow struct {
	ID            string    `db:"id"`
	CommentID     string    `db:"comment_id"`
	UserID        string    `db:"user_id"`
	Emoji         string    `db:"emoji"`
	UserFirstName string    `db:"user_first_name"`
	UserLastName  string    `db:"user_last_name"`
	UserNickname  string    `db:"user_nickname"`
	UserAvatar    string    `db:"user_avatar"`
	CreatedAt     time.Time `db:"created_at"`
}

func (r reactionRow) toModel() models.Reaction {
	return models.Reaction{
		ID:        r.ID,
		CommentID: r.CommentID,
		Emoji:     r.Emoji,
		UserID:    r.UserID,
		User: models.UserSnapshot{
			ID:        r.UserID,
			FirstName: r.UserFirstName,
			LastName:  r.UserLastName,
			Nickname:  r.UserNickname,
			Avatar:    r.UserAvatar,
		},
		CreatedAt: r.CreatedAt,
	}
}

const commentColumns = `id, event_id, user_id, parent_id, content, image_url,
	user_first_name, user_last_name, user_nickname, user_avatar,
	created_at, updated_at, edited_at`

func nullString(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *s, Valid: true}
}

// Create inserts a new comment
func (r *postgresCommentRepository) Create(ctx context.Context, comment *models.Comment) error {
	query := `
		INSERT INTO comments (` + commentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, NULL)`

	_, err := r.client.Executor(ctx).ExecContext(ctx, query,
		comment.ID, comment.EventID, comment.UserID, nullString(comment.ParentID),
		comment.Content, nullString(comment.ImageURL),
		comment.User.FirstName, comment.User.LastName, comment.User.Nickname, comment.User.Avatar,
		comment.CreatedAt, comment.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("%w: failed to create comment: %v", commentsErrors.ErrDatabaseOperation, err)
	}
	return nil
}

// FindByID retrieves a comment by its ID
func (r *postgresCommentRepository) FindByID(ctx context.Context, commentID string) (*models.Comment, error) {
	var row commentRow
	query := `SELECT ` + commentColumns + ` FROM comments WHERE id = $1`
	if err := sqlx.GetContext(ctx, r.client.Executor(ctx), &row, query, commentID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, commentsErrors.ErrCommentNotFound
		}
		return nil, fmt.Errorf("%w: failed to find comment: %v", commentsErrors.ErrDatabaseOperation, err)
	}
	return row.toModel(), nil
}

// ListTopLevel retrieves root comments of an event with keyset pagination
func (r *postgresCommentRepository) ListTopLevel(ctx context.Context, eventID string, sort models.SortOrder, cursor *Cursor, limit int) ([]*models.Comment, error) {
	direction, cmp := "DESC", "<"
	if sort == models.SortOldest {
		direction, cmp = "ASC", ">"
	}

	args := []interface{}{eventID}
	where := `event_id = $1 AND parent_id IS NULL`
	if cursor != nil {
		where += fmt.Sprintf(` AND (created_at, id) %s ($2, $3)`, cmp)
		args = append(args, cursor.CreatedAt, cursor.ID)
	}
	args = append(args, limit+1)

	query := fmt.Sprintf(`SELECT %s FROM comments WHERE %s ORDER BY created_at %s, id %s LIMIT $%d`,
		commentColumns, where, direction, direction, len(args))

	return r.selectComments(ctx, query, args...)
}

// ListReplies retrieves direct replies of a parent, newest first
func (r *postgresCommentRepository) ListReplies(ctx context.Context, parentID string, cursor *Cursor, limit int) ([]*models.Comment, error) {
	args := []interface{}{parentID}
	where := `parent_id = $1`
	if cursor != nil {
		where += ` AND (created_at, id) < ($2, $3)`
		args = append(args, cursor.CreatedAt, cursor.ID)
	}
	args = append(args, limit+1)

	query := fmt.Sprintf(`SELECT %s FROM comments WHERE %s ORDER BY created_at DESC, id DESC LIMIT $%d`,
		commentColumns, where, len(args))

	return r.selectComments(ctx, query, args...)
}

func (r *postgresCommentRepository) selectComments(ctx context.Context, query string, args ...interface{}) ([]*models.Comment, error) {
	var rows []commentRow
	if err := sqlx.SelectContext(ctx, r.client.Executor(ctx), &rows, query, args...); err != nil {
		return nil, fmt.Errorf("%w: failed to list comments: %v", commentsErrors.ErrDatabaseOperation, err)
	}

	comments := make([]*models.Comment, 0, len(rows))
	for _, row := range rows {
		comments = append(comments, row.toModel())
	}
	return comments, nil
}

// CountTopLevel counts root comments of an event
func (r *postgresCommentRepository) CountTopLevel(ctx context.Context, eventID string) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM comments WHERE event_id = $1 AND parent_id IS NULL`
	if err := sqlx.GetContext(ctx, r.client.Executor(ctx), &count, query, eventID); err != nil {
		return 0, fmt.Errorf("%w: failed to count comments: %v", commentsErrors.ErrDatabaseOperation, err)
	}
	return count, nil
}

// CountsFor loads reply and reaction counters in one round trip
func (r *postgresCommentRepository) CountsFor(ctx context.Context, commentIDs []string) (map[string]models.Counts, error) {
	counts := make(map[string]models.Counts, len(commentIDs))
	if len(commentIDs) == 0 {
		return counts, nil
	}

	query := `
		SELECT c.id,
			(SELECT COUNT(*) FROM comments r WHERE r.parent_id = c.id) AS replies,
			(SELECT COUNT(*) FROM comment_reactions x WHERE x.comment_id = c.id) AS reactions
		FROM comments c
		WHERE c.id = ANY($1::uuid[])`

	var rows []struct {
		ID        string `db:"id"`
		Replies   int    `db:"replies"`
		Reactions int    `db:"reactions"`
	}
	if err := sqlx.SelectContext(ctx, r.client.Executor(ctx), &rows, query, pq.Array(commentIDs)); err != nil {
		return nil, fmt.Errorf("%w: failed to count replies and reactions: %v", commentsErrors.ErrDatabaseOperation, err)
	}

	for _, row := range rows {
		counts[row.ID] = models.Counts{Replies: row.Replies, Reactions: row.Reactions}
	}
	return counts, nil
}

// ReactionsFor loads reactions for a set of comments
func (r *postgresCommentRepository) ReactionsFor(ctx context.Context, commentIDs []string) (map[string][]models.Reaction, error) {
	grouped := make(map[string][]models.Reaction, len(commentIDs))
	if len(commentIDs) == 0 {
		return grouped, nil
	}

	query := `
		SELECT id, comment_id, user_id, emoji,
			user_first_name, user_last_name, user_nickname, user_avatar, created_at
		FROM comment_reactions
		WHERE comment_id = ANY($1::uuid[])
		ORDER BY created_at ASC, id ASC`

	var rows []reactionRow
	if err := sqlx.SelectContext(ctx, r.client.Executor(ctx), &rows, query, pq.Array(commentIDs)); err != nil {
		return nil, fmt.Errorf("%w: failed to load reactions: %v", commentsErrors.ErrDatabaseOperation, err)
	}

	for _, row := range rows {
		grouped[row.CommentID] = append(grouped[row.CommentID], row.toModel())
	}
	return grouped, nil
}

// UpdateContent replaces content and marks the comment edited
func (r *postgresCommentRepository) UpdateContent(ctx context.Context, commentID, content string, editedAt time.Time) error {
	query := `UPDATE comments SET content = $2, edited_at = $3, updated_at = $3 WHERE id = $1`
	res, err := r.client.Executor(ctx).ExecContext(ctx, query, commentID, content, editedAt)
	if err != nil {
		return fmt.Errorf("%w: failed to update comment: %v", commentsErrors.ErrDatabaseOperation, err)
	}
	return requireAffected(res)
}

// Delete removes a comment and, by cascade, its replies and reactions
func (r *postgresCommentRepository) Delete(ctx context.Context, commentID string) error {
	res, err := r.client.Executor(ctx).ExecContext(ctx, `DELETE FROM comments WHERE id = $1`, commentID)
	if err != nil {
		return fmt.Errorf("%w: failed to delete comment: %v", commentsErrors.ErrDatabaseOperation, err)
	}
	return requireAffected(res)
}

// FindReaction returns the matching reaction or nil when absent
func (r *postgresCommentRepository) FindReaction(ctx context.Context, commentID, userID, emoji string) (*models.Reaction, error) {
	var row reactionRow
	query := `
		SELECT id, comment_id, user_id, emoji,
			user_first_name, user_last_name, user_nickname, user_avatar, created_at
		FROM comment_reactions
		WHERE comment_id = $1 AND user_id = $2 AND emoji = $3`
	if err := sqlx.GetContext(ctx, r.client.Executor(ctx), &row, query, commentID, userID, emoji); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("%w: failed to find reaction: %v", commentsErrors.ErrDatabaseOperation, err)
	}
	reaction := row.toModel()
	return &reaction, nil
}

// AddReaction inserts a reaction; a concurrent duplicate is ignored
func (r *postgresCommentRepository) AddReaction(ctx context.Context, reaction *models.Reaction) error {
	query := `
		INSERT INTO comment_reactions (
			id, comment_id, user_id, emoji,
			user_first_name, user_last_name, user_nickname, user_avatar, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (comment_id, user_id, emoji) DO NOTHING`

	_, err := r.client.Executor(ctx).ExecContext(ctx, query,
		reaction.ID, reaction.CommentID, reaction.UserID, reaction.Emoji,
		reaction.User.FirstName, reaction.User.LastName, reaction.User.Nickname, reaction.User.Avatar,
		reaction.CreatedAt,
	)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "foreign_key_violation" {
			return commentsErrors.ErrCommentNotFound
		}
		return fmt.Errorf("%w: failed to add reaction: %v", commentsErrors.ErrDatabaseOperation, err)
	}
	return nil
}

// RemoveReaction deletes a reaction by id
func (r *postgresCommentRepository) RemoveReaction(ctx context.Context, reactionID string) error {
	if _, err := r.client.Executor(ctx).ExecContext(ctx, `DELETE FROM comment_reactions WHERE id = $1`, reactionID); err != nil {
		return fmt.Errorf("%w: failed to remove reaction: %v", commentsErrors.ErrDatabaseOperation, err)
	}
	return nil
}

// WithTransaction executes a function within a database transaction
func (r *postgresCommentRepository) WithTransaction(ctx context.Context, fn func(context.Context) error) error {
	return r.client.WithTransaction(ctx, fn)
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%w: %v", commentsErrors.ErrDatabaseOperation, err)
	}
	if n == 0 {
		return commentsErrors.ErrCommentNotFound
	}
	return nil
}
