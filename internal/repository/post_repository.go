package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/archihub/archihub-api/internal/models"
)

// PostRepository handles persistence of feed posts.
type PostRepository struct {
	db *sqlx.DB
}

// NewPostRepository constructs the repository.
func NewPostRepository(db *sqlx.DB) *PostRepository {
	return &PostRepository{db: db}
}

// Create persists a new post and fills in the generated id.
func (r *PostRepository) Create(ctx context.Context, post *models.Post) error {
	if post.CreatedAt.IsZero() {
		post.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO posts (user_id, subject_id, image_path, caption, created_at)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id`
	if err := r.db.GetContext(ctx, &post.ID, query,
		post.UserID, post.SubjectID, post.ImagePath, post.Caption, post.CreatedAt); err != nil {
		return fmt.Errorf("create post: %w", err)
	}
	return nil
}

// FindByID returns a post by its id.
func (r *PostRepository) FindByID(ctx context.Context, id int64) (*models.Post, error) {
	const query = `SELECT id, user_id, subject_id, image_path, caption, created_at FROM posts WHERE id = $1`
	var post models.Post
	if err := r.db.GetContext(ctx, &post, query, id); err != nil {
		return nil, err
	}
	return &post, nil
}

// ListFeed returns posts newest first with ties broken by id, enriched with
// author, subject and like information for the viewing user.
func (r *PostRepository) ListFeed(ctx context.Context, viewerID int64, limit, offset int) ([]models.FeedItem, error) {
	const query = `SELECT p.id, p.user_id, p.subject_id, p.image_path, p.caption, p.created_at,
        u.name AS author_name, s.name AS subject_name,
        (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS like_count,
        EXISTS (SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = $1) AS liked
        FROM posts p
        JOIN users u ON u.id = p.user_id
        JOIN subjects s ON s.id = p.subject_id
        ORDER BY p.created_at DESC, p.id DESC
        LIMIT $2 OFFSET $3`
	var items []models.FeedItem
	if err := r.db.SelectContext(ctx, &items, query, viewerID, limit, offset); err != nil {
		return nil, fmt.Errorf("list feed: %w", err)
	}
	return items, nil
}

// CountAll returns the total number of posts.
func (r *PostRepository) CountAll(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM posts`); err != nil {
		return 0, fmt.Errorf("count posts: %w", err)
	}
	return total, nil
}

// ListByUser returns one user's posts newest first for the portfolio view.
func (r *PostRepository) ListByUser(ctx context.Context, userID int64) ([]models.FeedItem, error) {
	const query = `SELECT p.id, p.user_id, p.subject_id, p.image_path, p.caption, p.created_at,
        u.name AS author_name, s.name AS subject_name,
        (SELECT COUNT(*) FROM likes l WHERE l.post_id = p.id) AS like_count,
        EXISTS (SELECT 1 FROM likes l WHERE l.post_id = p.id AND l.user_id = $1) AS liked
        FROM posts p
        JOIN users u ON u.id = p.user_id
        JOIN subjects s ON s.id = p.subject_id
        WHERE p.user_id = $1
        ORDER BY p.created_at DESC, p.id DESC`
	var items []models.FeedItem
	if err := r.db.SelectContext(ctx, &items, query, userID); err != nil {
		return nil, fmt.Errorf("list user posts: %w", err)
	}
	return items, nil
}
