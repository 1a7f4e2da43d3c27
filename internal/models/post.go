package models

import "time"

// Post is a feed entry referencing a stored image by relative path.
type Post struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	SubjectID int64     `db:"subject_id" json:"subject_id"`
	ImagePath string    `db:"image_path" json:"image_path"`
	Caption   string    `db:"caption" json:"caption"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Like links a user to a post. At most one row exists per (user_id, post_id).
type Like struct {
	ID     int64 `db:"id" json:"id"`
	UserID int64 `db:"user_id" json:"user_id"`
	PostID int64 `db:"post_id" json:"post_id"`
}

// FeedItem is a post enriched with author, subject and like information for
// feed and portfolio rendering.
type FeedItem struct {
	Post
	AuthorName  string `db:"author_name" json:"author_name"`
	SubjectName string `db:"subject_name" json:"subject_name"`
	LikeCount   int    `db:"like_count" json:"like_count"`
	Liked       bool   `db:"liked" json:"liked"`
}

// LikeResult reports the outcome of a like toggle.
type LikeResult struct {
	Liked     bool `json:"liked"`
	LikeCount int  `json:"like_count"`
}
