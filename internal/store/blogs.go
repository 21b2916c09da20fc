package store

import (
	"context"

	"storefront/internal/models"
)

// GetBlogPosts returns every post in file order
func (s *Store) GetBlogPosts(ctx context.Context) []models.BlogPost {
	return s.blogs.Read(ctx)
}

// MutateBlogPosts runs fn on the post list under the blogs file lock
func (s *Store) MutateBlogPosts(ctx context.Context, fn func(*[]models.BlogPost) error) error {
	return s.blogs.Update(ctx, fn)
}
