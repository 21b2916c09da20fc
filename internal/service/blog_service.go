package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"storefront/internal/models"
	"storefront/internal/store"
	"storefront/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const (
	fallbackSlug  = "post"
	excerptLength = 160
)

var (
	slugDisallowed = regexp.MustCompile(`[^a-z0-9\s-]`)
	slugSpaces     = regexp.MustCompile(`\s+`)
	slugHyphens    = regexp.MustCompile(`-+`)
)

// GenerateSlug turns a title into lowercase alphanumerics joined by single hyphens
func GenerateSlug(title string) string {
	slug := strings.TrimSpace(strings.ToLower(title))
	slug = slugDisallowed.ReplaceAllString(slug, "")
	slug = slugSpaces.ReplaceAllString(slug, "-")
	slug = slugHyphens.ReplaceAllString(slug, "-")
	slug = strings.Trim(slug, "-")
	if slug == "" {
		return fallbackSlug
	}
	return slug
}

// uniqueSlug appends -2, -3, ... until no other post uses the slug
func uniqueSlug(base string, posts []models.BlogPost, ignoreID string) string {
	taken := make(map[string]bool, len(posts))
	for _, p := range posts {
		if p.ID != ignoreID {
			taken[p.Slug] = true
		}
	}

	slug := base
	for n := 2; taken[slug]; n++ {
		slug = fmt.Sprintf("%s-%d", base, n)
	}
	return slug
}

func deriveExcerpt(content string) string {
	text := strings.Join(strings.Fields(content), " ")
	if utf8.RuneCountInString(text) <= excerptLength {
		return text
	}
	runes := []rune(text)[:excerptLength]
	cut := string(runes)
	if i := strings.LastIndex(cut, " "); i > excerptLength/2 {
		cut = cut[:i]
	}
	return cut + "..."
}

// BlogService manages blog posts
type BlogService struct {
	store  *store.Store
	logger *zap.Logger
	now    func() time.Time
}

func NewBlogService(store *store.Store) *BlogService {
	return &BlogService{
		store:  store,
		logger: util.GetLogger(),
		now:    time.Now,
	}
}

// BlogPostInput is the admin blog form
type BlogPostInput struct {
	Title       string   `json:"title"`
	Content     string   `json:"content"`
	Excerpt     string   `json:"excerpt"`
	AuthorName  string   `json:"authorName"`
	Category    string   `json:"category"`
	Tags        []string `json:"tags"`
	ImageURL    string   `json:"imageUrl"`
	IsPublished bool     `json:"isPublished"`
}

func (in BlogPostInput) validate() error {
	switch {
	case strings.TrimSpace(in.Title) == "":
		return invalid("title is required")
	case strings.TrimSpace(in.Content) == "":
		return invalid("content is required")
	case strings.TrimSpace(in.AuthorName) == "":
		return invalid("author name is required")
	}
	return nil
}

func (in BlogPostInput) apply(p *models.BlogPost) {
	p.Title = strings.TrimSpace(in.Title)
	p.Content = in.Content
	p.Excerpt = strings.TrimSpace(in.Excerpt)
	if p.Excerpt == "" {
		p.Excerpt = deriveExcerpt(in.Content)
	}
	p.AuthorName = strings.TrimSpace(in.AuthorName)
	p.Category = strings.TrimSpace(in.Category)
	p.Tags = in.Tags
	if p.Tags == nil {
		p.Tags = []string{}
	}
	p.ImageURL = in.ImageURL
	p.IsPublished = in.IsPublished
}

// GetBlogPosts returns posts newest-first
func (s *BlogService) GetBlogPosts(ctx context.Context, onlyPublished bool) []models.BlogPost {
	posts := s.store.GetBlogPosts(ctx)

	out := make([]models.BlogPost, 0, len(posts))
	for _, p := range posts {
		if onlyPublished && !p.IsPublished {
			continue
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}

// GetBlogPostBySlug is the public lookup; unpublished posts are hidden
func (s *BlogService) GetBlogPostBySlug(ctx context.Context, slug string) (*models.BlogPost, error) {
	post, err := s.GetBlogPostBySlugAdmin(ctx, slug)
	if err != nil {
		return nil, err
	}
	if !post.IsPublished {
		return nil, notFound("post not found")
	}
	return post, nil
}

func (s *BlogService) GetBlogPostBySlugAdmin(ctx context.Context, slug string) (*models.BlogPost, error) {
	for _, p := range s.store.GetBlogPosts(ctx) {
		if p.Slug == slug {
			post := p
			return &post, nil
		}
	}
	return nil, notFound("post not found")
}

func (s *BlogService) GetBlogPostByID(ctx context.Context, id string) (*models.BlogPost, error) {
	for _, p := range s.store.GetBlogPosts(ctx) {
		if p.ID == id {
			post := p
			return &post, nil
		}
	}
	return nil, notFound("post not found")
}

func (s *BlogService) AddBlogPost(ctx context.Context, in BlogPostInput) (*models.BlogPost, error) {
	ctx, span := util.StartSpan(ctx, "BlogService.AddBlogPost")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	post := models.BlogPost{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
	in.apply(&post)

	err := s.store.MutateBlogPosts(ctx, func(posts *[]models.BlogPost) error {
		post.Slug = uniqueSlug(GenerateSlug(post.Title), *posts, "")
		*posts = append(*posts, post)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to save blog post: %w", err)
	}

	s.logger.Info("Blog post created", zap.String("post_id", post.ID), zap.String("slug", post.Slug))
	return &post, nil
}

// UpdateBlogPost regenerates the slug when the title changes
func (s *BlogService) UpdateBlogPost(ctx context.Context, id string, in BlogPostInput) (*models.BlogPost, error) {
	ctx, span := util.StartSpan(ctx, "BlogService.UpdateBlogPost")
	defer span.End()

	if err := in.validate(); err != nil {
		return nil, err
	}

	var updated models.BlogPost
	err := s.store.MutateBlogPosts(ctx, func(posts *[]models.BlogPost) error {
		for i := range *posts {
			post := &(*posts)[i]
			if post.ID != id {
				continue
			}
			titleChanged := post.Title != strings.TrimSpace(in.Title)
			in.apply(post)
			if titleChanged {
				post.Slug = uniqueSlug(GenerateSlug(post.Title), *posts, id)
			}
			post.UpdatedAt = s.now().UTC()
			updated = *post
			return nil
		}
		return notFound("post not found")
	})
	if err != nil {
		return nil, wrapWrite(err, "blog post")
	}
	return &updated, nil
}

func (s *BlogService) DeleteBlogPost(ctx context.Context, id string) error {
	ctx, span := util.StartSpan(ctx, "BlogService.DeleteBlogPost")
	defer span.End()

	err := s.store.MutateBlogPosts(ctx, func(posts *[]models.BlogPost) error {
		for i := range *posts {
			if (*posts)[i].ID == id {
				*posts = append((*posts)[:i], (*posts)[i+1:]...)
				return nil
			}
		}
		return notFound("post not found")
	})
	return wrapWrite(err, "blog post")
}

// wrapWrite passes rule errors through and wraps storage failures
func wrapWrite(err error, what string) error {
	if err == nil {
		return nil
	}
	var rule *RuleError
	if errors.As(err, &rule) {
		return err
	}
	return fmt.Errorf("failed to save %s: %w", what, err)
}
