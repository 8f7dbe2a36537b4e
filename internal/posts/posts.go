package posts

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"streamlet/internal/asset"
	"streamlet/internal/logging"
	"streamlet/internal/services"
	"streamlet/internal/store"
)

// Collection holds channel posts.
const Collection = "posts"

// Post is a short text update on an uploader's channel page.
type Post struct {
	ID         string
	ChannelID  string
	AuthorID   string
	Content    string
	Visibility asset.Visibility
	CreatedAt  time.Time
}

// Fields encodes the post as document fields.
func (p Post) Fields() map[string]any {
	return map[string]any{
		"channelId":  p.ChannelID,
		"authorId":   p.AuthorID,
		"content":    p.Content,
		"visibility": string(p.Visibility),
		"createdAt":  store.FormatTime(p.CreatedAt),
	}
}

// FromDocument validates and decodes a stored post document.
func FromDocument(doc store.Document) (Post, error) {
	p := Post{ID: doc.ID}
	var ok bool
	if p.ChannelID, ok = store.StringField(doc.Fields, "channelId"); !ok || p.ChannelID == "" {
		return Post{}, invalid("missing channelId")
	}
	if p.AuthorID, ok = store.StringField(doc.Fields, "authorId"); !ok || p.AuthorID == "" {
		return Post{}, invalid("missing authorId")
	}
	if p.Content, ok = store.StringField(doc.Fields, "content"); !ok || p.Content == "" {
		return Post{}, invalid("missing content")
	}
	visibility, _ := store.StringField(doc.Fields, "visibility")
	if p.Visibility, _ = asset.ParseVisibility(visibility); p.Visibility == "" {
		p.Visibility = asset.VisibilityPublic
	}
	if p.CreatedAt, ok = store.TimeField(doc.Fields, "createdAt"); !ok {
		return Post{}, invalid("missing createdAt")
	}
	return p, nil
}

func invalid(message string) error {
	return services.Wrap(services.ErrValidation, "posts", "decode", message, nil)
}

// Options configures a Service.
type Options struct {
	// PageSize caps channel listings.
	PageSize int
	Logger   *slog.Logger
}

// Service writes and lists channel posts. Only the channel owner may post to
// their own channel.
type Service struct {
	documents store.DocumentStore
	pageSize  int
	logger    *slog.Logger
	now       func() time.Time
}

// NewService constructs a Service over the document store.
func NewService(documents store.DocumentStore, opts Options) *Service {
	pageSize := opts.PageSize
	if pageSize <= 0 {
		pageSize = 12
	}
	return &Service{
		documents: documents,
		pageSize:  pageSize,
		logger:    logging.NewComponentLogger(opts.Logger, "posts"),
		now:       time.Now,
	}
}

// Create publishes a post on the author's own channel.
func (s *Service) Create(ctx context.Context, channelID, authorID, content string, visibility asset.Visibility) (Post, error) {
	if strings.TrimSpace(channelID) == "" || strings.TrimSpace(authorID) == "" {
		return Post{}, services.Wrap(services.ErrValidation, "posts", "create", "channel and author ids required", nil)
	}
	if channelID != authorID {
		return Post{}, services.Wrap(services.ErrValidation, "posts", "create", "only the channel owner may post", nil)
	}
	content = strings.TrimSpace(content)
	if content == "" {
		return Post{}, services.Wrap(services.ErrValidation, "posts", "create", "content required", nil)
	}
	if visibility == "" {
		visibility = asset.VisibilityPublic
	}

	post := Post{
		ID:         uuid.NewString(),
		ChannelID:  channelID,
		AuthorID:   authorID,
		Content:    content,
		Visibility: visibility,
		CreatedAt:  s.now().UTC(),
	}
	if err := s.documents.Set(ctx, Collection, post.ID, post.Fields()); err != nil {
		return Post{}, services.Wrap(services.ErrQuery, "posts", "create", "write post", err)
	}
	s.logger.Info("post created",
		logging.String("channel", channelID),
		logging.String("post", post.ID),
		logging.String("visibility", string(visibility)))
	return post, nil
}

// ListPublic lists a channel's public posts, newest first. This is the view
// any visitor sees.
func (s *Service) ListPublic(ctx context.Context, channelID string) ([]Post, error) {
	return s.list(ctx, "list_public", []store.Filter{
		{Field: "channelId", Value: channelID},
		{Field: "visibility", Value: string(asset.VisibilityPublic)},
	})
}

// ListOwn lists every post on the channel, private included, newest first.
// Only meaningful for the channel owner.
func (s *Service) ListOwn(ctx context.Context, channelID string) ([]Post, error) {
	return s.list(ctx, "list_own", []store.Filter{
		{Field: "channelId", Value: channelID},
	})
}

func (s *Service) list(ctx context.Context, operation string, filters []store.Filter) ([]Post, error) {
	docs, err := s.documents.Query(ctx, Collection, filters,
		store.Order{Field: "createdAt", Desc: true}, s.pageSize)
	if err != nil {
		return nil, services.Wrap(services.ErrQuery, "posts", operation, "query posts", err)
	}
	result := make([]Post, 0, len(docs))
	for _, doc := range docs {
		post, err := FromDocument(doc)
		if err != nil {
			s.logger.Warn("skipping malformed post", logging.String("id", doc.ID), logging.Error(err))
			continue
		}
		result = append(result, post)
	}
	return result, nil
}
