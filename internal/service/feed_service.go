package service

import (
	"context"
	"time"

	"yatube/internal/cache"
	"yatube/internal/models"
	"yatube/internal/observability"
	"yatube/internal/pagination"
	"yatube/internal/repository"

	"go.opentelemetry.io/otel/attribute"
)

// MaxCachedFeedPage is the deepest global feed page kept in the cache.
const MaxCachedFeedPage = 50

// FeedService assembles the paginated post listings.
type FeedService struct {
	postRepo  repository.PostRepository
	groupRepo repository.GroupRepository
	userRepo  repository.UserRepository
	cache     *cache.Cache
	ttl       time.Duration
}

// NewFeedService wires the feeds. A nil feedCache disables caching of the
// global feed; ttl <= 0 falls back to cache.GlobalFeedTTL.
func NewFeedService(
	postRepo repository.PostRepository,
	groupRepo repository.GroupRepository,
	userRepo repository.UserRepository,
	feedCache *cache.Cache,
	ttl time.Duration,
) *FeedService {
	if ttl <= 0 {
		ttl = cache.GlobalFeedTTL
	}
	return &FeedService{
		postRepo:  postRepo,
		groupRepo: groupRepo,
		userRepo:  userRepo,
		cache:     feedCache,
		ttl:       ttl,
	}
}

// GlobalFeed returns a page of every post. Pages 1 to MaxCachedFeedPage are
// cached for the TTL and may lag behind writes by that much.
func (s *FeedService) GlobalFeed(ctx context.Context, rawPage string) (*models.PostPage, error) {
	defer observability.TrackFeed("global")()
	span, ctx := observability.NewSpan(ctx, "feed.global", attribute.String("feed.page", rawPage))
	defer span.End()

	number, cacheable := cachePageNumber(rawPage)
	if s.cache == nil || !cacheable {
		page, err := s.postRepo.ListAll(ctx, rawPage)
		span.SetError(err)
		return page, err
	}

	var page models.PostPage
	err := s.cache.Aside(ctx, cache.GlobalFeedKey(number), &page, s.ttl, func() error {
		fresh, err := s.postRepo.ListAll(ctx, rawPage)
		if err != nil {
			return err
		}
		page = *fresh
		return nil
	})
	if err != nil {
		span.SetError(err)
		return nil, err
	}
	return &page, nil
}

// GroupFeed returns the group identified by slug and a page of its posts.
func (s *FeedService) GroupFeed(ctx context.Context, slug, rawPage string) (*models.Group, *models.PostPage, error) {
	defer observability.TrackFeed("group")()
	span, ctx := observability.NewSpan(ctx, "feed.group",
		attribute.String("group.slug", slug),
		attribute.String("feed.page", rawPage),
	)
	defer span.End()

	group, err := s.groupRepo.GetBySlug(ctx, slug)
	if err != nil {
		span.SetError(err)
		return nil, nil, err
	}
	page, err := s.postRepo.ListByGroup(ctx, group.ID, rawPage)
	if err != nil {
		span.SetError(err)
		return nil, nil, err
	}
	return group, page, nil
}

// AuthorFeed returns the user named username and a page of their posts.
func (s *FeedService) AuthorFeed(ctx context.Context, username, rawPage string) (*models.User, *models.PostPage, error) {
	defer observability.TrackFeed("author")()
	span, ctx := observability.NewSpan(ctx, "feed.author",
		attribute.String("author.username", username),
		attribute.String("feed.page", rawPage),
	)
	defer span.End()

	author, err := s.userRepo.GetByUsername(ctx, username)
	if err != nil {
		span.SetError(err)
		return nil, nil, err
	}
	page, err := s.postRepo.ListByAuthor(ctx, author.ID, rawPage)
	if err != nil {
		span.SetError(err)
		return nil, nil, err
	}
	return author, page, nil
}

// FollowFeed returns a page of posts by the authors user follows.
func (s *FeedService) FollowFeed(ctx context.Context, user *models.User, rawPage string) (*models.PostPage, error) {
	if user == nil {
		return nil, models.NewUnauthorizedError("authentication required")
	}
	defer observability.TrackFeed("follow")()
	span, ctx := observability.NewSpan(ctx, "feed.follow",
		attribute.Int64("user.id", int64(user.ID)),
		attribute.String("feed.page", rawPage),
	)
	defer span.End()

	page, err := s.postRepo.ListFollowedBy(ctx, user.ID, rawPage)
	span.SetError(err)
	return page, err
}

// cachePageNumber is the page a raw parameter is cached under, parsed the
// same way the repository resolves it. Absent or non-integer input shares
// page 1's entry. Anything outside 1..MaxCachedFeedPage is not cached.
func cachePageNumber(raw string) (int, bool) {
	n, ok := pagination.ParseNumber(raw)
	if !ok {
		return 1, true
	}
	return n, n >= 1 && n <= MaxCachedFeedPage
}
