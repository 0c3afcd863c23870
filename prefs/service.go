package prefs

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"github.com/Giriprasad013-git/modern-blog/cache"
)

// DefaultSubscriptionType is used when Subscribe is called without a type.
const DefaultSubscriptionType = "newsletter"

// Service implements the per-device operations. Preference reads are served
// from a cache; every write drops the device's cache entry.
type Service struct {
	repo   Repository
	cache  cache.Cache
	ttl    time.Duration
	logger *zap.Logger
	now    func() time.Time
}

// NewService wires a Service. A nil cache disables caching.
func NewService(repo Repository, c cache.Cache, ttl time.Duration, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		repo:   repo,
		cache:  c,
		ttl:    ttl,
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func cacheKey(deviceID string) string {
	return "prefs:" + deviceID
}

func (s *Service) invalidate(ctx context.Context, deviceID string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, cacheKey(deviceID)); err != nil {
		s.logger.Warn("drop cached preferences", zap.String("device_id", deviceID), zap.Error(err))
	}
}

func checkDevice(deviceID string) error {
	if !ValidDeviceID(deviceID) {
		return ErrInvalidDevice
	}
	return nil
}

// Load registers the device as seen and returns its profile, creating
// default preferences on first contact.
func (s *Service) Load(ctx context.Context, deviceID string) (Profile, error) {
	if err := checkDevice(deviceID); err != nil {
		return Profile{}, err
	}
	now := s.now()
	dev, err := s.repo.TouchDevice(ctx, deviceID, now)
	if err != nil {
		return Profile{}, err
	}
	p, err := s.Preferences(ctx, deviceID)
	if err != nil {
		return Profile{}, err
	}
	return Profile{Device: dev, Preferences: p, NewsletterDue: dev.NewsletterDue(now)}, nil
}

// Preferences returns the device's preferences through the cache.
func (s *Service) Preferences(ctx context.Context, deviceID string) (Preferences, error) {
	if err := checkDevice(deviceID); err != nil {
		return Preferences{}, err
	}
	if s.cache != nil {
		var p Preferences
		ok, err := s.cache.Get(ctx, cacheKey(deviceID), &p)
		if err != nil {
			s.logger.Warn("read cached preferences", zap.String("device_id", deviceID), zap.Error(err))
		} else if ok {
			return p, nil
		}
	}
	p, err := s.stored(ctx, deviceID)
	if err != nil {
		return Preferences{}, err
	}
	if s.cache != nil {
		if err := s.cache.Set(ctx, cacheKey(deviceID), p, s.ttl); err != nil {
			s.logger.Warn("cache preferences", zap.String("device_id", deviceID), zap.Error(err))
		}
	}
	return p, nil
}

// stored reads the preference row, creating it with defaults if absent.
func (s *Service) stored(ctx context.Context, deviceID string) (Preferences, error) {
	p, err := s.repo.GetPreferences(ctx, deviceID)
	if err == nil {
		return p, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return Preferences{}, err
	}
	p = DefaultPreferences(deviceID)
	if err := s.repo.SavePreferences(ctx, &p); err != nil {
		return Preferences{}, err
	}
	return p, nil
}

// modify applies fn to the stored preferences and persists the result.
func (s *Service) modify(ctx context.Context, deviceID string, fn func(*Preferences)) (Preferences, error) {
	if err := checkDevice(deviceID); err != nil {
		return Preferences{}, err
	}
	p, err := s.stored(ctx, deviceID)
	if err != nil {
		return Preferences{}, err
	}
	fn(&p)
	if err := s.repo.SavePreferences(ctx, &p); err != nil {
		return Preferences{}, err
	}
	s.invalidate(ctx, deviceID)
	return p, nil
}

// Save applies a partial update.
func (s *Service) Save(ctx context.Context, deviceID string, u Update) (Preferences, error) {
	if err := u.validate(); err != nil {
		return Preferences{}, err
	}
	return s.modify(ctx, deviceID, u.apply)
}

func (s *Service) AddBookmark(ctx context.Context, deviceID, slug string) (Preferences, error) {
	return s.modify(ctx, deviceID, func(p *Preferences) {
		p.BookmarkedPosts = union(p.BookmarkedPosts, []string{slug})
	})
}

func (s *Service) RemoveBookmark(ctx context.Context, deviceID, slug string) (Preferences, error) {
	return s.modify(ctx, deviceID, func(p *Preferences) {
		p.BookmarkedPosts = without(p.BookmarkedPosts, slug)
	})
}

// ToggleBookmark adds slug when absent and removes it otherwise. It reports
// whether the post is bookmarked afterwards.
func (s *Service) ToggleBookmark(ctx context.Context, deviceID, slug string) (bool, Preferences, error) {
	var added bool
	p, err := s.modify(ctx, deviceID, func(p *Preferences) {
		if p.BookmarkedPosts.Contains(slug) {
			p.BookmarkedPosts = without(p.BookmarkedPosts, slug)
			return
		}
		p.BookmarkedPosts = union(p.BookmarkedPosts, []string{slug})
		added = true
	})
	return added, p, err
}

func (s *Service) AddToReadingList(ctx context.Context, deviceID, slug string) (Preferences, error) {
	return s.modify(ctx, deviceID, func(p *Preferences) {
		p.ReadingList = union(p.ReadingList, []string{slug})
	})
}

func (s *Service) RemoveFromReadingList(ctx context.Context, deviceID, slug string) (Preferences, error) {
	return s.modify(ctx, deviceID, func(p *Preferences) {
		p.ReadingList = without(p.ReadingList, slug)
	})
}

func (s *Service) UpdateNotifications(ctx context.Context, deviceID string, n Notifications) (Preferences, error) {
	return s.modify(ctx, deviceID, func(p *Preferences) { p.Notifications = n })
}

func (s *Service) UpdatePreferredCategories(ctx context.Context, deviceID string, categories []string) (Preferences, error) {
	return s.modify(ctx, deviceID, func(p *Preferences) { p.PreferredCategories = union(nil, categories) })
}

// Adopt merges the lists of an anonymous device into the signed-in user's
// preferences and removes the anonymous row. It is a no-op when the
// anonymous device has no preferences.
func (s *Service) Adopt(ctx context.Context, anonymousID, userID string) error {
	if anonymousID == "" || anonymousID == userID || !ValidDeviceID(anonymousID) {
		return nil
	}
	anon, err := s.repo.GetPreferences(ctx, anonymousID)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if _, err := s.modify(ctx, userID, func(p *Preferences) {
		p.BookmarkedPosts = union(p.BookmarkedPosts, anon.BookmarkedPosts)
		p.ReadingList = union(p.ReadingList, anon.ReadingList)
		p.PreferredCategories = union(p.PreferredCategories, anon.PreferredCategories)
	}); err != nil {
		return err
	}
	if err := s.repo.DeletePreferences(ctx, anonymousID); err != nil {
		return err
	}
	s.invalidate(ctx, anonymousID)
	s.logger.Info("adopted anonymous preferences", zap.String("device_id", anonymousID), zap.String("user_id", userID))
	return nil
}

// Subscribe records a newsletter subscription for the device.
func (s *Service) Subscribe(ctx context.Context, deviceID, email, kind string) (Device, error) {
	if err := checkDevice(deviceID); err != nil {
		return Device{}, err
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return Device{}, &ValidationError{Field: "email", Reason: "is not a valid address"}
	}
	if kind = strings.TrimSpace(kind); kind == "" {
		kind = DefaultSubscriptionType
	}
	now := s.now()
	if _, err := s.repo.TouchDevice(ctx, deviceID, now); err != nil {
		return Device{}, err
	}
	if err := s.repo.SetSubscription(ctx, deviceID, strings.ToLower(addr.Address), kind, now); err != nil {
		return Device{}, err
	}
	return s.repo.GetDevice(ctx, deviceID)
}

// DismissNewsletter hides the newsletter prompt for a week.
func (s *Service) DismissNewsletter(ctx context.Context, deviceID string) error {
	if err := checkDevice(deviceID); err != nil {
		return err
	}
	now := s.now()
	if _, err := s.repo.TouchDevice(ctx, deviceID, now); err != nil {
		return err
	}
	return s.repo.SetNewsletterDismissed(ctx, deviceID, now)
}

// NewsletterDue reports whether the device should see the newsletter prompt.
func (s *Service) NewsletterDue(ctx context.Context, deviceID string) (bool, error) {
	dev, err := s.repo.GetDevice(ctx, deviceID)
	if errors.Is(err, ErrNotFound) {
		return true, nil
	}
	if err != nil {
		return false, err
	}
	return dev.NewsletterDue(s.now()), nil
}

// Rate stores a 1 to 5 star rating.
func (s *Service) Rate(ctx context.Context, deviceID, slug string, stars int) (RatingSummary, error) {
	if err := checkDevice(deviceID); err != nil {
		return RatingSummary{}, err
	}
	if stars < 1 || stars > 5 {
		return RatingSummary{}, &ValidationError{Field: "rating", Reason: "must be between 1 and 5"}
	}
	if err := s.repo.SetRating(ctx, deviceID, slug, stars, s.now()); err != nil {
		return RatingSummary{}, err
	}
	return s.Rating(ctx, deviceID, slug)
}

// MarkHelpful records whether the device found the article helpful.
func (s *Service) MarkHelpful(ctx context.Context, deviceID, slug string, helpful bool) (RatingSummary, error) {
	if err := checkDevice(deviceID); err != nil {
		return RatingSummary{}, err
	}
	if err := s.repo.SetHelpful(ctx, deviceID, slug, helpful, s.now()); err != nil {
		return RatingSummary{}, err
	}
	return s.Rating(ctx, deviceID, slug)
}

// Rating returns the device's own rating of slug and the article average.
func (s *Service) Rating(ctx context.Context, deviceID, slug string) (RatingSummary, error) {
	sum := RatingSummary{Slug: slug}
	own, err := s.repo.GetRating(ctx, deviceID, slug)
	switch {
	case err == nil:
		sum.Rating, sum.Helpful = own.Rating, own.Helpful
	case !errors.Is(err, ErrNotFound):
		return RatingSummary{}, err
	}
	sum.Average, sum.Count, err = s.repo.AverageRating(ctx, slug)
	if err != nil {
		return RatingSummary{}, err
	}
	return sum, nil
}

// Totals counts bookmarks, reading-list entries and subscribers.
func (s *Service) Totals(ctx context.Context) (Totals, error) {
	all, err := s.repo.ListPreferences(ctx)
	if err != nil {
		return Totals{}, err
	}
	var t Totals
	for _, p := range all {
		t.Bookmarks += len(p.BookmarkedPosts)
		t.ReadingList += len(p.ReadingList)
	}
	t.Subscribers, err = s.repo.CountSubscribers(ctx)
	if err != nil {
		return Totals{}, err
	}
	return t, nil
}
