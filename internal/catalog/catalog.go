// Package catalog manages categories, businesses and their reviews. A
// business's rating is a cache of its review average and is rewritten on
// every review change.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/theirongolddev/bopt/internal/geo"
	"github.com/theirongolddev/bopt/internal/logging"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/store"
)

// Service is the catalog registry.
type Service struct {
	store store.Store
	log   *zap.Logger
	now   func() time.Time
}

// New creates a catalog over st.
func New(st store.Store, log *zap.Logger) *Service {
	return &Service{store: st, log: logging.OrNop(log).Named("catalog"), now: time.Now}
}

// AddCategory creates or replaces a category.
func (s *Service) AddCategory(ctx context.Context, c model.Category) (model.Category, error) {
	c.Name = strings.TrimSpace(c.Name)
	if c.Name == "" {
		return c, model.Invalid("name", "required", nil)
	}
	if c.Usage == "" {
		c.Usage = model.UsageBoth
	}
	if _, err := model.ParseCategoryUsage(string(c.Usage)); err != nil {
		return c, err
	}
	if c.BusinessType != "" {
		if _, err := model.ParseBusinessType(string(c.BusinessType)); err != nil {
			return c, err
		}
	}
	err := s.store.Update(ctx, func(w store.Writer) error { return w.PutCategory(ctx, c) })
	return c, err
}

// Categories lists every category.
func (s *Service) Categories(ctx context.Context) ([]model.Category, error) {
	return s.store.Categories(ctx)
}

// NewBusiness describes a business to register.
type NewBusiness struct {
	Name       string
	Type       model.BusinessType
	Location   geo.Coordinate
	Address    string
	City       string
	Country    string
	Price      model.PriceRange
	Categories []string
}

// AddBusiness validates and registers an active business with no reviews.
func (s *Service) AddBusiness(ctx context.Context, in NewBusiness) (model.Business, error) {
	if strings.TrimSpace(in.Name) == "" {
		return model.Business{}, model.Invalid("name", "required", nil)
	}
	if _, err := model.ParseBusinessType(string(in.Type)); err != nil {
		return model.Business{}, err
	}
	if err := in.Location.Validate(); err != nil {
		return model.Business{}, model.Invalid("location", err.Error(), in.Location.String())
	}
	if err := in.Price.Validate(); err != nil {
		return model.Business{}, err
	}

	b := model.Business{
		ID:         uuid.NewString(),
		Name:       strings.TrimSpace(in.Name),
		Type:       in.Type,
		Location:   in.Location,
		Address:    in.Address,
		City:       in.City,
		Country:    in.Country,
		Price:      in.Price,
		Categories: dedupe(in.Categories),
		Active:     true,
		CreatedAt:  s.now(),
	}
	if b.Price.Avg.IsZero() {
		b.Price.Avg = b.Price.Midpoint()
	}

	err := s.store.Update(ctx, func(w store.Writer) error {
		for _, name := range b.Categories {
			c, err := w.Category(ctx, name)
			if err != nil {
				return err
			}
			if !c.ForBusinesses() {
				return model.Invalid("categories", "not usable for businesses", name)
			}
		}
		return w.PutBusiness(ctx, b)
	})
	if err != nil {
		return model.Business{}, err
	}
	s.log.Info("business added", zap.String("business_id", b.ID), zap.String("name", b.Name))
	return b, nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, v := range in {
		v = strings.TrimSpace(v)
		if v == "" || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// SetActive toggles whether a business is offered by the matcher.
func (s *Service) SetActive(ctx context.Context, businessID string, active bool) (model.Business, error) {
	var out model.Business
	err := s.store.Update(ctx, func(w store.Writer) error {
		b, err := w.Business(ctx, businessID)
		if err != nil {
			return err
		}
		b.Active = active
		out = b
		return w.PutBusiness(ctx, b)
	})
	return out, err
}

// Business loads one business.
func (s *Service) Business(ctx context.Context, id string) (model.Business, error) {
	return s.store.Business(ctx, id)
}

// Snapshot returns every business, active or not, for matching.
func (s *Service) Snapshot(ctx context.Context) ([]model.Business, error) {
	return s.store.Businesses(ctx, false)
}

// NewReview describes a review to record.
type NewReview struct {
	BusinessID string
	UserID     string
	Score      int
	Comment    string
	Verified   bool
	At         time.Time
}

// AddReview records a review and recomputes the business rating.
func (s *Service) AddReview(ctx context.Context, in NewReview) (model.Review, error) {
	if err := model.ValidateScore(in.Score); err != nil {
		return model.Review{}, err
	}
	if strings.TrimSpace(in.UserID) == "" {
		return model.Review{}, model.Invalid("user_id", "required", nil)
	}
	r := model.Review{
		ID:         uuid.NewString(),
		BusinessID: in.BusinessID,
		UserID:     in.UserID,
		Score:      in.Score,
		Comment:    in.Comment,
		Verified:   in.Verified,
		At:         in.At,
	}
	if r.At.IsZero() {
		r.At = s.now()
	}

	err := s.store.Update(ctx, func(w store.Writer) error {
		if err := w.PutReview(ctx, r); err != nil {
			return err
		}
		return rerate(ctx, w, r.BusinessID)
	})
	if err != nil {
		return model.Review{}, err
	}
	return r, nil
}

// RemoveReview deletes a review and recomputes the business rating.
func (s *Service) RemoveReview(ctx context.Context, reviewID string) error {
	return s.store.Update(ctx, func(w store.Writer) error {
		r, err := w.Review(ctx, reviewID)
		if err != nil {
			return err
		}
		if err := w.DeleteReview(ctx, reviewID); err != nil {
			return err
		}
		return rerate(ctx, w, r.BusinessID)
	})
}

// Reviews lists a business's reviews, oldest first.
func (s *Service) Reviews(ctx context.Context, businessID string) ([]model.Review, error) {
	return s.store.Reviews(ctx, businessID)
}

// rerate rewrites the cached rating from the current review set.
func rerate(ctx context.Context, w store.Writer, businessID string) error {
	b, err := w.Business(ctx, businessID)
	if err != nil {
		return err
	}
	reviews, err := w.Reviews(ctx, businessID)
	if err != nil {
		return err
	}
	b.Rating = model.AverageRating(reviews)
	b.Reviews = len(reviews)
	return w.PutBusiness(ctx, b)
}

// ReviewStats summarizes a review set.
type ReviewStats struct {
	Count    int
	Positive int
	Recent   int
	Verified int
	Average  *float64
}

// Stats summarizes a business's reviews, counting those after cutoff as recent.
func (s *Service) Stats(ctx context.Context, businessID string, cutoff time.Time) (ReviewStats, error) {
	reviews, err := s.store.Reviews(ctx, businessID)
	if err != nil {
		return ReviewStats{}, err
	}
	st := ReviewStats{Count: len(reviews), Average: model.AverageRating(reviews)}
	for _, r := range reviews {
		if r.Positive() {
			st.Positive++
		}
		if r.RecentSince(cutoff) {
			st.Recent++
		}
		if r.Verified {
			st.Verified++
		}
	}
	return st, nil
}
