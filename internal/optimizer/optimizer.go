// Package optimizer ingests model-produced suggestions and applies them to
// budgets at most once.
package optimizer

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/theirongolddev/bopt/internal/config"
	"github.com/theirongolddev/bopt/internal/ledger"
	"github.com/theirongolddev/bopt/internal/logging"
	"github.com/theirongolddev/bopt/internal/model"
	"github.com/theirongolddev/bopt/internal/store"
)

// DefaultThreshold is the minimum confidence an applied suggestion needs.
const DefaultThreshold = 0.7

// Locker serializes writes to one budget. *ledger.Service satisfies it.
type Locker interface {
	Lock(budgetID string) (unlock func())
}

// Options tunes the applier.
type Options struct {
	// Threshold is inclusive: a suggestion at exactly Threshold applies.
	Threshold float64
	Now       func() time.Time
	Logger    *zap.Logger
}

// Service ingests and applies suggestions.
type Service struct {
	store store.Store
	locks Locker
	opts  Options
	log   *zap.Logger
}

// New creates an applier. locks must be the ledger's own locker so applies
// and expense posts on the same budget never interleave.
func New(st store.Store, locks Locker, opts Options) *Service {
	if opts.Threshold <= 0 {
		opts.Threshold = DefaultThreshold
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{store: st, locks: locks, opts: opts, log: logging.OrNop(opts.Logger).Named("optimizer")}
}

// NewSuggestion is raw model output to ingest.
type NewSuggestion struct {
	UserID     string
	BudgetID   string
	Type       model.SuggestionType
	Confidence float64
	Payload    []byte
}

// Ingest stores a new pending suggestion. Missing payload fields are
// tolerated; a payload that is not a JSON object of the expected shape
// fails with ErrInvalidPayload.
func (s *Service) Ingest(ctx context.Context, in NewSuggestion) (model.Suggestion, error) {
	if strings.TrimSpace(in.UserID) == "" {
		return model.Suggestion{}, model.Invalid("user_id", "required", nil)
	}
	if math.IsNaN(in.Confidence) || in.Confidence < 0 || in.Confidence > 1 {
		return model.Suggestion{}, model.Invalid("confidence", "must be between 0 and 1", in.Confidence)
	}
	typ, err := model.ParseSuggestionType(string(in.Type))
	if err != nil {
		return model.Suggestion{}, err
	}
	payload, err := model.DecodePayload(in.Payload)
	if err != nil {
		return model.Suggestion{}, err
	}

	sg := model.Suggestion{
		ID:         uuid.NewString(),
		UserID:     in.UserID,
		BudgetID:   in.BudgetID,
		Type:       typ,
		Confidence: in.Confidence,
		Payload:    payload,
		CreatedAt:  s.opts.Now(),
	}
	if len(strings.TrimSpace(string(in.Payload))) > 0 {
		sg.Raw = json.RawMessage(append([]byte(nil), in.Payload...))
	}

	err = s.store.Update(ctx, func(w store.Writer) error {
		if sg.BudgetID != "" {
			if _, err := w.Budget(ctx, sg.BudgetID); err != nil {
				return err
			}
		}
		return w.PutSuggestion(ctx, sg)
	})
	if err != nil {
		return model.Suggestion{}, err
	}
	s.log.Info("suggestion ingested", zap.String("suggestion_id", sg.ID), zap.String("budget_id", sg.BudgetID),
		zap.String("type", string(sg.Type)), zap.Float64("confidence", sg.Confidence))
	return sg, nil
}

// Applied describes what an apply changed.
type Applied struct {
	Suggestion   model.Suggestion
	Limits       []model.CategoryLimit
	TotalChanged bool
}

// Apply commits a suggestion's limits and optimized total to its budget and
// marks it applied, all in one transaction. Nothing changes on error.
func (s *Service) Apply(ctx context.Context, suggestionID string) (Applied, error) {
	sg, err := s.store.Suggestion(ctx, suggestionID)
	if err != nil {
		return Applied{}, err
	}
	if err := s.precheck(sg); err != nil {
		return Applied{}, err
	}

	key := sg.BudgetID
	if key == "" {
		key = "suggestion:" + sg.ID
	}
	unlock := s.locks.Lock(key)
	defer unlock()

	var out Applied
	var skippedTotal bool
	err = s.store.Update(ctx, func(w store.Writer) error {
		// re-read under the lock; a concurrent apply may have won
		sg, err := w.Suggestion(ctx, suggestionID)
		if err != nil {
			return err
		}
		if err := s.precheck(sg); err != nil {
			return err
		}
		now := s.opts.Now()
		out = Applied{}

		if sg.BudgetID == "" {
			if len(sg.Payload.SuggestedCategoryLimits) > 0 {
				return model.Invalid("budget_id", "required to apply category limits", nil)
			}
		} else {
			l, err := w.Ledger(ctx, sg.BudgetID)
			if err != nil {
				return err
			}
			if l.Budget.Status.Terminal() {
				return fmt.Errorf("%w: budget %s is %s", model.ErrBudgetNotEditable, l.Budget.ID, l.Budget.Status)
			}
			for _, cat := range sg.LimitCategories() {
				amt := sg.Payload.SuggestedCategoryLimits[cat]
				if err := ledger.CheckAllocation(ctx, w, cat, amt); err != nil {
					return fmt.Errorf("limit %q: %w", cat, err)
				}
				lim := ledger.UpsertLimit(&l, cat, amt, now)
				if err := w.PutLimit(ctx, lim); err != nil {
					return err
				}
				out.Limits = append(out.Limits, lim)
			}
			if total, ok := sg.OptimizedTotal(); ok {
				if l.Budget.Status.Editable() && total.IsPositive() {
					l.Budget.Total = total
					l.Budget.UpdatedAt = now
					if err := w.PutBudget(ctx, l.Budget); err != nil {
						return err
					}
					out.TotalChanged = true
				} else {
					skippedTotal = true
				}
			}
		}

		sg.Applied = true
		sg.AppliedAt = &now
		out.Suggestion = sg
		return w.PutSuggestion(ctx, sg)
	})
	if err != nil {
		s.log.Warn("apply failed", zap.String("suggestion_id", suggestionID), zap.Error(err))
		return Applied{}, err
	}
	if skippedTotal {
		s.log.Info("optimized total not applied", zap.String("suggestion_id", suggestionID),
			zap.String("budget_id", sg.BudgetID))
	}
	s.log.Info("suggestion applied", zap.String("suggestion_id", suggestionID), zap.String("budget_id", sg.BudgetID),
		zap.Int("limits", len(out.Limits)), zap.Bool("total_changed", out.TotalChanged))
	return out, nil
}

func (s *Service) precheck(sg model.Suggestion) error {
	if sg.Applied {
		return fmt.Errorf("%w: %s", model.ErrAlreadyApplied, sg.ID)
	}
	if sg.Confidence < s.opts.Threshold {
		return fmt.Errorf("%w: %.2f below %.2f", model.ErrLowConfidence, sg.Confidence, s.opts.Threshold)
	}
	return nil
}

// Get loads one suggestion.
func (s *Service) Get(ctx context.Context, id string) (model.Suggestion, error) {
	return s.store.Suggestion(ctx, id)
}

// List returns suggestions most urgent first, newest first within a priority.
func (s *Service) List(ctx context.Context, f store.SuggestionFilter) ([]model.Suggestion, error) {
	out, err := s.store.Suggestions(ctx, f)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		pi, pj := config.Priority(out[i].Type), config.Priority(out[j].Type)
		if pi != pj {
			return pi < pj
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Applicable reports whether a suggestion would pass the apply guards.
func (s *Service) Applicable(sg model.Suggestion) bool {
	return s.precheck(sg) == nil
}

// Threshold returns the effective confidence threshold.
func (s *Service) Threshold() float64 { return s.opts.Threshold }
