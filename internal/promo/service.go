package promo

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/comptamatch/backend-compta/internal/obs"
	"github.com/comptamatch/backend-compta/internal/store"
)

// Querier captures the database access required for promo evaluation.
type Querier interface {
	GetPromoByCode(ctx context.Context, code string) (store.PromoCode, error)
}

// Service loads promo rules and evaluates them against cart totals.
type Service struct {
	Q   Querier
	Now func() time.Time
}

// Options carry the evaluation context for a promo lookup.
type Options struct {
	Context        Context
	CategoryTotals map[string]int64
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Evaluate resolves the promo code and computes the discount for the given
// total. A nil Application with a nil error means the promo does not apply.
// Evaluation never mutates usage counters; settlement owns the increment.
func (s *Service) Evaluate(ctx context.Context, rawCode string, totalCents int64, opts Options) (*Application, error) {
	if s == nil || s.Q == nil {
		return nil, errors.New("promo service not configured")
	}
	if strings.TrimSpace(rawCode) == "" || totalCents <= 0 {
		countEvaluation("rejected")
		return nil, nil
	}
	code := CanonicalCode(rawCode)
	row, err := s.Q.GetPromoByCode(ctx, code)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			countEvaluation("unknown_code")
			return nil, nil
		}
		countEvaluation("error")
		return nil, err
	}
	if opts.Context == "" {
		opts.Context = ContextProduct
	}
	app := Evaluate(RuleFromModel(row), Input{
		TotalCents:     totalCents,
		Context:        opts.Context,
		CategoryTotals: opts.CategoryTotals,
	}, s.now())
	if app == nil {
		countEvaluation("rejected")
		return nil, nil
	}
	countEvaluation("applied")
	return app, nil
}

// RuleFromModel converts a stored promo row into an evaluation rule.
func RuleFromModel(p store.PromoCode) Rule {
	rule := Rule{
		Code:              p.Code,
		IsActive:          p.IsActive,
		TargetType:        ParseTargetType(p.TargetType),
		ProductCategoryID: store.UUIDString(p.ProductCategoryID),
		DiscountType:      strings.ToUpper(strings.TrimSpace(p.DiscountType)),
		DiscountValue:     p.DiscountValue,
		StartsAt:          store.TimePtr(p.StartsAt),
		EndsAt:            store.TimePtr(p.EndsAt),
		CurrentUses:       p.CurrentUses,
	}
	if p.MaxUses.Valid {
		limit := p.MaxUses.Int32
		rule.MaxUses = &limit
	}
	return rule
}

func countEvaluation(result string) {
	if obs.PromoEvaluationsTotal == nil {
		return
	}
	obs.PromoEvaluationsTotal.WithLabelValues(result).Inc()
}
