package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/isokofarm/isoko-backend/pkg/enums"
	pkgerrors "github.com/isokofarm/isoko-backend/pkg/errors"
)

// Service computes revenue summaries over paid orders.
type Service interface {
	Summary(ctx context.Context, input SummaryInput) (*Summary, error)
}

// SummaryInput scopes the revenue summary to one farmer, optionally windowed.
type SummaryInput struct {
	FarmerID uuid.UUID
	Since    *time.Time
}

// Summary is a farmer's paid revenue rollup.
type Summary struct {
	FarmerID   uuid.UUID         `json:"farmer_id"`
	OrderCount int64             `json:"order_count"`
	GrossCents int64             `json:"gross_cents"`
	Gross      decimal.Decimal   `json:"gross"`
	Categories []CategorySummary `json:"categories"`
}

// CategorySummary is one category's slice of paid revenue.
type CategorySummary struct {
	Category   enums.ListingCategory `json:"category"`
	GrossCents int64                 `json:"gross_cents"`
	Quantity   int64                 `json:"quantity"`
	Share      decimal.Decimal       `json:"share"`
}

type service struct {
	repo Repository
}

// NewService wires a ledger service with the provided repository.
func NewService(repo Repository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("ledger repository required")
	}
	return &service{repo: repo}, nil
}

var centsPerUnit = decimal.NewFromInt(100)

func (s *service) Summary(ctx context.Context, input SummaryInput) (*Summary, error) {
	if input.FarmerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeUnauthorized, "user identity missing")
	}

	totals, err := s.repo.PaidTotals(ctx, input.FarmerID, input.Since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate paid totals")
	}

	summary := &Summary{
		FarmerID:   input.FarmerID,
		OrderCount: totals.OrderCount,
		GrossCents: totals.GrossCents,
		Gross:      decimal.NewFromInt(totals.GrossCents).Div(centsPerUnit),
		Categories: []CategorySummary{},
	}
	if totals.GrossCents == 0 {
		return summary, nil
	}

	rows, err := s.repo.CategoryBreakdown(ctx, input.FarmerID, input.Since)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "aggregate category breakdown")
	}

	gross := decimal.NewFromInt(totals.GrossCents)
	for _, row := range rows {
		summary.Categories = append(summary.Categories, CategorySummary{
			Category:   row.Category,
			GrossCents: row.GrossCents,
			Quantity:   row.Quantity,
			Share:      decimal.NewFromInt(row.GrossCents).Div(gross).Round(4),
		})
	}
	return summary, nil
}
