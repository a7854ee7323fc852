package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/artisanedge/marketplace/internal/domain/listing"
)

// Service implements the cart operations exposed to the session layer.
// Stock checks here are point-in-time guards against obviously stale
// requests; the binding reservation happens at checkout.
type Service struct {
	carts    Repository
	listings listing.Repository
	now      func() time.Time
}

// NewService creates a cart Service.
func NewService(carts Repository, listings listing.Repository) *Service {
	return &Service{
		carts:    carts,
		listings: listings,
		now:      time.Now,
	}
}

// AddOrMerge adds qty units of a listing to the buyer's cart. When a line
// for the listing already exists its quantity is incremented instead of a
// second line being created.
func (s *Service) AddOrMerge(ctx context.Context, userID, listingID string, qty int) error {
	if qty < 1 {
		return ErrInvalidQuantity
	}

	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if l.Status != listing.StatusActive {
		return listing.ErrInactive
	}
	if qty > l.StockQuantity {
		return &listing.InsufficientStockError{
			ListingID: listingID,
			Requested: qty,
			Available: l.StockQuantity,
		}
	}

	now := s.now()
	line := Line{
		UserID:    userID,
		ListingID: listingID,
		Quantity:  qty,
		AddedAt:   now,
		UpdatedAt: now,
	}

	existing, err := s.carts.GetLine(ctx, userID, listingID)
	switch {
	case err == nil:
		line.Quantity = existing.Quantity + qty
		line.AddedAt = existing.AddedAt
	case errors.Is(err, ErrLineNotFound):
		// First addition of this listing.
	default:
		return errors.Wrap(err, "get cart line")
	}

	if err := s.carts.UpsertLine(ctx, line); err != nil {
		return errors.Wrap(err, "upsert cart line")
	}
	return nil
}

// UpdateQuantity sets the line quantity for a listing. A non-positive
// quantity removes the line.
func (s *Service) UpdateQuantity(ctx context.Context, userID, listingID string, qty int) error {
	if qty <= 0 {
		if err := s.carts.DeleteLine(ctx, userID, listingID); err != nil {
			return errors.Wrap(err, "delete cart line")
		}
		return nil
	}

	l, err := s.listings.GetByID(ctx, listingID)
	if err != nil {
		return err
	}
	if qty > l.StockQuantity {
		return &listing.InsufficientStockError{
			ListingID: listingID,
			Requested: qty,
			Available: l.StockQuantity,
		}
	}

	existing, err := s.carts.GetLine(ctx, userID, listingID)
	if err != nil {
		if errors.Is(err, ErrLineNotFound) {
			return ErrLineNotFound
		}
		return errors.Wrap(err, "get cart line")
	}

	existing.Quantity = qty
	existing.UpdatedAt = s.now()
	if err := s.carts.UpsertLine(ctx, *existing); err != nil {
		return errors.Wrap(err, "upsert cart line")
	}
	return nil
}

// Remove deletes the line for a listing, if any.
func (s *Service) Remove(ctx context.Context, userID, listingID string) error {
	if err := s.carts.DeleteLine(ctx, userID, listingID); err != nil {
		return errors.Wrap(err, "delete cart line")
	}
	return nil
}

// Clear removes every line from the buyer's cart.
func (s *Service) Clear(ctx context.Context, userID string) error {
	if err := s.carts.Clear(ctx, userID); err != nil {
		return errors.Wrap(err, "clear cart")
	}
	return nil
}

// Summary returns the buyer's cart lines joined with their listings, plus
// the aggregate totals.
func (s *Service) Summary(ctx context.Context, userID string) (*Summary, error) {
	lines, err := s.carts.Lines(ctx, userID)
	if err != nil {
		return nil, errors.Wrap(err, "load cart lines")
	}

	sum := &Summary{
		TotalPrice:  decimal.Zero,
		UniqueCount: len(lines),
	}
	if len(lines) == 0 {
		return sum, nil
	}

	ids := make([]string, len(lines))
	for i, line := range lines {
		ids[i] = line.ListingID
	}

	fetched, err := s.listings.GetByIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "load cart listings")
	}
	byID := make(map[string]listing.Listing, len(fetched))
	for _, l := range fetched {
		byID[l.ID] = l
	}

	for _, line := range lines {
		l, ok := byID[line.ListingID]
		if !ok {
			return nil, errors.Wrapf(listing.ErrNotFound, "cart references listing %s", line.ListingID)
		}
		dl := DetailedLine{Listing: l, Quantity: line.Quantity}
		sum.Lines = append(sum.Lines, dl)
		sum.TotalPrice = sum.TotalPrice.Add(dl.Subtotal())
		sum.ItemCount += line.Quantity
	}

	return sum, nil
}
