// Package listing defines the sellable item of the marketplace and its
// persistence contract. Price fields are derived by the pricing package and
// written back explicitly before a listing is saved.
package listing

import (
	"context"
	"fmt"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/artisanedge/marketplace/internal/domain/pricing"
)

// Status is the lifecycle state of a listing.
type Status string

const (
	StatusActive       Status = "active"
	StatusInactive     Status = "inactive"
	StatusDiscontinued Status = "discontinued"
)

// Valid reports whether s is a known listing status.
func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusDiscontinued:
		return true
	}
	return false
}

var (
	// ErrNotFound is returned when a requested listing does not exist.
	ErrNotFound = errors.New("listing not found")
	// ErrInactive is returned when an operation requires an active listing.
	ErrInactive = errors.New("listing is not active")
)

// InsufficientStockError reports that a requested quantity exceeds what is
// available for a listing.
type InsufficientStockError struct {
	ListingID string
	Requested int
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for listing %s: requested %d, available %d",
		e.ListingID, e.Requested, e.Available)
}

// Listing is an item offered for sale by an artisan, individually or through
// a team. PayeeID is resolved at read time: the team's designated payee when
// TeamID is set, the artisan otherwise.
type Listing struct {
	ID          string
	ArtisanID   string
	TeamID      *string
	PayeeID     string
	Name        string
	Description string
	Category    string

	// Price tuple maintained by NormalizePricing. RawPrice is the legacy
	// single price column, kept in sync with SellingPrice.
	RawPrice        decimal.Decimal
	OriginalPrice   decimal.Decimal
	DiscountPercent *decimal.Decimal
	SellingPrice    decimal.Decimal
	CostPrice       *decimal.Decimal

	StockQuantity int
	Status        Status

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Team groups artisans selling under a shared banner. Proceeds for every
// listing owned by the team go to its designated payee.
type Team struct {
	ID        string
	Name      string
	PayeeID   string
	CreatedAt time.Time
}

// InStock reports whether the listing has any units available.
func (l *Listing) InStock() bool {
	return l.StockQuantity > 0
}

// NormalizePricing recomputes the derived price fields from the current raw
// inputs. Callers invoke it before persisting a listing; reapplying it to an
// already-normalized listing changes nothing.
func (l *Listing) NormalizePricing(b pricing.Bounds) error {
	var orig *decimal.Decimal
	if !l.OriginalPrice.IsZero() {
		orig = &l.OriginalPrice
	}

	n, err := pricing.Normalize(pricing.Input{
		RawPrice:        l.RawPrice,
		OriginalPrice:   orig,
		DiscountPercent: l.DiscountPercent,
		CostPrice:       l.CostPrice,
	}, b)
	if err != nil {
		return errors.Wrap(err, "normalize listing price")
	}

	l.RawPrice = n.RawPrice
	l.OriginalPrice = n.OriginalPrice
	l.DiscountPercent = n.DiscountPercent
	l.SellingPrice = n.SellingPrice
	l.CostPrice = n.CostPrice
	return nil
}

// Repository defines persistence operations for listings. Count and Latest
// back the connectivity diagnostic exposed by the health endpoints.
type Repository interface {
	List(ctx context.Context) ([]Listing, error)
	GetByID(ctx context.Context, id string) (*Listing, error)
	GetByIDs(ctx context.Context, ids []string) ([]Listing, error)
	Create(ctx context.Context, l *Listing) error
	Update(ctx context.Context, l *Listing) error
	Count(ctx context.Context) (int64, error)
	Latest(ctx context.Context) (*Listing, error)
}
