// Package cart holds a buyer's pending line items and computes their totals
// from the listings' normalized selling prices.
package cart

import (
	"context"
	"time"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/artisanedge/marketplace/internal/domain/listing"
)

// ErrInvalidQuantity is returned when an add or update requests a
// non-positive quantity where one is required.
var ErrInvalidQuantity = errors.New("quantity must be greater than 0")

// Line is one (buyer, listing, quantity) tuple. A cart holds at most one
// line per listing; repeated additions merge into it.
type Line struct {
	UserID    string
	ListingID string
	Quantity  int
	AddedAt   time.Time
	UpdatedAt time.Time
}

// DetailedLine is a cart line joined with its listing for display and
// total computation.
type DetailedLine struct {
	Listing  listing.Listing
	Quantity int
}

// Subtotal returns sellingPrice × quantity for this line.
func (l DetailedLine) Subtotal() decimal.Decimal {
	return l.Listing.SellingPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

// Summary is the aggregated view of a buyer's cart.
type Summary struct {
	Lines       []DetailedLine
	TotalPrice  decimal.Decimal
	ItemCount   int
	UniqueCount int
}

// Repository defines per-user cart line persistence. Lines are keyed by
// (user, listing); UpsertLine replaces the quantity of an existing line.
type Repository interface {
	Lines(ctx context.Context, userID string) ([]Line, error)
	GetLine(ctx context.Context, userID, listingID string) (*Line, error)
	UpsertLine(ctx context.Context, line Line) error
	DeleteLine(ctx context.Context, userID, listingID string) error
	Clear(ctx context.Context, userID string) error
}

// ErrLineNotFound is returned by Repository.GetLine when the buyer has no
// line for the listing.
var ErrLineNotFound = errors.New("cart line not found")
