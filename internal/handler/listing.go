package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/artisanedge/marketplace/internal/domain/listing"
	"github.com/artisanedge/marketplace/internal/domain/pricing"
)

type listingResponse struct {
	ID              string   `json:"id"`
	Name            string   `json:"name"`
	Description     string   `json:"description,omitempty"`
	Category        string   `json:"category,omitempty"`
	OriginalPrice   float64  `json:"originalPrice"`
	DiscountPercent *float64 `json:"discountPercent,omitempty"`
	SellingPrice    float64  `json:"sellingPrice"`
	StockQuantity   int      `json:"stockQuantity"`
	Status          string   `json:"status"`
}

func toListingResponse(l listing.Listing) listingResponse {
	resp := listingResponse{
		ID:            l.ID,
		Name:          l.Name,
		Description:   l.Description,
		Category:      l.Category,
		OriginalPrice: l.OriginalPrice.InexactFloat64(),
		SellingPrice:  l.SellingPrice.InexactFloat64(),
		StockQuantity: l.StockQuantity,
		Status:        string(l.Status),
	}
	if l.DiscountPercent != nil {
		d := l.DiscountPercent.InexactFloat64()
		resp.DiscountPercent = &d
	}
	return resp
}

// ListListings returns the full catalog.
func (h *Handler) ListListings(w http.ResponseWriter, r *http.Request) {
	listings, err := h.listings.List(r.Context())
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]listingResponse, len(listings))
	for i, l := range listings {
		out[i] = toListingResponse(l)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetListing returns one listing by ID.
func (h *Handler) GetListing(w http.ResponseWriter, r *http.Request) {
	l, err := h.listings.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(*l))
}

type saveListingRequest struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	Price           float64  `json:"price"`
	OriginalPrice   *float64 `json:"originalPrice"`
	DiscountPercent *float64 `json:"discountPercent"`
	CostPrice       *float64 `json:"costPrice"`
	StockQuantity   int      `json:"stockQuantity"`
	Status          string   `json:"status"`
	TeamID          *string  `json:"teamId"`
}

// applyTo copies the request onto a listing and recomputes its derived
// price fields.
func (req saveListingRequest) applyTo(l *listing.Listing, b pricing.Bounds) error {
	l.Name = req.Name
	l.Description = req.Description
	l.Category = req.Category
	l.TeamID = req.TeamID
	l.StockQuantity = req.StockQuantity

	l.Status = listing.StatusActive
	if req.Status != "" {
		l.Status = listing.Status(req.Status)
	}
	if !l.Status.Valid() {
		return errors.Errorf("unknown listing status: %q", req.Status)
	}

	l.RawPrice = decimal.NewFromFloat(req.Price)
	l.OriginalPrice = decimal.Zero
	if req.OriginalPrice != nil {
		l.OriginalPrice = decimal.NewFromFloat(*req.OriginalPrice)
	}
	l.DiscountPercent = nil
	if req.DiscountPercent != nil {
		d := decimal.NewFromFloat(*req.DiscountPercent)
		l.DiscountPercent = &d
	}
	l.CostPrice = nil
	if req.CostPrice != nil {
		c := decimal.NewFromFloat(*req.CostPrice)
		l.CostPrice = &c
	}

	return l.NormalizePricing(b)
}

// CreateListing creates a listing owned by the calling artisan. Prices are
// normalized before the row is written.
func (h *Handler) CreateListing(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req saveListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l := listing.Listing{
		ID:        uuid.New().String(),
		ArtisanID: uid,
	}
	if err := req.applyTo(&l, h.bounds); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.listings.Create(r.Context(), &l); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toListingResponse(l))
}

// UpdateListing rewrites a listing, renormalizing its prices.
func (h *Handler) UpdateListing(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req saveListingRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	l, err := h.listings.GetByID(r.Context(), r.PathValue("id"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	if l.ArtisanID != uid {
		writeError(w, http.StatusForbidden, "listing belongs to another artisan")
		return
	}

	if err := req.applyTo(l, h.bounds); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.listings.Update(r.Context(), l); err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toListingResponse(*l))
}
