// Package handler exposes the marketplace core over a JSON HTTP API. The
// session layer in front of the service authenticates buyers and forwards
// their identity in the X-User-ID header; everything else is out of scope
// here.
package handler

import (
	"encoding/json"
	"net/http"

	"github.com/artisanedge/marketplace/internal/domain/cart"
	"github.com/artisanedge/marketplace/internal/domain/checkout"
	"github.com/artisanedge/marketplace/internal/domain/listing"
	"github.com/artisanedge/marketplace/internal/domain/pricing"
)

// Handler serves the marketplace API routes.
type Handler struct {
	listings listing.Repository
	carts    *cart.Service
	orders   *checkout.Service
	bounds   pricing.Bounds
}

// New constructs a Handler with the required domain dependencies.
func New(listings listing.Repository, carts *cart.Service, orders *checkout.Service, bounds pricing.Bounds) *Handler {
	return &Handler{
		listings: listings,
		carts:    carts,
		orders:   orders,
		bounds:   bounds,
	}
}

// Register attaches all API routes to mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/listings", h.ListListings)
	mux.HandleFunc("GET /api/listings/{id}", h.GetListing)
	mux.HandleFunc("POST /api/listings", h.CreateListing)
	mux.HandleFunc("PUT /api/listings/{id}", h.UpdateListing)

	mux.HandleFunc("GET /api/cart", h.GetCart)
	mux.HandleFunc("POST /api/cart/items", h.AddCartItem)
	mux.HandleFunc("PATCH /api/cart/items/{listingID}", h.UpdateCartItem)
	mux.HandleFunc("DELETE /api/cart/items/{listingID}", h.RemoveCartItem)
	mux.HandleFunc("DELETE /api/cart", h.ClearCart)

	mux.HandleFunc("POST /api/checkout", h.Checkout)
	mux.HandleFunc("GET /api/orders", h.ListOrders)
	mux.HandleFunc("GET /api/orders/{orderID}", h.GetOrder)
	mux.HandleFunc("PATCH /api/orders/{orderID}/status", h.UpdateOrderStatus)
}

// userID extracts the authenticated buyer from the request. An empty value
// means the request skipped the session layer.
func userID(r *http.Request) string {
	return r.Header.Get("X-User-ID")
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func decodeJSON(r *http.Request, v any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
