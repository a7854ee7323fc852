package handler

import "net/http"

type cartLineResponse struct {
	Listing  listingResponse `json:"listing"`
	Quantity int             `json:"quantity"`
	Subtotal float64         `json:"subtotal"`
}

type cartResponse struct {
	Lines       []cartLineResponse `json:"lines"`
	TotalPrice  float64            `json:"totalPrice"`
	ItemCount   int                `json:"itemCount"`
	UniqueCount int                `json:"uniqueCount"`
}

type addCartItemRequest struct {
	ListingID string `json:"listingId"`
	Quantity  int    `json:"quantity"`
}

type updateCartItemRequest struct {
	Quantity int `json:"quantity"`
}

// GetCart returns the buyer's cart summary.
func (h *Handler) GetCart(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	sum, err := h.carts.Summary(r.Context(), uid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	resp := cartResponse{
		Lines:       make([]cartLineResponse, len(sum.Lines)),
		TotalPrice:  sum.TotalPrice.InexactFloat64(),
		ItemCount:   sum.ItemCount,
		UniqueCount: sum.UniqueCount,
	}
	for i, line := range sum.Lines {
		resp.Lines[i] = cartLineResponse{
			Listing:  toListingResponse(line.Listing),
			Quantity: line.Quantity,
			Subtotal: line.Subtotal().InexactFloat64(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// AddCartItem adds (or merges) a listing into the buyer's cart.
func (h *Handler) AddCartItem(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.carts.AddOrMerge(r.Context(), uid, req.ListingID, req.Quantity); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// UpdateCartItem sets the quantity of a cart line; zero or less removes it.
func (h *Handler) UpdateCartItem(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req updateCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.carts.UpdateQuantity(r.Context(), uid, r.PathValue("listingID"), req.Quantity); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RemoveCartItem deletes one line from the buyer's cart.
func (h *Handler) RemoveCartItem(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	if err := h.carts.Remove(r.Context(), uid, r.PathValue("listingID")); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearCart empties the buyer's cart.
func (h *Handler) ClearCart(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	if err := h.carts.Clear(r.Context(), uid); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
