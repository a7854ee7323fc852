package handler

import (
	"net/http"
	"time"

	"github.com/artisanedge/marketplace/internal/domain/checkout"
)

type shippingRequest struct {
	Name       string `json:"name"`
	Email      string `json:"email"`
	Phone      string `json:"phone"`
	Address    string `json:"address"`
	City       string `json:"city"`
	State      string `json:"state"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

type checkoutRequest struct {
	Shipping shippingRequest `json:"shipping"`
}

type orderLineResponse struct {
	ListingID   string  `json:"listingId"`
	ListingName string  `json:"listingName"`
	UnitPrice   float64 `json:"unitPrice"`
	Quantity    int     `json:"quantity"`
	Subtotal    float64 `json:"subtotal"`
}

type orderResponse struct {
	OrderID      string              `json:"orderId"`
	Subtotal     float64             `json:"subtotal"`
	ShippingCost float64             `json:"shippingCost"`
	Tax          float64             `json:"tax"`
	TotalAmount  float64             `json:"totalAmount"`
	Status       string              `json:"status"`
	Lines        []orderLineResponse `json:"lines,omitempty"`
	CreatedAt    time.Time           `json:"createdAt"`
}

type updateStatusRequest struct {
	Status string `json:"status"`
}

func toOrderResponse(o checkout.Order) orderResponse {
	resp := orderResponse{
		OrderID:      o.OrderID,
		Subtotal:     o.Subtotal.InexactFloat64(),
		ShippingCost: o.ShippingCost.InexactFloat64(),
		Tax:          o.Tax.InexactFloat64(),
		TotalAmount:  o.TotalAmount.InexactFloat64(),
		Status:       string(o.Status),
		CreatedAt:    o.CreatedAt,
	}
	for _, line := range o.Lines {
		resp.Lines = append(resp.Lines, orderLineResponse{
			ListingID:   line.ListingID,
			ListingName: line.ListingName,
			UnitPrice:   line.UnitPrice.InexactFloat64(),
			Quantity:    line.Quantity,
			Subtotal:    line.Subtotal.InexactFloat64(),
		})
	}
	return resp
}

// Checkout converts the buyer's cart into an order.
func (h *Handler) Checkout(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	var req checkoutRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	o, err := h.orders.Checkout(r.Context(), uid, checkout.ShippingInfo{
		Name:       req.Shipping.Name,
		Email:      req.Shipping.Email,
		Phone:      req.Shipping.Phone,
		Address:    req.Shipping.Address,
		City:       req.Shipping.City,
		State:      req.Shipping.State,
		PostalCode: req.Shipping.PostalCode,
		Country:    req.Shipping.Country,
	})
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, toOrderResponse(*o))
}

// ListOrders returns the buyer's order history, newest first.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	uid := userID(r)
	if uid == "" {
		writeError(w, http.StatusUnauthorized, "missing user identity")
		return
	}

	orders, err := h.orders.ListForCustomer(r.Context(), uid)
	if err != nil {
		writeDomainError(w, r, err)
		return
	}

	out := make([]orderResponse, len(orders))
	for i, o := range orders {
		out[i] = toOrderResponse(o)
	}
	writeJSON(w, http.StatusOK, out)
}

// GetOrder returns one order with its lines.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), r.PathValue("orderID"))
	if err != nil {
		writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, toOrderResponse(*o))
}

// UpdateOrderStatus transitions an order to a new status.
func (h *Handler) UpdateOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.orders.UpdateStatus(r.Context(), r.PathValue("orderID"), checkout.Status(req.Status)); err != nil {
		writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
