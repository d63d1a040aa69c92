package api

import (
	"net/http"
	"strings"

	"campus-eats-be/internal/order"
	"campus-eats-be/internal/payment"
	"campus-eats-be/internal/utils"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
)

const idempotencyHeader = "Idempotency-Key"

type orderHandler struct {
	svc order.Service
}

// itemRequest accepts both the menu's field names and the short cart form
// ({id, price, qty}).
type itemRequest struct {
	ItemID    string           `json:"itemId"`
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	UnitPrice *decimal.Decimal `json:"unitPrice"`
	Price     *decimal.Decimal `json:"price"`
	Quantity  int              `json:"quantity"`
	Qty       int              `json:"qty"`
}

type deliveryRequest struct {
	Name         string `json:"name"`
	Room         string `json:"room"`
	HostelRoom   string `json:"hostelRoom"`
	Phone        string `json:"phone"`
	Instructions string `json:"instructions"`
}

type createOrderRequest struct {
	Items           []itemRequest    `json:"items"`
	Total           *decimal.Decimal `json:"total"`
	DeliveryDetails deliveryRequest  `json:"deliveryDetails"`
	Email           string           `json:"email"`
	PaymentMethod   string           `json:"paymentMethod"`
}

type createOrderResponse struct {
	Success bool         `json:"success"`
	OrderID string       `json:"orderId"`
	Order   *order.Order `json:"order"`
}

type orderStatusResponse struct {
	ID            string            `json:"id"`
	Status        order.OrderStatus `json:"status"`
	PaymentStatus payment.Status    `json:"paymentStatus"`
}

func (req createOrderRequest) toInput(idempotencyKey string) order.CreateOrderInput {
	items := make([]order.OrderItem, 0, len(req.Items))
	for _, it := range req.Items {
		item := order.OrderItem{
			ItemID:   firstNonEmpty(it.ItemID, it.ID),
			Name:     it.Name,
			Quantity: it.Quantity,
		}
		if item.Quantity == 0 {
			item.Quantity = it.Qty
		}
		switch {
		case it.UnitPrice != nil:
			item.UnitPrice = *it.UnitPrice
		case it.Price != nil:
			item.UnitPrice = *it.Price
		}
		// Cart entries without a display name fall back to the item id.
		if strings.TrimSpace(item.Name) == "" {
			item.Name = item.ItemID
		}
		items = append(items, item)
	}

	d := req.DeliveryDetails
	return order.CreateOrderInput{
		Items: items,
		DeliveryDetails: order.DeliveryDetails{
			Name:         d.Name,
			Room:         firstNonEmpty(d.Room, d.HostelRoom),
			Phone:        d.Phone,
			Instructions: d.Instructions,
		},
		CustomerEmail:  req.Email,
		PaymentMethod:  order.PaymentMethod(strings.ToLower(strings.TrimSpace(req.PaymentMethod))),
		ClientTotal:    req.Total,
		IdempotencyKey: idempotencyKey,
	}
}

func (h *orderHandler) create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := utils.DecodeJSON(r, &req); err != nil {
		utils.WriteJSONError(w, err.Error(), http.StatusBadRequest)
		return
	}

	o, err := h.svc.Create(r.Context(), req.toInput(strings.TrimSpace(r.Header.Get(idempotencyHeader))))
	if err != nil {
		writeError(w, r, err)
		return
	}

	utils.WriteJSON(w, http.StatusCreated, createOrderResponse{
		Success: true,
		OrderID: o.ID,
		Order:   o,
	})
}

func (h *orderHandler) get(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, o)
}

func (h *orderHandler) status(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	utils.WriteJSON(w, http.StatusOK, orderStatusResponse{
		ID:            o.ID,
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
	})
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
