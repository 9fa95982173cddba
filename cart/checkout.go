package cart

import (
	"context"

	"github.com/pkg/errors"
)

// ShippingInfo is the delivery form submitted with a checkout.
type ShippingInfo struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Phone   string `json:"phone"`
	Address string `json:"address"`
	City    string `json:"city"`
	ZipCode string `json:"zipCode"`
	Note    string `json:"note,omitempty"`
}

// OrderInfo summarizes the placed order as reported by the server.
type OrderInfo struct {
	TotalAmount  float64      `json:"totalAmount"`
	ItemCount    int          `json:"itemCount"`
	ShippingInfo ShippingInfo `json:"shippingInfo"`
}

// OrderConfirmation is the outcome of a successful checkout call.
type OrderConfirmation struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	OrderInfo OrderInfo `json:"orderInfo"`
	EmailSent bool      `json:"emailSent"`
}

type checkoutRequest struct {
	ProductIDs []string `json:"productIds"`
	ShippingInfo
}

// Checkout submits the current cart lines with the shipping details.
// Errors propagate to the caller; on a confirmed order the local mirror
// is cleared without a refetch, since the server cart is known empty.
func (e *Engine) Checkout(ctx context.Context, info ShippingInfo) (*OrderConfirmation, error) {
	e.Flush()

	e.mu.RLock()
	ids := make([]string, 0, len(e.lines))
	for _, l := range e.lines {
		ids = append(ids, l.ProductID)
	}
	e.mu.RUnlock()
	if len(ids) == 0 {
		return nil, errors.New("[Engine.Checkout] cart is empty")
	}

	e.opMu.Lock()
	defer e.opMu.Unlock()

	var confirmation OrderConfirmation
	req := checkoutRequest{ProductIDs: ids, ShippingInfo: info}
	if err := e.client.Post(ctx, "/cart/checkout", req, &confirmation); err != nil {
		return nil, errors.Wrap(err, "[Engine.Checkout] checkout request")
	}
	if confirmation.Success {
		e.ClearCart()
	}
	return &confirmation, nil
}
