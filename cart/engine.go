// Package cart keeps a local, UI-consumable mirror of the server-side
// cart. Quantity stepping is optimistic: local state changes first, the
// server call runs in the background, and a failure rolls the mirror back
// by refetching server truth. Everything else reconciles with a full
// fetch after the write.
package cart

import (
	"context"
	"sync"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"

	"github.com/jrsteele09/go-shop-client/client"
)

// Attributes is the product attribute block carried on each line.
type Attributes struct {
	Manufacturer string `json:"manufacturer"`
	Model        string `json:"model"`
	Color        string `json:"color"`
}

// Line is one cart line. Two lines are the same line iff ProductID and
// Color match; the same product in different colors stays distinct.
type Line struct {
	ProductID  string     `json:"productId"`
	ShopID     string     `json:"shopId"`
	Quantity   int        `json:"quantity"`
	Name       string     `json:"name"`
	Price      float64    `json:"price"`
	Thumb      string     `json:"thumb"`
	Attributes Attributes `json:"product_attributes"`
}

// cartData is the authoritative cart document inside the API envelope.
type cartData struct {
	ID       string `json:"_id"`
	UserID   string `json:"userId"`
	Status   string `json:"status"`
	Products []Line `json:"products"`
}

type addRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

type updateQuantityRequest struct {
	ProductID string `json:"productId"`
	Quantity  int    `json:"quantity"`
}

// Result is returned by AddToCart instead of an error so callers can
// render inline messages without exception plumbing.
type Result struct {
	Success bool
	Message string
}

const addFailedMsg = "unable to add the product to your cart"

// Engine is the cart synchronization engine. Local state is always a
// cache of the last known server state; mutating operations serialize
// through opMu so an optimistic step and a pessimistic update can never
// interleave into a lost write.
type Engine struct {
	client *client.Client
	logger zerolog.Logger

	mu    sync.RWMutex // guards lines and open
	lines []Line
	open  bool

	opMu       sync.Mutex // one in-flight server mutation at a time
	background sync.WaitGroup
}

// EngineOption modifies the Engine during construction.
type EngineOption func(*Engine)

// WithLogger sets the structured logger.
func WithLogger(logger zerolog.Logger) EngineOption {
	return func(e *Engine) { e.logger = logger }
}

func NewEngine(c *client.Client, options ...EngineOption) *Engine {
	e := &Engine{
		client: c,
		logger: zerolog.Nop(),
	}
	for _, opt := range options {
		opt(e)
	}
	return e
}

// FetchCart replaces local state wholesale with the server's cart. It is
// the reconciliation primitive every failure path falls back to.
func (e *Engine) FetchCart(ctx context.Context) error {
	var data cartData
	if err := e.client.Get(ctx, "/cart/getCart", &data); err != nil {
		return errors.Wrap(err, "[Engine.FetchCart] get cart")
	}
	lines := make([]Line, len(data.Products))
	copy(lines, data.Products)

	e.mu.Lock()
	e.lines = lines
	e.mu.Unlock()
	return nil
}

// AddToCart sends the add request and resyncs from the server, so price
// or stock adjustments made server-side land in the mirror immediately.
// Unless skipOpenCart is set, a successful add opens the cart panel.
func (e *Engine) AddToCart(ctx context.Context, item Line, skipOpenCart bool) Result {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	err := e.client.Post(ctx, "/cart/addToCart", addRequest{ProductID: item.ProductID, Quantity: item.Quantity}, nil)
	if err != nil {
		e.logger.Warn().Err(err).Str("product_id", item.ProductID).Msg("add to cart failed")
		msg := addFailedMsg
		if apiErr, ok := client.AsAPIError(err); ok && apiErr.Message != "" {
			msg = apiErr.Message
		}
		return Result{Success: false, Message: msg}
	}

	if err := e.FetchCart(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("cart resync after add failed")
	}
	if !skipOpenCart {
		e.mu.Lock()
		e.open = true
		e.mu.Unlock()
	}
	return Result{Success: true}
}

// RemoveFromCart deletes the item server-side and resyncs. If the delete
// fails the item is dropped from local state anyway; the UI must never
// stay stuck showing something the user asked to remove.
func (e *Engine) RemoveFromCart(ctx context.Context, productID string) {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.client.Delete(ctx, "/cart/deleteItem/"+productID, nil); err != nil {
		e.logger.Warn().Err(err).Str("product_id", productID).Msg("remove from cart failed, dropping locally")
		e.mu.Lock()
		kept := e.lines[:0]
		for _, l := range e.lines {
			if l.ProductID != productID {
				kept = append(kept, l)
			}
		}
		e.lines = kept
		e.mu.Unlock()
		return
	}
	if err := e.FetchCart(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("cart resync after remove failed")
	}
}

// IncreaseQuantity optimistically bumps the line and fires the server
// update in the background. The caller gets control back immediately.
func (e *Engine) IncreaseQuantity(ctx context.Context, productID, color string) {
	e.stepQuantity(ctx, productID, color, +1)
}

// DecreaseQuantity is the optimistic counterpart of IncreaseQuantity.
// A line at quantity 1 is left alone and no request is issued.
func (e *Engine) DecreaseQuantity(ctx context.Context, productID, color string) {
	e.stepQuantity(ctx, productID, color, -1)
}

func (e *Engine) stepQuantity(ctx context.Context, productID, color string, delta int) {
	e.mu.Lock()
	idx := e.findLocked(productID, color)
	if idx < 0 {
		e.mu.Unlock()
		return
	}
	next := e.lines[idx].Quantity + delta
	if next < 1 {
		e.mu.Unlock()
		return
	}
	e.lines[idx].Quantity = next
	e.mu.Unlock()

	// The background call outlives the caller; only its values from ctx
	// are kept, not its cancellation.
	detached := context.WithoutCancel(ctx)
	e.background.Add(1)
	go func() {
		defer e.background.Done()
		e.opMu.Lock()
		defer e.opMu.Unlock()
		if err := e.pushQuantity(detached, productID, next); err != nil {
			e.logger.Warn().Err(err).Str("product_id", productID).Msg("quantity update failed, rolling back to server state")
			if err := e.FetchCart(detached); err != nil {
				e.logger.Warn().Err(err).Msg("cart rollback fetch failed")
			}
		}
	}()
}

// UpdateQuantity is the pessimistic variant: it waits for the server,
// resyncs, and reports success, for callers that need confirmation
// before proceeding.
func (e *Engine) UpdateQuantity(ctx context.Context, productID string, quantity int) bool {
	e.opMu.Lock()
	defer e.opMu.Unlock()

	if err := e.pushQuantity(ctx, productID, quantity); err != nil {
		e.logger.Warn().Err(err).Str("product_id", productID).Msg("quantity update failed")
		return false
	}
	if err := e.FetchCart(ctx); err != nil {
		e.logger.Warn().Err(err).Msg("cart resync after quantity update failed")
	}
	return true
}

func (e *Engine) pushQuantity(ctx context.Context, productID string, quantity int) error {
	req := updateQuantityRequest{ProductID: productID, Quantity: quantity}
	if err := e.client.Patch(ctx, "/cart/updateQuantity", req, nil); err != nil {
		return errors.Wrap(err, "[Engine.pushQuantity] update quantity")
	}
	return nil
}

// Flush blocks until all background quantity updates have settled.
// Callers that need the mirror quiescent (checkout, tests) wait here.
func (e *Engine) Flush() {
	e.background.Wait()
}

// ToggleCart flips the cart panel visibility. Local only.
func (e *Engine) ToggleCart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = !e.open
}

// CloseCart hides the cart panel. Local only.
func (e *Engine) CloseCart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.open = false
}

// IsOpen reports the cart panel visibility.
func (e *Engine) IsOpen() bool {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.open
}

// ClearCart resets local state without touching the server. Used right
// after a confirmed checkout, when the server cart is already empty.
func (e *Engine) ClearCart() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.lines = nil
}

// Lines returns a copy of the current cart lines.
func (e *Engine) Lines() []Line {
	e.mu.RLock()
	defer e.mu.RUnlock()
	lines := make([]Line, len(e.lines))
	copy(lines, e.lines)
	return lines
}

// Count is the derived total quantity across all lines. It is always
// recomputed so it cannot drift from the lines themselves.
func (e *Engine) Count() int {
	e.mu.RLock()
	defer e.mu.RUnlock()
	total := 0
	for _, l := range e.lines {
		total += l.Quantity
	}
	return total
}

// findLocked locates a line by the (productId, color) composite key.
// Callers must hold mu.
func (e *Engine) findLocked(productID, color string) int {
	for i, l := range e.lines {
		if l.ProductID == productID && l.Attributes.Color == color {
			return i
		}
	}
	return -1
}
