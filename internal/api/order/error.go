package order

import "QahwaBot/pkg/response"

var (
	// ErrBusy means the per-user turn lock could not be acquired in time.
	// No state was changed; the gateway may retry the delivery.
	ErrBusy = response.NewError(429, "another message for this user is still being processed")

	ErrItemNotFound     = response.NewError(404, "menu item not found")
	ErrCategoryNotFound = response.NewError(404, "menu category not found")
	ErrEmptyOrder       = response.NewError(400, "order has no items")
	ErrInvalidQuantity  = response.NewError(400, "quantity must be between 1 and 50")
	ErrInvalidLocation  = response.NewError(400, "invalid table number or address")
	ErrSessionNotFound  = response.NewError(404, "session not found")
	ErrOrderNotFound    = response.NewError(404, "no open order for this user")
	ErrPersistence      = response.NewError(500, "persistence failure")

	// Internal routing conditions. Never surfaced to the customer: an
	// illegal transition becomes a re-prompt, classifier trouble falls
	// through to the deterministic strategies.
	ErrIllegalTransition       = response.NewError(409, "transition not allowed from current step")
	ErrClassifierUnavailable   = response.NewError(503, "classifier unavailable")
	ErrMalformedClassifierData = response.NewError(502, "classifier returned unparsable output")
)
