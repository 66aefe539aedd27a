package domain

import "marketmaker/internal/quant"

// Order is the local record of one resting or in-flight order, built from
// the venue's acknowledgement (or a query response); fill reports are not
// applied to it.
type Order struct {
	OrderID          string // venue-assigned id, empty until acknowledged
	ClientOrderID    string // MM_<SIDE>_<epoch_ns>_<rand6>, assigned locally
	Symbol           string
	Side             Side
	Price            quant.Amount
	Quantity         quant.Amount
	ExecutedQuantity quant.Amount
	Status           OrderStatus
	CreatedAt        quant.TimeStamp
	UpdatedAt        quant.TimeStamp
}

// Open reports whether the order can still receive fills or be canceled.
func (o *Order) Open() bool {
	return !o.Status.Terminal()
}

// Remaining returns the unexecuted quantity.
func (o *Order) Remaining() quant.Amount {
	return o.Quantity.Sub(o.ExecutedQuantity)
}
