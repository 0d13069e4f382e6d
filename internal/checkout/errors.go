package checkout

import "errors"

var (
	ErrEmptyCart     = errors.New("cart is empty, nothing to check out")
	ErrTableRequired = errors.New("a table must be selected to open a new order")
)
