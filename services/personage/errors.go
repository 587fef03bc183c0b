package personage

import (
	"seeker-engine/pkg/errutil"
)

var (
	ErrInsufficientFunds = errutil.NewSentinel(errutil.StatusUnprocessableEntity, "insufficient funds")
	ErrConcurrentUpdate  = errutil.NewSentinel(errutil.StatusConflict, "personage was modified concurrently")
	ErrNotFound          = errutil.NewSentinel(errutil.StatusNotFound, "personage not found")
	ErrNegativeAmount    = errutil.NewSentinel(errutil.StatusBadRequest, "amount must not be negative")
)
