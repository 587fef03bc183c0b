package duel

import (
	"fmt"

	"seeker-engine/pkg/errutil"
	"seeker-engine/services/personage"
)

var (
	ErrPersonageAlreadyHasDuel = errutil.NewSentinel(errutil.StatusConflict, "personage already has a waiting duel")
	ErrNotAcceptingPersonage   = errutil.NewSentinel(errutil.StatusForbidden, "duel is addressed to another personage")
	ErrDuelBusy                = errutil.NewSentinel(errutil.StatusConflict, "duel is being processed")
	ErrSelfDuel                = errutil.NewSentinel(errutil.StatusBadRequest, "personage cannot duel itself")
	ErrNotFound                = errutil.NewSentinel(errutil.StatusNotFound, "duel not found")
)

// NotEnoughMoneyError is returned by Create when the initiator cannot pay the stake.
type NotEnoughMoneyError struct {
	Required personage.Money
}

func (e *NotEnoughMoneyError) Error() string {
	return fmt.Sprintf("initiating personage needs %d money to start a duel", e.Required)
}

func (e *NotEnoughMoneyError) Status() errutil.CoreStatus {
	return errutil.StatusUnprocessableEntity
}
