package statuslog

import (
	"errors"
	"fmt"
)

var (
	// ErrUnknownReceiver is returned when a receiver name does not resolve
	ErrUnknownReceiver = errors.New("statuslog: unknown receiver")
	// ErrReceiverFailure matches any aggregated receiver error via errors.Is
	ErrReceiverFailure = errors.New("statuslog: receiver failure")
	// ErrNoForwardTarget is returned when forwarding is required and no receiver is active
	ErrNoForwardTarget = errors.New("statuslog: forwarding required but no receiver is active")
	// ErrSchedulerClosed is returned for relays submitted after scheduler shutdown
	ErrSchedulerClosed = errors.New("statuslog: relay scheduler closed")
	// ErrSchedulerBusy is returned when the sender pool has no free worker
	ErrSchedulerBusy = errors.New("statuslog: relay scheduler busy")
)

// ReceiverError attributes a failure to one named receiver
type ReceiverError struct {
	Name string
	Err  error
}

func (e *ReceiverError) Error() string {
	return fmt.Sprintf("statuslog: receiver %q: %v", e.Name, e.Err)
}

func (e *ReceiverError) Unwrap() error {
	return e.Err
}

// Is makes every ReceiverError match ErrReceiverFailure
func (e *ReceiverError) Is(target error) bool {
	return target == ErrReceiverFailure
}

// unknownReceiver builds an error naming the unresolved receiver
func unknownReceiver(name string) error {
	return fmt.Errorf("%w: %q", ErrUnknownReceiver, name)
}
