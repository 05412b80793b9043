// SPDX-License-Identifier: GPL-3.0-only

package subscriptions

// Typed failures surfaced by lifecycle and pin operations. Handlers
// translate them to HTTP status codes; batch jobs collect them per
// item without aborting the batch.

type ConflictError struct {
	Message string
}

func (e *ConflictError) Error() string {
	return e.Message
}

type InvalidStateError struct {
	Message string
}

func (e *InvalidStateError) Error() string {
	return e.Message
}

type ForbiddenError struct {
	Message string
	Reasons PinReasons
}

func (e *ForbiddenError) Error() string {
	return e.Message
}

type NotFoundError struct {
	Message string
}

func (e *NotFoundError) Error() string {
	return e.Message
}
