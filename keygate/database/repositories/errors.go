// Package repositories holds the durable collections behind the bot:
// channels, users, keys, claim records and settings. Sentinel errors
// defined here let handlers distinguish expected outcomes (duplicate
// handle, empty pool) from real persistence failures.
package repositories

import "errors"

// ErrDuplicateChannel is returned when a channel handle is already
// registered. Handlers treat it as operator input validation, not as
// an internal failure.
var ErrDuplicateChannel = errors.New("channel already registered")

// ErrChannelNotFound is returned when removing a handle that is not
// in the registry.
var ErrChannelNotFound = errors.New("channel not found")

// ErrPoolExhausted is returned when no unconsumed key remains.
var ErrPoolExhausted = errors.New("key pool exhausted")

// ErrUserNotFound is returned when a user record does not exist.
var ErrUserNotFound = errors.New("user not found")
