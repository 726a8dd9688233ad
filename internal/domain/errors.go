// Package domain provides shared domain-level sentinel errors.
package domain

import "errors"

// ErrNotFound indicates the requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrValidation indicates a request failed domain validation.
var ErrValidation = errors.New("validation failed")

// ErrDuplicateReview indicates an open review already exists for the message.
var ErrDuplicateReview = errors.New("review already open for message")

// ErrAlreadyResolved indicates the review reached a terminal state and
// cannot accept further feedback.
var ErrAlreadyResolved = errors.New("review already resolved")

// ErrNotAdmin indicates the acting identity is not a current group admin.
var ErrNotAdmin = errors.New("not a group admin")
