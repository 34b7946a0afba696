package utils

import (
	"time"
)

// Token and session time constants
const (
	// AccessTokenTTL is the time-to-live for access tokens (24 hours)
	AccessTokenTTL = 24 * time.Hour

	// RefreshTokenTTL is the time-to-live for refresh tokens (7 days)
	RefreshTokenTTL = 7 * 24 * time.Hour
)

// CORSMaxAge is how long browsers may cache CORS preflight responses, in seconds
const CORSMaxAge = 3600

// Send scheduling constants
const (
	// MinSendGap is the minimum spacing between two sends scheduled for the
	// same account within one planning pass
	MinSendGap = 5 * time.Minute

	// GapJitterMax is the upper bound of the random push applied on top of
	// MinSendGap when a generated timestamp lands too close to a neighbor
	GapJitterMax = 10 * time.Minute

	// WindowFractionLow and WindowFractionHigh bound the random placement
	// inside the daily send window. Sends cluster toward the middle of the
	// window rather than its edges.
	WindowFractionLow  = 0.2
	WindowFractionHigh = 0.8

	// DefaultMessagesPerDay caps sends per account per UTC day when a
	// campaign does not configure its own limit
	DefaultMessagesPerDay = 50
)

// Placeholder tokens recognized by step templates
const (
	PlaceholderName     = "{{name}}"
	PlaceholderUsername = "{{username}}"

	// PlaceholderNameFallback substitutes {{name}} when a contact has
	// neither a display name nor a username
	PlaceholderNameFallback = "there"
)
