package mlapi

import "time"

// Test-only exports for internal functions.
var (
	TypeToSchema        = typeToSchema
	JSONFieldName       = jsonFieldName
	TagOptions          = tagOptions
	HasParamTags        = hasParamTags
	NormalizePath       = normalizePath
	ValidateConstraints = validateConstraints
	GenerateOperationID = generateOperationID
)

// KeyedLimiter exposes keyedLimiter for tests.
type KeyedLimiter = keyedLimiter

// NewKeyedLimiter exposes newKeyedLimiter for tests.
var NewKeyedLimiter = newKeyedLimiter

// Allow exposes keyedLimiter.allow for tests.
func (l *KeyedLimiter) Allow(key string, now time.Time) bool { return l.allow(key, now) }
