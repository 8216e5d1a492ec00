package core

// error_messages.go maps technical errors to operator-facing messages with
// a short code for support reference.
//
// Codes are grouped by category:
//
//	SUP001 - Unknown supplier          Patterns: "supplier not found"
//	SKU001 - Unknown SKU               Patterns: "sku not found", "variant not found"
//	PRD001 - Unknown supplier product  Patterns: "product not found"
//	SIG001 - Bad webhook signature     Patterns: "invalid webhook signature"
//	VAL001 - Validation failure        Patterns: "validation failed"
//	VAL002 - Missing field             Patterns: "is required", "missing required"
//	VAL003 - Bad pricing tiers         Patterns: "pricing tier"
//	INT001 - Supplier/cache timeout    Patterns: "deadline exceeded", "timeout"
//	INT002 - Upstream unreachable      Patterns: "connection refused", "no such host"
//	INT003 - Upstream server error     Patterns: "upstream status 5"
//	DB001  - Duplicate key             Patterns: "duplicate key"
//	DB002  - Deadlock                  Patterns: "deadlock"
//	SYNC001 - Sync slots busy          Patterns: "too many concurrent syncs"
//	RATE001 - Rate limited             Patterns: "rate limit"
//	ERR000 - Anything else
//
// Patterns are matched case-insensitively with strings.Contains and the
// first match wins, so specific patterns come before general ones.

import (
	"fmt"
	"strings"
)

// UserMessage provides operator-facing error information.
type UserMessage struct {
	Message string // What happened
	Action  string // What to do about it
	Code    string // Support reference
}

type errorPattern struct {
	pattern string
	msg     UserMessage
}

var errorPatterns = []errorPattern{
	{
		pattern: "supplier not found",
		msg: UserMessage{
			Message: "Supplier is not registered",
			Action:  "Check the supplier id against GET /status",
			Code:    "SUP001",
		},
	},
	{
		pattern: "sku not found",
		msg: UserMessage{
			Message: "SKU is not in the catalog",
			Action:  "Run a supplier sync to establish the variant first",
			Code:    "SKU001",
		},
	},
	{
		pattern: "variant not found",
		msg: UserMessage{
			Message: "SKU is not in the catalog",
			Action:  "Run a supplier sync to establish the variant first",
			Code:    "SKU001",
		},
	},
	{
		pattern: "product not found",
		msg: UserMessage{
			Message: "Supplier does not list this product",
			Action:  "Check the supplier product id or remove it from the catalog",
			Code:    "PRD001",
		},
	},
	{
		pattern: "invalid webhook signature",
		msg: UserMessage{
			Message: "Webhook signature did not verify",
			Action:  "Confirm the shared secret configured for this supplier",
			Code:    "SIG001",
		},
	},
	{
		pattern: "pricing tier",
		msg: UserMessage{
			Message: "Pricing tiers are invalid",
			Action:  "Tiers must have positive prices and strictly increasing ranges",
			Code:    "VAL003",
		},
	},
	{
		pattern: "validation failed",
		msg: UserMessage{
			Message: "Input failed validation",
			Action:  "Correct the listed fields and resend",
			Code:    "VAL001",
		},
	},
	{
		pattern: "is required",
		msg: UserMessage{
			Message: "A required field is missing",
			Action:  "Include every required field in the request",
			Code:    "VAL002",
		},
	},
	{
		pattern: "missing required",
		msg: UserMessage{
			Message: "A required field is missing",
			Action:  "Include every required field in the request",
			Code:    "VAL002",
		},
	},
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this key already exists",
			Action:  "Retry; the concurrent writer has already stored it",
			Code:    "DB001",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB002",
		},
	},
	{
		pattern: "too many concurrent syncs",
		msg: UserMessage{
			Message: "Another sync is already using every slot",
			Action:  "Retry once the running syncs finish",
			Code:    "SYNC001",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "deadline exceeded",
		msg: UserMessage{
			Message: "Upstream call timed out",
			Action:  "The supplier or cache is slow; retry later",
			Code:    "INT001",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Upstream call timed out",
			Action:  "The supplier or cache is slow; retry later",
			Code:    "INT001",
		},
	},
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Upstream service is unreachable",
			Action:  "Check supplier connectivity with GET /status",
			Code:    "INT002",
		},
	},
	{
		pattern: "no such host",
		msg: UserMessage{
			Message: "Upstream service is unreachable",
			Action:  "Check supplier connectivity with GET /status",
			Code:    "INT002",
		},
	},
	{
		pattern: "upstream status 5",
		msg: UserMessage{
			Message: "Supplier returned a server error",
			Action:  "Retry later; the failure is on the supplier side",
			Code:    "INT003",
		},
	},
}

var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Check the service logs for details",
	Code:    "ERR000",
}

// MapError converts a technical error to an operator-facing message.
// Returns an empty UserMessage for a nil error.
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError renders "Message (Code: XXX). Action".
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err matched a specific pattern rather than
// the ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}
