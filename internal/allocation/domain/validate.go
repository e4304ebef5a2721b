package domain

import "strings"

const (
	minIdentifierLen = 4
	maxListLimit     = 100
)

// Field validators are pure predicates applied at every boundary that
// accepts external data. Builders never assume a value was validated
// by an earlier layer.

func validIdentifier(s string) bool {
	return strings.TrimSpace(s) != "" && len(s) >= minIdentifierLen
}

func validUnits(n int) bool { return n > 0 }

func validPriceCents(n int64) bool { return n >= 0 }

func validTimestamp(s string) bool {
	return strings.TrimSpace(s) != "" && len(s) >= minIdentifierLen
}

func validLimit(n int) bool { return n >= 1 && n <= maxListLimit }
