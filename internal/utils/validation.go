package utils

import (
	"regexp"
	"strconv"
)

// Local account ids are opaque, but they travel in urls and queue payloads.
var accountIdRegex = regexp.MustCompile(`^[A-Za-z0-9_:./-]{1,128}$`)

// IsValidAccountId checks if the given string can be used as a local account id
func IsValidAccountId(account string) bool {
	return accountIdRegex.MatchString(account)
}

// ParseId parses a positive decimal record or query id
func ParseId(s string) (uint64, bool) {
	id, err := strconv.ParseUint(s, 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return id, true
}
