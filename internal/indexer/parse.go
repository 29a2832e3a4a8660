package indexer

import (
	"fmt"
	"regexp"
	"strings"
)

const (
	minAccountIDLen = 2
	maxAccountIDLen = 64
)

var accountIDRe = regexp.MustCompile(`^(([a-z\d]+[\-_])*[a-z\d]+\.)*([a-z\d]+[\-_])*[a-z\d]+$`)

// ValidateAccountID checks a NEAR account id.
func ValidateAccountID(id string) error {
	if len(id) < minAccountIDLen || len(id) > maxAccountIDLen {
		return fmt.Errorf("invalid account id %q: length must be between %d and %d", id, minAccountIDLen, maxAccountIDLen)
	}
	if !accountIDRe.MatchString(id) {
		return fmt.Errorf("invalid account id %q", id)
	}
	return nil
}

// ParseAccountIDs trims, validates and de-duplicates account ids.
func ParseAccountIDs(inputs []string) ([]string, error) {
	accounts := make([]string, 0, len(inputs))
	seen := make(map[string]struct{}, len(inputs))
	for _, input := range inputs {
		input = strings.TrimSpace(input)
		if input == "" {
			continue
		}
		if err := ValidateAccountID(input); err != nil {
			return nil, err
		}
		if _, ok := seen[input]; ok {
			continue
		}
		seen[input] = struct{}{}
		accounts = append(accounts, input)
	}
	return accounts, nil
}
