package sputnik

import (
	"encoding/json"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// NoProposalAction is returned when a description carries no action marker.
const NoProposalAction = "null"

var (
	descriptionKeys = []string{"proposal_action", "isStakeRequest"}
	markdownLineRe  = regexp.MustCompile(`^\* (.+): (.+)$`)
	camelBoundaryRe = regexp.MustCompile(`([a-z])([A-Z])`)
)

// DecodeProposalDescription extracts the treasury action hint from a proposal
// description. JSON descriptions yield the JSON text of the first known key;
// markdown descriptions ("* Key: value" lines joined by <br>) yield the
// trimmed value.
func DecodeProposalDescription(description string) string {
	var parsed map[string]json.RawMessage
	if err := json.Unmarshal([]byte(description), &parsed); err == nil {
		for _, key := range descriptionKeys {
			if value, ok := parsed[key]; ok {
				return compactJSON(value)
			}
		}
	}

	lines := strings.Split(description, "<br>")
	for _, key := range descriptionKeys {
		markdownKey := readableKey(key)
		for _, line := range lines {
			match := markdownLineRe.FindStringSubmatch(line)
			if match == nil {
				continue
			}
			if match[1] == markdownKey {
				return strings.TrimSpace(match[2])
			}
		}
	}

	return NoProposalAction
}

// readableKey turns snake_case and camelCase keys into "Title Case Words".
func readableKey(key string) string {
	key = strings.ReplaceAll(key, "_", " ")
	key = camelBoundaryRe.ReplaceAllString(key, "$1 $2")

	words := strings.Fields(key)
	for i, word := range words {
		first, size := utf8.DecodeRuneInString(word)
		words[i] = string(unicode.ToUpper(first)) + word[size:]
	}
	return strings.Join(words, " ")
}

func compactJSON(raw json.RawMessage) string {
	var value interface{}
	if err := json.Unmarshal(raw, &value); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(value)
	if err != nil {
		return string(raw)
	}
	return string(out)
}
