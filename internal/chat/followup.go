package chat

import "strings"

// FollowUpDetector decides whether a query should be answered from the
// user's cached results instead of a fresh search. It is a heuristic, not a
// contract, so it is injectable.
type FollowUpDetector func(query string) bool

// followUpTriggers are phrases that usually refer back to an earlier
// search.
var followUpTriggers = []string{
	"what about",
	"how about",
	"tell me more",
	"more detail",
	"anything else",
	"those logs",
	"these logs",
	"that error",
	"the results",
	"previous search",
	"follow up",
	"follow-up",
}

// DefaultFollowUpDetector flags queries containing a trigger phrase or
// ending with a question mark. False positives are harmless: the cached
// path is only taken when a prior search context and a live cache entry
// both exist.
func DefaultFollowUpDetector(query string) bool {
	q := strings.ToLower(strings.TrimSpace(query))
	if strings.HasSuffix(q, "?") {
		return true
	}
	for _, trigger := range followUpTriggers {
		if strings.Contains(q, trigger) {
			return true
		}
	}
	return false
}
