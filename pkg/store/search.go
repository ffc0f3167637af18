package store

import (
	"encoding/json"
	"strings"
)

// Indexer decides whether a history record matches a free-text query. The
// default walks a fixed set of request/response fields; deployments with an
// external search engine can plug their own matcher through Options.
type Indexer interface {
	Matches(record *HttpHistory, query string) bool
}

// defaultIndexer performs case-insensitive substring matching over the
// request URL, request and response headers, the HTTP message body, and
// both payloads.
type defaultIndexer struct{}

func (defaultIndexer) Matches(record *HttpHistory, query string) bool {
	if query == "" {
		return true
	}
	needle := strings.ToLower(query)
	if req := record.Log.Request; req != nil {
		if containsFold(req.URL, needle) ||
			containsFold(req.Headers, needle) ||
			containsFold(req.HTTPMessage, needle) ||
			payloadContains(req.Payload, needle) {
			return true
		}
	}
	if res := record.Log.Response; res != nil {
		if containsFold(res.Headers, needle) ||
			payloadContains(res.Payload, needle) {
			return true
		}
	}
	return false
}

// payloadContains searches a payload, which is either a plain JSON string
// or an object with the body under "data".
func payloadContains(payload json.RawMessage, needle string) bool {
	if len(payload) == 0 {
		return false
	}
	var text string
	if err := json.Unmarshal(payload, &text); err == nil {
		return containsFold(text, needle)
	}
	var wrapped struct {
		Data string `json:"data"`
	}
	if err := json.Unmarshal(payload, &wrapped); err == nil {
		return containsFold(wrapped.Data, needle)
	}
	return false
}

func containsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), needle)
}
