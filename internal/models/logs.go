package models

// LogRecord is a single matched log line, bucketed by the container that
// produced it. Timestamp carries the time-range string the caller searched
// with, not a per-line timestamp.
type LogRecord struct {
	ContainerName string `json:"container_name"`
	Message       string `json:"message"`
	Timestamp     string `json:"timestamp"`
}

// GroupedResult maps a container name to its matched records. Order within
// each slice follows canonical-key input order, then per-object discovery
// order, then source line order.
type GroupedResult map[string][]LogRecord

// SearchRequest is the body of POST /api/search and the argument payload of
// the search_logs tool.
type SearchRequest struct {
	SearchID   string   `json:"search_id"`
	TimeRanges []string `json:"time_ranges"`
}

// SearchResponse is the canonical result shape shared by the REST API, the
// MCP tool result, and the cache.
type SearchResponse struct {
	SearchID     string        `json:"search_id"`
	TimeRanges   []string      `json:"time_ranges"`
	Results      GroupedResult `json:"results"`
	TotalResults int           `json:"total_results"`
}

// ChatRequest is the body of POST /chat.
type ChatRequest struct {
	Query string `json:"query"`
}

// ChatResponse is the reply envelope of POST /chat.
type ChatResponse struct {
	Response string `json:"response,omitempty"`
	Error    string `json:"error,omitempty"`
}
