package chat

import (
	"context"
	"encoding/json"
	"fmt"

	"lokilens-mcp/internal/cache"
	"lokilens-mcp/internal/models"
	"lokilens-mcp/internal/timekey"

	log "github.com/sirupsen/logrus"
)

// SearchLogsToolName is the single tool offered to the model.
const SearchLogsToolName = "search_logs"

// Searcher runs a structured search. Satisfied by the in-process engine and
// by the remote tool-server client.
type Searcher interface {
	Search(ctx context.Context, searchID string, timeRanges []string) (*models.SearchResponse, error)
}

// SearchArgs are the decoded search_logs tool-call arguments.
type SearchArgs struct {
	SearchID   string   `json:"search_id"`
	TimeRanges []string `json:"time_ranges"`
}

// SearchLogsToolSpec is the schema offered to the model.
func SearchLogsToolSpec() ToolSpec {
	return ToolSpec{
		Name:        SearchLogsToolName,
		Description: "Search logs by ID and time ranges. REQUIRES both search_id and at least one time_range.",
		Parameters: map[string]any{
			"type": "object",
			"properties": map[string]any{
				"search_id": map[string]any{
					"type":        "string",
					"description": "The ID to search for in logs (REQUIRED)",
				},
				"time_ranges": map[string]any{
					"type":        "array",
					"items":       map[string]any{"type": "string"},
					"description": "List of timestamps to search in format YYYYMMDDHHMM (REQUIRED, at least one)",
				},
			},
			"required": []string{"search_id", "time_ranges"},
		},
	}
}

// Orchestrator owns one conversational turn end to end.
type Orchestrator struct {
	LLM        LanguageModel
	Searcher   Searcher
	Cache      *cache.ResultCache
	Contexts   *cache.ContextStore
	Normalizer timekey.Normalizer
	IsFollowUp FollowUpDetector
}

// NewOrchestrator wires an Orchestrator with the default follow-up
// detector.
func NewOrchestrator(llm LanguageModel, searcher Searcher, rc *cache.ResultCache, cs *cache.ContextStore) *Orchestrator {
	return &Orchestrator{
		LLM:        llm,
		Searcher:   searcher,
		Cache:      rc,
		Contexts:   cs,
		IsFollowUp: DefaultFollowUpDetector,
	}
}

// Chat answers one user query. Every failure inside the turn becomes a
// user-facing text reply; the only error Chat itself returns is context
// cancellation.
func (o *Orchestrator) Chat(ctx context.Context, userID, query string) (string, error) {
	reply, err := o.chat(ctx, userID, query)
	if err != nil {
		if ctx.Err() != nil {
			return "", err
		}
		log.WithError(err).WithField("user", userID).Error("chat turn failed")
		return fmt.Sprintf("An error occurred while processing your request: %s", err), nil
	}
	return reply, nil
}

func (o *Orchestrator) chat(ctx context.Context, userID, query string) (string, error) {
	if o.isFollowUp(query) {
		if reply, ok, err := o.answerFromCache(ctx, userID, query); err != nil {
			return "", err
		} else if ok {
			return reply, nil
		}
	}

	messages := []Message{
		{Role: RoleSystem, Content: SystemPrompt},
		{Role: RoleUser, Content: query},
	}

	resp, err := o.LLM.Complete(ctx, messages, []ToolSpec{SearchLogsToolSpec()})
	if err != nil {
		return "", err
	}

	if len(resp.ToolCalls) == 0 {
		if resp.Content == "" {
			return FallbackMessage, nil
		}
		return resp.Content, nil
	}

	tc := resp.ToolCalls[0]
	if tc.Name != SearchLogsToolName {
		return "", fmt.Errorf("model requested unknown tool %q", tc.Name)
	}

	var args SearchArgs
	if err := json.Unmarshal([]byte(tc.Arguments), &args); err != nil {
		return "", fmt.Errorf("decode tool arguments: %w", err)
	}
	if args.SearchID == "" {
		return AskSearchIDMessage, nil
	}
	if len(args.TimeRanges) == 0 {
		return AskTimeRangeMessage, nil
	}

	keys := make([]timekey.Key, 0, len(args.TimeRanges))
	normalized := make([]string, 0, len(args.TimeRanges))
	for _, r := range args.TimeRanges {
		key, err := o.Normalizer.Normalize(r)
		if err != nil {
			// The normalizer's message is the reply, not a failure of the
			// turn.
			return err.Error(), nil
		}
		keys = append(keys, key)
		normalized = append(normalized, string(key))
	}

	result, err := o.Searcher.Search(ctx, args.SearchID, normalized)
	if err != nil {
		return "", err
	}

	for _, key := range keys {
		o.Cache.Put(args.SearchID, key, result)
	}
	o.Contexts.Set(userID, args.SearchID, keys[0])

	reply, err := o.synthesize(ctx, messages, resp, tc, result)
	if err != nil {
		return "", err
	}
	o.Cache.AttachSummary(args.SearchID, keys[0], reply)

	return reply + "\n\n" + FollowUpTrailer, nil
}

// synthesize sends the structured result back to the model as a tool result
// in the same conversation and returns the second-phase reply.
func (o *Orchestrator) synthesize(ctx context.Context, messages []Message, assistant *Message, tc ToolCall, result *models.SearchResponse) (string, error) {
	encoded, err := json.Marshal(result)
	if err != nil {
		return "", fmt.Errorf("encode search results: %w", err)
	}

	messages = append(messages,
		Message{Role: RoleAssistant, Content: assistant.Content, ToolCalls: []ToolCall{tc}},
		Message{Role: RoleTool, Content: string(encoded), ToolCallID: tc.ID},
		Message{Role: RoleUser, Content: SynthesisPrompt},
	)

	resp, err := o.LLM.Complete(ctx, messages, nil)
	if err != nil {
		return "", err
	}
	if resp.Content == "" {
		return FallbackMessage, nil
	}
	return resp.Content, nil
}

// answerFromCache handles the follow-up path: when the user has a prior
// search context with a live cache entry, the model answers from the cached
// results and no tool call or search happens.
func (o *Orchestrator) answerFromCache(ctx context.Context, userID, query string) (string, bool, error) {
	uc, ok := o.Contexts.Get(userID)
	if !ok {
		return "", false, nil
	}
	entry, ok := o.Cache.Get(uc.SearchID, uc.TimeKey)
	if !ok {
		return "", false, nil
	}

	encoded, err := json.Marshal(entry.Results)
	if err != nil {
		return "", false, fmt.Errorf("encode cached results: %w", err)
	}

	content := fmt.Sprintf("Earlier search results for ID %s at %s:\n%s", entry.SearchID, entry.TimeKey, encoded)
	if entry.Summary != "" {
		content += "\n\nPrevious summary of these results:\n" + entry.Summary
	}
	content += "\n\nAnswer this follow-up question using only the results above:\n" + query

	resp, err := o.LLM.Complete(ctx, []Message{
		{Role: RoleSystem, Content: SystemPrompt},
		{Role: RoleUser, Content: content},
	}, nil)
	if err != nil {
		return "", false, err
	}
	if resp.Content == "" {
		return FallbackMessage, true, nil
	}

	if entry.Summary == "" {
		o.Cache.AttachSummary(entry.SearchID, entry.TimeKey, resp.Content)
	}
	return resp.Content, true, nil
}

func (o *Orchestrator) isFollowUp(query string) bool {
	if o.IsFollowUp != nil {
		return o.IsFollowUp(query)
	}
	return DefaultFollowUpDetector(query)
}
