package chat

import (
	"context"
	"errors"
	"strings"
	"testing"

	"lokilens-mcp/internal/cache"
	"lokilens-mcp/internal/models"
)

// scriptedLLM returns canned responses in order and records every request.
type scriptedLLM struct {
	responses []*Message
	calls     [][]Message
	toolsSeen [][]ToolSpec
	err       error
}

func (s *scriptedLLM) Complete(ctx context.Context, messages []Message, tools []ToolSpec) (*Message, error) {
	s.calls = append(s.calls, messages)
	s.toolsSeen = append(s.toolsSeen, tools)
	if s.err != nil {
		return nil, s.err
	}
	if len(s.responses) == 0 {
		return &Message{Role: RoleAssistant, Content: "out of script"}, nil
	}
	resp := s.responses[0]
	s.responses = s.responses[1:]
	return resp, nil
}

// countingSearcher returns a fixed result and counts invocations.
type countingSearcher struct {
	result *models.SearchResponse
	err    error
	calls  int

	lastID     string
	lastRanges []string
}

func (c *countingSearcher) Search(ctx context.Context, searchID string, timeRanges []string) (*models.SearchResponse, error) {
	c.calls++
	c.lastID = searchID
	c.lastRanges = timeRanges
	if c.err != nil {
		return nil, c.err
	}
	return c.result, nil
}

func newTestOrchestrator(llm LanguageModel, searcher Searcher) *Orchestrator {
	return NewOrchestrator(llm, searcher, cache.NewResultCache(), cache.NewContextStore())
}

func searchResult() *models.SearchResponse {
	return &models.SearchResponse{
		SearchID:   "id123",
		TimeRanges: []string{"202502020000"},
		Results: models.GroupedResult{
			"api": {{ContainerName: "api", Message: "id123 did a thing", Timestamp: "202502020000"}},
		},
		TotalResults: 1,
	}
}

func toolCallResponse(arguments string) *Message {
	return &Message{
		Role:      RoleAssistant,
		ToolCalls: []ToolCall{{ID: "call_1", Name: SearchLogsToolName, Arguments: arguments}},
	}
}

func TestChat_PlainTextResponsePassesThrough(t *testing.T) {
	llm := &scriptedLLM{responses: []*Message{{Role: RoleAssistant, Content: "Hello there"}}}
	searcher := &countingSearcher{}
	o := newTestOrchestrator(llm, searcher)

	reply, err := o.Chat(context.Background(), "alice", "hi")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "Hello there" {
		t.Errorf("reply = %q", reply)
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called %d times, want 0", searcher.calls)
	}
	if len(llm.toolsSeen[0]) != 1 || llm.toolsSeen[0][0].Name != SearchLogsToolName {
		t.Errorf("first call tools = %v, want the search_logs schema", llm.toolsSeen[0])
	}
}

func TestChat_MissingSearchIDAsksWithoutSearching(t *testing.T) {
	llm := &scriptedLLM{responses: []*Message{
		toolCallResponse(`{"time_ranges":["202502020000"]}`),
	}}
	searcher := &countingSearcher{}
	o := newTestOrchestrator(llm, searcher)

	reply, err := o.Chat(context.Background(), "alice", "show me logs from february")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != AskSearchIDMessage {
		t.Errorf("reply = %q, want clarifying message", reply)
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called %d times, want 0", searcher.calls)
	}
}

func TestChat_MissingTimeRangesAsksWithoutSearching(t *testing.T) {
	llm := &scriptedLLM{responses: []*Message{
		toolCallResponse(`{"search_id":"id123"}`),
	}}
	searcher := &countingSearcher{}
	o := newTestOrchestrator(llm, searcher)

	reply, err := o.Chat(context.Background(), "alice", "find id123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != AskTimeRangeMessage {
		t.Errorf("reply = %q, want clarifying message", reply)
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called %d times, want 0", searcher.calls)
	}
}

func TestChat_UnparseableTimeRangeSurfacesNormalizerMessage(t *testing.T) {
	llm := &scriptedLLM{responses: []*Message{
		toolCallResponse(`{"search_id":"id123","time_ranges":["not a date"]}`),
	}}
	searcher := &countingSearcher{}
	o := newTestOrchestrator(llm, searcher)

	reply, err := o.Chat(context.Background(), "alice", "find id123 at whenever")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(reply, "Could not parse date: not a date") {
		t.Errorf("reply = %q, want the normalizer's message", reply)
	}
	if searcher.calls != 0 {
		t.Errorf("searcher called %d times, want 0", searcher.calls)
	}
}

func TestChat_ToolCallHappyPath(t *testing.T) {
	llm := &scriptedLLM{responses: []*Message{
		toolCallResponse(`{"search_id":"id123","time_ranges":["2025-02-02"]}`),
		{Role: RoleAssistant, Content: "Transaction id123 completed normally."},
	}}
	searcher := &countingSearcher{result: searchResult()}
	o := newTestOrchestrator(llm, searcher)

	reply, err := o.Chat(context.Background(), "alice", "what happened with id123 on 2025-02-02")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.HasPrefix(reply, "Transaction id123 completed normally.") {
		t.Errorf("reply = %q", reply)
	}
	if !strings.HasSuffix(reply, FollowUpTrailer) {
		t.Errorf("reply = %q, want the follow-up trailer appended", reply)
	}
	if searcher.calls != 1 {
		t.Fatalf("searcher called %d times, want 1", searcher.calls)
	}
	if searcher.lastID != "id123" || searcher.lastRanges[0] != "202502020000" {
		t.Errorf("search args = %q %v, want normalized key", searcher.lastID, searcher.lastRanges)
	}

	// Second model call carries the tool result and synthesis contract.
	second := llm.calls[1]
	var sawToolResult, sawSynthesis bool
	for _, m := range second {
		if m.Role == RoleTool && strings.Contains(m.Content, `"total_results":1`) {
			sawToolResult = true
		}
		if m.Role == RoleUser && m.Content == SynthesisPrompt {
			sawSynthesis = true
		}
	}
	if !sawToolResult {
		t.Error("second call missing tool result message")
	}
	if !sawSynthesis {
		t.Error("second call missing synthesis prompt")
	}
	if len(llm.toolsSeen[1]) != 0 {
		t.Error("synthesis call should not offer tools")
	}

	// The search result and summary are now cached under the canonical key.
	entry, ok := o.Cache.Get("id123", "202502020000")
	if !ok {
		t.Fatal("expected cached entry after fresh search")
	}
	if entry.Summary != "Transaction id123 completed normally." {
		t.Errorf("cached summary = %q", entry.Summary)
	}
}

func TestChat_FollowUpAnswersFromCacheWithoutSearching(t *testing.T) {
	llm := &scriptedLLM{responses: []*Message{
		toolCallResponse(`{"search_id":"id123","time_ranges":["202502020000"]}`),
		{Role: RoleAssistant, Content: "All good."},
		{Role: RoleAssistant, Content: "The api container logged one line."},
	}}
	searcher := &countingSearcher{result: searchResult()}
	o := newTestOrchestrator(llm, searcher)

	if _, err := o.Chat(context.Background(), "alice", "find id123 at 202502020000"); err != nil {
		t.Fatalf("fresh search failed: %v", err)
	}
	if searcher.calls != 1 {
		t.Fatalf("searcher calls after fresh search = %d", searcher.calls)
	}

	reply, err := o.Chat(context.Background(), "alice", "which container was that?")
	if err != nil {
		t.Fatalf("follow-up failed: %v", err)
	}
	if reply != "The api container logged one line." {
		t.Errorf("reply = %q", reply)
	}
	if strings.Contains(reply, FollowUpTrailer) {
		t.Error("follow-up replies must not carry the fresh-search trailer")
	}
	if searcher.calls != 1 {
		t.Errorf("searcher calls after follow-up = %d, want still 1", searcher.calls)
	}

	// The follow-up turn offered no tools.
	last := llm.toolsSeen[len(llm.toolsSeen)-1]
	if len(last) != 0 {
		t.Error("follow-up call should not offer tools")
	}
	// Cached results were part of the prompt.
	msgs := llm.calls[len(llm.calls)-1]
	if !strings.Contains(msgs[1].Content, `"total_results":1`) {
		t.Error("follow-up prompt should embed cached results")
	}
	if !strings.Contains(msgs[1].Content, "All good.") {
		t.Error("follow-up prompt should include the attached summary")
	}
}

func TestChat_FollowUpWithoutContextFallsThroughToFreshSearch(t *testing.T) {
	llm := &scriptedLLM{responses: []*Message{
		{Role: RoleAssistant, Content: "I need a search ID first."},
	}}
	searcher := &countingSearcher{}
	o := newTestOrchestrator(llm, searcher)

	reply, err := o.Chat(context.Background(), "nobody", "what happened yesterday?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != "I need a search ID first." {
		t.Errorf("reply = %q", reply)
	}
	// Fell through to the fresh path: tools were offered.
	if len(llm.toolsSeen[0]) != 1 {
		t.Error("expected tool schema on fresh path")
	}
}

func TestChat_SearchFailureBecomesUserFacingReply(t *testing.T) {
	llm := &scriptedLLM{responses: []*Message{
		toolCallResponse(`{"search_id":"id123","time_ranges":["202502020000"]}`),
	}}
	searcher := &countingSearcher{err: errors.New("bucket is on fire")}
	o := newTestOrchestrator(llm, searcher)

	reply, err := o.Chat(context.Background(), "alice", "find id123")
	if err != nil {
		t.Fatalf("Chat must not propagate search errors, got %v", err)
	}
	if !strings.Contains(reply, "An error occurred while processing your request") {
		t.Errorf("reply = %q, want apologetic message", reply)
	}
	if !strings.Contains(reply, "bucket is on fire") {
		t.Errorf("reply = %q, want underlying message included", reply)
	}
}

func TestChat_ModelFailureBecomesUserFacingReply(t *testing.T) {
	llm := &scriptedLLM{err: errors.New("model overloaded")}
	o := newTestOrchestrator(llm, &countingSearcher{})

	reply, err := o.Chat(context.Background(), "alice", "hello")
	if err != nil {
		t.Fatalf("Chat must not propagate model errors, got %v", err)
	}
	if !strings.Contains(reply, "model overloaded") {
		t.Errorf("reply = %q", reply)
	}
}

func TestChat_EmptyModelResponseUsesFallback(t *testing.T) {
	llm := &scriptedLLM{responses: []*Message{{Role: RoleAssistant}}}
	o := newTestOrchestrator(llm, &countingSearcher{})

	reply, err := o.Chat(context.Background(), "alice", "hello")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if reply != FallbackMessage {
		t.Errorf("reply = %q, want fallback", reply)
	}
}
