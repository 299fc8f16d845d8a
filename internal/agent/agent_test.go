package agent

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/grantscope/orgsite/internal/fetch"
	"github.com/grantscope/orgsite/internal/resolver/validate"
	"github.com/grantscope/orgsite/internal/search"
	pkgerrors "github.com/grantscope/orgsite/pkg/errors"
)

// scriptedLLM replays a fixed sequence of replies.
type scriptedLLM struct {
	replies []Message
	calls   int
	// lastMessages captures the conversation at the most recent call.
	lastMessages []Message
}

func (s *scriptedLLM) Chat(_ context.Context, messages []Message, _ []Tool) (Message, error) {
	s.lastMessages = messages
	if s.calls >= len(s.replies) {
		return Message{}, errors.New("script exhausted")
	}
	reply := s.replies[s.calls]
	s.calls++
	return reply, nil
}

type stubBackend struct {
	results []search.Result
}

func (s *stubBackend) Name() string    { return "stub" }
func (s *stubBackend) Available() bool { return true }
func (s *stubBackend) Search(context.Context, string, int) ([]search.Result, error) {
	return s.results, nil
}

func testValidator(t *testing.T) (*validate.Validator, string) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>William Penn Foundation homepage</body></html>`)
	}))
	t.Cleanup(srv.Close)
	v := validate.New(fetch.New(2*time.Second, 0), 0.3, nil, 2)
	return v, srv.URL + "/"
}

var pennTokens = []string{"william", "penn"}

func TestAgentAcceptsValidatedAnswer(t *testing.T) {
	v, goodURL := testValidator(t)
	llm := &scriptedLLM{replies: []Message{
		{Role: "assistant", Content: goodURL},
	}}

	a := New(llm, &stubBackend{}, v, Config{MaxIterations: 5, Budget: 10 * time.Second})
	url, iters, err := a.Resolve(context.Background(), "William Penn Foundation", pennTokens, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if url != goodURL {
		t.Errorf("url = %q, want %q", url, goodURL)
	}
	if iters != 1 {
		t.Errorf("iterations = %d, want 1", iters)
	}
}

func TestAgentRunsToolsBeforeAnswering(t *testing.T) {
	v, goodURL := testValidator(t)
	llm := &scriptedLLM{replies: []Message{
		{Role: "assistant", ToolCalls: []ToolCall{{
			ID:   "call-1",
			Type: "function",
			Function: FunctionCall{
				Name:      "web_search",
				Arguments: `{"query":"william penn foundation official website"}`,
			},
		}}},
		{Role: "assistant", Content: goodURL},
	}}
	backend := &stubBackend{results: []search.Result{
		{URL: goodURL, Title: "William Penn Foundation", Snippet: "Official site."},
	}}

	a := New(llm, backend, v, Config{MaxIterations: 5, Budget: 10 * time.Second})
	url, iters, err := a.Resolve(context.Background(), "William Penn Foundation", pennTokens, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if url != goodURL || iters != 2 {
		t.Errorf("url=%q iters=%d", url, iters)
	}

	// The tool observation was fed back as a tool-role message.
	foundToolMsg := false
	for _, m := range llm.lastMessages {
		if m.Role == "tool" && m.ToolCallID == "call-1" {
			foundToolMsg = true
			if !strings.Contains(m.Content, goodURL) {
				t.Errorf("tool observation missing result URL: %q", m.Content)
			}
		}
	}
	if !foundToolMsg {
		t.Error("tool observation never appended to the conversation")
	}
}

func TestAgentRejectsApologies(t *testing.T) {
	v, goodURL := testValidator(t)
	llm := &scriptedLLM{replies: []Message{
		{Role: "assistant", Content: "Sorry, I am unable to find the website."},
		{Role: "assistant", Content: goodURL},
	}}

	a := New(llm, &stubBackend{}, v, Config{MaxIterations: 5, Budget: 10 * time.Second})
	url, iters, err := a.Resolve(context.Background(), "William Penn Foundation", pennTokens, nil)
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if url != goodURL || iters != 2 {
		t.Errorf("url=%q iters=%d, want retry after apology", url, iters)
	}
}

func TestAgentRejectsUnvalidatedAnswer(t *testing.T) {
	v, _ := testValidator(t)
	llm := &scriptedLLM{replies: []Message{
		// Dead host: validation fails, so the answer is rejected.
		{Role: "assistant", Content: "http://192.0.2.1/"},
		{Role: "assistant", Content: "http://192.0.2.1/"},
	}}

	a := New(llm, &stubBackend{}, v, Config{MaxIterations: 2, Budget: 10 * time.Second})
	_, iters, err := a.Resolve(context.Background(), "William Penn Foundation", pennTokens, nil)
	if !errors.Is(err, pkgerrors.ErrAgentExhausted) {
		t.Fatalf("err = %v, want ErrAgentExhausted", err)
	}
	if iters != 2 {
		t.Errorf("iterations = %d, want 2", iters)
	}
}

func TestAgentIterationCap(t *testing.T) {
	v, _ := testValidator(t)
	toolCall := Message{Role: "assistant", ToolCalls: []ToolCall{{
		ID:       "c",
		Type:     "function",
		Function: FunctionCall{Name: "web_search", Arguments: `{"query":"x"}`},
	}}}
	llm := &scriptedLLM{replies: []Message{toolCall, toolCall, toolCall, toolCall}}

	a := New(llm, &stubBackend{}, v, Config{MaxIterations: 3, Budget: 10 * time.Second})
	_, iters, err := a.Resolve(context.Background(), "Acme", []string{"acme"}, nil)
	if !errors.Is(err, pkgerrors.ErrAgentExhausted) {
		t.Fatalf("err = %v, want ErrAgentExhausted", err)
	}
	if iters != 3 {
		t.Errorf("iterations = %d, want cap of 3", iters)
	}
}

func TestAgentBudgetExhaustion(t *testing.T) {
	v, _ := testValidator(t)
	llm := &scriptedLLM{replies: []Message{
		{Role: "assistant", Content: "not a url"},
	}}

	a := New(llm, &stubBackend{}, v, Config{MaxIterations: 10, Budget: time.Nanosecond})
	_, _, err := a.Resolve(context.Background(), "Acme", []string{"acme"}, nil)
	if !errors.Is(err, pkgerrors.ErrAgentExhausted) {
		t.Fatalf("err = %v, want ErrAgentExhausted", err)
	}
}

func TestRunToolValidateURL(t *testing.T) {
	v, goodURL := testValidator(t)
	a := New(&scriptedLLM{}, &stubBackend{}, v, Config{})

	obs := a.runTool(context.Background(), ToolCall{
		Function: FunctionCall{Name: "validate_url", Arguments: fmt.Sprintf(`{"url":%q}`, goodURL)},
	}, pennTokens)
	if !strings.HasPrefix(obs, "VALID:") {
		t.Errorf("observation = %q, want VALID prefix", obs)
	}

	obs = a.runTool(context.Background(), ToolCall{
		Function: FunctionCall{Name: "validate_url", Arguments: `{"url":"http://192.0.2.1/"}`},
	}, pennTokens)
	if !strings.HasPrefix(obs, "INVALID:") {
		t.Errorf("observation = %q, want INVALID prefix", obs)
	}
}

func TestRunToolUnknown(t *testing.T) {
	v, _ := testValidator(t)
	a := New(&scriptedLLM{}, &stubBackend{}, v, Config{})
	obs := a.runTool(context.Background(), ToolCall{Function: FunctionCall{Name: "launch_rockets"}}, nil)
	if !strings.Contains(obs, "unknown tool") {
		t.Errorf("observation = %q", obs)
	}
}

func TestSystemPromptIncludesHints(t *testing.T) {
	hints := &Hints{Name: "Acme Fund", EIN: "12-3456789", City: "Philadelphia"}
	prompt := systemPrompt(1, hints)
	for _, want := range []string{"12-3456789", "Philadelphia", "Acme Fund"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("system prompt missing hint %q", want)
		}
	}
	if plain := systemPrompt(1, nil); strings.Contains(plain, "KNOWN FACTS") {
		t.Error("hint section must be absent without hints")
	}
}
