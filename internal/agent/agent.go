// Package agent is the bounded, tool-using AI fallback invoked only when
// heuristic resolution yields no validated answer. The model drives a small
// loop over two tools, web_search and validate_url, capped by an iteration
// count and a wall-clock budget. Exhaustion is a normal outcome, surfaced
// as ErrAgentExhausted, never a fault.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/grantscope/orgsite/internal/resolver/validate"
	"github.com/grantscope/orgsite/internal/search"
	"github.com/grantscope/orgsite/internal/urlutil"
	pkgerrors "github.com/grantscope/orgsite/pkg/errors"
)

// Agent runs the fallback search loop.
type Agent struct {
	llm           LLM
	backend       search.Backend
	validator     *validate.Validator
	maxIterations int
	budget        time.Duration
	variation     int
	logger        *slog.Logger
}

// Config bounds the agent loop.
type Config struct {
	MaxIterations   int
	Budget          time.Duration
	PromptVariation int
}

// New creates an Agent. The validator confirms candidate URLs before the
// agent trusts them.
func New(llm LLM, backend search.Backend, validator *validate.Validator, cfg Config) *Agent {
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 10
	}
	if cfg.Budget <= 0 {
		cfg.Budget = 60 * time.Second
	}
	return &Agent{
		llm:           llm,
		backend:       backend,
		validator:     validator,
		maxIterations: cfg.MaxIterations,
		budget:        cfg.Budget,
		variation:     cfg.PromptVariation,
		logger:        slog.Default().With("component", "fallback-agent"),
	}
}

// Resolve asks the model for the organization's homepage URL, letting it
// search and validate through tools. It returns a canonical root URL, the
// number of iterations consumed, and ErrAgentExhausted when the loop runs
// out of iterations or time without an answer.
func (a *Agent) Resolve(ctx context.Context, name string, tokens []string, hints *Hints) (string, int, error) {
	ctx, cancel := context.WithTimeout(ctx, a.budget)
	defer cancel()

	messages := []Message{
		{Role: "system", Content: systemPrompt(a.variation, hints)},
		{Role: "user", Content: fmt.Sprintf(
			"I am looking for the homepage URL of the organization: %q. Please search for the official website and return only the URL.", name)},
	}

	for iter := 1; iter <= a.maxIterations; iter++ {
		if ctx.Err() != nil {
			a.logger.Info("agent budget exhausted", "name", name, "iterations", iter-1)
			return "", iter - 1, fmt.Errorf("%w: time budget spent after %d iterations", pkgerrors.ErrAgentExhausted, iter-1)
		}

		reply, err := a.llm.Chat(ctx, messages, a.tools())
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
				return "", iter - 1, fmt.Errorf("%w: time budget spent after %d iterations", pkgerrors.ErrAgentExhausted, iter-1)
			}
			return "", iter - 1, fmt.Errorf("%w: chat failed: %v", pkgerrors.ErrAgentExhausted, err)
		}
		messages = append(messages, reply)

		if len(reply.ToolCalls) == 0 {
			if url, ok := a.acceptAnswer(ctx, reply.Content, tokens); ok {
				a.logger.Info("agent resolved", "name", name, "url", url, "iterations", iter)
				return url, iter, nil
			}
			// Unusable answer: nudge the model back into the loop.
			messages = append(messages, Message{
				Role:    "user",
				Content: "That is not a verifiable URL. Keep searching and answer with the bare homepage URL only.",
			})
			continue
		}

		for _, call := range reply.ToolCalls {
			messages = append(messages, Message{
				Role:       "tool",
				ToolCallID: call.ID,
				Content:    a.runTool(ctx, call, tokens),
			})
		}
	}

	a.logger.Info("agent iterations exhausted", "name", name, "iterations", a.maxIterations)
	return "", a.maxIterations, fmt.Errorf("%w: no URL after %d iterations", pkgerrors.ErrAgentExhausted, a.maxIterations)
}

// acceptAnswer extracts and verifies a final URL from model output. The
// answer must parse, reduce to a root URL, and pass live validation.
func (a *Agent) acceptAnswer(ctx context.Context, content string, tokens []string) (string, bool) {
	content = strings.TrimSpace(content)
	lower := strings.ToLower(content)
	if !strings.HasPrefix(lower, "http") ||
		strings.Contains(lower, "sorry") || strings.Contains(lower, "unable") {
		return "", false
	}
	root := urlutil.Root(strings.Fields(content)[0])
	if root == "" {
		return "", false
	}
	if !a.validator.Validate(ctx, root, tokens) {
		return "", false
	}
	return root, true
}

func (a *Agent) tools() []Tool {
	return []Tool{
		{
			Type: "function",
			Function: FunctionDef{
				Name:        "web_search",
				Description: "Search the web and return result URLs, titles, and snippets.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"query": map[string]any{
							"type":        "string",
							"description": "The search query.",
						},
					},
					"required": []string{"query"},
				},
			},
		},
		{
			Type: "function",
			Function: FunctionDef{
				Name:        "validate_url",
				Description: "Fetch a URL and report whether its content matches the organization.",
				Parameters: map[string]any{
					"type": "object",
					"properties": map[string]any{
						"url": map[string]any{
							"type":        "string",
							"description": "The URL to validate.",
						},
					},
					"required": []string{"url"},
				},
			},
		},
	}
}

// runTool executes one tool call and returns the observation text fed back
// to the model. Tool failures become observations, not errors: the model
// decides what to try next.
func (a *Agent) runTool(ctx context.Context, call ToolCall, tokens []string) string {
	switch call.Function.Name {
	case "web_search":
		var args struct {
			Query string `json:"query"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil || args.Query == "" {
			return "error: web_search requires a query argument"
		}
		results, err := a.backend.Search(ctx, args.Query, 8)
		if err != nil {
			return fmt.Sprintf("search failed: %v", err)
		}
		if len(results) == 0 {
			return "no results"
		}
		var b strings.Builder
		for i, r := range results {
			fmt.Fprintf(&b, "%d. %s - %s\n   %s\n", i+1, r.Title, r.URL, r.Snippet)
		}
		return b.String()

	case "validate_url":
		var args struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal([]byte(call.Function.Arguments), &args); err != nil || args.URL == "" {
			return "error: validate_url requires a url argument"
		}
		root := urlutil.Root(args.URL)
		if root == "" {
			return "invalid URL"
		}
		if a.validator.Validate(ctx, root, tokens) {
			return fmt.Sprintf("VALID: %s is the organization's site", root)
		}
		return fmt.Sprintf("INVALID: %s does not match the organization", root)

	default:
		return fmt.Sprintf("unknown tool %q", call.Function.Name)
	}
}
