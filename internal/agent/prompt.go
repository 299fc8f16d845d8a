package agent

import (
	"fmt"
	"strings"
)

// Hints are optional contextual fields supplied by the caller. They are
// never consumed by the heuristic pipeline, only injected into the agent's
// system prompt.
type Hints struct {
	Name        string `json:"foundation_name,omitempty"`
	EIN         string `json:"ein,omitempty"`
	Contact     string `json:"contact,omitempty"`
	Address     string `json:"address,omitempty"`
	City        string `json:"city,omitempty"`
	WebsiteText string `json:"website_text,omitempty"`
}

// Empty reports whether no hint field is set.
func (h *Hints) Empty() bool {
	return h == nil || (h.Name == "" && h.EIN == "" && h.Contact == "" &&
		h.Address == "" && h.City == "" && h.WebsiteText == "")
}

const basePrompt = `You are a research assistant that finds official organization websites. Given an organization name, you must:

SEARCH STRATEGY (try multiple approaches):
1. Start with: "[Organization Name] official website"
2. If no clear result, try: "[Organization Name] .org"
3. If still unclear, try: "[Organization Name] foundation grants"
4. If needed, try variations of the name (with/without "The", abbreviations)

ANALYSIS CRITERIA:
- Prefer URLs on .org, .foundation, or similar domains
- Prioritize results whose domain clearly matches the organization name
- Use the validate_url tool to confirm a URL belongs to the organization
- Reject social networks, directories, and encyclopedia pages

OUTPUT: Return ONLY the most reliable URL you find, nothing else.`

const concisePrompt = `Find the official homepage URL for the organization named by the user. Search with the web_search tool, confirm your best candidate with validate_url, and answer with the bare URL only. Never answer with a directory, social network, or news page.`

const thoroughPrompt = `You locate official organization homepages. Work methodically: search at least two distinct query formulations with web_search, compare the candidate domains against the organization name, and call validate_url on every candidate before trusting it. If nothing validates, answer with the single word UNKNOWN. Otherwise answer with the bare URL only.`

// systemPrompt assembles the prompt for the chosen variation, appending a
// known-facts section when hints are present.
func systemPrompt(variation int, hints *Hints) string {
	var prompt string
	switch variation {
	case 2:
		prompt = concisePrompt
	case 3:
		prompt = thoroughPrompt
	default:
		prompt = basePrompt
	}

	if hints.Empty() {
		return prompt
	}

	var b strings.Builder
	b.WriteString(prompt)
	b.WriteString("\n\nKNOWN FACTS about the organization (use them to disambiguate):\n")
	appendHint(&b, "Name", hints.Name)
	appendHint(&b, "EIN", hints.EIN)
	appendHint(&b, "Contact", hints.Contact)
	appendHint(&b, "Address", hints.Address)
	appendHint(&b, "City", hints.City)
	appendHint(&b, "Website text", hints.WebsiteText)
	return b.String()
}

func appendHint(b *strings.Builder, label, value string) {
	if v := strings.TrimSpace(value); v != "" {
		fmt.Fprintf(b, "- %s: %s\n", label, v)
	}
}
