package prompts

import (
	"fmt"
	"regexp"
	"strings"
)

var placeholderPattern = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_]+)\s*\}\}`)

// PromptBuilder composes a registered prompt with extra fragments and
// {{variable}} substitution.
type PromptBuilder struct {
	fragments []string
	variables map[string]string
}

// NewPromptBuilder starts from one exact prompt version.
func NewPromptBuilder(registry *PromptRegistry, id string, version PromptVersion) (*PromptBuilder, error) {
	p, err := registry.Get(id, version)
	if err != nil {
		return nil, err
	}
	return newBuilder(p), nil
}

func newBuilder(p *Prompt) *PromptBuilder {
	return &PromptBuilder{
		fragments: []string{p.Content},
		variables: make(map[string]string),
	}
}

// AddFragment appends a paragraph to the prompt.
func (b *PromptBuilder) AddFragment(text string) *PromptBuilder {
	b.fragments = append(b.fragments, text)
	return b
}

func (b *PromptBuilder) SetVariable(key, value string) *PromptBuilder {
	b.variables[key] = value
	return b
}

// Build joins the fragments and substitutes variables. A placeholder with no
// value is an error so a prompt never reaches the model half rendered.
func (b *PromptBuilder) Build() (string, error) {
	text := strings.Join(b.fragments, "\n\n")

	var missing []string
	out := placeholderPattern.ReplaceAllStringFunc(text, func(m string) string {
		key := placeholderPattern.FindStringSubmatch(m)[1]
		if v, ok := b.variables[key]; ok {
			return v
		}
		missing = append(missing, key)
		return m
	})
	if len(missing) > 0 {
		return "", fmt.Errorf("prompt variables not set: %s", strings.Join(missing, ", "))
	}
	return out, nil
}

// Render builds the latest version of a registered prompt.
func Render(registry *PromptRegistry, id string, vars map[string]string) (string, error) {
	p, err := registry.GetLatest(id)
	if err != nil {
		return "", err
	}
	b := newBuilder(p)
	for k, v := range vars {
		b.SetVariable(k, v)
	}
	return b.Build()
}
