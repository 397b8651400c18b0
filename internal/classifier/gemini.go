// Package classifier asks an external model to pick an expense category.
package classifier

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/shopspring/decimal"
	"google.golang.org/genai"

	"github.com/insightdelivered/statement-expenses/internal/config"
)

// ErrUnavailable is returned for every failure of the external classifier:
// missing credentials, transport errors, timeouts and unusable answers.
var ErrUnavailable = errors.New("external classifier unavailable")

// DefaultModel is used when the configuration names none.
const DefaultModel = "gemini-2.5-flash"

type generateFunc func(ctx context.Context, model, prompt string) (string, error)

// Gemini classifies descriptions with a Gemini model.
type Gemini struct {
	model    string
	generate generateFunc
}

// NewGemini creates a classifier from cfg. The API key comes from cfg or,
// when empty, from GEMINI_API_KEY.
func NewGemini(ctx context.Context, cfg config.ClassifierConfig) (*Gemini, error) {
	apiKey := cfg.APIKey
	if apiKey == "" {
		apiKey = os.Getenv("GEMINI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("%w: no API key", ErrUnavailable)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: create genai client: %w", ErrUnavailable, err)
	}

	gen := func(ctx context.Context, model, prompt string) (string, error) {
		resp, err := client.Models.GenerateContent(ctx, model, genai.Text(prompt), nil)
		if err != nil {
			return "", err
		}
		return resp.Text(), nil
	}
	return newGemini(cfg.Model, gen), nil
}

func newGemini(model string, gen generateFunc) *Gemini {
	if model == "" {
		model = DefaultModel
	}
	return &Gemini{model: model, generate: gen}
}

// Classify returns one of categories for the transaction. The answer is
// matched case-insensitively and returned in its configured spelling.
func (g *Gemini) Classify(ctx context.Context, description string, amount decimal.Decimal, categories []string) (string, error) {
	if len(categories) == 0 {
		return "", fmt.Errorf("%w: no categories", ErrUnavailable)
	}

	raw, err := g.generate(ctx, g.model, BuildPrompt(description, amount, categories))
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	answer := CleanResponse(raw)
	for _, c := range categories {
		if strings.EqualFold(c, answer) {
			return c, nil
		}
	}
	return "", fmt.Errorf("%w: answer %q is not a known category", ErrUnavailable, answer)
}

// BuildPrompt renders the classification request.
func BuildPrompt(description string, amount decimal.Decimal, categories []string) string {
	var b strings.Builder
	b.WriteString("Categorize this business expense from a bank or credit card statement.\n\n")
	fmt.Fprintf(&b, "Description: %s\n", description)
	fmt.Fprintf(&b, "Amount: %s\n\n", amount.Abs().StringFixed(2))
	b.WriteString("Choose exactly one of these categories:\n")
	for _, c := range categories {
		fmt.Fprintf(&b, "- %s\n", c)
	}
	b.WriteString("\nRespond with ONLY the category name. Do not add explanations, quotes or Markdown.\n")
	return b.String()
}

// CleanResponse strips code fences, quotes, a "Category:" label and any
// lines after the first non-empty one.
func CleanResponse(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.TrimPrefix(s, "```")
	s = strings.TrimSuffix(s, "```")

	for _, line := range strings.Split(s, "\n") {
		line = strings.TrimSpace(line)
		if line == "" || line == "text" || line == "plaintext" {
			continue
		}
		s = line
		break
	}

	if i := strings.Index(s, ":"); i >= 0 && strings.EqualFold(strings.TrimSpace(s[:i]), "category") {
		s = s[i+1:]
	}
	s = strings.Trim(strings.TrimSpace(s), "\"'`*.")
	return strings.TrimSpace(s)
}
