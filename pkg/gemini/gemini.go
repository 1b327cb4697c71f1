package gemini

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// ClassifyRequest is the contract with the turn classifier: raw text, the
// step the user is currently on and a context bundle built by the resolver.
type ClassifyRequest struct {
	Text           string
	CurrentStep    string
	Language       string
	History        []string
	SelectedPath   string
	CartSummary    string
	MenuVocabulary []string
	AllowedActions []string
}

type IGemini interface {
	ClassifyTurn(ctx context.Context, req ClassifyRequest) (string, error)
}

type geminiClient struct {
	apiKey    string
	modelName string
	client    *genai.Client
}

func NewGeminiClient() (IGemini, error) {
	apiKey := os.Getenv("GEMINI_API_KEY")

	modelName := os.Getenv("GEMINI_MODEL_NAME")
	if apiKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	if modelName == "" {
		modelName = "gemini-1.5-flash"
	}

	client, err := genai.NewClient(context.Background(), option.WithAPIKey(apiKey))
	if err != nil {
		return nil, err
	}

	return &geminiClient{
		apiKey:    apiKey,
		modelName: modelName,
		client:    client,
	}, nil
}

// ClassifyTurn asks the model for a single JSON object describing the turn.
// The raw text is returned as-is; the resolver owns tolerant parsing and
// every failure mode, so an error here just means "classifier unavailable".
func (g *geminiClient) ClassifyTurn(ctx context.Context, req ClassifyRequest) (string, error) {
	model := g.client.GenerativeModel(g.modelName)
	model.ResponseMIMEType = "application/json"

	res, err := model.GenerateContent(ctx, genai.Text(buildPrompt(req)))
	if err != nil {
		return "", err
	}

	if len(res.Candidates) == 0 || len(res.Candidates[0].Content.Parts) == 0 {
		return "", errors.New("no response from Gemini API")
	}

	text, ok := res.Candidates[0].Content.Parts[0].(genai.Text)
	if !ok {
		return "", errors.New("unexpected response format from Gemini API")
	}

	return string(text), nil
}

func buildPrompt(req ClassifyRequest) string {
	var b strings.Builder

	b.WriteString(`You classify one customer message in a cafe ordering chat (Arabic or English).

IMPORTANT: Return ONLY valid JSON, nothing else.

Format:
{
  "action": "item_select",
  "confidence": "high",
  "fields": {"item": "latte", "quantity": "2"},
  "items": [{"item_name": "latte", "quantity": 2}],
  "clarification_needed": false,
  "response_text": ""
}

Rules:
- action: one of `)
	b.WriteString(strings.Join(req.AllowedActions, ", "))
	b.WriteString(`
- confidence: "high", "medium" or "low"
- fields keys: language, category, subcategory, item, quantity, service, location
- service: "dine_in" or "delivery"
- items: only when the message names more than one item, with per-item
  quantities, e.g. for "2 lattes and 1 tea"
`)

	fmt.Fprintf(&b, "\nCurrent step: %s\n", req.CurrentStep)
	if req.Language != "" {
		fmt.Fprintf(&b, "Conversation language: %s\n", req.Language)
	}
	if req.SelectedPath != "" {
		fmt.Fprintf(&b, "Selected so far: %s\n", req.SelectedPath)
	}
	if req.CartSummary != "" {
		fmt.Fprintf(&b, "Current cart: %s\n", req.CartSummary)
	}
	if len(req.MenuVocabulary) > 0 {
		fmt.Fprintf(&b, "Known menu names: %s\n", strings.Join(req.MenuVocabulary, ", "))
	}
	if len(req.History) > 0 {
		b.WriteString("Recent messages:\n")
		for _, h := range req.History {
			fmt.Fprintf(&b, "  %s\n", h)
		}
	}

	fmt.Fprintf(&b, "\nCustomer message: %q\n", req.Text)
	return b.String()
}

func (g *geminiClient) Close() {
	if g.client != nil {
		g.client.Close()
	}
}
