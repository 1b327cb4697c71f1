package openai

import (
	"context"
	"fmt"
	"os"

	"github.com/sashabaranov/go-openai"
)

type IChatGPT interface {
	SmallTalkReply(ctx context.Context, userMessage string, language string, history []ConversationMessage) (string, error)
}

type ConversationMessage struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

type chatGPTService struct {
	client *openai.Client
	model  string
}

func NewChatGPT() IChatGPT {
	apiKey := os.Getenv("OPENAI_API_KEY")
	model := os.Getenv("OPENAI_CHAT_MODEL")

	if model == "" {
		model = openai.GPT4oMini
	}

	return &chatGPTService{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// SmallTalkReply answers chit-chat that is not part of the ordering flow
// with a short friendly message that steers the customer back to the menu.
func (c *chatGPTService) SmallTalkReply(
	ctx context.Context,
	userMessage string,
	language string,
	history []ConversationMessage,
) (string, error) {
	systemPrompt := `You are the friendly assistant of Qahwa Cafe on WhatsApp.

Rules:
- Reply in the customer's language (` + language + ` if known, otherwise mirror the message).
- Maximum 2 short sentences.
- Always end by nudging the customer back to their order or the menu.
- Never invent menu items, prices or promotions.`

	messages := []openai.ChatCompletionMessage{
		{
			Role:    openai.ChatMessageRoleSystem,
			Content: systemPrompt,
		},
	}

	for _, msg := range history {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    msg.Role,
			Content: msg.Content,
		})
	}

	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: userMessage,
	})

	resp, err := c.client.CreateChatCompletion(
		ctx,
		openai.ChatCompletionRequest{
			Model:       c.model,
			Messages:    messages,
			Temperature: 0.7,
			MaxTokens:   120,
		},
	)

	if err != nil {
		return "", fmt.Errorf("ChatGPT API error: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no response from ChatGPT")
	}

	return resp.Choices[0].Message.Content, nil
}
