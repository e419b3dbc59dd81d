package generator

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"iptv-shop/internal/domain"
	"iptv-shop/internal/infra/openai"
)

var _ domain.ContentGenerator = (*OpenAIGenerator)(nil)

// OpenAIGenerator строит черновики постов через Chat Completions.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator создаёт генератор черновиков.
func NewOpenAIGenerator(client *openai.Client, model string) *OpenAIGenerator {
	return &OpenAIGenerator{client: client, model: model}
}

const systemPrompt = `You are a content writer for an IPTV streaming service blog.
Write helpful, factual articles in clean HTML (h2/h3 headings, p, ul/ol, strong).
Respond with a JSON object: {"title": "...", "excerpt": "...", "content": "..."}.
The excerpt is a 1-2 sentence summary of at least 50 characters.
The content field holds the HTML body of 800-1500 words and must not repeat the title as an h1.`

type draftPayload struct {
	Title   string `json:"title"`
	Excerpt string `json:"excerpt"`
	Content string `json:"content"`
}

// GenerateDraft реализует domain.ContentGenerator.
func (g *OpenAIGenerator) GenerateDraft(ctx context.Context, topic string, keywords []string) (domain.BlogDraft, error) {
	userPrompt := fmt.Sprintf("Write an article about: %s", topic)
	if len(keywords) > 0 {
		userPrompt += fmt.Sprintf("\nNaturally include these keywords: %s", strings.Join(keywords, ", "))
	}

	resp, err := g.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatMessage{
			{Role: openai.RoleSystem, Content: systemPrompt},
			{Role: openai.RoleUser, Content: userPrompt},
		},
		Temperature:    0.7,
		ResponseFormat: &openai.ChatCompletionResponseFormat{Type: openai.ResponseFormatTypeJSONObject},
	})
	if err != nil {
		return domain.BlogDraft{}, fmt.Errorf("генерация черновика: %w", err)
	}
	if len(resp.Choices) == 0 {
		return domain.BlogDraft{}, fmt.Errorf("генерация черновика: пустой ответ модели")
	}

	var payload draftPayload
	if err := json.Unmarshal([]byte(resp.Choices[0].Message.Content), &payload); err != nil {
		return domain.BlogDraft{}, fmt.Errorf("разбор ответа модели: %w", err)
	}
	if payload.Title == "" || payload.Content == "" {
		return domain.BlogDraft{}, fmt.Errorf("ответ модели без обязательных полей")
	}
	return domain.BlogDraft{
		Title:       payload.Title,
		Excerpt:     payload.Excerpt,
		ContentHTML: payload.Content,
	}, nil
}
