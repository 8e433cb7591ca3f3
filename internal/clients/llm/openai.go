package llm

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIGenerator is a TextGenerator backed by an OpenAI-compatible chat
// completion endpoint.
type OpenAIGenerator struct {
	client *openai.Client
	model  string
}

// NewOpenAIGenerator creates a generator for the given model. The client is
// constructed once at process start and passed around by reference; there is
// no lazily initialized global.
func NewOpenAIGenerator(apiKey, model string) *OpenAIGenerator {
	return &OpenAIGenerator{
		client: openai.NewClient(apiKey),
		model:  model,
	}
}

// Model returns the provider model identifier.
func (g *OpenAIGenerator) Model() string {
	return g.model
}

// Generate streams a chat completion and accumulates the text, reporting the
// running length through onProgress. Token usage is taken from the final
// usage chunk when the provider supplies one.
func (g *OpenAIGenerator) Generate(ctx context.Context, system, user string, onProgress ProgressFunc) (*Generation, error) {
	start := time.Now()

	req := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: system},
			{Role: openai.ChatMessageRoleUser, Content: user},
		},
		Stream: true,
		StreamOptions: &openai.StreamOptions{
			IncludeUsage: true,
		},
	}

	stream, err := g.client.CreateChatCompletionStream(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("llm stream start failed for model %s: %w", g.model, err)
	}
	defer stream.Close()

	var builder strings.Builder
	tokens := 0

	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("llm stream failed for model %s: %w", g.model, err)
		}
		if chunk.Usage != nil {
			tokens = chunk.Usage.TotalTokens
		}
		if len(chunk.Choices) == 0 {
			continue
		}
		delta := chunk.Choices[0].Delta.Content
		if delta == "" {
			continue
		}
		builder.WriteString(delta)
		if onProgress != nil {
			onProgress(builder.Len())
		}
	}

	text := builder.String()
	if text == "" {
		return nil, fmt.Errorf("llm returned no text for model %s", g.model)
	}

	return &Generation{
		Text:    text,
		Model:   g.model,
		Tokens:  tokens,
		Elapsed: time.Since(start),
	}, nil
}
