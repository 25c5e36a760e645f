package assistant

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/sashabaranov/go-openai"

	"github.com/arxivtex/arxivtex/pkg/config"
)

// OpenAI answers one-shot questions through an OpenAI-compatible chat completion API
type OpenAI struct {
	client *openai.Client
	config config.AssistantConfig
	out    io.Writer
}

// NewOpenAI creates a new OpenAI backend writing answers to out
func NewOpenAI(cfg config.AssistantConfig, out io.Writer) *OpenAI {
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.Endpoint != "" {
		clientConfig.BaseURL = cfg.Endpoint
	}

	return &OpenAI{
		client: openai.NewClientWithConfig(clientConfig),
		config: cfg,
		out:    out,
	}
}

// Ask sends the prompt as the system message and the paper as the user message
func (o *OpenAI) Ask(ctx context.Context, req Request) error {
	if req.Interactive {
		return errors.New("interactive sessions need the cli backend")
	}

	chatReq := openai.ChatCompletionRequest{
		Model:       o.config.Model,
		Temperature: float32(o.config.Temperature),
		MaxTokens:   o.config.MaxTokens,
		Messages: []openai.ChatCompletionMessage{
			{
				Role:    openai.ChatMessageRoleSystem,
				Content: req.Prompt,
			},
			{
				Role:    openai.ChatMessageRoleUser,
				Content: req.Paper,
			},
		},
	}

	resp, err := o.client.CreateChatCompletion(ctx, chatReq)
	if err != nil {
		return fmt.Errorf("llm request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		return fmt.Errorf("no response from llm")
	}

	if _, err := fmt.Fprintln(o.out, resp.Choices[0].Message.Content); err != nil {
		return fmt.Errorf("write answer: %w", err)
	}
	return nil
}
