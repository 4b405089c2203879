// Package llm wraps the chat model: it reconstructs a field schema from a
// scanned document and, optionally, rewords interview questions.
package llm

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"regexp"
	"strings"

	openai "github.com/openai/openai-go/v3"
)

const DefaultModel = "gpt-4o-mini"

// chatFunc runs one completion and returns the first choice's content.
type chatFunc func(ctx context.Context, params openai.ChatCompletionNewParams) (string, error)

func clientChat(client openai.Client) chatFunc {
	return func(ctx context.Context, params openai.ChatCompletionNewParams) (string, error) {
		resp, err := client.Chat.Completions.New(ctx, params)
		if err != nil {
			return "", fmt.Errorf("chat completion: %w", err)
		}
		if len(resp.Choices) == 0 {
			return "", errors.New("no choices in response")
		}
		content := resp.Choices[0].Message.Content
		if strings.TrimSpace(content) == "" {
			return "", errors.New("empty message content")
		}
		log.Debug("Chat completion", "model", params.Model, "chars", len(content))
		return content, nil
	}
}

var (
	fenceOpenRe  = regexp.MustCompile("^```[a-zA-Z]*\\n?")
	fenceCloseRe = regexp.MustCompile("\\n?```$")
)

// StripFences removes a markdown code fence wrapped around model output.
func StripFences(s string) string {
	s = strings.TrimSpace(s)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = fenceOpenRe.ReplaceAllString(s, "")
	s = fenceCloseRe.ReplaceAllString(strings.TrimSpace(s), "")
	return strings.TrimSpace(s)
}
