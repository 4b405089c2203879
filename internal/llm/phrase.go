package llm

import (
	"context"
	"fmt"
	log "log/slog"
	"strings"

	openai "github.com/openai/openai-go/v3"

	"fillvox/internal/form"
)

const phrasePrompt = `You turn a form field into one short, friendly question that is read aloud.
Reply with the question only. One sentence, at most 25 words, ending with a question mark.
Do not invent choices that are not listed.`

const maxPhraseLen = 200

// Phraser rewords template questions. It never fails: on any problem the
// template question is used as is.
type Phraser struct {
	model string
	chat  chatFunc
}

func NewPhraser(client openai.Client, model string) *Phraser {
	if model == "" {
		model = DefaultModel
	}
	return &Phraser{model: model, chat: clientChat(client)}
}

func (p *Phraser) Phrase(ctx context.Context, f form.Field, fallback string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Label: %s\nType: %s\n", f.Label, f.Kind())
	if len(f.Options) > 0 {
		fmt.Fprintf(&b, "Options: %s\n", strings.Join(f.Options, ", "))
	}
	if f.AccessibilityHint != "" {
		fmt.Fprintf(&b, "Hint: %s\n", f.AccessibilityHint)
	}
	fmt.Fprintf(&b, "Default question: %s", fallback)

	content, err := p.chat(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(phrasePrompt),
			openai.UserMessage(b.String()),
		},
		Model: openai.ChatModel(p.model),
	})
	if err != nil {
		log.Warn("Failed to phrase question, using template", "field", f.Label, "err", err)
		return fallback
	}

	q := strings.Trim(StripFences(content), "\"' \n")
	if q == "" || len(q) > maxPhraseLen || strings.Contains(q, "\n") {
		log.Warn("Discarding phrased question", "field", f.Label, "raw", content)
		return fallback
	}
	return q
}
