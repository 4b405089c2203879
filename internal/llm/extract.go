package llm

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"os"
	"path/filepath"
	"strings"

	"github.com/ledongthuc/pdf"
	openai "github.com/openai/openai-go/v3"

	"fillvox/internal/form"
)

// ErrExtraction means no usable schema came out of the document.
var ErrExtraction = errors.New("schema extraction failed")

const extractPrompt = `You reconstruct a JSON form schema from a scanned form.
Return ONLY valid JSON, no prose and no markdown.

Use this layout:
{
  "formTitle": "<title>",
  "fields": [
    {
      "id": "<snake_case id>",
      "label": "<label as printed on the form>",
      "type": "text|email|tel|date|number|dropdown|radio|textarea|file",
      "required": true|false,
      "options": ["<choice>", ...],
      "accessibilityHint": "<short hint for a screen reader>",
      "value": null
    }
  ]
}

Rules:
- Every field gets a non-empty label, unique within the form.
- "options" only for dropdown and radio fields.
- Checkbox groups and "select if" questions become radio or dropdown fields.
- Leave every value null.`

var imageTypes = map[string]string{
	".png":  "image/png",
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".gif":  "image/gif",
	".webp": "image/webp",
}

// Extractor turns a document into a field schema. JSON documents are taken
// as a schema directly. PDFs are sent as text, images as a vision message.
type Extractor struct {
	model string
	chat  chatFunc
}

func NewExtractor(client openai.Client, model string) *Extractor {
	if model == "" {
		model = DefaultModel
	}
	return &Extractor{model: model, chat: clientChat(client)}
}

// Extract never returns a nil schema together with a nil error. Any failure
// to obtain a schema with at least one field wraps ErrExtraction.
func (e *Extractor) Extract(ctx context.Context, path string) (*form.Schema, error) {
	ext := strings.ToLower(filepath.Ext(path))

	var (
		schema *form.Schema
		err    error
	)
	switch {
	case ext == ".json":
		schema, err = form.Load(path)
	case ext == ".pdf":
		schema, err = e.fromPDF(ctx, path)
	case imageTypes[ext] != "":
		schema, err = e.fromImage(ctx, path, imageTypes[ext])
	default:
		err = fmt.Errorf("unsupported document type %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, err)
	}

	if len(schema.Fields()) == 0 {
		return nil, fmt.Errorf("%w: %w", ErrExtraction, form.ErrNoFields)
	}

	log.Info("Extracted schema", "path", path, "shape", schema.Shape, "fields", len(schema.Fields()))
	return schema, nil
}

func (e *Extractor) fromPDF(ctx context.Context, path string) (*form.Schema, error) {
	lines, err := pdfLines(path)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, errors.New("pdf has no text layer")
	}

	user := "Here are the lines from the form:\n" + strings.Join(lines, "\n") +
		"\nPlease return ONLY valid JSON in the schema format."
	return e.complete(ctx, openai.UserMessage(user))
}

func (e *Extractor) fromImage(ctx context.Context, path, mime string) (*form.Schema, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image: %w", err)
	}
	if sniffed := http.DetectContentType(data); strings.HasPrefix(sniffed, "image/") {
		mime = sniffed
	}
	url := "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data)

	return e.complete(ctx, openai.UserMessage([]openai.ChatCompletionContentPartUnionParam{
		openai.TextContentPart("This is a scanned form. Reconstruct its schema."),
		openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: url}),
	}))
}

func (e *Extractor) complete(ctx context.Context, user openai.ChatCompletionMessageParamUnion) (*form.Schema, error) {
	content, err := e.chat(ctx, openai.ChatCompletionNewParams{
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(extractPrompt),
			user,
		},
		Model:       openai.ChatModel(e.model),
		Temperature: openai.Float(0),
	})
	if err != nil {
		return nil, err
	}

	schema, err := form.Parse([]byte(StripFences(content)))
	if err != nil {
		log.Debug("Unparseable model output", "raw", content)
		return nil, err
	}
	return schema, nil
}

// pdfLines returns the non-empty text lines of every page in order.
func pdfLines(path string) ([]string, error) {
	f, r, err := pdf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}
	defer f.Close()

	var lines []string
	for i := 1; i <= r.NumPage(); i++ {
		page := r.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("page %d: %w", i, err)
		}
		for _, line := range strings.Split(text, "\n") {
			if line = strings.TrimSpace(line); line != "" {
				lines = append(lines, line)
			}
		}
	}
	return lines, nil
}
