// Package workflow runs a whole session: schema in, interview, filled
// schema and optional annotated image out.
package workflow

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"os"
	"path/filepath"
	"strings"

	"fillvox/internal/form"
	"fillvox/internal/interview"
	"fillvox/internal/render"
)

type Extractor interface {
	Extract(ctx context.Context, path string) (*form.Schema, error)
}

type Interviewer interface {
	Run(ctx context.Context, schema *form.Schema) (*interview.Result, error)
}

type Renderer interface {
	Render(imagePath string, schema *form.Schema, coords render.Coordinates) (string, error)
}

type Workflow struct {
	Extractor   Extractor
	Interviewer Interviewer
	Renderer    Renderer // nil disables annotation

	Output      string
	Coordinates string
}

type Report struct {
	SchemaPath      string
	CoordinatesPath string
	ImagePath       string
	Outcome         interview.State
	Summary         string
	Result          *interview.Result
}

// Input names the form. Schema, when set, is read directly and Document is
// only used as the image to annotate.
type Input struct {
	Document string
	Schema   string
}

func (w *Workflow) Run(ctx context.Context, in Input) (*Report, error) {
	schema, err := w.schema(ctx, in)
	if err != nil {
		return nil, err
	}
	log.Info("Schema ready", "title", schema.Title(), "fields", len(schema.Fields()))

	res, err := w.Interviewer.Run(ctx, schema)
	if err != nil {
		return nil, err
	}

	rep := &Report{Outcome: res.Outcome, Summary: res.Summary, Result: res}
	if err := form.Save(w.Output, res.Schema); err != nil {
		return rep, err
	}
	rep.SchemaPath = w.Output
	log.Info("Saved filled schema", "path", w.Output, "outcome", res.Outcome)

	if w.Renderer != nil && isImage(in.Document) {
		rep.CoordinatesPath, rep.ImagePath = w.annotate(in.Document, res.Schema)
	}
	return rep, nil
}

func (w *Workflow) schema(ctx context.Context, in Input) (*form.Schema, error) {
	var (
		s   *form.Schema
		err error
	)
	switch {
	case in.Schema != "":
		s, err = form.Load(in.Schema)
	case in.Document != "" && w.Extractor != nil:
		s, err = w.Extractor.Extract(ctx, in.Document)
	default:
		err = errors.New("no document")
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", interview.ErrExtractionFailure, err)
	}
	if s == nil {
		return nil, interview.ErrExtractionFailure
	}
	return s, nil
}

// annotate is best effort: the filled schema is already saved.
func (w *Workflow) annotate(imagePath string, schema *form.Schema) (coordsPath, out string) {
	coords, err := render.LoadCoordinates(w.Coordinates)
	switch {
	case err == nil:
		coordsPath = w.Coordinates
	case errors.Is(err, os.ErrNotExist):
		log.Info("No field coordinates, stacking values in the margin", "path", w.Coordinates)
	default:
		log.Warn("Ignoring field coordinates", "path", w.Coordinates, "err", err)
	}

	out, err = w.Renderer.Render(imagePath, schema, coords)
	if err != nil {
		log.Error("Failed to annotate form image", "image", imagePath, "err", err)
		return coordsPath, ""
	}
	log.Info("Annotated form image", "path", out)
	return coordsPath, out
}

func isImage(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png", ".jpg", ".jpeg", ".gif", ".bmp", ".tif", ".tiff", ".webp":
		return true
	}
	return false
}
