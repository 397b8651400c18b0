package batch

import (
	"context"

	"github.com/insightdelivered/statement-expenses/internal/extractor"
	"github.com/insightdelivered/statement-expenses/internal/models"
)

// Input is one document to process.
type Input struct {
	Source string
	load   func(ctx context.Context) (*models.Document, error)
}

// FileInput reads the document at path.
func FileInput(path string) Input {
	return Input{Source: path, load: func(ctx context.Context) (*models.Document, error) {
		return extractor.Load(ctx, path)
	}}
}

// BytesInput decodes an uploaded file; name picks the decoder by extension.
func BytesInput(name string, data []byte) Input {
	return Input{Source: name, load: func(ctx context.Context) (*models.Document, error) {
		return extractor.Parse(ctx, name, data)
	}}
}

// TextInput wraps pasted statement text.
func TextInput(name, text string) Input {
	return Input{Source: name, load: func(context.Context) (*models.Document, error) {
		return extractor.FromText("", name, text)
	}}
}

// FileInputs maps paths to inputs.
func FileInputs(paths []string) []Input {
	inputs := make([]Input, len(paths))
	for i, p := range paths {
		inputs[i] = FileInput(p)
	}
	return inputs
}
