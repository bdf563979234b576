// Package translate turns natural language questions into Elasticsearch
// SQL queries and tabular query results into natural language answers,
// both by prompting the generation service over the metadata dictionary.
package translate

import (
	"context"
	"fmt"

	"github.com/seekwell/seekwell/internal/dictionary"
	"github.com/seekwell/seekwell/internal/extract"
	"github.com/seekwell/seekwell/internal/genai"
	"github.com/seekwell/seekwell/internal/observability"
	"github.com/seekwell/seekwell/internal/prompt"
)

// Result is one translation: the model's column-selection reasoning and
// the extracted SQL statement. Query is empty when the model emitted no
// tagged statement; callers must treat that as "no query", not execute it.
type Result struct {
	Reasoning string `json:"reasoning"`
	Query     string `json:"query"`
}

type Translator struct {
	Generator genai.Generator
}

// Translate renders the translation prompt over the index's dictionary
// entries and extracts the tagged regions from the response.
func (t *Translator) Translate(ctx context.Context, question, index, today string, dict dictionary.Dictionary) (Result, error) {
	entries := dict.ForIndex(index)
	if len(entries) == 0 {
		return Result{}, fmt.Errorf("no dictionary entries for index %q", index)
	}
	metadataJSON, err := entries.JSON()
	if err != nil {
		return Result{}, fmt.Errorf("serialize dictionary for index %q: %w", index, err)
	}

	promptText, err := prompt.Translation(prompt.TranslationInput{
		Question:     question,
		Index:        index,
		Today:        today,
		MetadataJSON: metadataJSON,
	})
	if err != nil {
		return Result{}, err
	}

	raw, err := t.Generator.Generate(ctx, promptText, nil)
	if err != nil {
		observability.ObserveTranslation("", err)
		return Result{}, fmt.Errorf("translate question: %w", err)
	}

	result := Result{
		Reasoning: extract.Tag(raw, "thinking"),
		Query:     extract.Tag(raw, "sql_query"),
	}
	observability.ObserveTranslation(result.Query, nil)
	return result, nil
}
