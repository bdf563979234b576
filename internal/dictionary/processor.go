package dictionary

import (
	"context"
	"fmt"
	"strings"

	"github.com/seekwell/seekwell/internal/extract"
	"github.com/seekwell/seekwell/internal/genai"
	"github.com/seekwell/seekwell/internal/observability"
	"github.com/seekwell/seekwell/internal/prompt"
	"github.com/seekwell/seekwell/internal/search"
)

// FieldSampler yields diverse representative values for one field.
type FieldSampler interface {
	Sample(ctx context.Context, index, field, dataType string, size int) (search.SampleSet, error)
}

// FieldProcessor turns one field into one dictionary entry: sample the
// store, render the description prompt, generate, and recover the JSON
// payload. A response with no recoverable payload degrades to a fallback
// entry rather than failing the build.
type FieldProcessor struct {
	Sampler   FieldSampler
	Generator genai.Generator

	// SampleThreshold caps how many sampled values feed the prompt.
	SampleThreshold int
}

func (p *FieldProcessor) threshold() int {
	if p.SampleThreshold > 0 {
		return p.SampleThreshold
	}
	return 20
}

func (p *FieldProcessor) Process(ctx context.Context, index string, field search.Field) (Entry, error) {
	set, err := p.Sampler.Sample(ctx, index, field.Name, field.Type, p.threshold())
	if err != nil {
		return Entry{}, err
	}
	samples := set.Combined(p.threshold())

	promptText, err := prompt.Description(prompt.DescriptionInput{
		Index:    index,
		Field:    field.Name,
		DataType: field.Type,
		Samples:  samples,
	})
	if err != nil {
		return Entry{}, err
	}

	raw, err := p.Generator.Generate(ctx, promptText, nil)
	if err != nil {
		return Entry{}, fmt.Errorf("describe field %q: %w", field.Name, err)
	}

	payload, err := extract.JSONObject(raw)
	if err != nil {
		observability.ObserveFieldProcessed("fallback")
		return fallbackEntry(index, field, raw, samples), nil
	}

	entry := Entry{
		FieldName:   field.Name,
		IndexName:   index,
		DataType:    field.Type,
		Description: stringValue(payload["natural_language_description"]),
		SampleValue: payload["sample_value"],
	}
	if entry.Description == "" {
		observability.ObserveFieldProcessed("fallback")
		return fallbackEntry(index, field, raw, samples), nil
	}
	if entry.SampleValue == nil {
		entry.SampleValue = strings.Join(samples, ", ")
	}
	observability.ObserveFieldProcessed("described")
	return entry, nil
}

// fallbackEntry keeps the field represented with the model's raw text so a
// single malformed response never leaves a hole in the dictionary.
func fallbackEntry(index string, field search.Field, raw string, samples []string) Entry {
	sample := ""
	if len(samples) > 0 {
		sample = samples[0]
	}
	return Entry{
		FieldName:   field.Name,
		IndexName:   index,
		DataType:    field.Type,
		Description: strings.TrimSpace(raw),
		SampleValue: sample,
		Fallback:    true,
	}
}

func stringValue(v any) string {
	s, _ := v.(string)
	return strings.TrimSpace(s)
}
