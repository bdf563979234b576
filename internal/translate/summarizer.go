package translate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/seekwell/seekwell/internal/extract"
	"github.com/seekwell/seekwell/internal/genai"
	"github.com/seekwell/seekwell/internal/prompt"
	"github.com/seekwell/seekwell/internal/search"
)

// NoAnswerSentinel is the exact phrase the answer prompt instructs the
// model to emit for an empty result set. Callers compare against it to
// distinguish "no answer" from a real summary.
const NoAnswerSentinel = "I am sorry, I can't find an answer to this question"

type Summarizer struct {
	Generator genai.Generator

	// SummaryRows caps how many result rows feed the answer prompt.
	SummaryRows int
}

func (s *Summarizer) rowLimit() int {
	if s.SummaryRows > 0 {
		return s.SummaryRows
	}
	return 20
}

// Summarize answers the question from the query result. Only the leading
// rows are shown to the model; the table is assumed to be pre-filtered by
// the translated query.
func (s *Summarizer) Summarize(ctx context.Context, question string, table search.Table) (string, error) {
	records := tabularToRecords(table, s.rowLimit())
	dataJSON, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("serialize query result: %w", err)
	}

	promptText, err := prompt.Answer(prompt.AnswerInput{
		Question: question,
		DataJSON: string(dataJSON),
	})
	if err != nil {
		return "", err
	}

	raw, err := s.Generator.Generate(ctx, promptText, nil)
	if err != nil {
		return "", fmt.Errorf("summarize result: %w", err)
	}

	if answer := extract.Tag(raw, "answer"); answer != "" {
		return answer, nil
	}
	// An untagged response is still an answer, just an unframed one.
	return strings.TrimSpace(raw), nil
}

// tabularToRecords converts the column/row table into the record array the
// answer prompt expects.
func tabularToRecords(table search.Table, limit int) []map[string]any {
	records := make([]map[string]any, 0, limit)
	for _, row := range table.Rows {
		if len(records) >= limit {
			break
		}
		record := make(map[string]any, len(table.Columns))
		for i, column := range table.Columns {
			if i < len(row) {
				record[column] = row[i]
			}
		}
		records = append(records, record)
	}
	return records
}
