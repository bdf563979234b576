package translate

import (
	"context"
	"strings"
	"testing"

	"github.com/seekwell/seekwell/internal/search"
)

func TestSummarizeTabularizesRowsIntoPrompt(t *testing.T) {
	gen := &scriptedGenerator{response: "<answer>Ada and Grace are the part-time employees rated above 3.</answer>"}
	summarizer := &Summarizer{Generator: gen}

	table := search.Table{
		Columns: []string{"FirstName", "Current Employee Rating"},
		Rows:    [][]any{{"Ada", float64(4)}, {"Grace", float64(5)}},
	}
	answer, err := summarizer.Summarize(context.Background(), "Which part-time employees have a rating above 3?", table)
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if answer != "Ada and Grace are the part-time employees rated above 3." {
		t.Fatalf("Summarize() = %q", answer)
	}
	if !strings.Contains(gen.prompt, `"FirstName": "Ada"`) {
		t.Fatalf("prompt missing record data:\n%s", gen.prompt)
	}
}

func TestSummarizeCapsRows(t *testing.T) {
	gen := &scriptedGenerator{response: "<answer>ok</answer>"}
	summarizer := &Summarizer{Generator: gen, SummaryRows: 2}

	table := search.Table{
		Columns: []string{"FirstName"},
		Rows:    [][]any{{"Ada"}, {"Grace"}, {"Edsger"}},
	}
	if _, err := summarizer.Summarize(context.Background(), "who works here", table); err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if strings.Contains(gen.prompt, "Edsger") {
		t.Fatal("prompt contains rows beyond the summary cap")
	}
	if !strings.Contains(gen.prompt, "Grace") {
		t.Fatal("prompt missing rows within the summary cap")
	}
}

func TestSummarizeEmptyResultYieldsSentinel(t *testing.T) {
	gen := &scriptedGenerator{response: "<answer>" + NoAnswerSentinel + "</answer>"}
	summarizer := &Summarizer{Generator: gen}

	answer, err := summarizer.Summarize(context.Background(), "employees on the moon", search.Table{Columns: []string{"FirstName"}, Rows: [][]any{}})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if answer != NoAnswerSentinel {
		t.Fatalf("Summarize() = %q, want the exact sentinel", answer)
	}
	if !strings.Contains(gen.prompt, "[]") {
		t.Fatal("prompt should carry an empty record array")
	}
}

func TestSummarizeUntaggedResponseIsReturnedTrimmed(t *testing.T) {
	gen := &scriptedGenerator{response: "  There are two matching employees.  \n"}
	summarizer := &Summarizer{Generator: gen}

	answer, err := summarizer.Summarize(context.Background(), "how many", search.Table{Columns: []string{"count"}, Rows: [][]any{{float64(2)}}})
	if err != nil {
		t.Fatalf("Summarize() error = %v", err)
	}
	if answer != "There are two matching employees." {
		t.Fatalf("Summarize() = %q", answer)
	}
}
