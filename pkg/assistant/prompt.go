// Package assistant hands a loaded paper to an external question-answering assistant.
// prompts are built here and nowhere else, the loading core never sees them.
package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/arxivtex/arxivtex/pkg/domain"
)

// abstractLimit is the number of abstract characters quoted in the interactive prompt
const abstractLimit = 300

// Request is a single hand-off to the assistant
type Request struct {
	Prompt      string // instruction for the assistant
	Paper       string // full text of the main TeX file
	Interactive bool   // keep the session open for follow-up questions
}

// Assistant answers questions about a paper
type Assistant interface {
	Ask(ctx context.Context, req Request) error
}

// QuestionPrompt builds the prompt for a one-shot question
func QuestionPrompt(id domain.DocumentID, question string) string {
	return fmt.Sprintf(`Analyze this arXiv paper (ID: %[1]s) and answer: %[2]s

When referencing specific parts, cite line numbers as: paper_%[1]s:line_number

The attached file contains the complete LaTeX source.`, id, question)
}

// InteractivePrompt builds the opening prompt of an interactive session
func InteractivePrompt(id domain.DocumentID, meta domain.Metadata) string {
	abstract := meta.Abstract
	if abstract == "" {
		abstract = "Not available"
	}

	return fmt.Sprintf(`I have loaded arXiv paper %[1]s for analysis.

Title: %[2]s
Authors: %[3]s

Abstract: %[4]s

I'm ready to answer questions about this paper. When referencing specific content, I'll cite line numbers using the format: paper_%[1]s:line_number

The complete LaTeX source is attached. What would you like to know about this paper?`,
		id, meta.Title, strings.Join(meta.Authors, ", "), truncate(abstract, abstractLimit))
}

// ShortAuthors joins up to limit author names, marking the rest with "..."
func ShortAuthors(authors []string, limit int) string {
	if len(authors) <= limit {
		return strings.Join(authors, ", ")
	}
	return strings.Join(authors[:limit], ", ") + "..."
}

// truncate cuts s to limit characters, appending "..." if anything was cut
func truncate(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	return string(r[:limit]) + "..."
}
