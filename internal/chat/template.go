package chat

import (
	"strings"

	"github.com/local/pdfchat/internal/document"
)

// Placeholder is replaced by the loaded document's text.
const Placeholder = "{pdf}"

// Prompt templates for the one-shot commands.
const (
	SummarizeTemplate = "Summarize the following text that is from a PDF.\n" + Placeholder
	NameTemplate      = "The following text is from a PDF. Give it a suitable and concise title.\n" + Placeholder
)

// Substitute replaces every Placeholder in prompt with doc's text. A prompt
// without the placeholder is returned unchanged whether or not doc is nil.
func Substitute(prompt string, doc *document.Document) (string, error) {
	if !strings.Contains(prompt, Placeholder) {
		return prompt, nil
	}
	if doc == nil {
		return "", ErrNoDocumentLoaded
	}
	return strings.ReplaceAll(prompt, Placeholder, doc.Text), nil
}
