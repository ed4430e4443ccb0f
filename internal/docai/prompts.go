package docai

import (
	"fmt"
	"strings"
)

const extractionPromptTemplate = `You are analyzing the document stored at %s.
Return a single JSON object, with no surrounding prose, of the form:
{
  "subject": "<the subject the document teaches>",
  "chapters": [
    {"name": "<chapter name>", "subchapters": ["<subchapter name>", ...]}
  ]
}
Use the document's own headings. If a field cannot be determined, use an
empty string or empty list.`

const mcqPromptTemplate = `Generate multiple choice questions from the
documents at the following locations: %s.
%sReturn a single JSON object, with no surrounding prose, of the form:
{
  "questions": [
    {
      "question": "<question text>",
      "options": ["<option>", "<option>", "<option>", "<option>"],
      "answer": "<the correct option>"
    }
  ]
}`

// BuildExtractionPrompt renders the document-details extraction prompt for
// one storage object.
func BuildExtractionPrompt(fileURI string) string {
	return fmt.Sprintf(extractionPromptTemplate, fileURI)
}

// BuildMCQPrompt renders the MCQ generation prompt, optionally narrowed to
// a set of subchapters.
func BuildMCQPrompt(fileURIs []string, subChapters string) string {
	scope := ""
	if strings.TrimSpace(subChapters) != "" {
		scope = fmt.Sprintf("Restrict the questions to these subchapters: %s.\n", subChapters)
	}
	return fmt.Sprintf(mcqPromptTemplate, strings.Join(fileURIs, ", "), scope)
}
