package agent

import (
	"context"
	"encoding/json"
	"fmt"
)

const notesSystemPrompt = `You are an intelligent assistant that creates notes from email content.
Your task is to analyze an email thread and identify key information or summaries that should be saved as notes.
An email might contain multiple distinct topics that should be saved as separate notes.

- Extract the core information to create a concise and informative note.
- If the email thread has a clear summary, use that for the note.
- If not, create a summary of the important points.

Respond with ONLY a JSON object, no prose, in this exact shape (empty array when nothing applies):
{
  "notes": [{"note": "", "category": "general|work|personal|finance|travel", "priority": "low|medium|high"}]
}`

// NotesExtractor distills emails into saved notes.
type NotesExtractor struct {
	llm Invoker
}

// NewNotesExtractor wires the notes agent.
func NewNotesExtractor(llm Invoker) *NotesExtractor {
	return &NotesExtractor{llm: llm}
}

// Name identifies the agent in aggregated error messages.
func (e *NotesExtractor) Name() string { return "Notes" }

// Extract runs the agent over the thread text.
func (e *NotesExtractor) Extract(ctx context.Context, threadText string) (*NotesResult, error) {
	raw, err := e.llm.Invoke(ctx, notesSystemPrompt, threadText)
	if err != nil {
		return nil, err
	}
	var result NotesResult
	if err := json.Unmarshal([]byte(extractJSON(raw)), &result); err != nil {
		return nil, fmt.Errorf("notes agent returned unparseable output: %w", err)
	}
	return &result, nil
}
