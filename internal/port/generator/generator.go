// Package generator defines the port for remote content generation.
package generator

import "context"

// Kind identifies the type of content being requested.
type Kind string

// Action kinds understood by the content backend.
const (
	KindPost      Kind = "post"
	KindReply     Kind = "reply"
	KindQuote     Kind = "quote"
	KindLike      Kind = "like"
	KindSummarize Kind = "summarize"
	KindAnalysis  Kind = "analysis"
)

// Request describes one content generation call.
type Request struct {
	AgentID int64
	UserID  int64
	Kind    Kind
	Context string
}

// Generator produces draft content for an agent. Implementations may fail;
// the workflow recovers every failure into locally generated fallback content.
type Generator interface {
	Generate(ctx context.Context, req Request) (string, error)
}
