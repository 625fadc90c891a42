package retrieval

import (
	"log/slog"

	"github.com/brunoleme/ai-travel-assistant/pkg/config"
	"github.com/brunoleme/ai-travel-assistant/pkg/contract"
	"github.com/brunoleme/ai-travel-assistant/pkg/llm"
	"github.com/brunoleme/ai-travel-assistant/pkg/store"
)

// Deps carries the shared collaborators the service constructors draw from.
// Not every service uses every field.
type Deps struct {
	Config   *config.Config
	Registry *contract.Registry
	Logger   *slog.Logger
	Vector   store.VectorStore
	Graph    store.GraphStore
	LLM      *llm.Client
}

// emptyOr returns s unchanged, or an empty (non-nil) slice when s is nil,
// so contract arrays never serialize as null.
func emptyOr[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
