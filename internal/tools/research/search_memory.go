package research

import (
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"tradesync/internal/tools/shared"
	"tradesync/pkg/errors"
)

// NewSearchMemoryTool builds the search_memory tool: semantic search over
// the user's consolidated long-term memory. Results are scoped to the
// calling app and user; an empty result is a normal outcome, not an error.
func NewSearchMemoryTool(deps shared.Deps) tool.Tool {
	t, _ := functiontool.New(
		functiontool.Config{
			Name:        "search_memory",
			Description: "Search the user's long-term memory for facts from past conversations. Argument: query (text describing what to look for).",
		},
		func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
			if deps.Memory == nil {
				return nil, errors.Wrapf(errors.ErrInternal, "search_memory: memory service not configured")
			}

			meta, err := shared.RequireMetadata(ctx, "search_memory")
			if err != nil {
				return nil, err
			}

			query := shared.StringArg(args, "query")
			if query == "" {
				return nil, errors.Wrapf(errors.ErrInvalidInput, "search_memory: query is required")
			}

			entries := deps.Memory.Search(ctx, meta.AppName, meta.UserID, query)

			return map[string]interface{}{
				"memories": entries,
				"count":    len(entries),
			}, nil
		})
	return t
}
