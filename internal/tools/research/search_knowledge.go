package research

import (
	"google.golang.org/adk/tool"
	"google.golang.org/adk/tool/functiontool"

	"tradesync/internal/tools/shared"
	"tradesync/pkg/errors"
)

// NewSearchKnowledgeTool builds the search_knowledge tool: similarity
// search over the static research corpus.
func NewSearchKnowledgeTool(deps shared.Deps) tool.Tool {
	t, _ := functiontool.New(
		functiontool.Config{
			Name:        "search_knowledge",
			Description: "Search the research knowledge base (books, reports, papers). Arguments: query (text), limit (optional, max results).",
		},
		func(ctx tool.Context, args map[string]interface{}) (map[string]interface{}, error) {
			if deps.Knowledge == nil {
				return nil, errors.Wrapf(errors.ErrInternal, "search_knowledge: knowledge service not configured")
			}

			query := shared.StringArg(args, "query")
			if query == "" {
				return nil, errors.Wrapf(errors.ErrInvalidInput, "search_knowledge: query is required")
			}

			results := deps.Knowledge.Search(ctx, query, shared.IntArg(args, "limit"))

			return map[string]interface{}{
				"results": results,
				"count":   len(results),
			}, nil
		})
	return t
}
