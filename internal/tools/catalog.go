package tools

import (
	"google.golang.org/adk/tool"

	"tradesync/internal/tools/research"
	"tradesync/internal/tools/shared"
	"tradesync/internal/tools/trading"
)

// Catalog returns every tool exposed to the advisor agent.
func Catalog(deps shared.Deps) []tool.Tool {
	return []tool.Tool{
		trading.NewExecuteTradeTool(deps),
		trading.NewConfirmTradeTool(deps),
		trading.NewCancelTradeTool(deps),
		research.NewSearchMemoryTool(deps),
		research.NewSearchKnowledgeTool(deps),
	}
}
