package mcpadapter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/kirillkom/manual-qa/internal/core/domain"
	"github.com/kirillkom/manual-qa/internal/core/ports"
)

// NewServer exposes the retrieval engine over MCP stdio so agent runtimes
// can search the manual corpus and ask grounded questions directly.
func NewServer(version string, answerer ports.QuestionAnswerer, retriever ports.DocumentRetriever) *server.MCPServer {
	srv := server.NewMCPServer(
		"manual-qa",
		version,
		server.WithToolCapabilities(true),
	)

	srv.AddTool(searchDocumentsTool(), handleSearchDocuments(retriever))
	srv.AddTool(answerQuestionTool(), handleAnswerQuestion(answerer))
	return srv
}

func searchDocumentsTool() mcp.Tool {
	return mcp.NewTool("search_documents",
		mcp.WithDescription("Hybrid semantic + keyword search over ingested product manuals"),
		mcp.WithString("query",
			mcp.Required(),
			mcp.Description("Search query, Korean or English"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Maximum results to return (default: 5, max: 20)"),
		),
		mcp.WithArray("categories",
			mcp.WithStringItems(),
			mcp.Description("Filter by record categories: table, figure, paragraph, heading1..3, list, chart, caption"),
		),
		mcp.WithString("source_doc",
			mcp.Description("Filter by source document name"),
		),
	)
}

func answerQuestionTool() mcp.Tool {
	return mcp.NewTool("answer_question",
		mcp.WithDescription("Answer a question from the manual corpus with citations, verified for grounding"),
		mcp.WithString("question",
			mcp.Required(),
			mcp.Description("The user question, Korean or English"),
		),
		mcp.WithNumber("top_k",
			mcp.Description("Number of sources to retrieve (default: 5)"),
		),
	)
}

func handleSearchDocuments(retriever ports.DocumentRetriever) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		query, err := request.RequireString("query")
		if err != nil || strings.TrimSpace(query) == "" {
			return mcp.NewToolResultError("query parameter is required"), nil
		}

		topK := request.GetInt("top_k", 5)
		if topK > 20 {
			topK = 20
		}

		filter := domain.SearchFilter{}
		for _, raw := range request.GetStringSlice("categories", nil) {
			if category, ok := domain.ParseCategory(raw); ok {
				filter.Categories = append(filter.Categories, category)
			}
		}
		if doc := request.GetString("source_doc", ""); doc != "" {
			filter.SourceDocs = []string{doc}
		}

		batch, err := retriever.Retrieve(ctx, []string{query}, filter, topK)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatBatch(query, batch)), nil
	}
}

func handleAnswerQuestion(answerer ports.QuestionAnswerer) server.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		question, err := request.RequireString("question")
		if err != nil || strings.TrimSpace(question) == "" {
			return mcp.NewToolResultError("question parameter is required"), nil
		}

		topK := request.GetInt("top_k", 5)

		answer, err := answerer.Answer(ctx, question, domain.SearchFilter{}, topK)
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("answer failed: %v", err)), nil
		}

		return mcp.NewToolResultText(formatAnswer(answer)), nil
	}
}

func formatBatch(query string, batch *domain.RetrievalBatch) string {
	if batch == nil || batch.IsEmpty() {
		return fmt.Sprintf("No documents matched %q.", query)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "## Results for %q (confidence %.2f)\n\n", query, batch.Confidence)
	for i, res := range batch.Results {
		page := "-"
		if res.Record.Page != nil {
			page = fmt.Sprintf("%d", *res.Record.Page)
		}
		fmt.Fprintf(&b, "### %d. %s p.%s [%s] score=%.3f matched=%s\n%s\n\n",
			i+1,
			res.Record.SourceDoc,
			page,
			res.Record.Category,
			res.Score,
			res.MatchedBy,
			res.Record.DisplayText(),
		)
	}
	if batch.FallbackTriggered {
		b.WriteString("_Filters were relaxed to find these results._\n")
	}
	return b.String()
}

func formatAnswer(answer *domain.Answer) string {
	if answer == nil {
		return "No answer."
	}

	var b strings.Builder
	b.WriteString(answer.Text)
	if answer.Caveat != "" {
		fmt.Fprintf(&b, "\n\n> %s", answer.Caveat)
	}
	if len(answer.References) > 0 {
		b.WriteString("\n\nReferences:\n")
		for _, ref := range answer.References {
			page := "-"
			if ref.Page != nil {
				page = fmt.Sprintf("%d", *ref.Page)
			}
			fmt.Fprintf(&b, "- %s p.%s: %s\n", ref.SourceDoc, page, ref.Quote)
		}
	}
	return b.String()
}
