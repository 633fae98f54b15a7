package mcpserver

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog/log"

	"hr-rag/internal/models"
	"hr-rag/internal/tools"
)

// Version is the MCP server version.
const Version = "0.1.0"

// Corpora is the corpus search surface exposed over MCP
type Corpora interface {
	Tools() []tools.Tool
	Search(ctx context.Context, corpus models.Corpus, query string, topK int) (tools.Evidence, error)
}

// SearchInput is the input schema of both corpus search tools.
type SearchInput struct {
	Query string `json:"query" jsonschema:"the question to search for"`
	TopK  int    `json:"top_k,omitempty" jsonschema:"number of chunks to retrieve"`
}

// Server exposes hr_search and jisr_search to MCP clients.
type Server struct {
	corpora Corpora
	server  *mcp.Server
}

func NewServer(corpora Corpora) *Server {
	s := &Server{
		corpora: corpora,
		server:  mcp.NewServer(&mcp.Implementation{Name: "hr-rag", Version: Version}, nil),
	}
	for _, t := range corpora.Tools() {
		mcp.AddTool(s.server, &mcp.Tool{
			Name:        t.Name,
			Description: t.Description,
		}, s.searchHandler(t.Corpus))
	}
	return s
}

// Run serves over stdio until ctx is cancelled or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.server.Run(ctx, &mcp.StdioTransport{})
}

// Connect serves one session over the given transport
func (s *Server) Connect(ctx context.Context, transport mcp.Transport) (*mcp.ServerSession, error) {
	return s.server.Connect(ctx, transport, nil)
}

func (s *Server) searchHandler(corpus models.Corpus) mcp.ToolHandlerFor[SearchInput, tools.Evidence] {
	return func(ctx context.Context, _ *mcp.CallToolRequest, input SearchInput) (*mcp.CallToolResult, tools.Evidence, error) {
		log.Debug().Str("corpus", string(corpus)).Str("query", input.Query).Msg("mcp search")
		ev, err := s.corpora.Search(ctx, corpus, input.Query, input.TopK)
		if err != nil {
			return nil, tools.Evidence{}, err
		}
		if ev.Citations == nil {
			ev.Citations = []models.Citation{}
		}
		return nil, ev, nil
	}
}
