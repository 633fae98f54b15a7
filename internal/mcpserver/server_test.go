package mcpserver

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hr-rag/internal/models"
	"hr-rag/internal/tools"
)

type stubSearcher struct {
	corpus models.Corpus
	k      int
}

func (s *stubSearcher) Search(_ context.Context, _ string, k int, corpus models.Corpus) ([]models.Hit, error) {
	s.corpus, s.k = corpus, k
	return []models.Hit{{Chunk: models.Chunk{
		Text: "خطوات طلب الاجازة", DocTitle: "requests", SourcePath: "jisr/requests.md", Corpus: corpus, ChunkIndex: 4,
	}}}, nil
}

func connect(t *testing.T, s *Server) *mcp.ClientSession {
	t.Helper()
	ctx := context.Background()
	serverTransport, clientTransport := mcp.NewInMemoryTransports()

	ss, err := s.Connect(ctx, serverTransport)
	require.NoError(t, err)
	t.Cleanup(func() { ss.Close() })

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "0.0.1"}, nil)
	cs, err := client.Connect(ctx, clientTransport, nil)
	require.NoError(t, err)
	t.Cleanup(func() { cs.Close() })
	return cs
}

func TestListTools(t *testing.T) {
	cs := connect(t, NewServer(tools.NewSet(&stubSearcher{}, 5, 1000)))

	res, err := cs.ListTools(context.Background(), &mcp.ListToolsParams{})
	require.NoError(t, err)

	var names []string
	for _, tool := range res.Tools {
		names = append(names, tool.Name)
	}
	assert.ElementsMatch(t, []string{models.ToolHRSearch, models.ToolJisrSearch}, names)
}

func TestCallJisrSearch(t *testing.T) {
	searcher := &stubSearcher{}
	cs := connect(t, NewServer(tools.NewSet(searcher, 5, 1000)))

	res, err := cs.CallTool(context.Background(), &mcp.CallToolParams{
		Name:      models.ToolJisrSearch,
		Arguments: map[string]any{"query": "كيف اطلب اجازة", "top_k": 2},
	})
	require.NoError(t, err)
	require.False(t, res.IsError)
	assert.Equal(t, models.CorpusJisr, searcher.corpus)
	assert.Equal(t, 2, searcher.k)

	require.NotEmpty(t, res.Content)
	text, ok := res.Content[0].(*mcp.TextContent)
	require.True(t, ok)

	var ev tools.Evidence
	require.NoError(t, json.Unmarshal([]byte(text.Text), &ev))
	assert.Equal(t, "[requests :: #4]\nخطوات طلب الاجازة", ev.Context)
	assert.Equal(t, []models.Citation{{DocTitle: "requests", Chunk: 4, Source: "jisr/requests.md", Corpus: "jisr"}}, ev.Citations)
}

func TestCallUsesDefaultTopK(t *testing.T) {
	searcher := &stubSearcher{}
	s := NewServer(tools.NewSet(searcher, 6, 1000))

	_, ev, err := s.searchHandler(models.CorpusHR)(context.Background(), nil, SearchInput{Query: "سياسة"})
	require.NoError(t, err)
	assert.Equal(t, 6, searcher.k)
	assert.Equal(t, models.CorpusHR, searcher.corpus)
	assert.Len(t, ev.Citations, 1)
}
