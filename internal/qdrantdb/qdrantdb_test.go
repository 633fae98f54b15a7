package qdrantdb

import (
	"testing"

	"hr-rag/internal/models"

	"github.com/qdrant/go-client/qdrant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSearchRequest_CorpusFilter(t *testing.T) {
	s := &Store{collection: "hr_documents"}

	req := s.searchRequest([]float32{0.1, 0.2}, 8, models.CorpusJisr)
	assert.Equal(t, "hr_documents", req.GetCollectionName())
	assert.Equal(t, uint64(8), req.GetLimit())
	require.NotNil(t, req.GetFilter())
	require.Len(t, req.GetFilter().GetMust(), 1)

	match := req.GetFilter().GetMust()[0].GetField()
	assert.Equal(t, models.MetaCorpus, match.GetKey())
	assert.Equal(t, "jisr", match.GetMatch().GetKeyword())
	assert.True(t, req.GetWithVectors().GetEnable())
}

func TestSearchRequest_NoFilter(t *testing.T) {
	s := &Store{collection: "hr_documents"}
	assert.Nil(t, s.searchRequest([]float32{1}, 3, "").GetFilter())
}

func TestPayloadRoundTrip(t *testing.T) {
	chunk := models.Chunk{
		Text:       "يحق للموظف ثلاثون يوما",
		DocTitle:   "سياسة الاجازات",
		SourcePath: "data/raw/hr_policies/leave.pdf",
		Corpus:     models.CorpusHR,
		ChunkIndex: 7,
	}
	got := chunkFromPayload(qdrant.NewValueMap(payload(chunk)))
	assert.Equal(t, chunk, got)
}
