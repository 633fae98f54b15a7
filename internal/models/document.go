package models

import "strconv"

// Corpus identifies one of the document collections a chunk belongs to.
type Corpus string

const (
	CorpusHR      Corpus = "hr"
	CorpusJisr    Corpus = "jisr"
	CorpusUnknown Corpus = "unknown"
)

// ParseCorpus maps a metadata value back to a Corpus, unknown values become CorpusUnknown.
func ParseCorpus(s string) Corpus {
	switch Corpus(s) {
	case CorpusHR, CorpusJisr:
		return Corpus(s)
	default:
		return CorpusUnknown
	}
}

// Document is the raw text of one discovered file
type Document struct {
	Text       string
	SourcePath string
	DocTitle   string
	Corpus     Corpus
}

// Chunk is a bounded segment of one normalized document
type Chunk struct {
	Text       string
	DocTitle   string
	SourcePath string
	Corpus     Corpus
	ChunkIndex int
}

// metadata keys stored next to every indexed record
const (
	MetaDocTitle = "doc_title"
	MetaChunk    = "chunk"
	MetaCorpus   = "corpus"
	MetaSource   = "source"
)

// Metadata flattens the chunk identity into the string map the vector stores keep.
func (c Chunk) Metadata() map[string]string {
	return map[string]string{
		MetaDocTitle: c.DocTitle,
		MetaChunk:    strconv.Itoa(c.ChunkIndex),
		MetaCorpus:   string(c.Corpus),
		MetaSource:   c.SourcePath,
	}
}

// ChunkFromMetadata rebuilds a chunk from stored text and metadata.
func ChunkFromMetadata(text string, meta map[string]string) Chunk {
	idx, _ := strconv.Atoi(meta[MetaChunk])
	return Chunk{
		Text:       text,
		DocTitle:   meta[MetaDocTitle],
		SourcePath: meta[MetaSource],
		Corpus:     ParseCorpus(meta[MetaCorpus]),
		ChunkIndex: idx,
	}
}

// Citation points at one evidence chunk.
type Citation struct {
	DocTitle string `json:"doc_title"`
	Chunk    int    `json:"chunk"`
	Source   string `json:"source"`
	Corpus   string `json:"corpus"`
}

// CitationKey is the uniqueness key of a citation.
type CitationKey struct {
	Source   string
	Chunk    int
	DocTitle string
	Corpus   string
}

func (c Citation) Key() CitationKey {
	return CitationKey{Source: c.Source, Chunk: c.Chunk, DocTitle: c.DocTitle, Corpus: c.Corpus}
}

// Citation returns the pointer to this chunk.
func (c Chunk) Citation() Citation {
	return Citation{
		DocTitle: c.DocTitle,
		Chunk:    c.ChunkIndex,
		Source:   c.SourcePath,
		Corpus:   string(c.Corpus),
	}
}

// Role of a conversation turn
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Turn is one message of a session history
type Turn struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Answer is what the chat entry point returns
type Answer struct {
	Answer    string     `json:"answer"`
	Citations []Citation `json:"citations"`
}

// IngestStats summarises one ingestion run
type IngestStats struct {
	Ingested int            `json:"ingested"`
	Files    int            `json:"files"`
	ByCorpus map[Corpus]int `json:"by_corpus"`
	Source   string         `json:"source"`
}
