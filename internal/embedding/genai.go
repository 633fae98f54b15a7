package embedding

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	taskRetrievalQuery    = "RETRIEVAL_QUERY"
	taskRetrievalDocument = "RETRIEVAL_DOCUMENT"
	// Gemini accepts at most 100 contents per embed request
	genaiBatchSize = 100
)

// GenAIEmbedder embeds through the Gemini API, using the retrieval task types
// in place of textual role prefixes.
type GenAIEmbedder struct {
	client     *genai.Client
	model      string
	dimensions *int32
}

func NewGenAIEmbedder(ctx context.Context, apiKey, model string, dimensions int32) (*GenAIEmbedder, error) {
	if apiKey == "" {
		return nil, errors.New("missing gemini api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, err
	}
	g := &GenAIEmbedder{client: c, model: model}
	if dimensions > 0 {
		g.dimensions = &dimensions
	}
	return g, nil
}

func (g *GenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vs, err := g.embed(ctx, []string{text}, taskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	return vs[0], nil
}

func (g *GenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += genaiBatchSize {
		end := min(start+genaiBatchSize, len(texts))
		vs, err := g.embed(ctx, texts[start:end], taskRetrievalDocument)
		if err != nil {
			return nil, err
		}
		out = append(out, vs...)
	}
	return out, nil
}

func (g *GenAIEmbedder) embed(ctx context.Context, texts []string, task string) ([][]float32, error) {
	contents := make([]*genai.Content, 0, len(texts))
	for _, t := range texts {
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: t}},
		})
	}

	res, err := g.client.Models.EmbedContent(ctx, g.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: g.dimensions,
		TaskType:             task,
	})
	if err != nil {
		return nil, fmt.Errorf("gemini embed: %w", err)
	}
	if len(res.Embeddings) != len(texts) {
		return nil, fmt.Errorf("gemini embed: got %d embeddings for %d texts", len(res.Embeddings), len(texts))
	}

	vs := make([][]float32, len(res.Embeddings))
	for i, e := range res.Embeddings {
		vs[i] = e.Values
	}
	return vs, nil
}
