package llm

import "context"

// openAIProvider talks to the OpenAI API. The alignment judge and the
// query expansion prompts default to gpt-4o-mini; embeddings default
// to text-embedding-3-small (1536 dimensions, which the vector index
// must be sized to).
type openAIProvider struct {
	base openAICompatClient
}

// NewOpenAI creates a provider for the OpenAI API. The API key comes
// from config (typically resolved from OPENAI_API_KEY).
func NewOpenAI(cfg Config) Provider {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "https://api.openai.com"
	}
	if cfg.Model == "" {
		cfg.Model = "text-embedding-3-small"
	}
	return &openAIProvider{base: newOpenAICompatClient(cfg)}
}

func (p *openAIProvider) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	return p.base.chat(ctx, req)
}

func (p *openAIProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	return p.base.embed(ctx, texts)
}
