// Integration tests against a local Ollama server. They are skipped unless
// OLLAMA_INTEGRATION=1, so the regular test run stays hermetic.
package integration

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"doc-assistant-be/internal/constant"
	"doc-assistant-be/pkg/embedding"
	"doc-assistant-be/pkg/llm"
	"doc-assistant-be/pkg/llm/ollama"
)

func ollamaBaseURL() string {
	if url := os.Getenv("OLLAMA_BASE_URL"); url != "" {
		return url
	}
	return "http://localhost:11434"
}

func requireOllama(t *testing.T) {
	t.Helper()
	if os.Getenv("OLLAMA_INTEGRATION") != "1" {
		t.Skip("set OLLAMA_INTEGRATION=1 to run against a local Ollama server")
	}
}

func chatModel() string {
	if m := os.Getenv("LLM_MODEL"); m != "" {
		return m
	}
	return "llama3"
}

func TestOllamaChat(t *testing.T) {
	requireOllama(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	provider := ollama.NewOllamaProvider(ollamaBaseURL(), chatModel())
	reply, err := provider.Chat(ctx, []llm.Message{
		{Role: constant.ChatRoleUser, Content: "Reply with the single word: pong"},
	})
	if err != nil {
		t.Fatalf("Chat failed: %v", err)
	}
	if strings.TrimSpace(reply) == "" {
		t.Fatal("Chat returned an empty reply")
	}
	t.Logf("reply: %s", reply)
}

func TestOllamaChatStreamMatchesConcatenation(t *testing.T) {
	requireOllama(t)

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Second)
	defer cancel()

	provider := ollama.NewOllamaProvider(ollamaBaseURL(), chatModel())

	var b strings.Builder
	summary, err := provider.ChatStream(ctx, []llm.Message{
		{Role: constant.ChatRoleUser, Content: "Count from one to three, words only."},
	}, func(token string) error {
		b.WriteString(token)
		return nil
	})
	if err != nil {
		t.Fatalf("ChatStream failed: %v", err)
	}
	if b.Len() == 0 {
		t.Fatal("stream produced no tokens")
	}
	if summary.FinishReason == "" {
		t.Error("expected a finish reason on a completed stream")
	}
	t.Logf("streamed %d bytes, finish=%s tokens=%d", b.Len(), summary.FinishReason, summary.TokensUsed)
}

func TestOllamaChatStreamHonorsCancellation(t *testing.T) {
	requireOllama(t)

	ctx, cancel := context.WithCancel(context.Background())
	provider := ollama.NewOllamaProvider(ollamaBaseURL(), chatModel())

	tokens := 0
	_, err := provider.ChatStream(ctx, []llm.Message{
		{Role: constant.ChatRoleUser, Content: "Write a very long story about the sea."},
	}, func(token string) error {
		tokens++
		if tokens == 3 {
			cancel()
		}
		return nil
	})
	cancel()
	if err == nil {
		t.Fatal("expected an error after cancelling mid-stream")
	}
	t.Logf("stream ended after %d tokens with: %v", tokens, err)
}

func TestOllamaEmbeddingDimensions(t *testing.T) {
	requireOllama(t)

	model := os.Getenv("OLLAMA_EMBEDDING_MODEL")
	if model == "" {
		model = "nomic-embed-text"
	}
	provider := embedding.NewOllamaProvider(ollamaBaseURL(), model)

	query, err := provider.Generate("what does the quarterly report say", "RETRIEVAL_QUERY")
	if err != nil {
		t.Fatalf("query embedding failed: %v", err)
	}
	doc, err := provider.Generate("The quarterly report shows revenue grew twelve percent.", "RETRIEVAL_DOCUMENT")
	if err != nil {
		t.Fatalf("document embedding failed: %v", err)
	}

	if len(query.Embedding.Values) == 0 {
		t.Fatal("query embedding is empty")
	}
	if len(query.Embedding.Values) != len(doc.Embedding.Values) {
		t.Errorf("dimension mismatch: query=%d document=%d",
			len(query.Embedding.Values), len(doc.Embedding.Values))
	}
}
