// Command ingest loads text documents into the knowledge corpus: it splits
// each file into chunks, embeds them, and writes them to knowledge_chunks.
package main

import (
	"context"
	"flag"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/pgvector/pgvector-go"

	"tradesync/internal/adapters/config"
	"tradesync/internal/adapters/embeddings"
	"tradesync/internal/adapters/postgres"
	"tradesync/internal/domain/knowledge"
	pgrepo "tradesync/internal/repository/postgres"
	"tradesync/pkg/logger"
)

const maxChunkChars = 2000

func main() {
	dir := flag.String("dir", "", "directory of .txt/.md documents to ingest")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	defer logger.Sync()

	log := logger.Get().With("component", "ingest")
	if *dir == "" {
		log.Fatal("Usage: ingest -dir <documents directory>")
	}

	ctx := context.Background()

	pgClient, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	defer pgClient.Close()

	apiKey := cfg.AI.OpenAIKey
	if cfg.AI.EmbeddingProvider == string(embeddings.ProviderGemini) {
		apiKey = cfg.AI.GeminiKey
	}

	embedder, err := embeddings.NewProvider(ctx, embeddings.Config{
		Provider: embeddings.ProviderType(cfg.AI.EmbeddingProvider),
		APIKey:   apiKey,
		Model:    cfg.AI.EmbeddingModel,
		Timeout:  cfg.AI.RequestTimeout,
	})
	if err != nil {
		log.Fatalf("Failed to create embedding provider: %v", err)
	}

	repo := pgrepo.NewKnowledgeRepository(pgClient.DB())

	files, err := documentFiles(*dir)
	if err != nil {
		log.Fatalf("Failed to list documents: %v", err)
	}

	total := 0
	for _, path := range files {
		data, err := os.ReadFile(path)
		if err != nil {
			log.Errorf("Failed to read %s: %v", path, err)
			continue
		}

		source := filepath.Base(path)
		for _, text := range splitChunks(string(data)) {
			vector, err := embedder.GenerateEmbedding(ctx, text, embeddings.TaskDocument)
			if err != nil {
				log.Errorf("Failed to embed chunk from %s: %v", source, err)
				continue
			}

			chunk := &knowledge.Chunk{
				ID:        uuid.New(),
				Content:   text,
				Source:    source,
				Embedding: pgvector.NewVector(vector),
			}
			if err := repo.Insert(ctx, chunk); err != nil {
				log.Errorf("Failed to store chunk from %s: %v", source, err)
				continue
			}
			total++
		}

		log.Infof("Ingested %s", source)
	}

	log.Infof("Done: %d chunks stored", total)
}

func documentFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		switch filepath.Ext(path) {
		case ".txt", ".md":
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

// splitChunks splits on blank lines and packs paragraphs into chunks of at
// most maxChunkChars. A single oversized paragraph becomes its own chunk.
func splitChunks(text string) []string {
	var chunks []string
	var current strings.Builder

	for _, para := range strings.Split(text, "\n\n") {
		para = strings.TrimSpace(para)
		if para == "" {
			continue
		}

		if current.Len() > 0 && current.Len()+len(para) > maxChunkChars {
			chunks = append(chunks, current.String())
			current.Reset()
		}
		if current.Len() > 0 {
			current.WriteString("\n\n")
		}
		current.WriteString(para)
	}
	if current.Len() > 0 {
		chunks = append(chunks, current.String())
	}
	return chunks
}
