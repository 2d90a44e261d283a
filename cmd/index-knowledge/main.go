package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"time"

	"supportdesk/internal/config"
	"supportdesk/internal/database"
	"supportdesk/internal/knowledge"
	"supportdesk/internal/openai"
)

const embeddingDimensions = 1536

func main() {
	file := flag.String("file", "", "YAML corpus of passages keyed by namespace")
	batch := flag.Int("batch", 50, "documents embedded per request")
	flag.Parse()

	if *file == "" {
		log.Fatal("-file is required")
	}

	fmt.Println("=== KNOWLEDGE INDEX JOB ===")
	fmt.Printf("Starting at: %s\n", time.Now().Format(time.RFC3339))

	// Load configuration
	cfg := config.Load()
	logger := cfg.SetupLogger()
	ctx := context.Background()

	corpus, err := knowledge.LoadCorpus(*file)
	if err != nil {
		log.Fatal("Failed to load corpus:", err)
	}
	fmt.Printf("Loaded %d namespaces from %s\n", len(corpus.Namespaces), *file)

	ai, err := openai.NewClient(cfg, logger)
	if err != nil {
		log.Fatal("Failed to create embedding client:", err)
	}

	var indexer knowledge.Indexer
	switch cfg.KnowledgeBackend {
	case config.KnowledgeQdrant:
		fmt.Println("Connecting to qdrant...")
		retriever, err := knowledge.NewQdrantRetriever(knowledge.QdrantConfig{
			Host:       cfg.QdrantHost,
			Port:       cfg.QdrantPort,
			APIKey:     cfg.QdrantAPIKey,
			UseTLS:     cfg.QdrantUseTLS,
			Collection: cfg.QdrantCollection,
		}, ai)
		if err != nil {
			log.Fatal("Failed to connect to qdrant:", err)
		}
		defer func() { _ = retriever.Close() }()
		if err := retriever.EnsureCollection(ctx, embeddingDimensions); err != nil {
			log.Fatal("Failed to create/verify collection:", err)
		}
		indexer = retriever
	case config.KnowledgePgvector:
		fmt.Println("Connecting to database with write access...")
		writeClient, err := database.NewWriteClient(cfg.ConversationsDatabaseURL)
		if err != nil {
			log.Fatal("Failed to connect to database with write access:", err)
		}
		defer func() { _ = writeClient.Close() }()
		retriever := knowledge.NewPgvectorRetriever(writeClient, ai)
		if err := retriever.CreateTables(ctx); err != nil {
			log.Fatal("Failed to create/verify knowledge table:", err)
		}
		indexer = retriever
	default:
		log.Fatalf("KNOWLEDGE_BACKEND %q cannot be indexed", cfg.KnowledgeBackend)
	}

	fmt.Println("Indexing passages...")
	start := time.Now()

	total, err := knowledge.IndexCorpus(ctx, indexer, corpus, *batch)
	if err != nil {
		log.Fatalf("Indexing stopped after %d documents: %v", total, err)
	}

	fmt.Printf("Successfully indexed %d documents in %v\n", total, time.Since(start))
	fmt.Printf("Completed at: %s\n", time.Now().Format(time.RFC3339))
}
