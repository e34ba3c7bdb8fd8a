package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"pdfchat/internal/chat"
	"pdfchat/internal/config"
	"pdfchat/internal/embedding"
	"pdfchat/internal/helper"
	"pdfchat/internal/index"
	"pdfchat/internal/llmservice"
	"pdfchat/internal/models"
	"pdfchat/internal/rag"
	"pdfchat/internal/store"
	"pdfchat/internal/synthesizer"
	"pdfchat/internal/vectorstore"
)

const defaultConfigPath = "./configs/config.yaml"

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339})

	if err := godotenv.Load(); err != nil {
		log.Debug().Msg("no .env file, relying on the environment")
	}

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	filePath := flag.String("file", "", "Path to a document to upload")
	question := flag.String("ask", "", "Question to answer")
	mode := flag.String("mode", "standard", "Answer mode: standard, ai or compare")
	docID := flag.Int64("pdf", 0, "Document id the question refers to")
	sessionID := flag.String("session", "", "Chat session id; empty starts a new session")
	summaryID := flag.Int64("summary", 0, "Document id to summarize")
	deleteID := flag.Int64("delete", 0, "Document id to delete")
	exportID := flag.Int64("export", 0, "Document id whose vectors to export to an encrypted file")
	exportOut := flag.String("out", "", "Destination file for -export; empty uses the vector store path")
	importPath := flag.String("import", "", "Encrypted vector file to import")
	list := flag.Bool("list", false, "List uploaded documents")
	history := flag.Bool("history", false, "Print the session's chat history (requires -session)")
	rebuild := flag.Bool("rebuild", false, "Rebuild the in-memory index from stored documents")
	verbose := flag.Bool("verbose", false, "Enable debug logging")
	flag.Parse()

	if *verbose {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	svc, closeStore := buildService(cfg)
	defer closeStore()

	ctx := context.Background()

	switch {
	case *filePath != "":
		doc, err := svc.Upload(ctx, *filePath)
		if err != nil {
			if !errors.Is(err, models.ErrExtractionEmpty) || doc == nil {
				log.Fatal().Err(err).Msg("Error uploading document")
			}
			log.Warn().Str("file", *filePath).Msg("document stored but no text could be extracted")
		}
		helper.PrettyPrint(doc)

	case *question != "":
		m, err := rag.ParseMode(*mode)
		if err != nil {
			log.Fatal().Err(err).Msg("Error parsing answer mode")
		}
		ans, sid, err := svc.Ask(ctx, rag.AskOptions{
			SessionID:  *sessionID,
			DocumentID: *docID,
			Question:   *question,
			Mode:       m,
		})
		if err != nil {
			log.Fatal().Err(err).Msg("Error answering question")
		}
		fmt.Printf("session: %s\n", sid)
		helper.PrettyPrint(ans)

	case *summaryID != 0:
		sum, err := svc.Summarize(ctx, *summaryID)
		if err != nil {
			log.Fatal().Err(err).Msg("Error summarizing document")
		}
		helper.PrettyPrint(sum)

	case *deleteID != 0:
		if err := svc.Delete(ctx, *deleteID); err != nil {
			log.Fatal().Err(err).Msg("Error deleting document")
		}
		fmt.Printf("deleted document %d\n", *deleteID)

	case *exportID != 0:
		path, err := svc.ExportVectors(ctx, *exportID, *exportOut)
		if err != nil {
			log.Fatal().Err(err).Msg("Error exporting vectors")
		}
		fmt.Printf("exported vectors for document %d to %s\n", *exportID, path)

	case *importPath != "":
		if err := svc.ImportVectors(*importPath); err != nil {
			log.Fatal().Err(err).Msg("Error importing vectors")
		}
		fmt.Printf("imported vectors from %s\n", *importPath)

	case *list:
		docs, err := svc.Documents(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Error listing documents")
		}
		helper.PrettyPrint(docs)

	case *history:
		if *sessionID == "" {
			log.Fatal().Msg("-history requires -session")
		}
		turns, err := svc.History(ctx, *sessionID)
		if err != nil {
			log.Fatal().Err(err).Msg("Error loading history")
		}
		helper.PrettyPrint(turns)

	case *rebuild:
		n, err := svc.Rebuild(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Error rebuilding index")
		}
		fmt.Printf("rebuilt index for %d documents\n", n)

	default:
		flag.Usage()
	}
}

// buildService wires the full pipeline from config. The generator is
// optional: without an API key or a local base URL, AI mode degrades to
// the standard answer path.
func buildService(cfg *config.Config) (*rag.Service, func()) {
	ctx := context.Background()

	st, err := store.Connect(cfg.Database.DSN, cfg.Database.Debug)
	if err != nil {
		log.Fatal().Err(err).Msg("Error connecting to database")
	}
	if err := st.Init(ctx); err != nil {
		log.Fatal().Err(err).Msg("Error initializing database schema")
	}

	embedder, err := embedding.NewFromConfig(&cfg.Embedding)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}

	var gen synthesizer.Generator
	if llmConfigured(&cfg.LLM) {
		client, err := llmservice.New(&cfg.LLM)
		if err != nil {
			log.Fatal().Err(err).Msg("Error initializing generation backend")
		}
		gen = client
	} else {
		log.Info().Msg("no generation backend configured, ai mode falls back to standard answers")
	}

	var vectors *vectorstore.Store
	if cfg.VectorDB.Path != "" || cfg.VectorDB.InMemory {
		vectors, err = vectorstore.New(&cfg.VectorDB)
		if err != nil {
			log.Fatal().Err(err).Msg("Error opening vector store")
		}
	}

	synth := synthesizer.New(gen, synthesizer.Options{
		TopK:            cfg.RAG.TopK,
		MinRelevance:    cfg.RAG.MinRelevance,
		MaxContextChars: cfg.RAG.MaxContextChars,
	})

	svc := rag.New(cfg.RAG, st, embedder, index.New(), vectors, synth, chat.NewManager(st))

	return svc, func() {
		if err := st.Close(); err != nil {
			log.Warn().Err(err).Msg("closing database")
		}
	}
}

func llmConfigured(cfg *config.LLMConfig) bool {
	switch cfg.Provider {
	case "ollama":
		return cfg.Model != ""
	case "openai":
		return cfg.Key != ""
	}
	return false
}
