package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"document-qa/internal/config"
	"document-qa/internal/embedding"
	"document-qa/internal/llmservice"
	"document-qa/internal/models"
	"document-qa/internal/parser"
	"document-qa/internal/session"
	"document-qa/internal/store"
)

const (
	defaultConfigPath = "./configs/config.yaml"
	vectorSize        = 768
)

func main() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}).With().Caller().Logger()

	// .env is optional; real config comes from the YAML file
	_ = godotenv.Load()

	configPath := flag.String("config", defaultConfigPath, "Path to the config file")
	filePath := flag.String("file", "", "Path to the document file")
	ask := flag.String("ask", "", "Question to answer from the document")
	summary := flag.Bool("summary", false, "Print a summary of the document")
	challengeMode := flag.Bool("challenge", false, "Generate comprehension questions and grade answers")
	persist := flag.Bool("persist", false, "Save the built index to the snapshot store")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	if *debug {
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	}

	if *filePath == "" {
		log.Fatal().Msg("Please provide a document file using the -file flag")
	}

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading config")
	}

	ctx := context.Background()

	embedder, err := embedding.NewEmbedder(&cfg.EmbedLLM, vectorSize)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing embedder")
	}
	generator, err := llmservice.NewGenerator(&cfg.GenLLM)
	if err != nil {
		log.Fatal().Err(err).Msg("Error initializing generator")
	}

	sess, err := session.New(cfg, embedding.WithCache(embedder), generator)
	if err != nil {
		log.Fatal().Err(err).Msg("Error creating session")
	}

	doc, err := parser.Parse(*filePath)
	if err != nil {
		log.Fatal().Err(err).Msg("Error parsing document")
	}

	count, err := sess.LoadDocument(ctx, doc)
	if err != nil {
		log.Fatal().Err(err).Msg("Error loading document")
	}
	log.Info().Int("chunks", count).Msg("Document processed")

	if *persist {
		snapshots, err := openStore(ctx, cfg)
		if err != nil {
			log.Fatal().Err(err).Msg("Error opening snapshot store")
		}
		if err := sess.Persist(ctx, snapshots); err != nil {
			log.Fatal().Err(err).Msg("Error persisting index")
		}
		log.Info().Msg("Index persisted")
	}

	switch {
	case *ask != "":
		answer, err := sess.Ask(ctx, *ask)
		if err != nil {
			log.Fatal().Err(err).Msg("Error answering question")
		}
		printAnswer(*ask, answer)
	case *summary:
		answer, err := sess.Summarize(ctx)
		if err != nil {
			log.Fatal().Err(err).Msg("Error summarizing document")
		}
		printAnswer("Summary", answer)
	case *challengeMode:
		if err := runChallenge(ctx, sess); err != nil {
			log.Fatal().Err(err).Msg("Error running challenge")
		}
	}
}

func openStore(ctx context.Context, cfg *config.Config) (store.SnapshotStore, error) {
	if cfg.Store.Type == "postgres" {
		db := store.ConnectDB(cfg.Store.DSN, cfg.Store.Debug)
		return store.NewPostgresStore(ctx, db)
	}
	return store.NewFileStore(cfg.Store.Path)
}

func printAnswer(heading string, answer models.Answer) {
	fmt.Printf("%s\n\n%s\n\n", heading, answer.Text)
	for _, c := range answer.Citations {
		fmt.Printf("  [chunk %d, %s] %s\n", c.ChunkID, c.SourceLabel, c.Excerpt)
	}
}

// runChallenge asks the generated questions one by one on stdin and grades
// each answer as it comes in.
func runChallenge(ctx context.Context, sess *session.Session) error {
	questions, err := sess.NewChallenge(ctx)
	if err != nil {
		return err
	}

	reader := bufio.NewReader(os.Stdin)
	score := 0
	for i, q := range questions {
		fmt.Printf("Q%d: %s\nYour answer: ", i+1, q.PromptText)
		line, err := reader.ReadString('\n')
		if err != nil {
			return err
		}

		result, err := sess.ValidateAnswer(ctx, q.ID, strings.TrimSpace(line))
		if err != nil {
			return err
		}
		if result.Verdict == models.VerdictCorrect {
			score++
		}
		fmt.Printf("%s: %s\nReference answer: %s\n\n", result.Verdict, result.Explanation, result.ReferenceAnswer)
	}
	fmt.Printf("Score: %d/%d\n", score, len(questions))
	return nil
}
