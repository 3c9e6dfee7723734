// Copyright 2025 The lorekeep Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package main

import (
	"bufio"
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/urfave/cli/v2"

	"github.com/lorekeep/lorekeep"
	"github.com/lorekeep/lorekeep/ai"
	"github.com/lorekeep/lorekeep/chat"
	"github.com/lorekeep/lorekeep/core"
	"github.com/lorekeep/lorekeep/storage"
)

func main() {
	app := &cli.App{
		Name:  "lorekeep",
		Usage: "Retrieval-augmented chat over a local knowledge base",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:   "chat",
				Usage:  "Start an interactive chat session over ingested documents",
				Action: chatCommand,
				Flags: append(serviceFlags(),
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum chunks retrieved per question",
						Value: 5,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity score for retrieved chunks",
						Value: 0.7,
					},
				),
			},
			{
				Name:      "ingest",
				Usage:     "Ingest documents into the knowledge base and report parse-job states",
				ArgsUsage: "<file> [file...]",
				Action:    ingestCommand,
				Flags:     serviceFlags(),
			},
			{
				Name:      "search",
				Usage:     "Run a one-off semantic search over ingested documents",
				ArgsUsage: "<query>",
				Action:    searchCommand,
				Flags: append(serviceFlags(),
					&cli.IntFlag{
						Name:  "top-k",
						Usage: "Maximum chunks to retrieve",
						Value: 5,
					},
					&cli.Float64Flag{
						Name:  "threshold",
						Usage: "Minimum similarity score",
						Value: 0.5,
					},
				),
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

// serviceFlags are shared by every command that assembles the service.
// Vectors live in memory, so each command re-indexes the files it is given.
func serviceFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{
			Name:    "db",
			Aliases: []string{"d"},
			Usage:   "Path to BadgerDB database directory",
			Value:   "lorekeep.db",
		},
		&cli.StringSliceFlag{
			Name:    "file",
			Aliases: []string{"f"},
			Usage:   "Document to ingest before the command runs (repeatable)",
		},
		&cli.Uint64Flag{
			Name:  "space",
			Usage: "Space id owning ingested documents",
			Value: 1,
		},
		&cli.StringFlag{
			Name:  "host",
			Usage: "OpenAI-compatible service host URL",
			Value: "http://localhost:11434/v1",
		},
		&cli.StringFlag{
			Name:  "chat-model",
			Usage: "Chat model name",
			Value: "qwen2.5:7b",
		},
		&cli.StringFlag{
			Name:  "embedding-model",
			Usage: "Embedding model name",
			Value: "embeddinggemma",
		},
		&cli.StringFlag{
			Name:  "token",
			Usage: "API token for the model service",
			Value: "none",
		},
	}
}

func openService(c *cli.Context) (*lorekeep.Service, error) {
	aiConfig := ai.NewConfig(
		ai.WithHost(c.String("host")),
		ai.WithChatModel(c.String("chat-model")),
		ai.WithEmbeddingModel(c.String("embedding-model")),
		ai.WithToken(c.String("token")),
	)
	if err := aiConfig.Validate(); err != nil {
		return nil, fmt.Errorf("invalid AI configuration: %w", err)
	}

	service, err := lorekeep.NewService(c.String("db"), lorekeep.WithAIConfig(aiConfig))
	if err != nil {
		return nil, fmt.Errorf("failed to open service: %w", err)
	}
	return service, nil
}

// ingestFiles creates a knowledge record per file, uploads its contents and
// waits for the parse job to finish.
func ingestFiles(ctx context.Context, service *lorekeep.Service, paths []string, spaceID core.ID) error {
	for _, p := range paths {
		record, err := service.KnowledgeRepository().Create(ctx, &core.KnowledgeRecord{
			SpaceID: spaceID,
			Title:   filepath.Base(p),
			Type:    core.DocUnstructured,
		})
		if err != nil {
			return fmt.Errorf("failed to create knowledge record for %s: %w", p, err)
		}

		f, err := os.Open(p)
		if err != nil {
			return err
		}
		key, err := service.BlobStore().Upload(ctx, f, filepath.Base(p), "knowledge", spaceID)
		f.Close()
		if err != nil {
			return fmt.Errorf("failed to upload %s: %w", p, err)
		}
		if err := service.KnowledgeRepository().UpdateBlobKey(ctx, record.ID, key); err != nil {
			return err
		}

		handle, err := service.Pipeline().Submit(ctx, record.ID, key)
		if err != nil {
			return fmt.Errorf("failed to submit parse job for %s: %w", p, err)
		}
		for !handle.Done() {
			time.Sleep(50 * time.Millisecond)
		}

		fmt.Fprintf(os.Stderr, "%s: knowledge %d, parse job %s\n", p, record.ID, handle.State())
		if handle.State() == core.JobFailed {
			return fmt.Errorf("parse job failed for %s", p)
		}
	}
	return nil
}

func ingestCommand(c *cli.Context) error {
	ctx := context.Background()

	paths := append(c.StringSlice("file"), c.Args().Slice()...)
	if len(paths) == 0 {
		return fmt.Errorf("at least one file is required")
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	return ingestFiles(ctx, service, paths, core.ID(c.Uint64("space")))
}

func searchCommand(c *cli.Context) error {
	ctx := context.Background()

	query := strings.TrimSpace(strings.Join(c.Args().Slice(), " "))
	if query == "" {
		return fmt.Errorf("query is required")
	}

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	if err := ingestFiles(ctx, service, c.StringSlice("file"), core.ID(c.Uint64("space"))); err != nil {
		return err
	}

	scope := storage.ChunkFilter{SpaceID: core.ID(c.Uint64("space"))}
	results, err := service.Retriever().Search(ctx, query, scope, c.Int("top-k"), c.Float64("threshold"), 3)
	if err != nil {
		return fmt.Errorf("search failed: %w", err)
	}

	if len(results) == 0 {
		fmt.Println("No results.")
		return nil
	}

	for i, result := range results {
		fmt.Printf("%d. %s (knowledge %d, score %.2f)\n", i+1, result.Title, result.KnowledgeID, result.AvgScore)
		for _, chunk := range result.Chunks {
			text := chunk.Chunk.Text
			if len(text) > 160 {
				text = text[:160] + "..."
			}
			fmt.Printf("   [%.2f] %s\n", chunk.Score, text)
		}
	}
	return nil
}

func chatCommand(c *cli.Context) error {
	ctx := context.Background()

	service, err := openService(c)
	if err != nil {
		return err
	}
	defer service.Close()

	spaceID := core.ID(c.Uint64("space"))
	if err := ingestFiles(ctx, service, c.StringSlice("file"), spaceID); err != nil {
		return err
	}

	fmt.Println("Type a question, /clear to reset the conversation, /quit to exit.")

	conversationID := ""
	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/clear":
			if conversationID != "" {
				service.Orchestrator().ClearConversation(conversationID)
				conversationID = ""
			}
			fmt.Println("Conversation cleared.")
			continue
		}

		id, err := service.Orchestrator().ChatStream(ctx, chatRequest(c, line, conversationID, spaceID),
			func(ctx context.Context, delta string) error {
				fmt.Print(delta)
				return nil
			})
		fmt.Println()
		if err != nil {
			fmt.Fprintf(os.Stderr, "chat failed: %v\n", err)
			continue
		}
		conversationID = id
	}
	return scanner.Err()
}

func chatRequest(c *cli.Context, question, conversationID string, spaceID core.ID) chat.Request {
	return chat.Request{
		Question:       question,
		ConversationID: conversationID,
		SpaceID:        spaceID,
		TopK:           c.Int("top-k"),
		Threshold:      c.Float64("threshold"),
	}
}

func setupLogger(c *cli.Context) error {
	// Get log level from flag and normalize to lowercase
	levelStr := strings.ToLower(c.String("log-level"))

	// Map string to slog.Level
	var level slog.Level
	switch levelStr {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("invalid log level %q: must be one of debug, info, warn, error", levelStr)
	}

	// Configure slog with the specified level
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	}))
	slog.SetDefault(logger)

	return nil
}
