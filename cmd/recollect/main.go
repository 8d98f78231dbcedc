// Copyright 2025 Poiesic Systems
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
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/poiesic/recollect"
	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/index"
)

func main() {
	// Missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	app := &cli.App{
		Name:  "recollect",
		Usage: "Turn meeting recordings into searchable, structured knowledge",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "log-level",
				Aliases: []string{"l"},
				Usage:   "Set logging level (debug, info, warn, error)",
				Value:   "info",
			},
			&cli.StringFlag{
				Name:    "db",
				Aliases: []string{"d"},
				Usage:   "Path to BadgerDB database directory",
				Value:   "recollect-db",
				EnvVars: []string{"RECOLLECT_DB"},
			},
			&cli.StringFlag{
				Name:    "provider",
				Usage:   "AI provider (openai, ollama); auto-detected when empty",
				EnvVars: []string{"RECOLLECT_PROVIDER"},
			},
			&cli.StringFlag{
				Name:    "chat-host",
				Usage:   "Chat service host URL",
				EnvVars: []string{"RECOLLECT_CHAT_HOST"},
			},
			&cli.StringFlag{
				Name:    "chat-model",
				Usage:   "Chat model name",
				EnvVars: []string{"RECOLLECT_CHAT_MODEL"},
			},
			&cli.StringFlag{
				Name:    "embedding-host",
				Usage:   "Embedding service host URL",
				EnvVars: []string{"RECOLLECT_EMBEDDING_HOST"},
			},
			&cli.StringFlag{
				Name:    "embedding-model",
				Usage:   "Embedding model name",
				EnvVars: []string{"RECOLLECT_EMBEDDING_MODEL"},
			},
			&cli.IntFlag{
				Name:    "embedding-dimension",
				Usage:   "Embedding vector width",
				EnvVars: []string{"RECOLLECT_EMBEDDING_DIMENSION"},
			},
			&cli.StringFlag{
				Name:    "diarization-host",
				Usage:   "Diarization service URL",
				EnvVars: []string{"RECOLLECT_DIARIZATION_HOST"},
			},
			&cli.StringFlag{
				Name:    "whisper-binary",
				Usage:   "Path to the whisper.cpp binary",
				EnvVars: []string{"RECOLLECT_WHISPER_BINARY"},
			},
			&cli.StringFlag{
				Name:    "whisper-model",
				Usage:   "Path to the whisper.cpp model file",
				EnvVars: []string{"RECOLLECT_WHISPER_MODEL"},
			},
		},
		Before: setupLogger,
		Commands: []*cli.Command{
			{
				Name:      "process",
				Usage:     "Process a recording through the pipeline",
				ArgsUsage: "<source-file>",
				Action:    processCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "title",
						Usage: "Recording title",
					},
					&cli.StringFlag{
						Name:  "language",
						Usage: "Language hint (e.g. en); auto-detected when empty",
					},
					&cli.IntFlag{
						Name:  "speakers",
						Usage: "Expected speaker count hint (0 = unknown)",
					},
				},
			},
			{
				Name:   "jobs",
				Usage:  "List processing jobs",
				Action: jobsCommand,
			},
			{
				Name:      "retry",
				Usage:     "Retry a failed job, resuming from its checkpoints",
				ArgsUsage: "<job-id>",
				Action:    retryCommand,
			},
			{
				Name:      "ask",
				Usage:     "Ask a question about a recording",
				ArgsUsage: "<question>",
				Action:    askCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "recording",
						Aliases: []string{"r"},
						Usage:   "Recording ID to scope the question to (empty = all)",
					},
				},
			},
			{
				Name:      "research",
				Usage:     "Iteratively research a question against indexed content",
				ArgsUsage: "<question>",
				Action:    researchCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "recording",
						Aliases: []string{"r"},
						Usage:   "Recording ID to scope the research to (empty = all)",
					},
					&cli.IntFlag{
						Name:  "depth",
						Usage: "Maximum research rounds",
					},
				},
			},
			{
				Name:      "reindex",
				Usage:     "Recompute embeddings under the active configuration",
				ArgsUsage: "<recording-id>",
				Action:    reindexCommand,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "all",
						Usage: "Reindex every recording",
					},
				},
			},
			{
				Name:   "set-embedding",
				Usage:  "Activate an embedding configuration",
				Action: setEmbeddingCommand,
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:     "model",
						Usage:    "Embedding model name",
						Required: true,
					},
					&cli.IntFlag{
						Name:     "dimension",
						Usage:    "Embedding vector width",
						Required: true,
					},
					&cli.StringFlag{
						Name:  "host",
						Usage: "Embedding service host URL",
					},
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}

func setupLogger(c *cli.Context) error {
	var level slog.Level
	switch strings.ToLower(c.String("log-level")) {
	case "debug":
		level = slog.LevelDebug
	case "info":
		level = slog.LevelInfo
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		return fmt.Errorf("unknown log level %q", c.String("log-level"))
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
	return nil
}

func aiConfigFromFlags(c *cli.Context) *ai.Config {
	opts := []ai.ConfigOption{}
	if v := c.String("provider"); v != "" {
		opts = append(opts, ai.WithProvider(v))
	}
	if v := c.String("chat-host"); v != "" {
		opts = append(opts, ai.WithChatHost(v))
	}
	if v := c.String("chat-model"); v != "" {
		opts = append(opts, ai.WithChatModel(v))
	}
	if v := c.String("embedding-host"); v != "" {
		opts = append(opts, ai.WithEmbeddingHost(v))
	}
	if v := c.String("embedding-model"); v != "" {
		opts = append(opts, ai.WithEmbeddingModel(v, c.Int("embedding-dimension")))
	}
	if v := c.String("diarization-host"); v != "" {
		opts = append(opts, ai.WithDiarizationHost(v))
	}
	return ai.NewConfig(opts...)
}

func openSystem(c *cli.Context) (*recollect.System, error) {
	opts := []recollect.SystemOption{recollect.WithAIConfig(aiConfigFromFlags(c))}
	if binary, model := c.String("whisper-binary"), c.String("whisper-model"); binary != "" || model != "" {
		opts = append(opts, recollect.WithWhisper(binary, model))
	}
	return recollect.New(c.String("db"), opts...)
}

func processCommand(c *cli.Context) error {
	source := c.Args().First()
	if source == "" {
		return fmt.Errorf("source file is required")
	}
	if _, err := os.Stat(source); err != nil {
		return fmt.Errorf("source file: %w", err)
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	ctx := context.Background()
	recordingID, jobID, handle, err := system.ProcessRecording(ctx, source, recollect.ProcessOptions{
		Title:        c.String("title"),
		LanguageHint: c.String("language"),
		SpeakerHint:  c.Int("speakers"),
	})
	if err != nil {
		return err
	}

	fmt.Printf("recording: %s\njob:       %s\n", recordingID, jobID)
	if err := handle.Wait(ctx); err != nil {
		return fmt.Errorf("processing failed: %w", err)
	}

	rec, err := system.Recording(ctx, recordingID)
	if err != nil {
		return err
	}
	fmt.Println("\nSummary:")
	for _, line := range rec.Summary {
		fmt.Printf("  - %s\n", line)
	}
	if len(rec.ActionItems) > 0 {
		fmt.Println("Action items:")
		for _, item := range rec.ActionItems {
			fmt.Printf("  - %s", item.Task)
			if item.Owner != "" {
				fmt.Printf(" (%s)", item.Owner)
			}
			fmt.Println()
		}
	}
	return nil
}

func jobsCommand(c *cli.Context) error {
	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	jobs, err := system.Jobs(context.Background())
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		fmt.Println("no jobs")
		return nil
	}
	for _, job := range jobs {
		fmt.Printf("%s  %-10s  %3d%%  %s", job.Id, job.Status, job.OverallProgress, job.RecordingId)
		if job.ErrorMessage != "" {
			fmt.Printf("  (%s)", job.ErrorMessage)
		}
		fmt.Println()
	}
	return nil
}

func retryCommand(c *cli.Context) error {
	jobID := c.Args().First()
	if jobID == "" {
		return fmt.Errorf("job id is required")
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	ctx := context.Background()
	handle, err := system.RetryJob(ctx, jobID)
	if err != nil {
		return err
	}
	if err := handle.Wait(ctx); err != nil {
		return fmt.Errorf("retry failed: %w", err)
	}
	fmt.Println("job completed")
	return nil
}

func askCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if question == "" {
		return fmt.Errorf("question is required")
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	answer, err := system.Ask(context.Background(), question, c.String("recording"), nil)
	if err != nil {
		return err
	}
	fmt.Println(answer.Text)
	return nil
}

func researchCommand(c *cli.Context) error {
	question := strings.Join(c.Args().Slice(), " ")
	if question == "" {
		return fmt.Errorf("question is required")
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	report, err := system.Research(context.Background(), question, c.String("recording"), c.Int("depth"))
	if err != nil {
		return err
	}
	for i, step := range report.Steps {
		fmt.Printf("round %d (confidence %.2f): %s\n", i+1, step.Confidence, step.Question)
	}
	fmt.Printf("\n%s\n", report.Answer)
	return nil
}

func reindexCommand(c *cli.Context) error {
	recordingID := c.Args().First()
	if recordingID == "" && !c.Bool("all") {
		return fmt.Errorf("recording id or --all is required")
	}

	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	ctx := context.Background()
	if !c.Bool("all") {
		if err := system.Reindex(ctx, recordingID); err != nil {
			return err
		}
		fmt.Println("reindexed")
		return nil
	}

	recordings, err := system.Recordings(ctx)
	if err != nil {
		return err
	}
	tracker := index.NewProgressTracker(slog.Default(), len(recordings), 1)
	var failed int
	for _, rec := range recordings {
		if err := system.Reindex(ctx, rec.Id); err != nil {
			failed++
			slog.Error("reindex failed", "recording_id", rec.Id, "err", err)
		}
		tracker.Increment(1)
	}
	tracker.Finish()
	fmt.Printf("reindexed %d recordings in %s", len(recordings)-failed, tracker.Elapsed().Round(time.Millisecond))
	if failed > 0 {
		fmt.Printf(" (%d failed)", failed)
	}
	fmt.Println()
	return nil
}

func setEmbeddingCommand(c *cli.Context) error {
	system, err := openSystem(c)
	if err != nil {
		return err
	}
	defer system.Close()

	cfg := aiConfigFromFlags(c)
	host := c.String("host")
	if host == "" {
		host = cfg.EmbeddingHost
	}
	if err := system.SetEmbeddingConfig(context.Background(),
		cfg.Provider, c.String("model"), c.Int("dimension"), host); err != nil {
		return err
	}
	fmt.Println("embedding configuration activated")
	return nil
}
