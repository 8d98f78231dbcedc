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


// Package recollect turns meeting recordings into searchable,
// structured knowledge: a resumable processing pipeline, an embedding
// index over the results, and a tool-calling agent to ask questions
// with.
package recollect

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/poiesic/recollect/agent"
	"github.com/poiesic/recollect/ai"
	"github.com/poiesic/recollect/ai/mock"
	"github.com/poiesic/recollect/ai/ollama"
	"github.com/poiesic/recollect/ai/openai"
	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/index"
	"github.com/poiesic/recollect/media"
	"github.com/poiesic/recollect/pipeline"
	"github.com/poiesic/recollect/retrieval"
	"github.com/poiesic/recollect/runner"
	badgerstore "github.com/poiesic/recollect/storage/badger"
)

// fullTranscriptWordLimit is the size under which a recording's whole
// transcript goes to the model instead of retrieved chunks.
const fullTranscriptWordLimit = 1500

// System wires the storage backend, AI providers, pipeline, indexer,
// and agent into one handle.
type System struct {
	repos    *badgerstore.Repositories
	loader   *ai.Loader
	aiConfig *ai.Config
	provider ai.Provider

	orchestrator *pipeline.Orchestrator
	indexer      *index.Indexer
	retriever    *retrieval.Retriever
	registry     *agent.Registry
	loop         *agent.Loop
	runner       *runner.Runner

	logger *slog.Logger
}

// SystemOption configures a System.
type SystemOption func(*systemOptions)

type systemOptions struct {
	aiConfig    *ai.Config
	inMemory    bool
	workDir     string
	whisperPath string
	modelPath   string
	diarizer    ai.Diarizer
	transcriber ai.SpeechTranscriber
	converter   *media.Converter
	factories   map[string]ai.ProviderFactory
}

// WithAIConfig overrides the default AI configuration.
func WithAIConfig(cfg *ai.Config) SystemOption {
	return func(o *systemOptions) {
		if cfg != nil {
			o.aiConfig = cfg
		}
	}
}

// WithInMemory uses an in-memory store instead of the database path.
func WithInMemory() SystemOption {
	return func(o *systemOptions) {
		o.inMemory = true
	}
}

// WithWorkDir sets the scratch directory for intermediate audio.
func WithWorkDir(dir string) SystemOption {
	return func(o *systemOptions) {
		o.workDir = dir
	}
}

// WithWhisper sets the whisper.cpp binary and model paths used for
// transcription. Empty values keep the defaults.
func WithWhisper(binaryPath, modelPath string) SystemOption {
	return func(o *systemOptions) {
		if binaryPath != "" {
			o.whisperPath = binaryPath
		}
		if modelPath != "" {
			o.modelPath = modelPath
		}
	}
}

// WithDiarizer overrides the diarization service client.
func WithDiarizer(d ai.Diarizer) SystemOption {
	return func(o *systemOptions) {
		o.diarizer = d
	}
}

// WithTranscriber overrides the speech transcriber.
func WithTranscriber(t ai.SpeechTranscriber) SystemOption {
	return func(o *systemOptions) {
		o.transcriber = t
	}
}

// WithConverter overrides the ffmpeg wrapper.
func WithConverter(c *media.Converter) SystemOption {
	return func(o *systemOptions) {
		o.converter = c
	}
}

// WithProviderFactory registers or replaces a provider factory. Tests
// use it to inject scripted providers.
func WithProviderFactory(name string, factory ai.ProviderFactory) SystemOption {
	return func(o *systemOptions) {
		if o.factories == nil {
			o.factories = make(map[string]ai.ProviderFactory)
		}
		o.factories[name] = factory
	}
}

// New opens the system over the database at filePath.
func New(filePath string, opts ...SystemOption) (*System, error) {
	options := &systemOptions{
		aiConfig:  ai.DefaultConfig(),
		modelPath: "models/ggml-base.bin",
	}
	for _, opt := range opts {
		opt(options)
	}

	backend, err := badgerstore.OpenBackend(filePath, options.inMemory)
	if err != nil {
		return nil, err
	}
	repos := badgerstore.NewRepositories(backend)

	loader := ai.NewLoader()
	loader.RegisterFactory(ai.ProviderOpenAI, openai.NewProvider)
	loader.RegisterFactory(ai.ProviderOllama, ollama.NewProvider)
	loader.RegisterFactory(ai.ProviderMock, mock.Factory)
	for name, factory := range options.factories {
		loader.RegisterFactory(name, factory)
	}

	provider, err := loader.Load(options.aiConfig)
	if err != nil {
		backend.Close()
		return nil, err
	}

	s := &System{
		repos:    repos,
		loader:   loader,
		aiConfig: options.aiConfig,
		provider: provider,
		logger:   slog.Default().With("component", "recollect"),
	}

	converter := options.converter
	if converter == nil {
		converter = media.NewConverter()
	}
	diarizer := options.diarizer
	if diarizer == nil {
		if options.aiConfig.Provider == ai.ProviderMock {
			diarizer = mock.NewMockDiarizer()
		} else {
			diarizer = media.NewHTTPDiarizer(options.aiConfig.DiarizationHost)
		}
	}
	transcriber := options.transcriber
	if transcriber == nil {
		if options.aiConfig.Provider == ai.ProviderMock {
			transcriber = mock.NewMockTranscriber(nil)
		} else {
			var whisperOpts []media.WhisperOption
			if options.whisperPath != "" {
				whisperOpts = append(whisperOpts, media.WithWhisperBinary(options.whisperPath))
			}
			transcriber = media.NewWhisperTranscriber(options.modelPath, whisperOpts...)
		}
	}

	orchestratorOpts := []pipeline.Option{}
	if options.workDir != "" {
		orchestratorOpts = append(orchestratorOpts, pipeline.WithWorkDir(options.workDir))
	}
	s.orchestrator, err = pipeline.NewOrchestrator(pipeline.Deps{
		Jobs:        repos.Jobs,
		Recordings:  repos.Recordings,
		Checkpoints: repos.Checkpoints,
		Speakers:    repos.Speakers,
		Cache:       repos.Cache,
		Converter:   converter,
		Diarizer:    diarizer,
		Transcriber: transcriber,
		Chat:        provider.ChatModel(),
	}, orchestratorOpts...)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.indexer, err = index.NewIndexer(repos.Chunks, repos.Configs, s.resolveEmbedder)
	if err != nil {
		s.Close()
		return nil, err
	}

	s.retriever, err = retrieval.NewRetriever(repos.Chunks, provider.Embedder())
	if err != nil {
		s.Close()
		return nil, err
	}

	s.registry = agent.NewRegistry(agent.WithTransactions(repos.Recordings))
	s.loop, err = agent.NewLoop(provider.ChatModel(), s.retriever, s.registry)
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := agent.RegisterBuiltins(s.registry, agent.BuiltinDeps{
		Recordings: repos.Recordings,
		Retriever:  s.retriever,
		Research:   s.loop.Research,
	}); err != nil {
		s.Close()
		return nil, err
	}

	s.runner, err = runner.NewRunner()
	if err != nil {
		s.Close()
		return nil, err
	}

	return s, nil
}

// Close releases the worker pools, providers, and the store.
func (s *System) Close() error {
	if s.runner != nil {
		s.runner.Release()
	}
	if s.orchestrator != nil {
		s.orchestrator.Release()
	}
	if err := s.loader.Close(); err != nil {
		s.logger.Error("error closing providers", "err", err)
	}
	return s.repos.Close()
}

// resolveEmbedder maps a stored embedding configuration to a live
// embedder through the provider loader.
func (s *System) resolveEmbedder(ctx context.Context, cfg *core.EmbeddingConfig) (ai.Embedder, error) {
	providerCfg := ai.NewConfig(
		ai.WithProvider(cfg.Provider),
		ai.WithChatHost(s.aiConfig.ChatHost),
		ai.WithChatModel(s.aiConfig.ChatModel),
		ai.WithEmbeddingHost(cfg.Host),
		ai.WithEmbeddingModel(cfg.Model, cfg.Dimension),
		ai.WithAPIKey(s.aiConfig.APIKey),
	)
	provider, err := s.loader.Load(providerCfg)
	if err != nil {
		return nil, err
	}
	return provider.Embedder(), nil
}

// ProcessOptions carries the per-recording hints the pipeline uses.
type ProcessOptions struct {
	Title        string
	LanguageHint string
	SpeakerHint  int
}

// ProcessRecording creates a recording and its job, then enqueues the
// pipeline run on the background runner. The returned handle resolves
// when processing and indexing finish; the job record carries progress
// in the meantime.
func (s *System) ProcessRecording(ctx context.Context, sourcePath string, opts ProcessOptions) (string, string, *runner.Handle, error) {
	title := opts.Title
	if title == "" {
		title = sourcePath
	}
	rec := &core.Recording{
		Id:           uuid.NewString(),
		Title:        title,
		SourcePath:   sourcePath,
		LanguageHint: opts.LanguageHint,
		SpeakerHint:  opts.SpeakerHint,
	}
	if err := s.repos.Recordings.SaveRecording(ctx, rec); err != nil {
		return "", "", nil, err
	}
	job := &core.Job{
		Id:          uuid.NewString(),
		RecordingId: rec.Id,
		Status:      core.JobPending,
	}
	if err := s.repos.Jobs.SaveJob(ctx, job); err != nil {
		return "", "", nil, err
	}

	handle, err := s.submitJob(ctx, job.Id, rec.Id)
	if err != nil {
		return "", "", nil, err
	}
	return rec.Id, job.Id, handle, nil
}

// RetryJob re-enqueues a failed job. Valid checkpoints make the retry
// resume where the failure happened.
func (s *System) RetryJob(ctx context.Context, jobID string) (*runner.Handle, error) {
	job, err := s.repos.Jobs.GetJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != core.JobFailed && job.Status != core.JobPending {
		return nil, fmt.Errorf("%w: %s -> processing", core.ErrInvalidTransition, job.Status)
	}
	return s.submitJob(ctx, job.Id, job.RecordingId)
}

func (s *System) submitJob(ctx context.Context, jobID, recordingID string) (*runner.Handle, error) {
	return s.runner.Submit(ctx, "process-"+jobID, func(ctx context.Context) error {
		if err := s.orchestrator.Run(ctx, jobID); err != nil {
			return err
		}
		// Indexing failures stay isolated from the completed job.
		if err := s.Reindex(ctx, recordingID); err != nil {
			s.logger.Warn("indexing failed after processing",
				"recording_id", recordingID,
				"err", err)
		}
		return nil
	})
}

// Reindex recomputes the recording's chunk embeddings under the active
// embedding configuration.
func (s *System) Reindex(ctx context.Context, recordingID string) error {
	rec, err := s.repos.Recordings.GetRecording(ctx, recordingID)
	if err != nil {
		return err
	}
	return s.indexer.IndexRecording(ctx, rec)
}

// SetEmbeddingConfig activates an embedding configuration. Existing
// vectors keep the configuration that produced them until reindexed.
func (s *System) SetEmbeddingConfig(ctx context.Context, provider, model string, dimension int, host string) error {
	return s.repos.Configs.SetActiveConfig(ctx, &core.EmbeddingConfig{
		Provider:  provider,
		Model:     model,
		Dimension: dimension,
		Host:      host,
	})
}

// Ask answers a question about a recording, or across all recordings
// when recordingID is empty. Short transcripts go to the model whole;
// longer ones are answered over retrieved chunks.
func (s *System) Ask(ctx context.Context, question, recordingID string, history []agent.Turn) (*agent.Answer, error) {
	req := agent.Request{
		Query:    question,
		History:  history,
		UseTools: true,
		Context:  &agent.ToolContext{RecordingID: recordingID},
	}
	if recordingID != "" {
		req.Scope = core.Scope{EntityId: recordingID}
		rec, err := s.repos.Recordings.GetRecording(ctx, recordingID)
		if err != nil {
			return nil, err
		}
		if len(strings.Fields(rec.Transcript)) <= fullTranscriptWordLimit {
			req.FullTranscript = rec.Transcript
		}
	}
	return s.loop.Ask(ctx, req)
}

// Research runs the iterative research loop over a recording, or all
// recordings when recordingID is empty.
func (s *System) Research(ctx context.Context, question, recordingID string, depth int) (*agent.ResearchReport, error) {
	scope := core.Scope{EntityId: recordingID}
	return s.loop.Research(ctx, question, scope, depth)
}

// Jobs lists all jobs, most recently updated first.
func (s *System) Jobs(ctx context.Context) ([]*core.Job, error) {
	return s.repos.Jobs.ListJobs(ctx)
}

// Recording returns one recording.
func (s *System) Recording(ctx context.Context, id string) (*core.Recording, error) {
	return s.repos.Recordings.GetRecording(ctx, id)
}

// Recordings returns all recordings, most recently updated first.
func (s *System) Recordings(ctx context.Context) ([]*core.Recording, error) {
	return s.repos.Recordings.ListRecordings(ctx)
}

// Speakers returns the speaker labels observed on a recording.
func (s *System) Speakers(ctx context.Context, recordingID string) ([]*core.Speaker, error) {
	return s.repos.Speakers.GetSpeakers(ctx, recordingID)
}

// Registry exposes the tool registry for callers adding their own
// tools.
func (s *System) Registry() *agent.Registry {
	return s.registry
}

// Repositories exposes the underlying storage layer.
func (s *System) Repositories() *badgerstore.Repositories {
	return s.repos
}
