package core

import (
	"encoding/binary"
	"fmt"
	"strings"
	"time"

	"github.com/go-crypt/x/blake2b"
)

// ID is a unique identifier for content-derived entities (chunks, speakers,
// cache entries, embedding configurations). Jobs and recordings use UUID
// strings instead, since they are created before any content exists.
type ID uint64

// IDFromContent generates a deterministic ID from text content using BLAKE2b
// hashing. Identical content always produces the same ID.
func IDFromContent(text string) ID {
	h, _ := blake2b.New(8, nil) // 8 bytes = 64 bits
	h.Write([]byte(text))
	sum := h.Sum(nil)
	return ID(binary.LittleEndian.Uint64(sum))
}

// Fingerprint produces a hex digest over the given parts. Used to detect
// stale checkpoints and to key the transcription cache.
func Fingerprint(parts ...string) string {
	h, _ := blake2b.New(16, nil)
	for _, part := range parts {
		h.Write([]byte(part))
		h.Write([]byte{0})
	}
	return fmt.Sprintf("%x", h.Sum(nil))
}

// JobStatus is the lifecycle state of a processing job.
type JobStatus string

const (
	JobPending    JobStatus = "pending"
	JobProcessing JobStatus = "processing"
	JobCompleted  JobStatus = "completed"
	JobFailed     JobStatus = "failed"
)

// Stage identifies one phase of the processing pipeline.
type Stage string

const (
	StageConversion    Stage = "conversion"
	StageDiarization   Stage = "diarization"
	StageTranscription Stage = "transcription"
	StageAnalysis      Stage = "analysis"
)

// Stages lists the pipeline stages in execution order.
var Stages = []Stage{StageConversion, StageDiarization, StageTranscription, StageAnalysis}

// MaxJobLogEntries bounds the rolling diagnostic log on a Job.
const MaxJobLogEntries = 100

// Job tracks one recording's run through the pipeline.
// Mutated only by the orchestrator; terminal at completed/failed.
type Job struct {
	Id              string
	RecordingId     string
	Status          JobStatus
	Stage           Stage
	StageProgress   int // 0-100 within the current stage
	OverallProgress int // 0-100 weighted across stages, monotonic
	ErrorMessage    string
	Logs            []string
	InsertedAt      time.Time
	UpdatedAt       time.Time
}

// AppendLog appends a timestamped entry to the rolling log, dropping the
// oldest entries beyond MaxJobLogEntries.
func (j *Job) AppendLog(message string) {
	entry := time.Now().UTC().Format(time.RFC3339) + " " + message
	j.Logs = append(j.Logs, entry)
	if len(j.Logs) > MaxJobLogEntries {
		j.Logs = j.Logs[len(j.Logs)-MaxJobLogEntries:]
	}
}

// CanTransition reports whether the job state machine permits moving to the
// given status. Allowed: pending→processing, processing→{completed,failed},
// failed→processing (manual retry). No other transitions.
func (j *Job) CanTransition(to JobStatus) bool {
	switch j.Status {
	case JobPending:
		return to == JobProcessing
	case JobProcessing:
		return to == JobCompleted || to == JobFailed
	case JobFailed:
		return to == JobProcessing
	default:
		return false
	}
}

// ActionItem is one structured task extracted by the analyzer.
type ActionItem struct {
	Task    string `json:"task"`
	Owner   string `json:"owner,omitempty"`
	DueDate string `json:"due_date,omitempty"`
}

// Recording is the entity a job processes and the agent answers over.
type Recording struct {
	Id           string
	Title        string
	SourcePath   string
	LanguageHint string
	SpeakerHint  int // 0 = unknown
	Duration     float64
	Language     string
	Transcript   string
	Notes        string
	Summary      []string
	Decisions    []string
	ActionItems  []ActionItem
	InsertedAt   time.Time
	UpdatedAt    time.Time
}

// Processed reports whether the recording carries the full analyzer output:
// transcript, summary, and at least one structured action item.
func (r *Recording) Processed() bool {
	return r.Transcript != "" && len(r.Summary) > 0 && len(r.ActionItems) > 0
}

// Checkpoint is a persisted intermediate stage result enabling resume.
// At most one exists per (job, stage); saves are last-write-wins.
type Checkpoint struct {
	JobId       string
	Stage       Stage
	Fingerprint string
	Payload     []byte // opaque stage payload, JSON encoded
	UpdatedAt   time.Time
}

// DiarizationSegment is one speaker turn located in the audio.
type DiarizationSegment struct {
	Speaker string  `json:"speaker"`
	Start   float64 `json:"start"`
	End     float64 `json:"end"`
}

// TranscriptSegment is a diarization segment with transcribed text.
type TranscriptSegment struct {
	Speaker  string  `json:"speaker"`
	Start    float64 `json:"start"`
	End      float64 `json:"end"`
	Text     string  `json:"text"`
	Language string  `json:"language"`
}

// Speaker records one unique diarization label observed on a recording.
type Speaker struct {
	Id          ID
	RecordingId string
	Label       string
	InsertedAt  time.Time
}

// ContentType tags a chunk with the kind of text it was cut from.
type ContentType string

const (
	ContentTranscript  ContentType = "transcript"
	ContentNotes       ContentType = "notes"
	ContentAttachment  ContentType = "attachment"
	ContentActionItems ContentType = "action_items"
)

// Chunk is a retrieval-sized unit of text. Ordinal is unique within the
// (entity, content type) group, in emission order. Chunks are never created
// from empty text.
type Chunk struct {
	Id          ID
	EntityId    string
	ContentType ContentType
	Ordinal     int
	Text        string
	Metadata    map[string]string
	Vector      []float32 // embedding, populated by the indexer
	ConfigId    ID        // embedding configuration that produced Vector
	InsertedAt  time.Time
}

// EmbeddingConfig identifies the provider/model pair used to vectorize
// chunks. Exactly one configuration is active at a time; existing vectors
// are never retroactively reassigned when the active configuration changes.
type EmbeddingConfig struct {
	Id         ID
	Provider   string
	Model      string
	Dimension  int
	Host       string
	InsertedAt time.Time
}

// Key returns the identity tuple of the configuration, used for its ID.
func (c *EmbeddingConfig) Key() string {
	return fmt.Sprintf("(%s,%s,%d)", c.Provider, c.Model, c.Dimension)
}

// Scope restricts retrieval to an entity, a set of entities, or a content
// type. The zero value is global scope.
type Scope struct {
	EntityId    string
	EntityIds   []string
	ContentType ContentType
}

// Matches reports whether the chunk falls inside the scope.
func (s Scope) Matches(c *Chunk) bool {
	if s.EntityId != "" && c.EntityId != s.EntityId {
		return false
	}
	if len(s.EntityIds) > 0 {
		found := false
		for _, id := range s.EntityIds {
			if c.EntityId == id {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	if s.ContentType != "" && c.ContentType != s.ContentType {
		return false
	}
	return true
}

// ScoredChunk is a similarity-search hit.
type ScoredChunk struct {
	Chunk *Chunk
	Score float32
}

// AnalysisResult is the analyzer's structured output. A response failing
// structured-output validation yields Success=false with a message, never a
// propagated error.
type AnalysisResult struct {
	Summary     []string     `json:"summary"`
	Decisions   []string     `json:"decisions"`
	ActionItems []ActionItem `json:"action_items"`
	Success     bool         `json:"success"`
	Message     string       `json:"message,omitempty"`
}

// DominantLanguage returns the most frequent non-empty language across
// segments, ties broken by first-seen order.
func DominantLanguage(segments []TranscriptSegment) string {
	counts := make(map[string]int)
	order := make([]string, 0, 4)
	for _, seg := range segments {
		lang := strings.TrimSpace(seg.Language)
		if lang == "" {
			continue
		}
		if _, seen := counts[lang]; !seen {
			order = append(order, lang)
		}
		counts[lang]++
	}
	best := ""
	bestCount := 0
	for _, lang := range order {
		if counts[lang] > bestCount {
			best = lang
			bestCount = counts[lang]
		}
	}
	return best
}
