package badger

import (
	"fmt"

	"github.com/poiesic/recollect/core"
	"github.com/poiesic/recollect/storage"
)

// Key prefixes for different data types
const (
	jobPrefix        = "job"
	recordingPrefix  = "rec"
	checkpointPrefix = "chkpt"
	chunkPrefix      = "chunk"
	speakerPrefix    = "spkr"
	configKey        = "emcfg:active"
	trCachePrefix    = "trcache"
)

// makeJobKey generates a key for a job by ID.
func makeJobKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", jobPrefix, id))
}

// makeRecordingKey generates a key for a recording by ID.
func makeRecordingKey(id string) []byte {
	return []byte(fmt.Sprintf("%s:%s", recordingPrefix, id))
}

// makeCheckpointKey generates a key for a (job, stage) checkpoint.
// Format: prefix:jobID:stage
func makeCheckpointKey(jobID string, stage core.Stage) []byte {
	return []byte(fmt.Sprintf("%s:%s:%s", checkpointPrefix, jobID, stage))
}

// makeCheckpointScanKey generates the prefix covering all of a job's
// checkpoints, for ClearCheckpoints.
func makeCheckpointScanKey(jobID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", checkpointPrefix, jobID))
}

// makeChunkKey generates a composite key for a chunk.
// Format: prefix:entityID:<8-byte big-endian chunkID>. Grouping by
// entity keeps the ReplaceEntityChunks swap a single prefix scan, and
// the fixed-width ID suffix keeps iteration in numeric ID order.
func makeChunkKey(entityID string, id core.ID) []byte {
	return append(makeChunkScanKey(entityID), storage.MarshalID(id)...)
}

// makeChunkScanKey generates the prefix covering all of an entity's chunks.
func makeChunkScanKey(entityID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", chunkPrefix, entityID))
}

// makeSpeakerKey generates a composite key for a speaker record.
// Format: prefix:recordingID:<8-byte big-endian speakerID>
func makeSpeakerKey(recordingID string, id core.ID) []byte {
	return append(makeSpeakerScanKey(recordingID), storage.MarshalID(id)...)
}

// makeSpeakerScanKey generates the prefix covering a recording's speakers.
func makeSpeakerScanKey(recordingID string) []byte {
	return []byte(fmt.Sprintf("%s:%s:", speakerPrefix, recordingID))
}

// makeTranscriptCacheKey generates a key for a cached transcription result.
func makeTranscriptCacheKey(key core.ID) []byte {
	return []byte(fmt.Sprintf("%s:%d", trCachePrefix, key))
}
