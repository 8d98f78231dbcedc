// Package storage defines the repository contracts for Recollect's durable
// state: jobs, recordings, checkpoints, speakers, chunks with embedding
// vectors, the active embedding configuration, and the transcription cache.
// The badger subpackage provides the BadgerDB implementation.
package storage
