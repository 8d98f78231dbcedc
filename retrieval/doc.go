// Package retrieval answers semantic queries over indexed chunks. A
// query is embedded with the same configuration that produced the
// stored vectors, normalized, and matched by cosine similarity against
// the requested scope.
package retrieval
