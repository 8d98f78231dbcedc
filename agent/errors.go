package agent

import "errors"

var (
	// ErrModelRequired indicates no chat model was provided.
	ErrModelRequired = errors.New("chat model is required")

	// ErrRetrieverRequired indicates no retriever was provided.
	ErrRetrieverRequired = errors.New("retriever is required")

	// ErrHandlerRequired indicates a tool was registered without a handler.
	ErrHandlerRequired = errors.New("tool handler is required")

	// ErrEmptyQuery indicates a blank question.
	ErrEmptyQuery = errors.New("query must not be empty")
)
