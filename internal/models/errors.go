package models

import "errors"

var (
	ErrIndexUnavailable     = errors.New("vector index unavailable")
	ErrAgentUnavailable     = errors.New("answering agent unavailable")
	ErrEmptyQuery           = errors.New("query is empty")
	ErrUnsupportedFormat    = errors.New("unsupported file format")
	ErrUnknownTool          = errors.New("unknown tool")
	ErrInvalidToolArguments = errors.New("invalid tool arguments")
	ErrUnknownSource        = errors.New("unknown ingestion source")
)
