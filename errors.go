package planalign

import "errors"

var (
	// ErrAnalysisRunning is returned when Analyze is called while a run
	// is already in flight.
	ErrAnalysisRunning = errors.New("planalign: analysis already running")

	// ErrUnsupportedFormat is returned for unrecognized file formats.
	ErrUnsupportedFormat = errors.New("planalign: unsupported document format")

	// ErrParsingFailed is returned when document parsing fails.
	ErrParsingFailed = errors.New("planalign: parsing failed")

	// ErrEmbeddingFailed is returned when embedding generation fails.
	ErrEmbeddingFailed = errors.New("planalign: embedding generation failed")

	// ErrEmptyDocument is returned when a plan document yields no text.
	ErrEmptyDocument = errors.New("planalign: document is empty")

	// ErrInvalidConfig is returned for invalid configuration values.
	ErrInvalidConfig = errors.New("planalign: invalid configuration")

	// ErrNoSnapshot is returned when a cached analysis is requested but
	// none exists or the cache file is incomplete.
	ErrNoSnapshot = errors.New("planalign: no usable analysis snapshot")
)
