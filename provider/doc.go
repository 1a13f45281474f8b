// Package provider abstracts the language model backends used by agents.
//
// A Provider turns CompletionParams into a stream of events. Every stream
// ends with either a Response carrying the full completion or an Error; in
// streaming mode it is preceded by a start Delim, any number of Chunk
// events and an end Delim:
//
//	Delim{start} Chunk* Delim{end} Response
//
// Collect drains such a stream into the final text.
package provider
