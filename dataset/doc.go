// Package dataset reads precomputed embedding datasets.
//
// A dataset is a JSON Lines file where every row carries a text and the
// embedding computed for it by an external model:
//
//	{"_id": "<dbpedia:Paris>", "title": "Paris", "text": "Paris is ...", "openai": [0.0123, -0.0456, ...]}
//
// Field names are configurable, and files ending in .gz, .zst or .lz4 are
// decompressed on the fly. The package does not download or cache datasets.
package dataset
