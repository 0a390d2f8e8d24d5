// Package upload loads a dataset into a binary-quantized collection.
//
// Batches are upserted concurrently through an ants worker pool, retried with
// exponential backoff, and their failures are aggregated with go-multierror.
// Once every batch has landed the uploader raises the collection's indexing
// threshold (uploads run with indexing disabled) and waits until the
// collection reports it is fully optimized.
package upload
