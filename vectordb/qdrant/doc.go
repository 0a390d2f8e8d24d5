// Package qdrant implements vectordb.Collection on top of the official
// Qdrant Go client (gRPC).
//
// Collections are created with binary quantization: original vectors can be
// kept on disk while the 1-bit vectors stay in RAM. Searches pass the
// oversampling factor and rescore flag straight through to the server.
//
// Example:
//
//	coll, err := qdrant.New(qdrant.DefaultConfig(), "wiki")
//	if err != nil {
//	    return err
//	}
//	defer coll.Close()
//
//	err = coll.Create(ctx, vectordb.DefaultCollectionSpec())
package qdrant
