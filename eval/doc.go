// Package eval measures the accuracy and latency of binary-quantized search.
//
// Queries are dataset records whose vectors have been slightly perturbed. A
// query is answered correctly when the record's own text is among the hits
// returned for it. The Evaluator repeats this for every combination of
// oversampling, rescore and limit in a core.Grid and tabulates the results as
// core.CellResult values.
//
// Example:
//
//	queries, err := eval.PrepareQueries(records, perturber)
//	if err != nil {
//	    return err
//	}
//	ev, err := eval.NewEvaluator(collection)
//	if err != nil {
//	    return err
//	}
//	cells, err := ev.Sweep(ctx, queries, core.DefaultGrid())
package eval
