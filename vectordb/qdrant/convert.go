package qdrant

import (
	"fmt"

	pb "github.com/qdrant/go-client/qdrant"

	"github.com/afg1/bqeval/core"
	"github.com/afg1/bqeval/vectordb"
)

// toPoints converts records to Qdrant points. The record text is stored under
// core.PayloadTextKey next to any extra payload fields.
func toPoints(records []*core.Record) []*pb.PointStruct {
	points := make([]*pb.PointStruct, 0, len(records))
	for _, r := range records {
		payload := make(map[string]any, len(r.Payload)+1)
		for k, v := range r.Payload {
			payload[k] = v
		}
		payload[core.PayloadTextKey] = r.Text

		points = append(points, &pb.PointStruct{
			Id:      pb.NewIDNum(uint64(r.ID)),
			Vectors: pb.NewVectors(r.Vector...),
			Payload: pb.NewValueMap(payload),
		})
	}
	return points
}

// fromScored converts scored points to hits, keeping the service's order.
func fromScored(points []*pb.ScoredPoint) []core.Hit {
	hits := make([]core.Hit, 0, len(points))
	for _, p := range points {
		hit := core.Hit{
			ID:    core.ID(p.GetId().GetNum()),
			Score: p.GetScore(),
		}
		if v, ok := p.GetPayload()[core.PayloadTextKey]; ok {
			hit.Text = v.GetStringValue()
		}
		hits = append(hits, hit)
	}
	return hits
}

// toSearchParams builds quantization search parameters. An oversampling of
// zero leaves the factor to the service default.
func toSearchParams(params core.SearchParams) *pb.SearchParams {
	quant := &pb.QuantizationSearchParams{
		Ignore:  pb.PtrOf(false),
		Rescore: pb.PtrOf(params.Rescore),
	}
	if params.Oversampling > 0 {
		quant.Oversampling = pb.PtrOf(params.Oversampling)
	}

	sp := &pb.SearchParams{Quantization: quant}
	if params.Exact {
		sp.Exact = pb.PtrOf(true)
	}
	return sp
}

func toDistance(d vectordb.Distance) (pb.Distance, error) {
	parsed, err := vectordb.ParseDistance(string(d))
	if err != nil {
		return pb.Distance_UnknownDistance, err
	}
	switch parsed {
	case vectordb.DistanceDot:
		return pb.Distance_Dot, nil
	case vectordb.DistanceEuclidean:
		return pb.Distance_Euclid, nil
	default:
		return pb.Distance_Cosine, nil
	}
}

// toCreateCollection maps a spec onto a binary-quantized collection request.
func toCreateCollection(name string, spec vectordb.CollectionSpec) (*pb.CreateCollection, error) {
	if err := spec.Validate(); err != nil {
		return nil, err
	}
	distance, err := toDistance(spec.Distance)
	if err != nil {
		return nil, err
	}

	req := &pb.CreateCollection{
		CollectionName: name,
		VectorsConfig: pb.NewVectorsConfig(&pb.VectorParams{
			Size:     uint64(spec.Dimension),
			Distance: distance,
			OnDisk:   pb.PtrOf(spec.OnDisk),
		}),
		OptimizersConfig: &pb.OptimizersConfigDiff{
			IndexingThreshold: pb.PtrOf(spec.IndexingThreshold),
		},
		QuantizationConfig: pb.NewQuantizationBinary(&pb.BinaryQuantization{
			AlwaysRam: pb.PtrOf(spec.AlwaysRAM),
		}),
	}
	if spec.Shards > 0 {
		req.ShardNumber = pb.PtrOf(spec.Shards)
	}
	if spec.SegmentNumber > 0 {
		req.OptimizersConfig.DefaultSegmentNumber = pb.PtrOf(spec.SegmentNumber)
	}
	return req, nil
}

func checkDimension(records []*core.Record, dim int) error {
	if dim <= 0 {
		return nil
	}
	for _, r := range records {
		if len(r.Vector) != dim {
			return fmt.Errorf("%w: record %d has %d dimensions, collection has %d",
				vectordb.ErrDimensionMismatch, r.ID, len(r.Vector), dim)
		}
	}
	return nil
}
