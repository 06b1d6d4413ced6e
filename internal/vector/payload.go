package vector

import (
	"strconv"

	"github.com/qdrant/go-client/qdrant"
)

// payloadToMap flattens a Qdrant payload (map of typed protobuf Values)
// into a plain map[string]any for callers, matching the shapes
// qdrant.NewValueMap accepts going the other direction.
func payloadToMap(payload map[string]*qdrant.Value) map[string]any {
	out := make(map[string]any, len(payload))
	for k, v := range payload {
		out[k] = valueToAny(v)
	}
	return out
}

func valueToAny(v *qdrant.Value) any {
	if v == nil {
		return nil
	}
	switch kind := v.GetKind().(type) {
	case *qdrant.Value_StringValue:
		return kind.StringValue
	case *qdrant.Value_IntegerValue:
		return kind.IntegerValue
	case *qdrant.Value_DoubleValue:
		return kind.DoubleValue
	case *qdrant.Value_BoolValue:
		return kind.BoolValue
	case *qdrant.Value_ListValue:
		items := kind.ListValue.GetValues()
		out := make([]any, len(items))
		for i, item := range items {
			out[i] = valueToAny(item)
		}
		return out
	default:
		return nil
	}
}

// originalOrHashedID recovers the caller's original string chunk id from
// the payload's reserved key, falling back to the decimal form of the
// hashed numeric point id if the payload is missing it for some reason.
func originalOrHashedID(payload map[string]any, id *qdrant.PointId) string {
	if v, ok := payload[originalIDPayloadKey]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return strconv.FormatUint(id.GetNum(), 10)
}

// vectorsToFloat32 extracts the unnamed dense vector from a point's
// vectors output.
func vectorsToFloat32(vectors *qdrant.VectorsOutput) []float32 {
	if vectors == nil {
		return nil
	}
	if vec := vectors.GetVector(); vec != nil {
		return vec.GetData()
	}
	return nil
}

func retrievedLastID(points []*qdrant.RetrievedPoint) uint64 {
	if len(points) == 0 {
		return 0
	}
	return points[len(points)-1].GetId().GetNum()
}

func parseUint64(s string) (uint64, error) {
	return strconv.ParseUint(s, 10, 64)
}
