package exporter

import (
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j/dbtype"
)

// nodeProperties extracts a Neo4j node's property map regardless of whether
// the driver handed back a dbtype.Node or, in a hand-built row, a plain map.
func nodeProperties(v any) map[string]any {
	switch n := v.(type) {
	case dbtype.Node:
		return n.Props
	case map[string]any:
		return n
	default:
		return map[string]any{}
	}
}

func stringProp(props map[string]any, key string) string {
	s, _ := props[key].(string)
	return s
}

func intProp(props map[string]any, key string) int {
	switch n := props[key].(type) {
	case int64:
		return int(n)
	case int:
		return n
	case float64:
		return int(n)
	default:
		return 0
	}
}

func boolProp(props map[string]any, key string) bool {
	b, _ := props[key].(bool)
	return b
}

// normalizeLastModified coerces whatever shape a back-end stored
// lastModified in (string, time.Time, or Neo4j's native dbtype.LocalDateTime)
// into the ISO-8601 string spec.md §4.7 requires on export.
func normalizeLastModified(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case time.Time:
		return t.UTC().Format(time.RFC3339)
	case dbtype.LocalDateTime:
		return t.Time().UTC().Format(time.RFC3339)
	case dbtype.Date:
		return t.Time().UTC().Format(time.RFC3339)
	default:
		return ""
	}
}
