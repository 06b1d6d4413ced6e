package vector

import (
	"fmt"
	"strconv"
	"strings"
)

// parseQdrantURL accepts "host:port", "https://host:port", or bare "host"
// (defaulting to Qdrant's gRPC port 6334), returning the TLS flag implied by
// an https:// scheme.
func parseQdrantURL(raw string) (host string, port int, useTLS bool, err error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", 0, false, fmt.Errorf("qdrant url is empty")
	}

	if strings.HasPrefix(raw, "https://") {
		useTLS = true
		raw = strings.TrimPrefix(raw, "https://")
	} else {
		raw = strings.TrimPrefix(raw, "http://")
	}

	if idx := strings.LastIndex(raw, ":"); idx >= 0 {
		host = raw[:idx]
		p, convErr := strconv.Atoi(raw[idx+1:])
		if convErr != nil {
			return "", 0, false, fmt.Errorf("invalid qdrant port in %q: %w", raw, convErr)
		}
		port = p
		return host, port, useTLS, nil
	}

	return raw, 6334, useTLS, nil
}
