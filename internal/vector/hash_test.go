package vector

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestHashID_IsDeterministic(t *testing.T) {
	id := "main.go:10:20"
	assert.Equal(t, HashID(id), HashID(id))
}

func TestHashID_DiffersForDifferentIDs(t *testing.T) {
	assert.NotEqual(t, HashID("a.go:1:2"), HashID("b.go:1:2"))
}

func TestParseQdrantURL(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantHost   string
		wantPort   int
		wantTLS    bool
		wantErr    bool
	}{
		{name: "host and port", raw: "localhost:6334", wantHost: "localhost", wantPort: 6334},
		{name: "https scheme implies tls", raw: "https://qdrant.internal:6334", wantHost: "qdrant.internal", wantPort: 6334, wantTLS: true},
		{name: "bare host defaults port", raw: "qdrant.internal", wantHost: "qdrant.internal", wantPort: 6334},
		{name: "empty is an error", raw: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			host, port, tls, err := parseQdrantURL(tt.raw)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
			assert.Equal(t, tt.wantHost, host)
			assert.Equal(t, tt.wantPort, port)
			assert.Equal(t, tt.wantTLS, tls)
		})
	}
}
