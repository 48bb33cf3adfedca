package compress

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEncodeDecode(t *testing.T) {
	payload := bytes.Repeat([]byte(`{"title":"Karma Police","type":"song"}`), 64)

	for _, name := range []string{"", "gzip", "brotli", "lz4"} {
		t.Run(name, func(t *testing.T) {
			c, err := ForName(name)
			require.NoError(t, err)

			encoded, err := c.Encode(payload)
			require.NoError(t, err)
			if name != "" {
				assert.Less(t, len(encoded), len(payload))
			}

			decoded, err := c.Decode(encoded)
			require.NoError(t, err)
			assert.Equal(t, payload, decoded)
		})
	}
}

func TestForNameUnknown(t *testing.T) {
	_, err := ForName("zstd")
	assert.ErrorIs(t, err, ErrUnknownAlgorithm)
}
