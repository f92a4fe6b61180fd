package pagination

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEncodeDecodeToken(t *testing.T) {
	ts := time.Date(2023, 5, 15, 14, 30, 45, 123456000, time.UTC)

	token := EncodeToken(ts, 42)
	assert.NotEmpty(t, token, "Token should not be empty")

	decodedTs, decodedSeq, err := DecodeToken(token)
	assert.NoError(t, err, "Decoding should not return an error")
	assert.True(t, ts.Equal(decodedTs), "Timestamp should match after decode")
	assert.Equal(t, int64(42), decodedSeq, "Sequence should match after decode")

	// Non-UTC input is normalised.
	jakarta := time.FixedZone("WIB", 7*3600)
	local := time.Date(2023, 5, 15, 21, 30, 45, 0, jakarta)
	decodedTs, _, err = DecodeToken(EncodeToken(local, 1))
	assert.NoError(t, err)
	assert.True(t, local.Equal(decodedTs), "Instant should survive zone conversion")
	assert.Equal(t, time.UTC, decodedTs.Location())
}

func TestDecodeTokenError(t *testing.T) {
	_, _, err := DecodeToken("this is not base64!")
	assert.Error(t, err, "Should return an error for invalid base64")
	assert.Contains(t, err.Error(), "base64 decode", "Error should mention base64 decoding")

	noSeparator := base64.StdEncoding.EncodeToString([]byte("2023-05-15T00:00:00Z"))
	_, _, err = DecodeToken(noSeparator)
	assert.Error(t, err, "Should return an error for invalid token format")
	assert.Contains(t, err.Error(), "split", "Error should mention splitting issue")

	badDate := base64.StdEncoding.EncodeToString([]byte("notadate|5"))
	_, _, err = DecodeToken(badDate)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "timestamp parse", "Error should mention timestamp parsing issue")

	badSeq := base64.StdEncoding.EncodeToString([]byte("2023-05-15T00:00:00Z|x"))
	_, _, err = DecodeToken(badSeq)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "seq parse", "Error should mention sequence parsing issue")
}
