package speech

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// wav builds a minimal RIFF/WAVE file with an extra chunk before data.
func wav(pcm []byte) []byte {
	var b []byte
	b = append(b, "RIFF"...)
	b = binary.LittleEndian.AppendUint32(b, uint32(4+8+16+8+3+1+8+len(pcm)))
	b = append(b, "WAVE"...)

	b = append(b, "fmt "...)
	b = binary.LittleEndian.AppendUint32(b, 16)
	b = append(b, make([]byte, 16)...)

	// Odd-sized chunk exercises word alignment.
	b = append(b, "LIST"...)
	b = binary.LittleEndian.AppendUint32(b, 3)
	b = append(b, 'a', 'b', 'c', 0)

	b = append(b, "data"...)
	b = binary.LittleEndian.AppendUint32(b, uint32(len(pcm)))
	return append(b, pcm...)
}

func TestExtractPCM(t *testing.T) {
	pcm := []byte{1, 2, 3, 4, 5, 6}
	got, err := extractPCM(wav(pcm))
	require.NoError(t, err)
	assert.Equal(t, pcm, got)
}

func TestExtractPCMRejects(t *testing.T) {
	_, err := extractPCM([]byte("RIFF"))
	assert.Error(t, err)

	bad := wav([]byte{1, 2})
	copy(bad[8:12], "AVI ")
	_, err = extractPCM(bad)
	assert.Error(t, err)
}

func TestToPCM(t *testing.T) {
	got, err := toPCM(wav([]byte{9, 9}))
	require.NoError(t, err)
	assert.Equal(t, []byte{9, 9}, got)

	got, err = toPCM([]byte{1, 2, 3})
	require.NoError(t, err)
	assert.Equal(t, []byte{1, 2}, got, "raw PCM is trimmed to whole samples")

	_, err = toPCM(nil)
	assert.Error(t, err)
}
