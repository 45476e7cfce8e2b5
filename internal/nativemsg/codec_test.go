package nativemsg

import (
	"bytes"
	"encoding/binary"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteMessageFraming(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, map[string]string{"cmd": "ping-host"}))

	raw := buf.Bytes()
	require.GreaterOrEqual(t, len(raw), 4)
	size := binary.NativeEndian.Uint32(raw[:4])
	assert.Equal(t, uint32(len(raw)-4), size)
	assert.JSONEq(t, `{"cmd":"ping-host"}`, string(raw[4:]))
}

func TestReadMessageSequence(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteMessage(&buf, `{"status":`))
	require.NoError(t, WriteMessage(&buf, `"ok"}`))

	first, err := ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, `"{\"status\":"`, string(first))

	second, err := ReadMessage(&buf)
	require.NoError(t, err)
	assert.Equal(t, `"\"ok\"}"`, string(second))

	_, err = ReadMessage(&buf)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadMessageErrors(t *testing.T) {
	t.Run("truncated header", func(t *testing.T) {
		_, err := ReadMessage(bytes.NewReader([]byte{1, 0}))
		require.Error(t, err)
		assert.NotErrorIs(t, err, io.EOF)
	})

	t.Run("truncated body", func(t *testing.T) {
		header := make([]byte, 4)
		binary.NativeEndian.PutUint32(header, 10)
		_, err := ReadMessage(bytes.NewReader(append(header, []byte("{}")...)))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "truncated")
	})

	t.Run("oversized", func(t *testing.T) {
		header := make([]byte, 4)
		binary.NativeEndian.PutUint32(header, MaxInboundSize+1)
		_, err := ReadMessage(bytes.NewReader(header))
		assert.ErrorIs(t, err, ErrMessageTooLarge)
	})
}

func TestWriteFrameTooLarge(t *testing.T) {
	err := WriteFrame(io.Discard, make([]byte, MaxOutboundSize+1))
	assert.ErrorIs(t, err, ErrMessageTooLarge)
}
