package stream

import (
	"bufio"
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteSSEFramesAndFlushes(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	require.NoError(t, WriteSSE(w, Content("hel")))
	require.NoError(t, WriteSSE(w, Done("hello")))

	frames := strings.Split(strings.TrimSuffix(buf.String(), "\n\n"), "\n\n")
	require.Len(t, frames, 2)
	for _, frame := range frames {
		assert.True(t, strings.HasPrefix(frame, "data: "), "frame %q missing data prefix", frame)
	}

	var first Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[0], "data: ")), &first))
	assert.Equal(t, EventContent, first.Type)
	assert.Equal(t, "hel", first.Token)

	var last Event
	require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(frames[1], "data: ")), &last))
	assert.Equal(t, EventDone, last.Type)
	assert.Equal(t, "hello", last.FullAnswer)
}

func TestWriteSSECommentIsNotAnEvent(t *testing.T) {
	var buf bytes.Buffer
	w := bufio.NewWriter(&buf)

	require.NoError(t, WriteSSEComment(w, "keepalive"))
	assert.Equal(t, ": keepalive\n\n", buf.String())
}

func TestTerminal(t *testing.T) {
	assert.True(t, Done("x").Terminal())
	assert.True(t, Error("INTERNAL_ERROR", "boom").Terminal())
	assert.False(t, Intent("CHITCHAT", 0.5).Terminal())
	assert.False(t, Content("x").Terminal())
	assert.False(t, Retrieving().Terminal())
}

func TestEventJSONOmitsUnsetFields(t *testing.T) {
	data, err := json.Marshal(Content("tok"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"content","token":"tok"}`, string(data))

	data, err = json.Marshal(CitationOf(Citation{DocumentID: "d1", DocumentName: "Q3 Report", ChunkIndex: 2}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"citation","citation":{"document_id":"d1","document_name":"Q3 Report","chunk_index":2}}`, string(data))
}
