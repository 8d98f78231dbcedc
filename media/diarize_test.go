package media

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/poiesic/recollect/core"
)

func TestHTTPDiarizer_Diarize(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/diarize", r.URL.Path)

		var req map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "/tmp/audio.wav", req["audio_path"])
		assert.EqualValues(t, 2, req["speaker_hint"])

		// Returned out of order; client must sort by start.
		_ = json.NewEncoder(w).Encode(map[string]any{
			"segments": []map[string]any{
				{"speaker": "SPEAKER_01", "start": 5.0, "end": 9.0},
				{"speaker": "SPEAKER_00", "start": 0.0, "end": 5.0},
			},
		})
	}))
	defer server.Close()

	diarizer := NewHTTPDiarizer(server.URL)
	segments, err := diarizer.Diarize(context.Background(), "/tmp/audio.wav", 2)
	require.NoError(t, err)
	require.Len(t, segments, 2)
	assert.Equal(t, "SPEAKER_00", segments[0].Speaker)
	assert.Equal(t, "SPEAKER_01", segments[1].Speaker)
}

func TestHTTPDiarizer_ServerErrorIsTransient(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model loading", http.StatusServiceUnavailable)
	}))
	defer server.Close()

	diarizer := NewHTTPDiarizer(server.URL)
	_, err := diarizer.Diarize(context.Background(), "/tmp/audio.wav", 0)
	require.Error(t, err)
	assert.True(t, core.IsTransient(err))
}

func TestHTTPDiarizer_ClientErrorIsPermanent(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "no such file", http.StatusBadRequest)
	}))
	defer server.Close()

	diarizer := NewHTTPDiarizer(server.URL)
	_, err := diarizer.Diarize(context.Background(), "/tmp/missing.wav", 0)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrDiarizationFailed)
	assert.False(t, core.IsTransient(err))
}

func TestHTTPDiarizer_ConnectionRefusedIsTransient(t *testing.T) {
	diarizer := NewHTTPDiarizer("http://127.0.0.1:1")
	_, err := diarizer.Diarize(context.Background(), "/tmp/audio.wav", 0)
	require.Error(t, err)
	assert.True(t, core.IsTransient(err))
}
