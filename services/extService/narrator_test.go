package extService

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestHTTPNarrator(t *testing.T) {
	t.Run("Script and audio", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/script", func(w http.ResponseWriter, r *http.Request) {
			var req NarrationRequest
			json.NewDecoder(r.Body).Decode(&req)
			if req.Outcome != "completed" {
				t.Errorf("Expected outcome completed, got %q", req.Outcome)
			}
			w.Write([]byte(`{"script": "They actually did it."}`))
		})
		mux.HandleFunc("/audio", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"audio_url": "https://cdn.example/clip.mp3"}`))
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		narration, err := NewHTTPNarrator(server.URL+"/", "", testOpts).Narrate(context.Background(), NarrationRequest{Outcome: "completed", Task: "run 5k"})
		if err != nil {
			t.Fatalf("Unexpected error: %v", err)
		}
		if narration.Script != "They actually did it." || narration.AudioURL != "https://cdn.example/clip.mp3" {
			t.Errorf("Unexpected narration: %+v", narration)
		}
	})

	t.Run("Audio failure keeps the script", func(t *testing.T) {
		mux := http.NewServeMux()
		mux.HandleFunc("/script", func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"script": "Not this time."}`))
		})
		mux.HandleFunc("/audio", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
		})
		server := httptest.NewServer(mux)
		defer server.Close()

		narration, err := NewHTTPNarrator(server.URL, "", testOpts).Narrate(context.Background(), NarrationRequest{Outcome: "failed"})
		if err == nil {
			t.Error("Expected the audio error")
		}
		if narration == nil || narration.Script != "Not this time." || narration.AudioURL != "" {
			t.Errorf("Expected script without audio, got %+v", narration)
		}
	})

	t.Run("Empty script", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"script": ""}`))
		}))
		defer server.Close()

		narration, err := NewHTTPNarrator(server.URL, "", testOpts).Narrate(context.Background(), NarrationRequest{})
		if err == nil || narration != nil {
			t.Errorf("Expected an error and no narration, got %+v / %v", narration, err)
		}
	})
}
