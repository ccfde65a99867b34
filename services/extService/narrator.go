package extService

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/gojek/heimdall/v7/httpclient"
)

type NarrationRequest struct {
	Outcome     string `json:"outcome"`
	Task        string `json:"task"`
	Consequence string `json:"consequence"`
	Confidence  int    `json:"confidence"`
}

type Narration struct {
	Script   string
	AudioURL string
}

// Narrator turns a wager result into a short script and an audio clip.
type Narrator interface {
	Narrate(ctx context.Context, req NarrationRequest) (*Narration, error)
}

type HTTPNarrator struct {
	client  *httpclient.Client
	baseURL string
	token   string
}

func NewHTTPNarrator(baseURL string, token string, opts HTTPOptions) *HTTPNarrator {
	return &HTTPNarrator{client: newHTTPClient(opts), baseURL: strings.TrimSuffix(baseURL, "/"), token: token}
}

func (n *HTTPNarrator) Narrate(ctx context.Context, req NarrationRequest) (*Narration, error) {
	var script struct {
		Script string `json:"script"`
	}
	if err := postJSON(ctx, n.client, n.baseURL+"/script", n.token, req, &script); err != nil {
		return nil, fmt.Errorf("error generating narration script: %w", err)
	}
	if script.Script == "" {
		return nil, errors.New("narrator returned an empty script")
	}

	narration := &Narration{Script: script.Script}
	var audio struct {
		AudioURL string `json:"audio_url"`
	}
	if err := postJSON(ctx, n.client, n.baseURL+"/audio", n.token, script, &audio); err != nil {
		// the script alone is still worth posting
		return narration, fmt.Errorf("error generating narration audio: %w", err)
	}
	narration.AudioURL = audio.AudioURL
	return narration, nil
}

type NoopNarrator struct{}

func (NoopNarrator) Narrate(ctx context.Context, req NarrationRequest) (*Narration, error) {
	return nil, nil
}
