package audio

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPSynthesizer posts {text, rate, locale} to a speech endpoint that answers
// with {"audioContent": "<base64>"}.
type HTTPSynthesizer struct {
	endpoint string
	client   *http.Client
}

func NewHTTPSynthesizer(endpoint string, timeout time.Duration) *HTTPSynthesizer {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPSynthesizer{endpoint: endpoint, client: &http.Client{Timeout: timeout}}
}

type synthesizeRequest struct {
	Text   string  `json:"text"`
	Rate   float64 `json:"speakingRate"`
	Locale string  `json:"languageCode"`
}

type synthesizeResponse struct {
	AudioContent string `json:"audioContent"`
}

func (s *HTTPSynthesizer) Synthesize(ctx context.Context, req Request) (Clip, error) {
	body, err := json.Marshal(synthesizeRequest{Text: req.Text, Rate: req.Speed.Rate(), Locale: Locale})
	if err != nil {
		return Clip{}, err
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(body))
	if err != nil {
		return Clip{}, err
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(httpReq)
	if err != nil {
		return Clip{}, fmt.Errorf("synthesize: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Clip{}, fmt.Errorf("synthesize: status %d: %s", resp.StatusCode, bytes.TrimSpace(msg))
	}

	var out synthesizeResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return Clip{}, fmt.Errorf("synthesize: decode response: %w", err)
	}
	audio, err := base64.StdEncoding.DecodeString(out.AudioContent)
	if err != nil {
		return Clip{}, fmt.Errorf("synthesize: decode audio: %w", err)
	}
	return Clip{Audio: audio, Duration: req.EstimateDuration()}, nil
}
