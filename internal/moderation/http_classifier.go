package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/pkg/errors"
)

// HTTPClassifier talks to an OpenAI-compatible moderation endpoint.
//
// The client deliberately has no retrying transport: a slow or failing
// classifier turns into a hard block right away instead of holding the
// request open.
type HTTPClassifier struct {
	Client *http.Client
	URL    string
	APIKey string
	Model  string
}

type moderationRequest struct {
	Input string `json:"input"`
	Model string `json:"model,omitempty"`
}

// schema: https://platform.openai.com/docs/api-reference/moderations/object
type moderationResponse struct {
	Results []moderationResult `json:"results"`
}

type moderationResult struct {
	Flagged    bool            `json:"flagged"`
	Categories map[string]bool `json:"categories"`
}

func NewHTTPClassifier(url, apiKey, model string, timeout time.Duration) *HTTPClassifier {
	client := cleanhttp.DefaultPooledClient()
	client.Timeout = timeout
	return &HTTPClassifier{
		Client: client,
		URL:    url,
		APIKey: apiKey,
		Model:  model,
	}
}

func (hc *HTTPClassifier) Classify(ctx context.Context, text string) (Verdict, error) {
	body, err := json.Marshal(moderationRequest{Input: text, Model: hc.Model})
	if err != nil {
		return Verdict{}, errors.Wrap(err, "failed to encode classifier request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, hc.URL, bytes.NewReader(body))
	if err != nil {
		return Verdict{}, errors.Wrap(err, "failed to build classifier request")
	}
	req.Header.Set("Authorization", "Bearer "+hc.APIKey)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "murmur-moderation/1.0")

	start := time.Now()
	defer func() {
		classifierAPIDuration.Observe(time.Since(start).Seconds())
	}()

	res, err := hc.Client.Do(req)
	if err != nil {
		classifierAPICount.WithLabelValues("error").Inc()
		return Verdict{}, errors.Wrap(err, "classifier request failed")
	}
	defer res.Body.Close()

	classifierAPICount.WithLabelValues(fmt.Sprint(res.StatusCode)).Inc()
	if res.StatusCode != http.StatusOK {
		return Verdict{}, errors.Errorf("classifier request failed statusCode=%d", res.StatusCode)
	}

	respBytes, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return Verdict{}, errors.Wrap(err, "failed to read classifier resp body")
	}

	var respObj moderationResponse
	if err := json.Unmarshal(respBytes, &respObj); err != nil {
		return Verdict{}, errors.Wrap(err, "failed to parse classifier resp JSON")
	}
	if len(respObj.Results) == 0 {
		return Verdict{}, errors.New("classifier returned no results")
	}
	return respObj.Results[0].verdict(), nil
}

func (r moderationResult) verdict() Verdict {
	v := Verdict{Flagged: r.Flagged}
	for name, on := range r.Categories {
		if on {
			v.Categories = append(v.Categories, name)
		}
	}
	sort.Strings(v.Categories)
	return v
}
