package predict

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	json "github.com/goccy/go-json"

	"github.com/sphinxnet/recommender/encode"
	"github.com/sphinxnet/recommender/policy"
)

const (
	defaultRemoteTimeout = 2 * time.Second
	defaultRetryMax      = 2
	minBackoff           = 50 * time.Millisecond
	maxBackoff           = time.Second
	predictPath          = "/predict"
	healthPath           = "/healthz"
	contentTypeJSON      = "application/json"
	maxResponseBytes     = 1 << 20
)

// RemoteName identifies the model-server backend.
const RemoteName = "remote"

// HTTPClient represents a minimal http client.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Remote calls an external model server:
//
//	POST {url}/predict  {"features": [...]}  ->  {"confidences": [...]}
//
// 5xx answers and transport errors are retried with exponential backoff;
// the whole exchange runs under the source policy when one is set.
type Remote struct {
	baseURL  string
	client   HTTPClient
	retryMax int
	policy   *policy.SourcePolicy
}

// RemoteConfig configures a Remote backend.
type RemoteConfig struct {
	URL string
	// RetryMax < 0 selects the default.
	RetryMax int
	Client   HTTPClient
	Policy   *policy.SourcePolicy
}

type predictRequest struct {
	Features []float64 `json:"features"`
}

type predictResponse struct {
	Confidences []float64 `json:"confidences"`
}

// NewRemote validates cfg.
func NewRemote(cfg RemoteConfig) (*Remote, error) {
	base := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if base == "" {
		return nil, errors.New("model server url required")
	}
	client := cfg.Client
	if client == nil {
		client = &http.Client{Timeout: defaultRemoteTimeout}
	}
	retryMax := cfg.RetryMax
	if retryMax < 0 {
		retryMax = defaultRetryMax
	}
	return &Remote{baseURL: base, client: client, retryMax: retryMax, policy: cfg.Policy}, nil
}

func (r *Remote) Name() string { return RemoteName }

// PredictConfidences implements Backend.
func (r *Remote) PredictConfidences(ctx context.Context, v encode.Vector) ([]float64, error) {
	payload, err := json.Marshal(predictRequest{Features: v})
	if err != nil {
		return nil, fmt.Errorf("encode features: %w", err)
	}

	var out predictResponse
	call := func(ctx context.Context) error {
		body, err := r.execute(ctx, payload)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(body, &out); err != nil {
			return fmt.Errorf("decode model response: %w", err)
		}
		if out.Confidences == nil {
			return errors.New("model response has no confidences")
		}
		return nil
	}

	if r.policy != nil {
		err = r.policy.Execute(ctx, call)
	} else {
		err = call(ctx)
	}
	if err != nil {
		return nil, err
	}
	return out.Confidences, nil
}

// Ping checks the model server's health endpoint.
func (r *Remote) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.baseURL+healthPath, nil)
	if err != nil {
		return err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("model server health: status %d", resp.StatusCode)
	}
	return nil
}

func (r *Remote) execute(ctx context.Context, payload []byte) ([]byte, error) {
	var (
		attempt int
		lastErr error
		backoff = minBackoff
	)

	for {
		attempt++
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+predictPath, bytes.NewReader(payload))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		req.Header.Set("Content-Type", contentTypeJSON)
		req.Header.Set("Accept", contentTypeJSON)

		resp, err := r.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = err
		} else {
			body, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
			resp.Body.Close()

			switch {
			case readErr != nil:
				lastErr = fmt.Errorf("read response: %w", readErr)
			case resp.StatusCode >= 500:
				lastErr = fmt.Errorf("model server error %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			case resp.StatusCode >= 400:
				return nil, fmt.Errorf("model server rejected request %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
			default:
				return body, nil
			}
		}

		if attempt > r.retryMax {
			return nil, lastErr
		}
		if !sleepWithContext(ctx, backoff) {
			return nil, ctx.Err()
		}
		backoff = nextBackoff(backoff)
	}
}

func (r *Remote) String() string {
	return fmt.Sprintf("remote_model{base=%s,retry_max=%d}", r.baseURL, r.retryMax)
}

func nextBackoff(current time.Duration) time.Duration {
	return min(current*2, maxBackoff)
}

func sleepWithContext(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}
