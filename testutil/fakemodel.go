// Package testutil provides a scriptable model server for tests.
package testutil

import (
	"net/http"
	"net/http/httptest"
	"sync"
	"time"

	json "github.com/goccy/go-json"
)

// FakeResponse describes the behaviour of a single /predict call. When Body
// is empty and Confidences is set, the confidences are encoded as JSON.
type FakeResponse struct {
	Delay       time.Duration
	Status      int
	Body        string
	Confidences []float64
}

// FakeModel is an httptest server speaking the model server protocol:
// POST /predict with {"features": [...]}, GET /healthz.
type FakeModel struct {
	server *httptest.Server

	mu           sync.Mutex
	responses    []FakeResponse
	index        int
	calls        int
	lastFeatures []float64
	unhealthy    bool
}

// NewFakeModel starts a server with the given response plan. Once the plan
// is exhausted the last response repeats.
func NewFakeModel(responses ...FakeResponse) *FakeModel {
	if len(responses) == 0 {
		responses = []FakeResponse{{Status: http.StatusOK}}
	}
	f := &FakeModel{responses: responses}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		f.mu.Lock()
		unhealthy := f.unhealthy
		f.mu.Unlock()
		if unhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	mux.HandleFunc("/predict", f.predict)
	f.server = httptest.NewServer(mux)
	return f
}

func (f *FakeModel) predict(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.WriteHeader(http.StatusMethodNotAllowed)
		return
	}
	var req struct {
		Features []float64 `json:"features"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)

	resp := f.next(req.Features)
	if resp.Delay > 0 {
		timer := time.NewTimer(resp.Delay)
		select {
		case <-timer.C:
		case <-r.Context().Done():
			timer.Stop()
			return
		}
	}

	status := resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	body := []byte(resp.Body)
	if len(body) == 0 && resp.Confidences != nil {
		body, _ = json.Marshal(map[string][]float64{"confidences": resp.Confidences})
		w.Header().Set("Content-Type", "application/json")
	}
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (f *FakeModel) next(features []float64) FakeResponse {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	f.lastFeatures = features
	if f.index >= len(f.responses) {
		return f.responses[len(f.responses)-1]
	}
	resp := f.responses[f.index]
	f.index++
	return resp
}

// URL returns the server base URL.
func (f *FakeModel) URL() string {
	if f == nil || f.server == nil {
		return ""
	}
	return f.server.URL
}

// Calls returns the number of /predict requests handled.
func (f *FakeModel) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// LastFeatures returns the feature vector of the latest /predict request.
func (f *FakeModel) LastFeatures() []float64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]float64(nil), f.lastFeatures...)
}

// SetResponses replaces the plan and resets the cursor and call count.
func (f *FakeModel) SetResponses(responses ...FakeResponse) {
	if len(responses) == 0 {
		responses = []FakeResponse{{Status: http.StatusOK}}
	}
	f.mu.Lock()
	f.responses = responses
	f.index = 0
	f.calls = 0
	f.mu.Unlock()
}

// SetHealthy toggles the /healthz answer.
func (f *FakeModel) SetHealthy(ok bool) {
	f.mu.Lock()
	f.unhealthy = !ok
	f.mu.Unlock()
}

// Close shuts the server down.
func (f *FakeModel) Close() {
	if f == nil || f.server == nil {
		return
	}
	f.server.Close()
}
