package orchestrator

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"golang.org/x/time/rate"

	"github.com/DataBooster/pywebapi-go/dispatcherr"
)

// RESTInvoker performs the single outbound call behind an orchestrator leaf
// node. It is the external collaborator spec.md §1 places out of scope
// ("the concrete network clients used to issue outbound calls"); this
// package only depends on the interface, the way module/pipeline_step_http_call.go
// in the teacher repo isolates its *http.Client behind a narrow seam.
type RESTInvoker interface {
	Call(ctx context.Context, targetURL string, payload map[string]any, headers map[string]string) (any, error)
}

// HTTPRESTInvoker is the default RESTInvoker: one JSON POST round-trip per
// call, no retry (spec §7: "the orchestrator does not retry"), matching the
// single-attempt semantics of the original simple_rest_call.py.
type HTTPRESTInvoker struct {
	Client  *http.Client
	Limiter *rate.Limiter // optional; nil disables rate limiting
}

// NewHTTPRESTInvoker builds an invoker using http.DefaultClient.
func NewHTTPRESTInvoker() *HTTPRESTInvoker {
	return &HTTPRESTInvoker{Client: http.DefaultClient}
}

func (h *HTTPRESTInvoker) client() *http.Client {
	if h.Client != nil {
		return h.Client
	}
	return http.DefaultClient
}

// Call issues a single JSON POST to targetURL with payload as the body.
func (h *HTTPRESTInvoker) Call(ctx context.Context, targetURL string, payload map[string]any, headers map[string]string) (any, error) {
	if h.Limiter != nil {
		if err := h.Limiter.Wait(ctx); err != nil {
			return nil, dispatcherr.Wrap(dispatcherr.KindGroupTimeout, err, "rate limiter wait cancelled for %s", targetURL)
		}
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding leaf payload for %s: %w", targetURL, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, targetURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %w", targetURL, err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := h.client().Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling %s: %w", targetURL, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response from %s: %w", targetURL, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, dispatcherr.Downstream(resp.StatusCode, "%s returned HTTP %d: %s", targetURL, resp.StatusCode, string(respBody))
	}

	if len(respBody) == 0 {
		return nil, nil
	}
	var result any
	if err := json.Unmarshal(respBody, &result); err != nil {
		return string(respBody), nil
	}
	return result, nil
}
