package httpapi

import (
	"log/slog"
	"net/http"

	"github.com/DataBooster/pywebapi-go/dispatcherr"
)

// writeError maps err to its spec §7 status code and logs it at a level
// proportional to severity: 5xx as Error, 4xx as Warn.
func (s *Server) writeError(w http.ResponseWriter, logger *slog.Logger, err error) {
	status := dispatcherr.EffectiveStatus(err)
	if status >= 500 {
		logger.Error("request failed", "status", status, "error", err)
	} else {
		logger.Warn("request rejected", "status", status, "error", err)
	}

	kind := "unknown"
	if de, ok := dispatcherr.As(err); ok {
		kind = string(de.Kind)
	}
	writeJSON(w, status, map[string]any{
		"error": err.Error(),
		"kind":  kind,
	})
}

func orchestrateEnvelopeError() error {
	return dispatcherr.New(dispatcherr.KindBadPath, "request body must be a JSON object with a non-empty \"rest\" field")
}
