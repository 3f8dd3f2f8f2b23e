package ai

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"

	"github.com/klipach/connectsphere/log"
)

// loggingRoundTripper logs the outgoing request details
type loggingRoundTripper struct {
	rt http.RoundTripper
}

func (lrt *loggingRoundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	logger := log.LoggerFromContext(req.Context())
	var bodyBytes []byte
	if req.Body != nil {
		bodyBytes, _ = io.ReadAll(req.Body)
	}
	// reset req.Body so it can be read downstream
	req.Body = io.NopCloser(bytes.NewBuffer(bodyBytes))

	logger.Info("model request",
		slog.String("url", req.URL.String()),
		slog.String("body", string(bodyBytes)),
	)
	return lrt.rt.RoundTrip(req)
}
