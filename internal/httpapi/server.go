package httpapi

import (
	"net/http"

	"github.com/kmassidik/walletengine/internal/common/logger"
	"github.com/kmassidik/walletengine/internal/common/middleware"
	"github.com/kmassidik/walletengine/internal/gateway"
	"github.com/kmassidik/walletengine/internal/reporting"
)

// NewServer builds the fully wired HTTP handler: CORS, access logging, and
// panic recovery wrap every route, identity verification wraps the
// protected subset inside RegisterRoutes.
func NewServer(g *gateway.TransferGateway, projections *reporting.Projections, log *logger.Logger, jwtSecret string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	handler := NewHandler(g, projections, log)
	handler.RegisterRoutes(mux, jwtSecret)

	var h http.Handler = mux
	h = middleware.Recovery(log)(h)
	h = middleware.Logging(log)(h)
	h = middleware.CORS(h)
	return h
}
