package http

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	middlewareChi "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	httpmw "github.com/monument-wall/wall-service/internal/transport/http/middleware"
	"github.com/monument-wall/wall-service/internal/transport/ws"
	"github.com/monument-wall/wall-service/pkg/httputil"
)

func NewRouter(h *Handler, wsServer *ws.Server, allowedOrigins []string) http.Handler {
	r := chi.NewRouter()
	r.Use(httputil.MiddlewareRequestID)
	r.Use(middlewareChi.RealIP)
	r.Use(middlewareChi.Recoverer)
	r.Use(httputil.MiddlewareLogging)

	if len(allowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   allowedOrigins,
			AllowedMethods:   []string{"GET", "POST", "PUT", "OPTIONS"},
			AllowedHeaders:   []string{"Accept", "Content-Type", "X-Wallet-Address"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	// realtime wall feed
	r.Get("/ws/wall", wsServer.HandleWS)

	// public reads
	r.Group(func(pub chi.Router) {
		pub.Use(middlewareChi.Timeout(15 * time.Second))
		pub.Get("/wall", h.GetWall)
		pub.Get("/wall/tiles/{index}", h.GetTile)
		pub.Get("/participants", h.GetParticipants)
		pub.Get("/progress", h.GetProgress)
		pub.Get("/join/availability", h.CheckAvailability)
	})

	// wallet-scoped join flow; the timeout leaves room for receipt polling
	r.Group(func(pr chi.Router) {
		pr.Use(httpmw.WalletMiddleware)
		pr.Use(middlewareChi.Timeout(90 * time.Second))

		pr.Get("/session", h.GetSession)
		pr.Post("/join", h.StartJoin)
		pr.Post("/join/avatar", h.UploadAvatar)
		pr.Put("/join/handle", h.RetryWithHandle)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	return r
}
