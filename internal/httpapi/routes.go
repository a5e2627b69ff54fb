package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/DoyleJ11/mindless-backend/internal/hub"
	"github.com/DoyleJ11/mindless-backend/internal/ws"
)

type Deps struct {
	Hub *hub.Hub
	// History is optional; without it the history route is not mounted.
	History RoundSource
	Logger  *zap.Logger
	WS      ws.Options
}

func SetupRoutes(d Deps) http.Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.WS.Logger == nil {
		d.WS.Logger = d.Logger
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(d.Logger))
	r.Use(middleware.Recoverer)

	// Public routes
	r.Get("/healthz", Healthz)
	r.Get("/ws", ws.Handler(d.Hub, d.WS))
	r.Route("/rooms/{code}", func(r chi.Router) {
		r.Use(middleware.Timeout(5 * time.Second))
		r.Get("/", PeekRoom(d.Hub))
		if d.History != nil {
			r.Get("/history", RoomHistory(d.History))
		}
	})
	return r
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Debug("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("took", time.Since(start)),
				zap.String("reqId", middleware.GetReqID(r.Context())),
			)
		})
	}
}
