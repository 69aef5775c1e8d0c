package router

import (
	"net/http"

	"github.com/djonanko/payin-service/internal/metrics"
)

type PayinRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

type QueueRouteRegistrar interface {
	RegisterRoutes(mux *http.ServeMux, authMiddleware func(http.Handler) http.Handler)
}

func New(
	payinController PayinRouteRegistrar,
	queueController QueueRouteRegistrar,
	authMiddleware func(http.Handler) http.Handler,
) *http.ServeMux {
	mux := http.NewServeMux()

	mux.Handle("/metrics", metrics.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	if payinController != nil {
		payinController.RegisterRoutes(mux, authMiddleware)
	}
	if queueController != nil {
		queueController.RegisterRoutes(mux, authMiddleware)
	}

	return mux
}
