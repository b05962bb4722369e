package web

import (
	"context"
	"net/http"
	"time"

	"github.com/pkg/errors"

	"custody/pkg/log"
)

// Start serves until the server is shut down. It blocks.
func Start(server *http.Server) {
	log.Infow("starting an http server", "address", server.Addr)
	err := server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		log.Info("http server closed")
		return
	}
	log.Errorw("http server stopped unexpectedly", "error", err)
}

func Shutdown(server *http.Server, shutdownTimeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Errorw("failed to shutdown the http server", "error", err.Error())
		return
	}
	log.Info("http server stopped")
}
