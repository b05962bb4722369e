package middleware

import (
	"net/http"
	"runtime/debug"

	"github.com/go-chi/render"

	"custody/pkg/log"
)

var (
	errInternal = http.StatusText(http.StatusInternalServerError)
)

type internalError struct {
	Code    int         `json:"code,omitempty"`
	Message interface{} `json:"message,omitempty"`
}

type internalErrorResponse struct {
	Error *internalError `json:"error,omitempty"`
}

func Recoverer(next http.Handler) http.Handler {
	fn := func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			rvr := recover()
			if rvr == nil || rvr == http.ErrAbortHandler {
				if rvr != nil {
					panic(rvr)
				}
				return
			}

			log.ExtractLogger(r.Context()).Errorw("recovered from panic", "panic", rvr, "stack", string(debug.Stack()))
			render.Status(r, http.StatusInternalServerError)
			render.JSON(w, r, &internalErrorResponse{
				Error: &internalError{Code: http.StatusInternalServerError, Message: errInternal},
			})
		}()

		next.ServeHTTP(w, r)
	}
	return http.HandlerFunc(fn)
}
