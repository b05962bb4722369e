package web

import (
	"net/http"

	"github.com/go-chi/render"
	"github.com/pkg/errors"

	"custody/pkg/log"
	"custody/pkg/response"
)

type webError struct {
	Code    int         `json:"code,omitempty"`
	Message interface{} `json:"message,omitempty"`
}

type webErrorResponse struct {
	Error *webError `json:"error,omitempty"`
}

type resultResponse struct {
	Result interface{} `json:"result"`
}

// RenderError renders error in JSON format. A response.Error anywhere in the
// chain decides the status code, everything else is a bad request.
func RenderError(w http.ResponseWriter, r *http.Request, err error) {
	log.AddFields(r.Context(), "error", err.Error())

	webErr := &webError{Message: err.Error()}
	status := http.StatusBadRequest

	var respErr *response.Error
	if errors.As(err, &respErr) {
		webErr.Code = respErr.Code
		webErr.Message = respErr.Message
		if respErr.Internal != nil {
			log.AddFields(r.Context(), "internal", respErr.Internal.Error())
		}
		if http.StatusText(respErr.Code) != "" {
			status = respErr.Code
		}
	}

	render.Status(r, status)
	render.JSON(w, r, &webErrorResponse{Error: webErr})
}

func RenderResult(w http.ResponseWriter, r *http.Request, result interface{}) {
	render.JSON(w, r, &resultResponse{Result: result})
}
