package httpx

import (
	"errors"
	"net/http"

	"github.com/innkeeper/backoffice/internal/listing"
)

// Sentinel errors for the HTTP layer.
var (
	ErrNotFound   = errors.New("resource not found")
	ErrBadRequest = errors.New("bad request")
)

var kindStatus = map[listing.Kind]int{
	listing.KindValidation:   http.StatusUnprocessableEntity,
	listing.KindBusy:         http.StatusConflict,
	listing.KindDependency:   http.StatusConflict,
	listing.KindConfirmation: http.StatusPreconditionRequired,
	listing.KindNotFound:     http.StatusNotFound,
	listing.KindNetwork:      http.StatusBadGateway,
	listing.KindServer:       http.StatusBadGateway,
	listing.KindMalformed:    http.StatusBadGateway,
	listing.KindClosed:       http.StatusGone,
}

// StatusFor returns the HTTP status used for a listing error kind.
func StatusFor(kind listing.Kind) int {
	if status, ok := kindStatus[kind]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// RespondError maps errors to HTTP responses using RFC7807.
func RespondError(w http.ResponseWriter, err error) {
	var lerr *listing.Error
	switch {
	case errors.As(err, &lerr):
		status := StatusFor(lerr.Kind)
		writeProblem(w, ProblemDetail{
			Title:  http.StatusText(status),
			Status: status,
			Detail: listing.Message(lerr),
			Kind:   lerr.Kind.String(),
			Fields: lerr.Fields,
		})
	case errors.Is(err, ErrNotFound):
		Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrBadRequest):
		Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	default:
		Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
