package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mcoot/reflexpool/internal/api/apierr"
	"github.com/mcoot/reflexpool/internal/model"
)

// WriteError writes an error response to the response writer
func WriteError(w http.ResponseWriter, err error) {
	apierr.WriteError(w, err)
}

// NewInvalidRequestError creates an invalid request error
func NewInvalidRequestError(message string) error {
	return apierr.NewInvalidRequestError(message)
}

// decodeBody decodes a JSON request body. Domain errors raised while decoding
// (a malformed address or nonce) are returned as is.
func decodeBody(r *http.Request, dst any) error {
	err := json.NewDecoder(r.Body).Decode(dst)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, io.EOF):
		return NewInvalidRequestError("request body is required")
	case model.KindOf(err) != model.KindInternal:
		return err
	default:
		return NewInvalidRequestError("invalid request body")
	}
}

// addressVar parses the {address} path variable
func addressVar(r *http.Request) (model.Address, error) {
	return model.ParseAddress(mux.Vars(r)["address"])
}

// poolIDVar parses the {id} path variable
func poolIDVar(r *http.Request) (model.PoolID, error) {
	return model.ParsePoolID(mux.Vars(r)["id"])
}

// maxLimit caps every list query
const maxLimit = 1000

// limitParam reads a positive limit query parameter, falling back to def.
// Larger values are clamped to maxLimit.
func limitParam(r *http.Request, def int) (int, error) {
	raw := r.URL.Query().Get("limit")
	if raw == "" {
		return def, nil
	}
	limit, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || limit == 0 {
		if errors.Is(err, strconv.ErrRange) {
			return maxLimit, nil
		}
		return 0, model.ErrInvalidLimit
	}
	return int(min(limit, maxLimit)), nil
}
