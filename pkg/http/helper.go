package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"staybook/pkg/config"
	apperrors "staybook/pkg/errors"
	"strconv"
)

func ExtractLimitOffset(r *http.Request) (int, int64, error) {
	query := r.URL.Query()

	limit := 0
	if s := query.Get("limit"); s != "" {
		v, err := strconv.Atoi(s)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid limit parameter: " + s)
		}
		limit = v
	}

	var offset int64
	if s := query.Get("offset"); s != "" {
		v, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return 0, 0, apperrors.InvalidInput("invalid offset parameter: " + s)
		}
		offset = v
	}

	return config.NormalizePaginationLimit(limit), config.NormalizeOffset(offset), nil
}

// DecodeJSON decodes a request body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		var maxErr *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return apperrors.InvalidInput("Request body must not be empty")
		case errors.As(err, &maxErr):
			return apperrors.New(apperrors.CodeBadRequest, fmt.Sprintf("Request body exceeds %d bytes", maxErr.Limit), http.StatusRequestEntityTooLarge)
		default:
			return apperrors.InvalidInput("Invalid request body").WithCause(err)
		}
	}
	return nil
}
