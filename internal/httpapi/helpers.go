package httpapi

import (
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
)

// ErrorResponse is the body of every non-validation error.
type ErrorResponse struct {
	Message string `json:"message,omitempty"`
}

func replyWithError(w http.ResponseWriter, statusCode int, errMsg string) {
	replyJSON(w, statusCode, &ErrorResponse{Message: errMsg})
}

func replyJSON(w http.ResponseWriter, statusCode int, output any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(output)
}

func decodeJSONBody(r *http.Request, limit int64, placeholder any) error {
	reqBody, err := io.ReadAll(io.LimitReader(r.Body, limit+1))
	if err != nil {
		return fmt.Errorf("reading request body: %w", err)
	}
	if int64(len(reqBody)) > limit {
		return fmt.Errorf("request body exceeds %d bytes", limit)
	}

	if err := json.Unmarshal(reqBody, placeholder); err != nil {
		return fmt.Errorf("decoding json: %w", err)
	}

	return nil
}

func isJSONRequest(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "application/json"
}
