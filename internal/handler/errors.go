package handler

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"

	"sharefun/internal/httputil"
	"sharefun/internal/model"
)

// writeServiceError maps domain errors to HTTP responses. Anything unknown is
// logged and reported as a 500 with a fixed message.
func writeServiceError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, model.ErrWeakCredential):
		httputil.WriteBadRequestWithCode(w, model.CodeWeakCredential, "Password is too short")
	case errors.Is(err, model.ErrSelfRequest):
		httputil.WriteBadRequestWithCode(w, model.CodeSelfRequest, "You cannot send a friend request to yourself")
	case errors.Is(err, model.ErrFileTooLarge):
		httputil.WriteBadRequestWithCode(w, model.CodeFileTooLarge, "File is too large")
	case errors.Is(err, model.ErrInvalidImageType):
		httputil.WriteBadRequestWithCode(w, model.CodeInvalidImageType, "Unsupported image type. Allowed: jpeg, png, gif, webp")
	case errors.Is(err, model.ErrInvalidInput):
		httputil.WriteBadRequest(w, validationMessage(err))

	case errors.Is(err, model.ErrInvalidCredentials):
		httputil.WriteUnauthorizedWithCode(w, model.CodeInvalidCredential, "Invalid email or password")
	case errors.Is(err, model.ErrSessionExpired):
		httputil.WriteUnauthorizedWithCode(w, model.CodeTokenExpired, "Session has expired")
	case errors.Is(err, model.ErrInvalidToken):
		httputil.WriteUnauthorizedWithCode(w, model.CodeTokenInvalid, "Invalid authentication token")

	case errors.Is(err, model.ErrForbidden):
		httputil.WriteForbidden(w, "You are not allowed to do that")

	case errors.Is(err, model.ErrUserNotFound), errors.Is(err, model.ErrUnknownUser):
		httputil.WriteNotFound(w, "User not found")
	case errors.Is(err, model.ErrPostNotFound):
		httputil.WriteNotFound(w, "Post not found")
	case errors.Is(err, model.ErrNoSuchRequest):
		httputil.WriteNotFound(w, "Friend request not found")
	case errors.Is(err, model.ErrNoSuchRelation):
		httputil.WriteNotFound(w, "You are not friends")

	case errors.Is(err, model.ErrDuplicateEmail):
		httputil.WriteConflict(w, "Email already registered")
	case errors.Is(err, model.ErrAlreadyRequested):
		httputil.WriteConflict(w, "A friend request or friendship already exists")

	default:
		log.WithFields(log.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
		}).WithError(err).Error("[Handler] Request failed")
		httputil.WriteInternalError(w, fallback)
	}
}

// validationMessage strips the sentinel prefix from a wrapped ErrInvalidInput.
func validationMessage(err error) string {
	msg := strings.TrimPrefix(err.Error(), model.ErrInvalidInput.Error()+": ")
	if msg == "" {
		return "Invalid input"
	}
	return msg
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		httputil.WriteBadRequest(w, "Invalid request body")
		return false
	}
	return true
}

func idParam(w http.ResponseWriter, r *http.Request, name, what string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httputil.WriteBadRequest(w, "Invalid "+what+" ID")
		return 0, false
	}
	return id, true
}
