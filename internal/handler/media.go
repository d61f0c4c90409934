package handler

import (
	"net/http"
	"strings"

	"sharefun/internal/httputil"
	"sharefun/internal/model"
	"sharefun/internal/service"
	"sharefun/internal/transport/http/middleware"
)

type MediaHandler struct {
	mediaService *service.MediaService
}

// NewMediaHandler accepts a nil service; uploads then answer 503.
func NewMediaHandler(mediaService *service.MediaService) *MediaHandler {
	return &MediaHandler{mediaService: mediaService}
}

// PresignPostUpload handles POST /media/posts/presign
// Returns a presigned URL for uploading a post attachment directly to R2.
func (h *MediaHandler) PresignPostUpload(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	if h.mediaService == nil {
		httputil.WriteServiceUnavailable(w, model.CodeMediaDisabled, "Media storage is not configured")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20) // 1MB is plenty for JSON
	var req model.PresignPostUploadRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	if strings.TrimSpace(req.ContentType) == "" {
		httputil.WriteBadRequest(w, "contentType is required")
		return
	}

	res, err := h.mediaService.PresignPostUpload(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create upload URL")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}
