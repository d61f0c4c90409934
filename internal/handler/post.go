package handler

import (
	"net/http"

	"sharefun/internal/httputil"
	"sharefun/internal/model"
	"sharefun/internal/service"
	"sharefun/internal/transport/http/middleware"
)

type PostHandler struct {
	postService *service.PostService
}

func NewPostHandler(postService *service.PostService) *PostHandler {
	return &PostHandler{
		postService: postService,
	}
}

// Create handles POST /posts
// Creates a new post for the authenticated user.
func (h *PostHandler) Create(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	var req model.CreatePostRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	post, err := h.postService.Create(r.Context(), userID, &req)
	if err != nil {
		writeServiceError(w, r, err, "Failed to create post")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, post)
}

// GetByID handles GET /posts/{id}
func (h *PostHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	postID, ok := idParam(w, r, "id", "post")
	if !ok {
		return
	}

	post, err := h.postService.Get(r.Context(), postID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get post")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, post)
}

// GetUserPosts handles GET /users/{id}/posts
// Returns every post by the user, newest first.
func (h *PostHandler) GetUserPosts(w http.ResponseWriter, r *http.Request) {
	userID, ok := idParam(w, r, "id", "user")
	if !ok {
		return
	}

	posts, err := h.postService.ListByAuthor(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get user posts")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.PostListResponse{Posts: posts})
}
