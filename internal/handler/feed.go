package handler

import (
	"context"
	"net/http"
	"strconv"

	"sharefun/internal/httputil"
	"sharefun/internal/model"
	"sharefun/internal/service"
	"sharefun/internal/transport/http/middleware"
)

type FeedHandler struct {
	feedService *service.FeedService
}

func NewFeedHandler(feedService *service.FeedService) *FeedHandler {
	return &FeedHandler{
		feedService: feedService,
	}
}

// GetFeed handles GET /feed
// Returns the authenticated user's feed: their own posts and their friends'.
//
// Query params:
//   - cursor: optional, nextCursor of the previous page (format: "id:unixnano")
//   - limit: optional, number of posts per page (default 10, max 50)
func (h *FeedHandler) GetFeed(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var cursor *string
	if c := r.URL.Query().Get("cursor"); c != "" {
		cursor = &c
	}

	limit := model.FeedDefaultLimit
	if l := r.URL.Query().Get("limit"); l != "" {
		parsed, err := strconv.Atoi(l)
		if err != nil || parsed <= 0 {
			httputil.WriteBadRequest(w, "Invalid limit parameter")
			return
		}
		limit = parsed
	}

	feed, err := h.feedService.GetFeedPage(r.Context(), userID, cursor, limit)
	if err != nil {
		writeServiceError(w, r, err, "Failed to get feed")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, feed)
}

// Like handles POST /posts/like with body {"postId": n}
func (h *FeedHandler) Like(w http.ResponseWriter, r *http.Request) {
	h.postAction(w, r, h.feedService.LikeOnFeed, "Post liked", "Failed to like post")
}

// Unlike handles POST /posts/unlike with body {"postId": n}
func (h *FeedHandler) Unlike(w http.ResponseWriter, r *http.Request) {
	h.postAction(w, r, h.feedService.UnlikeOnFeed, "Post unliked", "Failed to unlike post")
}

// DeletePost handles DELETE /posts/{id}
// Only the author can delete.
func (h *FeedHandler) DeletePost(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	postID, ok := idParam(w, r, "id", "post")
	if !ok {
		return
	}

	if err := h.feedService.DeleteFromFeed(r.Context(), postID, userID); err != nil {
		writeServiceError(w, r, err, "Failed to delete post")
		return
	}

	httputil.WriteMessage(w, "Post deleted successfully")
}

type postActionFunc func(ctx context.Context, postID, userID int64) error

func (h *FeedHandler) postAction(w http.ResponseWriter, r *http.Request, action postActionFunc, success, fallback string) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	var req model.PostActionRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.PostID <= 0 {
		httputil.WriteBadRequest(w, "postId is required")
		return
	}

	if err := action(r.Context(), req.PostID, userID); err != nil {
		writeServiceError(w, r, err, fallback)
		return
	}

	httputil.WriteMessage(w, success)
}
