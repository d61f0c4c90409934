package handler

import (
	"net/http"

	"sharefun/internal/httputil"
	"sharefun/internal/model"
	"sharefun/internal/service"
	"sharefun/internal/transport/http/middleware"
)

type FriendHandler struct {
	friendService *service.FriendService
}

func NewFriendHandler(friendService *service.FriendService) *FriendHandler {
	return &FriendHandler{
		friendService: friendService,
	}
}

// SendRequest handles POST /friends/requests/{id}
func (h *FriendHandler) SendRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	targetID, ok := idParam(w, r, "id", "user")
	if !ok {
		return
	}

	if err := h.friendService.SendRequest(r.Context(), userID, targetID); err != nil {
		writeServiceError(w, r, err, "Failed to send friend request")
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, map[string]string{
		"message": "Friend request sent",
	})
}

// CancelRequest handles DELETE /friends/requests/{id}
func (h *FriendHandler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	targetID, ok := idParam(w, r, "id", "user")
	if !ok {
		return
	}

	if err := h.friendService.CancelRequest(r.Context(), userID, targetID); err != nil {
		writeServiceError(w, r, err, "Failed to cancel friend request")
		return
	}

	httputil.WriteMessage(w, "Friend request cancelled")
}

// Respond handles POST /friends/requests/{id}/respond where id is the requester.
func (h *FriendHandler) Respond(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	requesterID, ok := idParam(w, r, "id", "user")
	if !ok {
		return
	}

	var req model.RespondRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Accept == nil {
		httputil.WriteBadRequest(w, "accept is required")
		return
	}

	if err := h.friendService.Respond(r.Context(), userID, requesterID, *req.Accept); err != nil {
		writeServiceError(w, r, err, "Failed to answer friend request")
		return
	}

	if *req.Accept {
		httputil.WriteMessage(w, "Friend request accepted")
		return
	}
	httputil.WriteMessage(w, "Friend request rejected")
}

// Unfriend handles DELETE /friends/{id}
func (h *FriendHandler) Unfriend(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	friendID, ok := idParam(w, r, "id", "user")
	if !ok {
		return
	}

	if err := h.friendService.Unfriend(r.Context(), userID, friendID); err != nil {
		writeServiceError(w, r, err, "Failed to remove friend")
		return
	}

	httputil.WriteMessage(w, "Friend removed")
}

// ListOwnFriends handles GET /friends
func (h *FriendHandler) ListOwnFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}
	h.writeFriends(w, r, userID)
}

// ListUserFriends handles GET /users/{id}/friends
func (h *FriendHandler) ListUserFriends(w http.ResponseWriter, r *http.Request) {
	userID, ok := idParam(w, r, "id", "user")
	if !ok {
		return
	}
	h.writeFriends(w, r, userID)
}

func (h *FriendHandler) writeFriends(w http.ResponseWriter, r *http.Request, userID int64) {
	users, err := h.friendService.ListFriendSummaries(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list friends")
		return
	}
	httputil.WriteJSON(w, http.StatusOK, model.UserListResponse{Users: users})
}

// ListRequests handles GET /friends/requests
func (h *FriendHandler) ListRequests(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		httputil.WriteUnauthorized(w, "Authentication required")
		return
	}

	requests, err := h.friendService.ListIncomingRequests(r.Context(), userID)
	if err != nil {
		writeServiceError(w, r, err, "Failed to list friend requests")
		return
	}

	httputil.WriteJSON(w, http.StatusOK, model.FriendRequestListResponse{Requests: requests})
}
