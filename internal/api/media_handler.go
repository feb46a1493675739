package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/meridianworks/media-gateway/pkg/mediagateway"
)

// MediaHandler handles the media management API endpoints
type MediaHandler struct {
	gateway mediagateway.Service
}

// NewMediaHandler creates a new media handler
func NewMediaHandler(gateway mediagateway.Service) *MediaHandler {
	return &MediaHandler{gateway: gateway}
}

// Routes returns the router for media management endpoints
func (h *MediaHandler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/folders", h.ListFolders)
	r.Post("/folders", h.CreateFolder)
	r.Patch("/folders", h.RenameFolder)
	r.Delete("/folders", h.DeleteFolder)
	r.Delete("/asset", h.DeleteAsset)
	r.Get("/upload-signature", h.UploadSignature)
	return r
}

// CreateFolderRequest is the request body for creating a folder
type CreateFolderRequest struct {
	FolderPath string `json:"folderPath"`
}

// RenameFolderRequest is the request body for renaming a folder
type RenameFolderRequest struct {
	Path   string `json:"path"`
	ToPath string `json:"toPath"`
}

// DeleteFolderRequest is the request body for deleting a folder
type DeleteFolderRequest struct {
	Path string `json:"path"`
}

// DeleteAssetRequest is the request body for deleting an asset
type DeleteAssetRequest struct {
	PublicID string `json:"publicId"`
}

// ListFoldersResponse is the response body for the folder list
type ListFoldersResponse struct {
	Folders []mediagateway.Folder `json:"folders"`
}

// DeleteResponse is the response body for delete operations
type DeleteResponse struct {
	Success  bool   `json:"success"`
	PublicID string `json:"publicId,omitempty"`
}

// UploadSignatureResponse is the response body for a signed upload grant
type UploadSignatureResponse struct {
	Signature string `json:"signature"`
	Timestamp int64  `json:"timestamp"`
	Folder    string `json:"folder"`
}

// ListFolders returns the folders known to the remote store
func (h *MediaHandler) ListFolders(w http.ResponseWriter, r *http.Request) {
	folders, err := h.gateway.ListFolders(r.Context(), mediagateway.ListFoldersRequest{
		Token: bearerToken(r),
	})
	if err != nil {
		slog.Error("Failed to list folders", "err", err)
		writeError(w, r, err)
		return
	}

	if folders == nil {
		folders = []mediagateway.Folder{}
	}
	render.JSON(w, r, ListFoldersResponse{Folders: folders})
}

// CreateFolder creates a folder in the remote store
func (h *MediaHandler) CreateFolder(w http.ResponseWriter, r *http.Request) {
	var req CreateFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Fail to decode request", "error", err)
		writeErrorCode(w, r, http.StatusBadRequest, "validation_error", "request body must be valid JSON")
		return
	}

	folder, err := h.gateway.CreateFolder(r.Context(), mediagateway.CreateFolderRequest{
		Token:      bearerToken(r),
		FolderPath: req.FolderPath,
	})
	if err != nil {
		slog.Error("Failed to create folder", "path", req.FolderPath, "err", err)
		writeError(w, r, err)
		return
	}

	render.Status(r, http.StatusCreated)
	render.JSON(w, r, folder)
}

// RenameFolder renames a folder in the remote store
func (h *MediaHandler) RenameFolder(w http.ResponseWriter, r *http.Request) {
	var req RenameFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Fail to decode request", "error", err)
		writeErrorCode(w, r, http.StatusBadRequest, "validation_error", "request body must be valid JSON")
		return
	}

	folder, err := h.gateway.RenameFolder(r.Context(), mediagateway.RenameFolderRequest{
		Token:    bearerToken(r),
		FromPath: req.Path,
		ToPath:   req.ToPath,
	})
	if err != nil {
		slog.Error("Failed to rename folder", "from", req.Path, "to", req.ToPath, "err", err)
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, folder)
}

// DeleteFolder deletes a folder in the remote store
func (h *MediaHandler) DeleteFolder(w http.ResponseWriter, r *http.Request) {
	var req DeleteFolderRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Fail to decode request", "error", err)
		writeErrorCode(w, r, http.StatusBadRequest, "validation_error", "request body must be valid JSON")
		return
	}

	err := h.gateway.DeleteFolder(r.Context(), mediagateway.DeleteFolderRequest{
		Token:      bearerToken(r),
		FolderPath: req.Path,
	})
	if err != nil {
		slog.Error("Failed to delete folder", "path", req.Path, "err", err)
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, DeleteResponse{Success: true})
}

// DeleteAsset deletes a single asset in the remote store
func (h *MediaHandler) DeleteAsset(w http.ResponseWriter, r *http.Request) {
	var req DeleteAssetRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		slog.Error("Fail to decode request", "error", err)
		writeErrorCode(w, r, http.StatusBadRequest, "validation_error", "request body must be valid JSON")
		return
	}

	err := h.gateway.DeleteAsset(r.Context(), mediagateway.DeleteAssetRequest{
		Token:    bearerToken(r),
		PublicID: req.PublicID,
	})
	if err != nil {
		slog.Error("Failed to delete asset", "public_id", req.PublicID, "err", err)
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, DeleteResponse{Success: true, PublicID: req.PublicID})
}

// UploadSignature issues a signed upload grant. Unauthenticated callers are
// restricted to the default upload folder.
func (h *MediaHandler) UploadSignature(w http.ResponseWriter, r *http.Request) {
	grant, err := h.gateway.IssueUploadGrant(r.Context(), mediagateway.UploadGrantRequest{
		Token:  bearerToken(r),
		Folder: r.URL.Query().Get("folder"),
	})
	if err != nil {
		slog.Error("Failed to issue upload grant", "err", err)
		writeError(w, r, err)
		return
	}

	render.JSON(w, r, UploadSignatureResponse{
		Signature: grant.Signature,
		Timestamp: grant.Timestamp,
		Folder:    grant.Folder,
	})
}

// bearerToken extracts the bearer token from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	const prefix = "Bearer "
	if len(header) < len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// errorBody is the JSON envelope for error responses
type errorBody struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Code         string `json:"code"`
	Message      string `json:"message"`
	RetryAfterMs int64  `json:"retry_after_ms,omitempty"`
}

// writeError maps a gateway error onto the HTTP surface. Messages are fixed
// per error kind; provider internals are never echoed to the caller.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	var rateErr *mediagateway.RateLimitError
	if errors.As(err, &rateErr) {
		seconds := int64(rateErr.RetryAfter.Seconds())
		if seconds < 1 {
			seconds = 1
		}
		w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
		render.Status(r, http.StatusTooManyRequests)
		render.JSON(w, r, errorBody{Error: errorDetail{
			Code:         "rate_limited",
			Message:      "too many requests for this operation, slow down",
			RetryAfterMs: rateErr.RetryAfter.Milliseconds(),
		}})
		return
	}

	switch {
	case errors.Is(err, mediagateway.ErrUnauthorized):
		writeErrorCode(w, r, http.StatusUnauthorized, "unauthorized", "authentication required")
	case errors.Is(err, mediagateway.ErrInvalidPath):
		writeErrorCode(w, r, http.StatusBadRequest, "validation_error", "invalid folder path or asset identifier")
	case errors.Is(err, mediagateway.ErrRateLimited):
		writeErrorCode(w, r, http.StatusTooManyRequests, "rate_limited", "too many requests for this operation, slow down")
	case errors.Is(err, mediagateway.ErrFolderNotEmpty):
		writeErrorCode(w, r, http.StatusConflict, "conflict", "folder is not empty, delete its assets first")
	case errors.Is(err, mediagateway.ErrConflict):
		writeErrorCode(w, r, http.StatusConflict, "conflict", "the remote store refused the operation in its current state")
	case errors.Is(err, mediagateway.ErrNotFound):
		writeErrorCode(w, r, http.StatusNotFound, "not_found", "the requested resource does not exist")
	case errors.Is(err, mediagateway.ErrNotConfigured):
		writeErrorCode(w, r, http.StatusInternalServerError, "not_configured", "the media gateway is missing required configuration")
	case errors.Is(err, mediagateway.ErrUpstream):
		writeErrorCode(w, r, http.StatusBadGateway, "upstream_error", "the remote media store is unavailable")
	default:
		writeErrorCode(w, r, http.StatusInternalServerError, "internal_error", "an internal error occurred")
	}
}

func writeErrorCode(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	render.Status(r, status)
	render.JSON(w, r, errorBody{Error: errorDetail{Code: code, Message: message}})
}
