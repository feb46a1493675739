package api

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/meridianworks/media-gateway/pkg/mediagateway"
	"github.com/meridianworks/media-gateway/pkg/mediagateway/ratelimit"
	"github.com/meridianworks/media-gateway/pkg/mediagateway/signing"
	memorystore "github.com/meridianworks/media-gateway/pkg/mediagateway/storage/memory"
)

const (
	testToken      = "valid-session-token"
	signingSecret  = "upload-signing-secret"
	signingAccount = "acct_123"
)

type testServer struct {
	router chi.Router
	store  *memorystore.Store
}

func newTestServer(t *testing.T, opts ...mediagateway.Option) *testServer {
	t.Helper()

	store := memorystore.New()
	issuer := signing.New(signingSecret, signingAccount)

	options := append([]mediagateway.Option{
		mediagateway.WithStore(store),
		mediagateway.WithVerifier(identityStub{}),
		mediagateway.WithRateLimiter(ratelimit.New()),
		mediagateway.WithGrantIssuer(issuer),
	}, opts...)

	gateway, err := mediagateway.New(options...)
	require.NoError(t, err)

	r := chi.NewRouter()
	r.Mount("/", NewMediaHandler(gateway).Routes())
	return &testServer{router: r, store: store}
}

// identityStub accepts only testToken and resolves it to a fixed subject.
type identityStub struct{}

func (identityStub) Verify(ctx context.Context, token string) (*mediagateway.Identity, error) {
	if token != testToken {
		return nil, fmt.Errorf("%w: unknown token", mediagateway.ErrUnauthorized)
	}
	return &mediagateway.Identity{Subject: "user_1", Provider: "static"}, nil
}

func (s *testServer) do(t *testing.T, method, target, token string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(encoded)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, target, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func decodeError(t *testing.T, rec *httptest.ResponseRecorder) errorDetail {
	t.Helper()
	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body.Error
}

func TestListFolders(t *testing.T) {
	server := newTestServer(t)

	t.Run("unauthenticated", func(t *testing.T) {
		rec := server.do(t, http.MethodGet, "/folders", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
		assert.Equal(t, "unauthorized", decodeError(t, rec).Code)
	})

	t.Run("empty list is an array, not null", func(t *testing.T) {
		rec := server.do(t, http.MethodGet, "/folders", testToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"folders":[]}`, rec.Body.String())
	})

	t.Run("lists created folders", func(t *testing.T) {
		rec := server.do(t, http.MethodPost, "/folders", testToken, CreateFolderRequest{FolderPath: "campaigns"})
		require.Equal(t, http.StatusCreated, rec.Code)

		rec = server.do(t, http.MethodGet, "/folders", testToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body ListFoldersResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.Len(t, body.Folders, 1)
		assert.Equal(t, "campaigns", body.Folders[0].Path)
	})
}

func TestCreateFolder(t *testing.T) {
	server := newTestServer(t)

	t.Run("created folder is sanitized", func(t *testing.T) {
		rec := server.do(t, http.MethodPost, "/folders", testToken, CreateFolderRequest{FolderPath: "../campaigns//summer/"})
		require.Equal(t, http.StatusCreated, rec.Code)

		var folder mediagateway.Folder
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &folder))
		assert.Equal(t, "campaigns/summer", folder.Path)
		assert.Equal(t, "summer", folder.Name)
	})

	t.Run("duplicate is a validation error", func(t *testing.T) {
		rec := server.do(t, http.MethodPost, "/folders", testToken, CreateFolderRequest{FolderPath: "campaigns/summer"})
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_error", decodeError(t, rec).Code)
	})

	t.Run("malformed body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/folders", bytes.NewReader([]byte("{not json")))
		req.Header.Set("Authorization", "Bearer "+testToken)
		rec := httptest.NewRecorder()
		server.router.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "validation_error", decodeError(t, rec).Code)
	})

	t.Run("unauthenticated", func(t *testing.T) {
		rec := server.do(t, http.MethodPost, "/folders", "", CreateFolderRequest{FolderPath: "campaigns"})
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})
}

func TestRenameFolder(t *testing.T) {
	server := newTestServer(t)

	rec := server.do(t, http.MethodPost, "/folders", testToken, CreateFolderRequest{FolderPath: "drafts"})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("renames an existing folder", func(t *testing.T) {
		rec := server.do(t, http.MethodPatch, "/folders", testToken, RenameFolderRequest{Path: "drafts", ToPath: "published"})
		require.Equal(t, http.StatusOK, rec.Code)

		var folder mediagateway.Folder
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &folder))
		assert.Equal(t, "published", folder.Path)
	})

	t.Run("missing source is not found", func(t *testing.T) {
		rec := server.do(t, http.MethodPatch, "/folders", testToken, RenameFolderRequest{Path: "drafts", ToPath: "elsewhere"})
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Equal(t, "not_found", decodeError(t, rec).Code)
	})
}

func TestDeleteFolder(t *testing.T) {
	server := newTestServer(t)

	rec := server.do(t, http.MethodPost, "/folders", testToken, CreateFolderRequest{FolderPath: "campaigns"})
	require.Equal(t, http.StatusCreated, rec.Code)

	t.Run("folder with assets is a conflict", func(t *testing.T) {
		server.store.SeedAsset("campaigns/hero.jpg")

		rec := server.do(t, http.MethodDelete, "/folders", testToken, DeleteFolderRequest{Path: "campaigns"})
		assert.Equal(t, http.StatusConflict, rec.Code)

		detail := decodeError(t, rec)
		assert.Equal(t, "conflict", detail.Code)
		assert.Equal(t, "folder is not empty, delete its assets first", detail.Message)
	})

	t.Run("empty folder deletes", func(t *testing.T) {
		rec := server.do(t, http.MethodDelete, "/asset", testToken, DeleteAssetRequest{PublicID: "campaigns/hero.jpg"})
		require.Equal(t, http.StatusOK, rec.Code)

		rec = server.do(t, http.MethodDelete, "/folders", testToken, DeleteFolderRequest{Path: "campaigns"})
		require.Equal(t, http.StatusOK, rec.Code)

		var body DeleteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
	})

	t.Run("deleting a missing folder still succeeds", func(t *testing.T) {
		rec := server.do(t, http.MethodDelete, "/folders", testToken, DeleteFolderRequest{Path: "campaigns"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestDeleteAsset(t *testing.T) {
	server := newTestServer(t)
	server.store.SeedAsset("campaigns/hero.jpg")

	t.Run("deletes and echoes the public id", func(t *testing.T) {
		rec := server.do(t, http.MethodDelete, "/asset", testToken, DeleteAssetRequest{PublicID: "campaigns/hero.jpg"})
		require.Equal(t, http.StatusOK, rec.Code)

		var body DeleteResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.True(t, body.Success)
		assert.Equal(t, "campaigns/hero.jpg", body.PublicID)
	})

	t.Run("deleting a missing asset still succeeds", func(t *testing.T) {
		rec := server.do(t, http.MethodDelete, "/asset", testToken, DeleteAssetRequest{PublicID: "campaigns/hero.jpg"})
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestDeleteAssetRateLimit(t *testing.T) {
	server := newTestServer(t, mediagateway.WithDeleteAssetPolicy(2, time.Minute))

	for i := 0; i < 2; i++ {
		server.store.SeedAsset("a.jpg")
		rec := server.do(t, http.MethodDelete, "/asset", testToken, DeleteAssetRequest{PublicID: "a.jpg"})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := server.do(t, http.MethodDelete, "/asset", testToken, DeleteAssetRequest{PublicID: "a.jpg"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	retryAfter, err := strconv.Atoi(rec.Header().Get("Retry-After"))
	require.NoError(t, err)
	assert.GreaterOrEqual(t, retryAfter, 1)

	detail := decodeError(t, rec)
	assert.Equal(t, "rate_limited", detail.Code)
	assert.Greater(t, detail.RetryAfterMs, int64(0))
}

func TestUploadSignature(t *testing.T) {
	server := newTestServer(t)

	t.Run("anonymous callers get the default folder", func(t *testing.T) {
		rec := server.do(t, http.MethodGet, "/upload-signature", "", nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body UploadSignatureResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "uploads", body.Folder)
		assert.Greater(t, body.Timestamp, int64(0))

		mac := hmac.New(sha256.New, []byte(signingSecret))
		fmt.Fprintf(mac, "folder=%s&timestamp=%d", body.Folder, body.Timestamp)
		assert.Equal(t, hex.EncodeToString(mac.Sum(nil)), body.Signature)
	})

	t.Run("anonymous callers cannot pick a folder", func(t *testing.T) {
		rec := server.do(t, http.MethodGet, "/upload-signature?folder=campaigns", "", nil)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("authenticated callers can pick a folder", func(t *testing.T) {
		rec := server.do(t, http.MethodGet, "/upload-signature?folder=campaigns/summer", testToken, nil)
		require.Equal(t, http.StatusOK, rec.Code)

		var body UploadSignatureResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		assert.Equal(t, "campaigns/summer", body.Folder)
	})

	t.Run("missing signing configuration", func(t *testing.T) {
		store := memorystore.New()
		gateway, err := mediagateway.New(
			mediagateway.WithStore(store),
			mediagateway.WithVerifier(identityStub{}),
		)
		require.NoError(t, err)

		r := chi.NewRouter()
		r.Mount("/", NewMediaHandler(gateway).Routes())

		req := httptest.NewRequest(http.MethodGet, "/upload-signature", nil)
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Equal(t, "not_configured", decodeError(t, rec).Code)
	})
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		want   string
	}{
		{"missing header", "", ""},
		{"standard bearer", "Bearer abc123", "abc123"},
		{"lowercase scheme", "bearer abc123", "abc123"},
		{"wrong scheme", "Basic abc123", ""},
		{"bare token", "abc123", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			assert.Equal(t, tt.want, bearerToken(req))
		})
	}
}
