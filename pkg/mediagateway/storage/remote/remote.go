// Package remote implements the mediagateway.MediaStore interface against
// the managed media provider's HTTP admin API. The provider is addressed
// through a narrow REST contract: folder list/create/rename/delete and
// asset delete, authenticated with the account's API key pair.
//
// Provider responses are translated into the gateway error taxonomy at this
// boundary; the provider's own error shapes never propagate upward.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"

	"github.com/meridianworks/media-gateway/pkg/mediagateway"
)

// DefaultTimeout bounds one provider call.
const DefaultTimeout = 10 * time.Second

// Config options for the remote media store
type Config struct {
	BaseURL   string        // Provider API root, e.g. https://api.provider.example/v1/accounts/acme
	APIKey    string        // Account API key
	APISecret string        // Account API secret
	Timeout   time.Duration // Per-call timeout (default: DefaultTimeout)
}

// Store is a client for the remote media provider's admin API
type Store struct {
	baseURL   string
	apiKey    string
	apiSecret string
	client    *http.Client
}

// New creates a new remote media store client. All credentials are required;
// a store is never constructed with a permissive default.
func New(config Config) (*Store, error) {
	if config.BaseURL == "" {
		return nil, errors.New("remote store base URL is required")
	}
	if config.APIKey == "" || config.APISecret == "" {
		return nil, errors.New("remote store API credentials are required")
	}

	timeout := config.Timeout
	if timeout == 0 {
		timeout = DefaultTimeout
	}

	return &Store{
		baseURL:   config.BaseURL,
		apiKey:    config.APIKey,
		apiSecret: config.APISecret,
		client:    &http.Client{Timeout: timeout},
	}, nil
}

type folderPayload struct {
	Name      string     `json:"name"`
	Path      string     `json:"path"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type listFoldersPayload struct {
	Folders []folderPayload `json:"folders"`
}

type errorPayload struct {
	Error struct {
		Message string `json:"message"`
	} `json:"error"`
}

// ListFolders returns the folders known to the provider.
func (s *Store) ListFolders(ctx context.Context) ([]mediagateway.Folder, error) {
	resp, err := s.do(ctx, http.MethodGet, "/folders", nil, nil)
	if err != nil {
		return nil, s.wrap("list_folders", "", err)
	}
	defer resp.Body.Close()

	if err := s.checkStatus(resp, "list_folders", ""); err != nil {
		return nil, err
	}

	var body listFoldersPayload
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, s.wrap("list_folders", "",
			fmt.Errorf("%w: malformed provider response", mediagateway.ErrUpstream))
	}

	folders := make([]mediagateway.Folder, 0, len(body.Folders))
	for _, f := range body.Folders {
		folders = append(folders, mediagateway.Folder{Name: f.Name, Path: f.Path, CreatedAt: f.CreatedAt})
	}
	return folders, nil
}

// CreateFolder creates a folder at the given path.
func (s *Store) CreateFolder(ctx context.Context, path string) (*mediagateway.Folder, error) {
	resp, err := s.do(ctx, http.MethodPost, "/folders", nil, map[string]string{"path": path})
	if err != nil {
		return nil, s.wrap("create_folder", path, err)
	}
	defer resp.Body.Close()

	if err := s.checkStatus(resp, "create_folder", path); err != nil {
		return nil, err
	}
	return s.decodeFolder(resp.Body, "create_folder", path)
}

// RenameFolder moves a folder to a new path.
func (s *Store) RenameFolder(ctx context.Context, fromPath, toPath string) (*mediagateway.Folder, error) {
	body := map[string]string{"from_path": fromPath, "to_path": toPath}
	resp, err := s.do(ctx, http.MethodPost, "/folders/rename", nil, body)
	if err != nil {
		return nil, s.wrap("rename_folder", fromPath, err)
	}
	defer resp.Body.Close()

	if err := s.checkStatus(resp, "rename_folder", fromPath); err != nil {
		return nil, err
	}
	return s.decodeFolder(resp.Body, "rename_folder", toPath)
}

// DeleteFolder removes an empty folder.
func (s *Store) DeleteFolder(ctx context.Context, path string) error {
	query := url.Values{"path": {path}}
	resp, err := s.do(ctx, http.MethodDelete, "/folders", query, nil)
	if err != nil {
		return s.wrap("delete_folder", path, err)
	}
	defer resp.Body.Close()

	return s.checkStatus(resp, "delete_folder", path)
}

// DeleteAsset removes a single asset by its public identifier.
func (s *Store) DeleteAsset(ctx context.Context, assetID string) error {
	query := url.Values{"public_id": {assetID}}
	resp, err := s.do(ctx, http.MethodDelete, "/assets", query, nil)
	if err != nil {
		return s.wrap("delete_asset", assetID, err)
	}
	defer resp.Body.Close()

	return s.checkStatus(resp, "delete_asset", assetID)
}

// do issues one authenticated request to the provider. Transport failures,
// timeouts included, surface as ErrUpstream.
func (s *Store) do(ctx context.Context, method, path string, query url.Values, body any) (*http.Response, error) {
	u := s.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", mediagateway.ErrUpstream, err)
		}
		reader = bytes.NewReader(encoded)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mediagateway.ErrUpstream, err)
	}
	req.SetBasicAuth(s.apiKey, s.apiSecret)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.New().String())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", mediagateway.ErrUpstream, err)
	}
	return resp, nil
}

// checkStatus translates a provider status code into the gateway taxonomy.
func (s *Store) checkStatus(resp *http.Response, op, path string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	message := providerMessage(resp.Body)

	var kind error
	switch resp.StatusCode {
	case http.StatusBadRequest:
		kind = mediagateway.ErrInvalidPath
	case http.StatusNotFound:
		kind = mediagateway.ErrNotFound
	case http.StatusConflict:
		if op == "delete_folder" {
			kind = mediagateway.ErrFolderNotEmpty
		} else {
			kind = mediagateway.ErrConflict
		}
	default:
		kind = mediagateway.ErrUpstream
	}

	if message == "" {
		message = http.StatusText(resp.StatusCode)
	}
	return s.wrap(op, path, fmt.Errorf("%w: %s", kind, message))
}

func (s *Store) decodeFolder(r io.Reader, op, path string) (*mediagateway.Folder, error) {
	var body folderPayload
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return nil, s.wrap(op, path,
			fmt.Errorf("%w: malformed provider response", mediagateway.ErrUpstream))
	}
	return &mediagateway.Folder{Name: body.Name, Path: body.Path, CreatedAt: body.CreatedAt}, nil
}

func (s *Store) wrap(op, path string, err error) error {
	return &mediagateway.StoreError{Backend: "remote", Op: op, Path: path, Err: err}
}

func providerMessage(r io.Reader) string {
	var body errorPayload
	if err := json.NewDecoder(r).Decode(&body); err != nil {
		return ""
	}
	return body.Error.Message
}
