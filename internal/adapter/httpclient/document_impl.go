package httpclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/user/blocklist-service/internal/delivery/http/response"
	"github.com/user/blocklist-service/internal/entity"
	"github.com/user/blocklist-service/internal/repository"
)

// DocumentRepoImpl implements DocumentRepository against a remote server's
// versioned document endpoints. Versions travel as ETag / If-Match headers.
type DocumentRepoImpl struct {
	baseURL string
	client  *http.Client
}

// NewDocumentRepo creates a client for the server at baseURL.
func NewDocumentRepo(baseURL string, timeout time.Duration) *DocumentRepoImpl {
	return &DocumentRepoImpl{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

// Get fetches a document and its version.
func (r *DocumentRepoImpl) Get(ctx context.Context, kind entity.DocumentKind) (*entity.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, entity.ErrUnknownDocument)
	}
	req, err := r.newRequest(ctx, http.MethodGet, kind, nil)
	if err != nil {
		return nil, err
	}
	return r.do(req, kind, repository.ErrRead)
}

// Put overwrites a document, conditionally when expectedVersion is set.
func (r *DocumentRepoImpl) Put(ctx context.Context, kind entity.DocumentKind, sites []string, expectedVersion string) (*entity.Document, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%q: %w", kind, entity.ErrUnknownDocument)
	}
	if sites == nil {
		sites = []string{}
	}
	body, err := json.Marshal(map[string][]string{"sites": sites})
	if err != nil {
		return nil, fmt.Errorf("encoding %s: %v: %w", kind, err, repository.ErrWrite)
	}
	req, err := r.newRequest(ctx, http.MethodPut, kind, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	if expectedVersion != "" {
		req.Header.Set("If-Match", quoteETag(expectedVersion))
	}
	return r.do(req, kind, repository.ErrWrite)
}

func (r *DocumentRepoImpl) newRequest(ctx context.Context, method string, kind entity.DocumentKind, body io.Reader) (*http.Request, error) {
	endpoint := r.baseURL + "/api/documents/" + url.PathEscape(string(kind))
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("building request for %s: %v: %w", kind, err, repository.ErrNetwork)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-Id", uuid.NewString())
	return req, nil
}

// do sends the request and maps the response onto the repository error taxonomy.
// fallback is used for server failures that carry no recognizable code.
func (r *DocumentRepoImpl) do(req *http.Request, kind entity.DocumentKind, fallback error) (*entity.Document, error) {
	resp, err := r.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %v: %w", req.Method, req.URL.Path, err, repository.ErrNetwork)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusOK {
		var doc entity.Document
		if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
			return nil, fmt.Errorf("decoding %s response: %v: %w", kind, err, repository.ErrNetwork)
		}
		if doc.Sites == nil {
			doc.Sites = []string{}
		}
		doc.Kind = kind
		if etag := resp.Header.Get("ETag"); etag != "" {
			doc.Version = unquoteETag(etag)
		}
		return &doc, nil
	}

	var errResp response.ErrorResponse
	_ = json.NewDecoder(resp.Body).Decode(&errResp)
	cause := errorForCode(errResp.Code, resp.StatusCode, fallback)
	msg := errResp.Message
	if msg == "" {
		msg = resp.Status
	}
	return nil, fmt.Errorf("%s %s: %s: %w", req.Method, req.URL.Path, msg, cause)
}

func errorForCode(code string, status int, fallback error) error {
	switch code {
	case response.CodeNotFound:
		return repository.ErrNotFound
	case response.CodeParse:
		return repository.ErrParse
	case response.CodeVersionConflict:
		return repository.ErrVersionConflict
	case response.CodeUnknownDocument:
		return entity.ErrUnknownDocument
	case response.CodeRead:
		return repository.ErrRead
	case response.CodeWrite:
		return repository.ErrWrite
	}
	switch status {
	case http.StatusNotFound:
		return repository.ErrNotFound
	case http.StatusPreconditionFailed, http.StatusConflict:
		return repository.ErrVersionConflict
	}
	return fallback
}

func quoteETag(version string) string {
	return `"` + version + `"`
}

func unquoteETag(etag string) string {
	return strings.Trim(strings.TrimPrefix(etag, "W/"), `"`)
}
