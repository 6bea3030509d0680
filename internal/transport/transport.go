// Package transport is the calljmp control-plane HTTP client: project
// management, deployment, secrets, vault, bindings, and the remote
// migration upload handshake.
package transport

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/mod/semver"
)

// Client talks to the calljmp control plane. All requests carry the bearer
// token passed to New (the one `calljmp login` stores).
type Client struct {
	baseURL    string
	token      string
	cliVersion string
	http       *retryablehttp.Client
}

// New builds a Client against baseURL (e.g. https://api.calljmp.com). The
// underlying retryablehttp.Client retries failed requests (connection
// errors and 5xx responses) up to 3 times with exponential backoff,
// whatever the HTTP method, matching the pack's preference for a resilient
// transport over bespoke retry loops (see DESIGN.md). cliVersion is sent
// with every request and checked against the control plane's reported
// version; pass "" or "dev" to skip the check (local/unreleased builds).
func New(baseURL, token, cliVersion string) *Client {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 3
	rc.Logger = nil
	return &Client{baseURL: strings.TrimRight(baseURL, "/"), token: token, cliVersion: cliVersion, http: rc}
}

func (c *Client) do(ctx context.Context, method, path string, body interface{}, out interface{}) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
		reader = bytes.NewReader(b)
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if c.cliVersion != "" {
		req.Header.Set("X-Calljmp-Cli-Version", c.cliVersion)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return wrap("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()

	if err := CheckVersionCompatibility(resp.Header.Get("X-Calljmp-Server-Version"), c.cliVersion); err != nil {
		return err
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return wrap("reading response for %s %s: %v", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wrap("%s %s: status %d: %s", method, path, resp.StatusCode, strings.TrimSpace(string(data)))
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return wrap("decoding response for %s %s: %v", method, path, err)
	}
	return nil
}

func wrap(format string, args ...interface{}) error {
	return fmt.Errorf(format+": %w", append(args, ErrRemoteTransport)...)
}

// ErrRemoteTransport is the sentinel for any non-2xx response or transport
// failure, matching internal/schema's own wrapped-sentinel idiom.
var ErrRemoteTransport = fmt.Errorf("remote transport error")

// ErrVersionIncompatible is the sentinel for a CLI/control-plane major
// version mismatch.
var ErrVersionIncompatible = fmt.Errorf("incompatible cli version")

// CheckVersionCompatibility compares the CLI's version against the control
// plane's reported version and rejects a major version mismatch. Either
// value being empty or "dev" (a local, non-release build) skips the check
// entirely, since unreleased builds don't carry a meaningful version.
func CheckVersionCompatibility(serverVersion, cliVersion string) error {
	if serverVersion == "" || cliVersion == "" || cliVersion == "dev" {
		return nil
	}
	sv, cv := normalizeSemver(serverVersion), normalizeSemver(cliVersion)
	if !semver.IsValid(sv) || !semver.IsValid(cv) {
		return nil
	}
	if semver.Major(sv) == semver.Major(cv) {
		return nil
	}
	if semver.Compare(sv, cv) < 0 {
		return fmt.Errorf("cli %s is newer than control plane %s; this build may call endpoints the control plane doesn't have yet: %w", cliVersion, serverVersion, ErrVersionIncompatible)
	}
	return fmt.Errorf("cli %s is older than control plane %s; run `calljmp update` (or reinstall) to match: %w", cliVersion, serverVersion, ErrVersionIncompatible)
}

func normalizeSemver(v string) string {
	if !strings.HasPrefix(v, "v") {
		return "v" + v
	}
	return v
}

// ServerVersion reports the control plane's version without going through
// the compatibility gate in do(), so `calljmp version --server` can surface
// a mismatch as a readable message instead of erroring out of the request.
func (c *Client) ServerVersion(ctx context.Context) (string, error) {
	var out struct {
		Version string `json:"version"`
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/version", nil)
	if err != nil {
		return "", fmt.Errorf("building request: %w", err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return "", wrap("GET /version: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", wrap("GET /version: status %d", resp.StatusCode)
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", wrap("decoding /version response: %v", err)
	}
	return out.Version, nil
}

// Project is a control-plane project summary.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

func (c *Client) ProjectsList(ctx context.Context) ([]Project, error) {
	var out struct {
		Projects []Project `json:"projects"`
	}
	if err := c.do(ctx, http.MethodGet, "/projects", nil, &out); err != nil {
		return nil, err
	}
	return out.Projects, nil
}

// Deploy requests a deploy of projectID, optionally scheduled for at.
// idempotencyKey should be a fresh uuid.NewString() per user-initiated
// deploy attempt, letting retryablehttp's automatic retries land on the
// control plane as the same deploy rather than duplicates.
func (c *Client) Deploy(ctx context.Context, projectID string, at *time.Time, idempotencyKey string) error {
	body := map[string]interface{}{"project_id": projectID, "idempotency_key": idempotencyKey}
	if at != nil {
		body["at"] = at.UTC().Format(time.RFC3339)
	}
	return c.do(ctx, http.MethodPost, "/deploy", body, nil)
}

func (c *Client) SecretsSet(ctx context.Context, projectID, key, value string) error {
	return c.do(ctx, http.MethodPost, "/secrets", map[string]string{
		"project_id": projectID, "key": key, "value": value,
	}, nil)
}

type Secret struct {
	Key string `json:"key"`
}

func (c *Client) SecretsList(ctx context.Context, projectID string) ([]Secret, error) {
	var out struct {
		Secrets []Secret `json:"secrets"`
	}
	if err := c.do(ctx, http.MethodGet, "/secrets?project_id="+projectID, nil, &out); err != nil {
		return nil, err
	}
	return out.Secrets, nil
}

func (c *Client) SecretsRemove(ctx context.Context, projectID, key string) error {
	return c.do(ctx, http.MethodDelete, "/secrets", map[string]string{
		"project_id": projectID, "key": key,
	}, nil)
}

func (c *Client) VaultUnseal(ctx context.Context, projectID string, shares []string) error {
	return c.do(ctx, http.MethodPost, "/vault/unseal", map[string]interface{}{
		"project_id": projectID, "shares": shares,
	}, nil)
}

type Binding struct {
	Name     string `json:"name"`
	Platform string `json:"platform"`
}

func (c *Client) BindingsList(ctx context.Context, projectID string) ([]Binding, error) {
	var out struct {
		Bindings []Binding `json:"bindings"`
	}
	if err := c.do(ctx, http.MethodGet, "/bindings?project_id="+projectID, nil, &out); err != nil {
		return nil, err
	}
	return out.Bindings, nil
}

// migrateHandshake is the response of the first POST /database/migrate.
type migrateHandshake struct {
	Completed bool   `json:"completed"`
	UploadURL string `json:"uploadUrl"`
	Filename  string `json:"filename"`
}

type migrateCommit struct {
	Completed bool   `json:"completed"`
	Bookmark  string `json:"bookmark"`
}

// MigrateRemote uploads sql to the control plane's migration endpoint via a
// two-step handshake:
//  1. POST /database/migrate {etag} -> either {completed:true} (content
//     already present) or {uploadUrl, filename}.
//  2. PUT sql to uploadUrl, verify the returned ETag (quotes stripped)
//     matches etag, then PUT /database/migrate {etag, filename} ->
//     {completed, bookmark}.
//  3. Poll POST /database/migration/status {bookmark} until completed.
func (c *Client) MigrateRemote(ctx context.Context, projectID string, sql []byte, poll func(context.Context, string) (bool, error)) error {
	etag := etagOf(sql)

	var hs migrateHandshake
	if err := c.do(ctx, http.MethodPost, "/database/migrate", map[string]string{
		"project_id": projectID, "etag": etag,
	}, &hs); err != nil {
		return err
	}
	if hs.Completed {
		return nil
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPut, hs.UploadURL, bytes.NewReader(sql))
	if err != nil {
		return wrap("building upload request: %v", err)
	}
	req.ContentLength = int64(len(sql))
	resp, err := c.http.Do(req)
	if err != nil {
		return wrap("uploading migration body: %v", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return wrap("upload returned status %d", resp.StatusCode)
	}
	gotETag := strings.Trim(resp.Header.Get("ETag"), `"`)
	if gotETag != etag {
		return wrap("etag mismatch: sent %s, server returned %s", etag, gotETag)
	}

	var commit migrateCommit
	if err := c.do(ctx, http.MethodPut, "/database/migrate", map[string]string{
		"project_id": projectID, "etag": etag, "filename": hs.Filename,
	}, &commit); err != nil {
		return err
	}
	if commit.Completed {
		return nil
	}

	if poll == nil {
		poll = c.pollMigrationStatus
	}
	for {
		done, err := poll(ctx, commit.Bookmark)
		if err != nil {
			return err
		}
		if done {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(2 * time.Second):
		}
	}
}

func (c *Client) pollMigrationStatus(ctx context.Context, bookmark string) (bool, error) {
	var out migrateCommit
	if err := c.do(ctx, http.MethodPost, "/database/migration/status", map[string]string{
		"bookmark": bookmark,
	}, &out); err != nil {
		return false, err
	}
	return out.Completed, nil
}

func etagOf(sql []byte) string {
	sum := md5.Sum(sql)
	return hex.EncodeToString(sum[:])
}
