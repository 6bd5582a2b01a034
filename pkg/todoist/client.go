// Package todoist is a small client for the Todoist sync endpoint.
package todoist

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-cleanhttp"
	"github.com/hashicorp/go-multierror"
	"github.com/sirupsen/logrus"
)

// DefaultBaseURL is the Todoist API root.
const DefaultBaseURL = "https://api.todoist.com/api/v1/"

// ResourceTypes are fetched on every sync.
var ResourceTypes = []string{"items", "projects", "labels"}

// ErrNoToken is returned when a request is attempted without credentials.
var ErrNoToken = errors.New("no API token configured (set token or token_file)")

// ExternalStoreError wraps every failure talking to the remote store.
type ExternalStoreError struct {
	Op     string
	Status int
	Err    error
}

func (e *ExternalStoreError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("todoist %s: HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("todoist %s: %v", e.Op, e.Err)
}

func (e *ExternalStoreError) Unwrap() error {
	return e.Err
}

// CommandError is a command the server rejected.
type CommandError struct {
	Command Command
	Status  any
}

func (e *CommandError) Error() string {
	return fmt.Sprintf("command %s (%s) failed: %v", e.Command.Type, e.Command.UUID, e.Status)
}

// SyncResult is the decoded response of the sync endpoint. Numbers in the
// payload are int64 or float64.
type SyncResult struct {
	SyncToken     string           `json:"sync_token"`
	FullSync      bool             `json:"full_sync"`
	Items         []map[string]any `json:"items"`
	Projects      []map[string]any `json:"projects"`
	Labels        []map[string]any `json:"labels"`
	SyncStatus    map[string]any   `json:"sync_status"`
	TempIDMapping map[string]any   `json:"temp_id_mapping"`
}

// Client talks to the sync endpoint.
type Client struct {
	BaseURL string
	Token   string
	HTTP    *http.Client
	Log     *logrus.Logger
}

// NewClient returns a client using a pooled cleanhttp client.
func NewClient(token string, timeout time.Duration) *Client {
	hc := cleanhttp.DefaultPooledClient()
	if timeout > 0 {
		hc.Timeout = timeout
	}
	return &Client{BaseURL: DefaultBaseURL, Token: token, HTTP: hc, Log: logrus.StandardLogger()}
}

// Sync performs a full sync of items, projects and labels. Deleted items
// are dropped.
func (c *Client) Sync(ctx context.Context) (*SyncResult, error) {
	form := url.Values{}
	form.Set("sync_token", "*")
	res, err := c.post(ctx, "sync", form)
	if err != nil {
		return nil, err
	}
	res.Items = dropDeleted(res.Items)
	res.Projects = dropDeleted(res.Projects)
	res.Labels = dropDeleted(res.Labels)
	c.log().Debugf("Synced %d items, %d projects, %d labels", len(res.Items), len(res.Projects), len(res.Labels))
	return res, nil
}

// Commit pushes cmds. Every command the server does not acknowledge with
// "ok" is reported; the returned error aggregates all of them.
func (c *Client) Commit(ctx context.Context, cmds []Command) (*SyncResult, error) {
	if len(cmds) == 0 {
		return &SyncResult{}, nil
	}
	payload, err := json.Marshal(cmds)
	if err != nil {
		return nil, &ExternalStoreError{Op: "commit", Err: err}
	}
	form := url.Values{}
	form.Set("commands", string(payload))
	res, err := c.post(ctx, "commit", form)
	if err != nil {
		return nil, err
	}

	var errs *multierror.Error
	for _, cmd := range cmds {
		status, ok := res.SyncStatus[cmd.UUID]
		if ok && status == "ok" {
			continue
		}
		if !ok {
			status = "no status returned"
		}
		errs = multierror.Append(errs, &CommandError{Command: cmd, Status: status})
	}
	if err := errs.ErrorOrNil(); err != nil {
		return res, &ExternalStoreError{Op: "commit", Err: err}
	}
	c.log().Debugf("Committed %d commands", len(cmds))
	return res, nil
}

// Pending returns the commands of cmds that err says were not applied.
// Without a commit error nothing is pending. A commit that failed as a
// whole leaves every command pending; otherwise only the commands the
// server rejected are.
func Pending(err error, cmds []Command) []Command {
	var storeErr *ExternalStoreError
	if err == nil || !errors.As(err, &storeErr) || storeErr.Op != "commit" {
		return nil
	}
	var merr *multierror.Error
	if !errors.As(storeErr.Err, &merr) {
		return cmds
	}
	failed := map[string]bool{}
	for _, e := range merr.Errors {
		var cmdErr *CommandError
		if errors.As(e, &cmdErr) {
			failed[cmdErr.Command.UUID] = true
		}
	}
	var out []Command
	for _, cmd := range cmds {
		if failed[cmd.UUID] {
			out = append(out, cmd)
		}
	}
	return out
}

func (c *Client) log() *logrus.Logger {
	if c.Log == nil {
		return logrus.StandardLogger()
	}
	return c.Log
}

func (c *Client) post(ctx context.Context, op string, form url.Values) (*SyncResult, error) {
	if c.Token == "" {
		return nil, &ExternalStoreError{Op: op, Err: ErrNoToken}
	}
	types, _ := json.Marshal(ResourceTypes)
	form.Set("resource_types", string(types))

	base := c.BaseURL
	if base == "" {
		base = DefaultBaseURL
	}
	endpoint := strings.TrimRight(base, "/") + "/sync"

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, &ExternalStoreError{Op: op, Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+c.Token)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	hc := c.HTTP
	if hc == nil {
		hc = cleanhttp.DefaultClient()
	}
	c.log().Tracef("POST %s (%s)", endpoint, op)
	resp, err := hc.Do(req)
	if err != nil {
		return nil, &ExternalStoreError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &ExternalStoreError{
			Op:     op,
			Status: resp.StatusCode,
			Err:    errors.New(strings.TrimSpace(string(body))),
		}
	}

	dec := json.NewDecoder(resp.Body)
	dec.UseNumber()
	var res SyncResult
	if err := dec.Decode(&res); err != nil {
		return nil, &ExternalStoreError{Op: op, Err: fmt.Errorf("decoding response: %w", err)}
	}
	for i := range res.Items {
		res.Items[i] = normalizeMap(res.Items[i])
	}
	for i := range res.Projects {
		res.Projects[i] = normalizeMap(res.Projects[i])
	}
	for i := range res.Labels {
		res.Labels[i] = normalizeMap(res.Labels[i])
	}
	return &res, nil
}

func dropDeleted(items []map[string]any) []map[string]any {
	out := items[:0]
	for _, item := range items {
		if deleted, _ := item["is_deleted"].(bool); deleted {
			continue
		}
		out = append(out, item)
	}
	return out
}

func normalizeMap(m map[string]any) map[string]any {
	for k, v := range m {
		m[k] = normalize(v)
	}
	return m
}

// normalize replaces json.Number with int64 or float64.
func normalize(v any) any {
	switch v := v.(type) {
	case json.Number:
		if i, err := v.Int64(); err == nil {
			return i
		}
		f, _ := v.Float64()
		return f
	case map[string]any:
		return normalizeMap(v)
	case []any:
		for i := range v {
			v[i] = normalize(v[i])
		}
		return v
	}
	return v
}
