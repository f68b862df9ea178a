// Package guacamole talks to the Apache Guacamole REST API.
package guacamole

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/bcnelson/guacamole-csv-importer/internal/domain"
	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"
)

// Directory defines the interface for reading and extending the remote
// connection directory.
type Directory interface {
	Authenticate(ctx context.Context) error
	ListGroups(ctx context.Context) ([]domain.GroupRecord, error)
	ListConnections(ctx context.Context) ([]domain.ConnectionRecord, error)
	CreateGroup(ctx context.Context, name, parentID string) (string, error)
	CreateConnection(ctx context.Context, spec domain.ConnectionSpec, parentID string) (string, error)
}

// Options configures a Client.
type Options struct {
	// URL is the API base, e.g. http://localhost:8080/guacamole/api.
	URL      string
	Username string
	Password string
	// DataSource overrides the data source returned at login.
	DataSource string
	Timeout    time.Duration
	// Retries bounds how often a transient read or login failure is retried.
	Retries int
	// RetryBase is the first backoff interval.
	RetryBase  time.Duration
	HTTPClient *http.Client
	Logger     zerolog.Logger
}

// Client is an authenticated Guacamole API session.
type Client struct {
	baseURL  string
	username string
	password string
	retries  uint64
	base     time.Duration
	http     *http.Client
	logger   zerolog.Logger

	mu         sync.Mutex
	token      string
	dataSource string
}

// Ensure Client implements Directory.
var _ Directory = (*Client)(nil)

// New creates a new Guacamole client. No request is made until the first call.
func New(opts Options) *Client {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	base := opts.RetryBase
	if base <= 0 {
		base = 250 * time.Millisecond
	}
	retries := opts.Retries
	if retries < 0 {
		retries = 0
	}
	return &Client{
		baseURL:    strings.TrimRight(opts.URL, "/"),
		username:   opts.Username,
		password:   opts.Password,
		retries:    uint64(retries),
		base:       base,
		http:       httpClient,
		logger:     opts.Logger,
		dataSource: opts.DataSource,
	}
}

type tokenResponse struct {
	AuthToken            string   `json:"authToken"`
	Username             string   `json:"username"`
	DataSource           string   `json:"dataSource"`
	AvailableDataSources []string `json:"availableDataSources"`
}

// Authenticate obtains a session token.
func (c *Client) Authenticate(ctx context.Context) error {
	form := url.Values{}
	form.Set("username", c.username)
	form.Set("password", c.password)

	var resp tokenResponse
	err := c.withRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/tokens", strings.NewReader(form.Encode()))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		return c.do(req, "authenticate", false, &resp)
	})
	if err != nil {
		return err
	}
	if resp.AuthToken == "" {
		return &domain.RemoteError{Op: "authenticate", Message: "no token in response", Cause: domain.ErrUnauthorized}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.token = resp.AuthToken
	if c.dataSource == "" {
		c.dataSource = resp.DataSource
	}
	c.logger.Debug().Str("data_source", c.dataSource).Msg("authenticated")
	return nil
}

type groupPayload struct {
	Name              string             `json:"name"`
	Identifier        string             `json:"identifier,omitempty"`
	ParentIdentifier  string             `json:"parentIdentifier"`
	Type              domain.GroupType   `json:"type"`
	ActiveConnections int                `json:"activeConnections,omitempty"`
	Attributes        map[string]*string `json:"attributes"`
}

type connectionPayload struct {
	Name              string             `json:"name"`
	Identifier        string             `json:"identifier,omitempty"`
	ParentIdentifier  string             `json:"parentIdentifier"`
	Protocol          domain.Protocol    `json:"protocol"`
	ActiveConnections int                `json:"activeConnections,omitempty"`
	Parameters        map[string]string  `json:"parameters,omitempty"`
	Attributes        map[string]*string `json:"attributes"`
}

// ListGroups returns every connection group, ordered by identifier.
func (c *Client) ListGroups(ctx context.Context) ([]domain.GroupRecord, error) {
	var raw map[string]groupPayload
	if err := c.get(ctx, "connectionGroups", "list connection groups", &raw); err != nil {
		return nil, err
	}
	groups := make([]domain.GroupRecord, 0, len(raw))
	for id, g := range raw {
		if g.Identifier == "" {
			g.Identifier = id
		}
		groups = append(groups, domain.GroupRecord{
			Name:              g.Name,
			Identifier:        g.Identifier,
			ParentIdentifier:  g.ParentIdentifier,
			Type:              g.Type,
			ActiveConnections: g.ActiveConnections,
			Attributes:        flatten(g.Attributes),
		})
	}
	sort.Slice(groups, func(i, j int) bool { return groups[i].Identifier < groups[j].Identifier })
	return groups, nil
}

// ListConnections returns every connection, ordered by identifier.
func (c *Client) ListConnections(ctx context.Context) ([]domain.ConnectionRecord, error) {
	var raw map[string]connectionPayload
	if err := c.get(ctx, "connections", "list connections", &raw); err != nil {
		return nil, err
	}
	conns := make([]domain.ConnectionRecord, 0, len(raw))
	for id, cn := range raw {
		if cn.Identifier == "" {
			cn.Identifier = id
		}
		conns = append(conns, domain.ConnectionRecord{
			Name:              cn.Name,
			Identifier:        cn.Identifier,
			ParentIdentifier:  cn.ParentIdentifier,
			Protocol:          cn.Protocol,
			ActiveConnections: cn.ActiveConnections,
			Attributes:        flatten(cn.Attributes),
		})
	}
	sort.Slice(conns, func(i, j int) bool { return conns[i].Identifier < conns[j].Identifier })
	return conns, nil
}

// CreateGroup creates an organizational group under parentID.
func (c *Client) CreateGroup(ctx context.Context, name, parentID string) (string, error) {
	body := groupPayload{
		Name:             name,
		ParentIdentifier: parentID,
		Type:             domain.GroupTypeOrganizational,
		Attributes:       map[string]*string{},
	}
	var created groupPayload
	if err := c.post(ctx, "connectionGroups", "create connection group", body, &created); err != nil {
		return "", err
	}
	if created.Identifier == "" {
		return "", &domain.RemoteError{Op: "create connection group", Message: "no identifier in response", Mutation: true}
	}
	c.logger.Debug().Str("group", name).Str("identifier", created.Identifier).Msg("remote group created")
	return created.Identifier, nil
}

// CreateConnection creates a connection under parentID.
func (c *Client) CreateConnection(ctx context.Context, spec domain.ConnectionSpec, parentID string) (string, error) {
	body := connectionPayload{
		Name:             spec.Name,
		ParentIdentifier: parentID,
		Protocol:         spec.Protocol,
		Parameters:       spec.Parameters,
		Attributes:       expand(spec.Attributes),
	}
	var created connectionPayload
	if err := c.post(ctx, "connections", "create connection", body, &created); err != nil {
		return "", err
	}
	if created.Identifier == "" {
		return "", &domain.RemoteError{Op: "create connection", Message: "no identifier in response", Mutation: true}
	}
	c.logger.Debug().Str("connection", spec.Name).Str("identifier", created.Identifier).Msg("remote connection created")
	return created.Identifier, nil
}

// DataSource returns the data source in use.
func (c *Client) DataSource() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.dataSource
}

func (c *Client) session(ctx context.Context) (token, dataSource string, err error) {
	c.mu.Lock()
	token, dataSource = c.token, c.dataSource
	c.mu.Unlock()
	if token != "" {
		return token, dataSource, nil
	}
	if err := c.Authenticate(ctx); err != nil {
		return "", "", err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.token, c.dataSource, nil
}

func (c *Client) resourceURL(dataSource, resource string) string {
	return fmt.Sprintf("%s/session/data/%s/%s", c.baseURL, url.PathEscape(dataSource), resource)
}

func (c *Client) get(ctx context.Context, resource, op string, out any) error {
	token, ds, err := c.session(ctx)
	if err != nil {
		return err
	}
	return c.withRetry(ctx, func(ctx context.Context) error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.resourceURL(ds, resource), nil)
		if err != nil {
			return err
		}
		req.Header.Set("Guacamole-Token", token)
		return c.do(req, op, false, out)
	})
}

// post is never retried: a create that timed out may still have succeeded.
func (c *Client) post(ctx context.Context, resource, op string, in, out any) error {
	token, ds, err := c.session(ctx)
	if err != nil {
		return err
	}
	payload, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshaling %s request: %w", op, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resourceURL(ds, resource), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Guacamole-Token", token)
	return c.do(req, op, true, out)
}

func (c *Client) withRetry(ctx context.Context, fn retry.RetryFunc) error {
	backoff := retry.WithMaxRetries(c.retries, retry.NewExponential(c.base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		var remote *domain.RemoteError
		if errors.As(err, &remote) && remote.Temporary() {
			c.logger.Debug().Err(err).Msg("retrying remote call")
			return retry.RetryableError(err)
		}
		return err
	})
}

// guacError is the error body returned by the API.
type guacError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

func (c *Client) do(req *http.Request, op string, mutation bool, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return ctxErr
		}
		return &domain.RemoteError{Op: op, Cause: err, Mutation: mutation}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return &domain.RemoteError{Op: op, StatusCode: resp.StatusCode, Cause: err, Mutation: mutation}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var ge guacError
		msg := strings.TrimSpace(string(body))
		if json.Unmarshal(body, &ge) == nil && ge.Message != "" {
			msg = ge.Message
		}
		return &domain.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: msg, Mutation: mutation}
	}

	if out == nil || len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &domain.RemoteError{Op: op, StatusCode: resp.StatusCode, Message: "malformed response", Cause: err, Mutation: mutation}
	}
	return nil
}

// flatten drops null attribute values.
func flatten(attrs map[string]*string) map[string]string {
	if len(attrs) == 0 {
		return nil
	}
	out := make(map[string]string, len(attrs))
	for k, v := range attrs {
		if v != nil {
			out[k] = *v
		}
	}
	return out
}

func expand(attrs map[string]string) map[string]*string {
	out := make(map[string]*string, len(attrs))
	for k, v := range attrs {
		v := v
		out[k] = &v
	}
	return out
}
