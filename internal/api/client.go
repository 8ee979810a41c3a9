// Package api is the HTTP client for the repository's REST API: records,
// drafts, publish, communities, vocabularies and user lookup.
package api

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/nyulibraries/ultraviolet-cli/internal/domain"
	uverrors "github.com/nyulibraries/ultraviolet-cli/internal/errors"
)

// Client talks to one API base URL with one bearer token. Every request is
// preceded by a fixed pacing delay as a courtesy to the target service; there
// is no automatic retry.
type Client struct {
	recordsURL string // e.g. https://host/api/records
	token      string
	pacing     time.Duration
	httpClient *http.Client
}

// NewClient builds a client for the given records API base URL.
func NewClient(recordsURL, token string, pacing time.Duration, insecureSkipVerify bool) *Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: insecureSkipVerify}
	return &Client{
		recordsURL: strings.TrimRight(recordsURL, "/"),
		token:      token,
		pacing:     pacing,
		httpClient: &http.Client{
			Transport: transport,
			Timeout:   5 * time.Minute,
		},
	}
}

// RecordsURL returns the records API base URL.
func (c *Client) RecordsURL() string {
	return c.recordsURL
}

// apiRoot strips the trailing /records segment so sibling resources
// (communities, vocabularies, users) can be addressed.
func (c *Client) apiRoot() string {
	return strings.TrimSuffix(c.recordsURL, "/records")
}

func (c *Client) pace() {
	if c.pacing > 0 {
		time.Sleep(c.pacing)
	}
}

// Ping probes the API before a run. Any transport failure is a connectivity
// error, which callers treat as run-fatal.
func (c *Client) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.recordsURL, nil)
	if err != nil {
		return uverrors.Connectivity(err, "Couldn't connect to api at %s. Is the application running?", c.recordsURL)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return uverrors.Connectivity(err, "Couldn't connect to api at %s. Is the application running?", c.recordsURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return uverrors.Connectivity(nil, "Couldn't connect to api at %s. Is the application running?", c.recordsURL)
	}
	return nil
}

// CreateDraft posts record metadata and returns the created draft.
func (c *Client) CreateDraft(ctx context.Context, metadata json.RawMessage) (domain.RecordDraft, error) {
	var draft domain.RecordDraft
	if err := c.doJSON(ctx, http.MethodPost, c.recordsURL, metadata, &draft); err != nil {
		return domain.RecordDraft{}, err
	}
	return draft, nil
}

// GetDraft resolves a draft by pid.
func (c *Client) GetDraft(ctx context.Context, pid string) (domain.RecordDraft, error) {
	var draft domain.RecordDraft
	u := fmt.Sprintf("%s/%s/draft", c.recordsURL, url.PathEscape(pid))
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &draft); err != nil {
		return domain.RecordDraft{}, err
	}
	return draft, nil
}

// DeleteDraft deletes a draft by pid.
func (c *Client) DeleteDraft(ctx context.Context, pid string) error {
	u := fmt.Sprintf("%s/%s/draft", c.recordsURL, url.PathEscape(pid))
	return c.doJSON(ctx, http.MethodDelete, u, nil, nil)
}

// DeleteRecord deletes a published record by pid.
func (c *Client) DeleteRecord(ctx context.Context, pid string) error {
	u := fmt.Sprintf("%s/%s", c.recordsURL, url.PathEscape(pid))
	return c.doJSON(ctx, http.MethodDelete, u, nil, nil)
}

// ListDraftFiles returns the file names already attached to a draft.
func (c *Client) ListDraftFiles(ctx context.Context, pid string) ([]string, error) {
	u := fmt.Sprintf("%s/%s/draft/files", c.recordsURL, url.PathEscape(pid))

	var result struct {
		Entries []struct {
			Key string `json:"key"`
		} `json:"entries"`
	}
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &result); err != nil {
		return nil, err
	}
	names := make([]string, 0, len(result.Entries))
	for _, e := range result.Entries {
		names = append(names, e.Key)
	}
	return names, nil
}

// RegisterDraftFile records an uploaded object as a file entry of the draft.
func (c *Client) RegisterDraftFile(ctx context.Context, pid, key string) error {
	body, err := json.Marshal([]map[string]string{{"key": key}})
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/%s/draft/files", c.recordsURL, url.PathEscape(pid))
	return c.doJSON(ctx, http.MethodPost, u, body, nil)
}

// Publish publishes a draft through the publish link from its creation
// response.
func (c *Client) Publish(ctx context.Context, publishURL string) error {
	return c.doJSON(ctx, http.MethodPost, publishURL, nil, nil)
}

// ResolveUser looks up a repository user by email.
func (c *Client) ResolveUser(ctx context.Context, email string) (domain.Identity, error) {
	u := fmt.Sprintf("%s/users?q=%s", c.apiRoot(), url.QueryEscape("email:"+email))

	var result struct {
		Hits struct {
			Hits  []domain.Identity `json:"hits"`
			Total int               `json:"total"`
		} `json:"hits"`
	}
	if err := c.doJSON(ctx, http.MethodGet, u, nil, &result); err != nil {
		return domain.Identity{}, err
	}
	if len(result.Hits.Hits) == 0 {
		return domain.Identity{}, uverrors.NotFoundf("no user with email %s", email)
	}
	return result.Hits.Hits[0], nil
}

// CreateCommunity creates a community from the given payload.
func (c *Client) CreateCommunity(ctx context.Context, payload json.RawMessage) (domain.Community, error) {
	var community domain.Community
	u := c.apiRoot() + "/communities"
	if err := c.doJSON(ctx, http.MethodPost, u, payload, &community); err != nil {
		return domain.Community{}, err
	}
	return community, nil
}

// AddCommunityMember adds one member (typically a group) to a community.
func (c *Client) AddCommunityMember(ctx context.Context, communityID string, member domain.CommunityMember, role string, visible bool) error {
	body, err := json.Marshal(map[string]interface{}{
		"members": []domain.CommunityMember{member},
		"role":    role,
		"visible": visible,
	})
	if err != nil {
		return err
	}
	u := fmt.Sprintf("%s/communities/%s/members", c.apiRoot(), url.PathEscape(communityID))
	return c.doJSON(ctx, http.MethodPost, u, body, nil)
}

// CreateVocabularyEntry adds an entry to the vocabulary with the given
// short code.
func (c *Client) CreateVocabularyEntry(ctx context.Context, shortCode string, entry json.RawMessage) error {
	u := fmt.Sprintf("%s/vocabularies/%s", c.apiRoot(), url.PathEscape(shortCode))
	return c.doJSON(ctx, http.MethodPost, u, entry, nil)
}

// CreateVocabularyRecord adds an entry to a vocabulary that has its own
// resource route (subjects, affiliations).
func (c *Client) CreateVocabularyRecord(ctx context.Context, resource string, entry json.RawMessage) error {
	u := fmt.Sprintf("%s/%s", c.apiRoot(), url.PathEscape(resource))
	return c.doJSON(ctx, http.MethodPost, u, entry, nil)
}

// RefreshVocabularyIndex asks the search index to refresh after a vocabulary
// change.
func (c *Client) RefreshVocabularyIndex(ctx context.Context, shortCode string) error {
	u := fmt.Sprintf("%s/vocabularies/%s/_refresh", c.apiRoot(), url.PathEscape(shortCode))
	return c.doJSON(ctx, http.MethodPost, u, nil, nil)
}

func (c *Client) authorize(req *http.Request) {
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
}

// doJSON issues one paced request and decodes a JSON response into out when
// out is non-nil.
func (c *Client) doJSON(ctx context.Context, method, u string, body json.RawMessage, out interface{}) error {
	c.pace()

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	c.authorize(req)

	log.Debugf("%s %s", method, u)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return uverrors.Connectivity(err, "request to %s failed", u)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return statusError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response from %s: %w", u, err)
	}
	return nil
}

// statusError maps an HTTP error response to an error kind, surfacing the
// service's own message when it sends one.
func statusError(resp *http.Response) error {
	msg := serviceMessage(resp)
	switch resp.StatusCode {
	case http.StatusNotFound, http.StatusGone:
		return uverrors.NotFoundf("%s", msg)
	case http.StatusConflict:
		return uverrors.Conflictf("%s", msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return uverrors.Validationf("%s", msg)
	default:
		return uverrors.Genericf("%s", msg)
	}
}

func serviceMessage(resp *http.Response) string {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
	var payload struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &payload); err == nil && payload.Message != "" {
		return payload.Message
	}
	if len(body) > 0 {
		return fmt.Sprintf("%s: %s", resp.Status, strings.TrimSpace(string(body)))
	}
	return resp.Status
}
