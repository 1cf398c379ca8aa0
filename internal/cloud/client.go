// Package cloud talks to a cloud folder endpoint: pushing session results,
// library entries and bank questions.
package cloud

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/hashicorp/go-multierror"
	"github.com/imroc/req/v3"
	"github.com/pkg/errors"

	"github.com/stemsi/exstem-quiz/internal/model"
)

var (
	// ErrRejected means the endpoint refused the payload; retrying the same
	// payload will not help.
	ErrRejected = errors.New("cloud: payload rejected")
	// ErrNotConfigured means the settings carry no cloud URL or folder.
	ErrNotConfigured = errors.New("cloud: no cloud url or folder configured")
)

// Client pushes to any cloud folder; the target URL comes with each call
// since one device can hold results for several quizzes.
type Client struct {
	http *req.Client
}

func NewClient(timeout time.Duration) *Client {
	c := req.C().
		SetJsonMarshal(json.Marshal).
		SetJsonUnmarshal(json.Unmarshal).
		SetTimeout(timeout).
		SetUserAgent("exstem-quiz")
	return &Client{http: c}
}

// PushResult delivers one finalized session result.
func (c *Client) PushResult(ctx context.Context, target model.CloudConfig, res *model.SessionResult) error {
	return c.post(ctx, target, "results", res)
}

// PushTest saves a quiz into the folder library.
func (c *Client) PushTest(ctx context.Context, target model.CloudConfig, entry *model.PushTestRequest) error {
	return c.post(ctx, target, "tests", entry)
}

// PushBank upserts questions into the folder bank.
func (c *Client) PushBank(ctx context.Context, target model.CloudConfig, questions []model.Question) error {
	return c.post(ctx, target, "bank", &model.PushBankRequest{Questions: questions})
}

func (c *Client) post(ctx context.Context, target model.CloudConfig, kind string, body any) error {
	endpoint, err := Endpoint(target, kind)
	if err != nil {
		return err
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(body).
		Post(endpoint)
	if err != nil {
		return errors.Wrapf(err, "push %s to %s", kind, target.FolderName)
	}
	if resp.IsSuccessState() {
		return nil
	}

	text, bErr := resp.ToString()
	callErr := errors.Errorf("push %s to %s failed with %d: %s", kind, target.FolderName, resp.StatusCode, strings.TrimSpace(text))
	if rejected(resp.StatusCode) {
		callErr = fmt.Errorf("%w: %w", ErrRejected, callErr)
	}
	return multierror.Append(callErr, bErr).ErrorOrNil()
}

// rejected reports whether a status means the payload itself is the problem.
func rejected(status int) bool {
	return status >= 400 && status < 500 &&
		status != http.StatusTooManyRequests &&
		status != http.StatusRequestTimeout
}

// Endpoint builds {cloudUrl}/api/v1/cloud/{folder}/{kind}.
func Endpoint(target model.CloudConfig, kind string) (string, error) {
	if !target.Enabled() {
		return "", ErrNotConfigured
	}
	base, err := url.Parse(strings.TrimRight(target.CloudURL, "/"))
	if err != nil {
		return "", errors.Wrap(err, "parse cloud url")
	}
	return base.JoinPath("api", "v1", "cloud", target.FolderName, kind).String(), nil
}
