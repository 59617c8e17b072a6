// Package whttp is the HTTP transport shared by the web platform sources.
package whttp

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"golang.org/x/net/html"
)

const UserAgent = "Mozilla/5.0 (X11; Linux x86_64; rv:83.0) Gecko/20100101 Firefox/83.0"

// ErrStatus is returned for non-2xx responses.
var ErrStatus = errors.New("unexpected HTTP status")

// Options configures NewClient.
type Options struct {
	Proxy    string
	RetryMax int
	Timeout  time.Duration
}

// NewClient returns a retrying client. Transport level retries are kept
// short; query level retries are handled by the caller.
func NewClient(opts Options) (*retryablehttp.Client, error) {
	c := retryablehttp.NewClient()
	c.Logger = log.New(io.Discard, "", 0)
	c.RetryMax = opts.RetryMax
	c.RetryWaitMin = 500 * time.Millisecond
	c.RetryWaitMax = 5 * time.Second
	// Hand the last response back instead of a generic "giving up" error.
	c.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.Timeout > 0 {
		c.HTTPClient.Timeout = opts.Timeout
	}

	if opts.Proxy != "" {
		proxyURL, err := url.Parse(opts.Proxy)
		if err != nil {
			return nil, fmt.Errorf("invalid proxy URL: %v", err)
		}
		c.HTTPClient.Transport = &http.Transport{
			Proxy:           http.ProxyURL(proxyURL),
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}
	return c, nil
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Body       []byte
}

// Title returns the HTML title of the body, if it has one.
func (r *Response) Title() (string, bool) {
	doc, err := html.Parse(strings.NewReader(string(r.Body)))
	if err != nil {
		return "", false
	}
	title, ok := traverse(doc)
	if !ok {
		return "", false
	}
	return strings.TrimSpace(strings.NewReplacer("\n", "", "\r", "").Replace(title)), true
}

// Get fetches url and reads the whole body. Non-2xx statuses are returned
// as ErrStatus together with the response.
func Get(ctx context.Context, client *retryablehttp.Client, rawURL string, headers map[string]string) (*Response, error) {
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", UserAgent)
	req.Header.Set("Accept-Language", "en")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	res := &Response{StatusCode: resp.StatusCode, Body: body}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if title, ok := res.Title(); ok && title != "" {
			return res, fmt.Errorf("%w: %d (%s)", ErrStatus, resp.StatusCode, title)
		}
		return res, fmt.Errorf("%w: %d", ErrStatus, resp.StatusCode)
	}
	return res, nil
}

func isTitleElement(n *html.Node) bool {
	return n.Type == html.ElementNode && n.Data == "title"
}

func traverse(n *html.Node) (string, bool) {
	if isTitleElement(n) {
		if n.FirstChild != nil {
			return n.FirstChild.Data, true
		}
		return "", true
	}

	for c := n.FirstChild; c != nil; c = c.NextSibling {
		result, ok := traverse(c)
		if ok {
			return result, ok
		}
	}

	return "", false
}
