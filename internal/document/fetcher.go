// Package document acquires the instance-types HTML document, from the
// network or disk, and turns it into a goquery document.
package document

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/PuerkitoBio/rehttp"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// DefaultSourceURL is the vendor page describing instance types.
const DefaultSourceURL = "https://aws.amazon.com/ec2/instance-types/"

type RetryConfig struct {
	MaxRetries      int
	TemporaryErrors bool
	BaseDelay       time.Duration
	MaxDelay        time.Duration
	Statuses        []int
	Timeout         time.Duration
}

func NewDefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxRetries:      5,
		TemporaryErrors: true,
		BaseDelay:       100 * time.Millisecond,
		MaxDelay:        5 * time.Second,
		Timeout:         time.Minute,
		Statuses: []int{
			http.StatusTooManyRequests,
			http.StatusInternalServerError,
			http.StatusBadGateway,
			http.StatusServiceUnavailable,
			http.StatusGatewayTimeout,
		},
	}
}

// NewHTTPClient returns a client that retries idempotent GETs on the
// configured statuses and on temporary network errors.
func NewHTTPClient(conf RetryConfig) *http.Client {
	statusRetries := []rehttp.RetryFn{}
	if len(conf.Statuses) > 0 {
		statusRetries = append(statusRetries, rehttp.RetryStatuses(conf.Statuses...))
	} else {
		conf.TemporaryErrors = true
	}
	if conf.TemporaryErrors {
		statusRetries = append(statusRetries, rehttp.RetryTemporaryErr())
	}

	retryFns := []rehttp.RetryFn{
		rehttp.RetryAny(statusRetries...),
		rehttp.RetryHTTPMethods(http.MethodGet),
	}
	if conf.MaxRetries > 0 {
		retryFns = append(retryFns, rehttp.RetryMaxRetries(conf.MaxRetries))
	}

	transport := rehttp.NewTransport(http.DefaultTransport,
		rehttp.RetryAll(retryFns...),
		rehttp.ExpJitterDelay(conf.BaseDelay, conf.MaxDelay))

	return &http.Client{Timeout: conf.Timeout, Transport: transport}
}

// Fetcher downloads documents, serving them from Cache when possible.
type Fetcher struct {
	Client *http.Client
	Cache  Cache
}

func NewFetcher(client *http.Client, cache Cache) *Fetcher {
	return &Fetcher{Client: client, Cache: cache}
}

// Fetch returns the body of url. A failure to write the cache is logged and
// does not fail the fetch.
func (f *Fetcher) Fetch(ctx context.Context, url string) ([]byte, error) {
	if f.Cache != nil {
		body, err := f.Cache.Get(ctx, url)
		if err == nil {
			logrus.Debugf("serving %s from cache", url)
			return body, nil
		}
		if err != ErrCacheMiss {
			logrus.Warnf("cache lookup for %s failed: %v", url, err)
		}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, errors.Wrapf(err, "build request for %s", url)
	}
	client := f.Client
	if client == nil {
		client = NewHTTPClient(NewDefaultRetryConfig())
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "fetch %s", url)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("fetch %s: unexpected status %s", url, resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Wrapf(err, "read %s", url)
	}

	if f.Cache != nil {
		if err := f.Cache.Put(ctx, url, body); err != nil {
			logrus.Warnf("caching %s failed: %v", url, err)
		}
	}
	return body, nil
}

// Load parses source, an http(s) URL fetched through f or a local file path.
func Load(ctx context.Context, f *Fetcher, source string) (*goquery.Document, error) {
	var r io.Reader
	if isURL(source) {
		if f == nil {
			f = NewFetcher(nil, nil)
		}
		body, err := f.Fetch(ctx, source)
		if err != nil {
			return nil, err
		}
		r = bytes.NewReader(body)
	} else {
		file, err := os.Open(source)
		if err != nil {
			return nil, errors.Wrapf(err, "open %s", source)
		}
		defer file.Close()
		r = file
	}

	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errors.Wrapf(err, "parse %s", source)
	}
	return doc, nil
}

func isURL(source string) bool {
	return strings.HasPrefix(source, "http://") || strings.HasPrefix(source, "https://")
}
