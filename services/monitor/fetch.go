package monitor

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http/cookiejar"
	"time"

	"storewatch-backend/lib/agentpool"
	"storewatch-backend/lib/telemetry"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/PuerkitoBio/goquery"
	"github.com/go-resty/resty/v2"
	"github.com/mazen160/go-random"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/net/html/charset"
)

// pagination stops after this many pages no matter what the site's
// next links claim
const defaultMaxPages = 50

// Page is one fetched and parsed catalog page.
type Page struct {
	Url string
	Doc *goquery.Document
}

type FetcherOptions struct {
	// defaults to defaultMaxPages
	MaxPages int
	// attempts per page beyond the first, defaults to 2
	RetryCount int
	// defaults to 2s
	RetryWaitTime time.Duration
	// defaults to 30s
	Timeout time.Duration
	// disables the random inter-request jitter in tests
	NoJitter bool
}

// Fetcher walks a store's catalog pages in order, rotating the user
// agent per request and honoring the store's inter-request delay.
type Fetcher struct {
	http     *resty.Client
	rotator  *agentpool.Rotator
	maxPages int
	noJitter bool
}

func NewFetcher(rotator *agentpool.Rotator, opts FetcherOptions) (*Fetcher, error) {
	if opts.MaxPages == 0 {
		opts.MaxPages = defaultMaxPages
	}
	if opts.RetryCount == 0 {
		opts.RetryCount = 2
	}
	if opts.RetryWaitTime == 0 {
		opts.RetryWaitTime = time.Second * 2
	}
	if opts.Timeout == 0 {
		opts.Timeout = time.Second * 30
	}

	client := resty.New()
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(opts.Timeout)
	client.SetRetryCount(opts.RetryCount)
	client.SetRetryWaitTime(opts.RetryWaitTime)
	client.SetRetryMaxWaitTime(opts.RetryWaitTime * 5)
	client.AddRetryCondition(func(res *resty.Response, err error) bool {
		return err != nil || res.StatusCode() >= 500 || res.StatusCode() == 429
	})

	telemetry.InstrumentResty(client, "monitor/fetch")

	return &Fetcher{
		http:     client,
		rotator:  rotator,
		maxPages: opts.MaxPages,
		noJitter: opts.NoJitter,
	}, nil
}

// FetchPages retrieves the store's catalog starting at base_url and
// following next links until exhausted, a url repeats, or the page
// bound is hit. A page that still fails after retries aborts the
// whole fetch with a *FetchError, partial pages are discarded.
func (f *Fetcher) FetchPages(ctx context.Context, store StoreConfig) ([]Page, error) {
	ctx, span := tracer.Start(ctx, "FetchPages")
	defer span.End()

	visited := map[string]bool{}
	currentUrl := store.Options.BaseUrl

	var pages []Page
	for len(pages) < f.maxPages {
		if visited[currentUrl] {
			slog.DebugContext(ctx, "url already visited, stopping pagination", "store", store.Name, "url", currentUrl)
			break
		}
		visited[currentUrl] = true

		doc, err := f.fetchPage(ctx, store, currentUrl)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "fetch aborted")
			return nil, err
		}
		pages = append(pages, Page{Url: currentUrl, Doc: doc})

		nextUrl := NextPageUrl(doc, store.Options)
		if nextUrl == "" {
			slog.DebugContext(ctx, "pagination complete", "store", store.Name, "pages", len(pages))
			break
		}
		if visited[nextUrl] {
			slog.DebugContext(ctx, "next url already visited, stopping pagination", "store", store.Name, "url", nextUrl)
			break
		}

		err = f.delay(ctx, store.Options)
		if err != nil {
			return nil, err
		}
		currentUrl = nextUrl
	}

	return pages, nil
}

func (f *Fetcher) fetchPage(ctx context.Context, store StoreConfig, url string) (*goquery.Document, error) {
	agent, err := f.rotator.Next()
	if err != nil {
		return nil, &FetchError{Store: store.Name, Url: url, Err: err}
	}
	slog.DebugContext(ctx, "fetching page", "store", store.Name, "url", url, "agent", agent)

	res, err := f.http.R().
		SetContext(ctx).
		SetHeader("User-Agent", agent).
		Get(url)
	if err != nil {
		return nil, &FetchError{Store: store.Name, Url: url, Err: err}
	}
	if res.IsError() {
		return nil, &FetchError{
			Store: store.Name,
			Url:   url,
			Err:   fmt.Errorf("unexpected status %d", res.StatusCode()),
		}
	}

	body := decodeBody(ctx, res.Body(), res.Header().Get("Content-Type"), store.Options.Encoding)
	doc, err := goquery.NewDocumentFromReader(body)
	if err != nil {
		return nil, &FetchError{Store: store.Name, Url: url, Err: err}
	}
	return doc, nil
}

// decodeBody converts the raw page bytes to utf-8 using the store's
// configured encoding, falling back to content-type/meta sniffing and
// finally to the raw bytes as-is.
func decodeBody(ctx context.Context, raw []byte, contentType, encoding string) io.Reader {
	if encoding != "" {
		reader, err := charset.NewReaderLabel(encoding, bytes.NewReader(raw))
		if err == nil {
			return reader
		}
		slog.WarnContext(ctx, "unknown configured encoding, falling back to detection", "encoding", encoding, "err", err)
	}

	reader, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err == nil {
		return reader
	}
	slog.WarnContext(ctx, "failed to detect encoding, using raw bytes", "err", err)
	return bytes.NewReader(raw)
}

// delay sleeps the store's configured pacing plus up to 2s of random
// jitter so requests never land on an exact beat.
func (f *Fetcher) delay(ctx context.Context, opts StoreOptions) error {
	wait := time.Duration(opts.DelayBetweenRequests * float64(time.Second))
	if !f.noJitter {
		jitterMs, err := random.IntRange(0, 2000)
		if err == nil {
			wait += time.Duration(jitterMs) * time.Millisecond
		}
	}
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
