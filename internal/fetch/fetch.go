package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	cloudflarebp "github.com/DaRealFreak/cloudflare-bp-go"
	"github.com/go-resty/resty/v2"

	"sjsage522/pricetracker/config"
	"sjsage522/pricetracker/helpers"
	"sjsage522/pricetracker/logger"
	apperrors "sjsage522/pricetracker/pkg/errors"
	"sjsage522/pricetracker/services/cache"
)

// DefaultTimeout bounds a single page retrieval
const DefaultTimeout = 60 * time.Second

// Fetcher retrieves the raw content of a page
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Credentials are the optional login inputs. A SessionToken from a previous
// login takes precedence over email and password.
type Credentials struct {
	Email        string
	Password     string
	SessionToken string
}

// Empty reports whether no credentials were supplied
func (c Credentials) Empty() bool {
	return c.SessionToken == "" && (c.Email == "" || c.Password == "")
}

// Options configure an HTTPFetcher
type Options struct {
	BaseURL        string
	LoginURL       string
	SessionCookie  string
	Timeout        time.Duration
	Cache          cache.CacheService
	SessionTTL     time.Duration
	RateLimitBlock time.Duration
}

// OptionsFromConfig builds fetcher options from the application configuration
func OptionsFromConfig(cfg *config.Config, cacheSvc cache.CacheService) Options {
	return Options{
		BaseURL:        cfg.BaseURL,
		LoginURL:       cfg.LoginURL,
		SessionCookie:  cfg.SessionCookie,
		Timeout:        cfg.FetchTimeout,
		Cache:          cacheSvc,
		SessionTTL:     cfg.SessionTTL,
		RateLimitBlock: cfg.RateLimitBlock,
	}
}

// HTTPFetcher fetches pages over a cookie-carrying resty client
type HTTPFetcher struct {
	client  *resty.Client
	jar     http.CookieJar
	baseURL *url.URL
	opts    Options
	log     *logger.Logger
}

// NewHTTPFetcher creates a fetcher for the site at opts.BaseURL
func NewHTTPFetcher(opts Options) (*HTTPFetcher, error) {
	baseURL, err := url.Parse(opts.BaseURL)
	if err != nil || baseURL.Host == "" {
		return nil, apperrors.NewConfiguration(fmt.Sprintf("invalid base URL %q", opts.BaseURL), err)
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.SessionCookie == "" {
		opts.SessionCookie = "session"
	}
	if opts.LoginURL == "" {
		opts.LoginURL = strings.TrimRight(opts.BaseURL, "/") + "/login"
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}

	client := resty.New()
	client.SetCookieJar(jar)
	client.GetClient().Transport = cloudflarebp.AddCloudFlareByPass(client.GetClient().Transport)
	client.SetTimeout(opts.Timeout)
	client.SetHeader("User-Agent", helpers.RandomUserAgent())

	return &HTTPFetcher{
		client:  client,
		jar:     jar,
		baseURL: baseURL,
		opts:    opts,
		log:     logger.ForComponent("fetcher"),
	}, nil
}

// Login establishes a session. A supplied session token is installed as the
// session cookie without contacting the site; otherwise a cached session for
// the e-mail is reused, and only then is the login form posted.
func (f *HTTPFetcher) Login(ctx context.Context, creds Credentials) error {
	if creds.SessionToken != "" {
		f.SetSessionToken(creds.SessionToken)
		f.log.Info().Msg("Using supplied session token")
		return nil
	}
	if creds.Email == "" || creds.Password == "" {
		return nil
	}

	if f.opts.Cache != nil {
		if token, err := f.opts.Cache.Get(cache.SessionKey(creds.Email)); err == nil && len(token) > 0 {
			f.SetSessionToken(string(token))
			f.log.Info().Str("email", creds.Email).Msg("Reusing cached session")
			return nil
		}
	}

	f.log.Info().Str("email", creds.Email).Msg("Logging in")
	resp, err := f.client.R().
		SetContext(ctx).
		SetHeaders(helpers.BrowserHeaders()).
		SetFormData(map[string]string{
			"return":   "/",
			"email":    creds.Email,
			"password": creds.Password,
		}).
		Post(f.opts.LoginURL)
	if err != nil {
		return f.requestError(ctx, f.opts.LoginURL, err)
	}
	if resp.StatusCode() >= http.StatusBadRequest {
		return apperrors.NewFetch(f.opts.LoginURL, fmt.Sprintf("login returned status %d", resp.StatusCode()), nil)
	}

	token := f.SessionToken()
	if token == "" {
		return apperrors.NewFetch(f.opts.LoginURL, "login did not set a session cookie", nil)
	}

	if f.opts.Cache != nil && f.opts.SessionTTL > 0 {
		if err := f.opts.Cache.Set(cache.SessionKey(creds.Email), []byte(token), f.opts.SessionTTL); err != nil {
			f.log.Warn().Err(err).Msg("Failed to cache session")
		}
	}
	f.log.Info().Msg("Login successful")
	return nil
}

// SetSessionToken installs token as the site's session cookie
func (f *HTTPFetcher) SetSessionToken(token string) {
	f.jar.SetCookies(f.baseURL, []*http.Cookie{{
		Name:  f.opts.SessionCookie,
		Value: token,
		Path:  "/",
	}})
}

// SessionToken returns the current session cookie value, if any
func (f *HTTPFetcher) SessionToken() string {
	for _, c := range f.jar.Cookies(f.baseURL) {
		if c.Name == f.opts.SessionCookie {
			return c.Value
		}
	}
	return ""
}

// Fetch retrieves rawURL and returns its body as UTF-8 text. Failures are
// FetchErrors; the request is not retried.
func (f *HTTPFetcher) Fetch(ctx context.Context, rawURL string) (string, error) {
	host := f.baseURL.Host
	if u, err := url.Parse(rawURL); err == nil && u.Host != "" {
		host = u.Host
	}

	if f.opts.Cache != nil {
		if _, err := f.opts.Cache.Get(cache.RateLimitKey(host)); err == nil {
			return "", apperrors.NewFetch(rawURL,
				fmt.Sprintf("rate limited, not sending requests to %s for up to %s", host, f.opts.RateLimitBlock), nil)
		}
	}

	f.log.Info().Str("url", rawURL).Msg("Fetching page")
	start := time.Now()

	resp, err := f.client.R().
		SetContext(ctx).
		SetHeaders(helpers.BrowserHeaders()).
		Get(rawURL)
	if err != nil {
		return "", f.requestError(ctx, rawURL, err)
	}

	if helpers.IsRateLimitStatus(resp.StatusCode()) {
		if f.opts.Cache != nil && f.opts.RateLimitBlock > 0 {
			value := []byte(fmt.Sprintf("%d", int(f.opts.RateLimitBlock.Seconds())))
			if err := f.opts.Cache.Set(cache.RateLimitKey(host), value, f.opts.RateLimitBlock); err != nil {
				f.log.Warn().Err(err).Msg("Failed to record rate limit")
			}
		}
		return "", apperrors.NewFetch(rawURL, fmt.Sprintf("rate limited (status %d)", resp.StatusCode()), nil)
	}
	if resp.StatusCode() != http.StatusOK {
		return "", apperrors.NewFetch(rawURL, fmt.Sprintf("unexpected status %d", resp.StatusCode()), nil)
	}

	body, err := helpers.ToUTF8(resp.Body(), resp.Header().Get("Content-Type"))
	if err != nil {
		return "", apperrors.NewFetch(rawURL, "could not decode response body", err)
	}

	f.log.Debug().
		Int("bytes", len(body)).
		Dur("elapsed", time.Since(start)).
		Msg("Page fetched")
	return body, nil
}

func (f *HTTPFetcher) requestError(ctx context.Context, rawURL string, err error) error {
	var netErr interface{ Timeout() bool }
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) ||
		(errors.As(err, &netErr) && netErr.Timeout()) {
		return apperrors.NewFetch(rawURL, fmt.Sprintf("request timed out after %s", f.opts.Timeout), err)
	}
	return apperrors.NewFetch(rawURL, "request failed", err)
}
