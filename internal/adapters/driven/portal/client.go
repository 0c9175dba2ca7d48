package portal

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/encoding/charmap"
	"golang.org/x/time/rate"
)

const (
	// DefaultBaseURL is the production portal host.
	DefaultBaseURL = "https://www.sei.mg.gov.br"

	// DefaultLoginPath is the sign-in entry point.
	DefaultLoginPath = "/sip/login.php?sigla_orgao_sistema=GOVMG&sigla_sistema=SEI&infra_url=L3NlaS8="

	// DefaultControlPath is the case-control page.
	DefaultControlPath = "controlador.php?acao=procedimento_controlar"

	// DefaultUnitSelectorPath lists and switches organisational units.
	DefaultUnitSelectorPath = "controlador.php?acao=infra_unidade_atual_alterar"

	// DefaultTimeout is the HTTP request timeout. Artifact generation
	// can take well over a minute on large cases.
	DefaultTimeout = 2 * time.Minute

	// orgCookieName carries the organisation code across requests.
	orgCookieName = "SIP_U_GOVMG_SEI"

	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 " +
		"(KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

	acceptHTML   = "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8"
	acceptBinary = "application/pdf, */*;q=0.8"
)

// RateLimitConfig bounds the request rate against the portal.
type RateLimitConfig struct {
	// RequestsPerSecond is the sustained rate limit.
	RequestsPerSecond float64

	// BurstSize is the maximum burst size.
	BurstSize int
}

// DefaultRateLimit stays well below what the portal tolerates before
// it starts dropping sessions.
var DefaultRateLimit = RateLimitConfig{RequestsPerSecond: 2.0, BurstSize: 4}

// Config configures the portal adapter.
type Config struct {
	// BaseURL is the portal host, defaulting to DefaultBaseURL.
	BaseURL string

	// LoginPath overrides the sign-in entry point.
	LoginPath string

	// ControlPath overrides the case-control page path.
	ControlPath string

	// UnitSelectorPath overrides the unit-selection page path.
	UnitSelectorPath string

	// OrgCode is the organisation code placed in the session cookie
	// before the first request.
	OrgCode string

	// Timeout bounds each request, defaulting to DefaultTimeout.
	Timeout time.Duration

	// RateLimit bounds the request rate, defaulting to
	// DefaultRateLimit when zero.
	RateLimit RateLimitConfig
}

// client is the shared HTTP layer under the adapter: one cookie jar,
// one rate limiter, Latin-1 aware body decoding.
type client struct {
	http    *http.Client
	base    *url.URL
	seiBase *url.URL
	limiter *rate.Limiter
}

func newClient(cfg Config) (*client, error) {
	baseRaw := cfg.BaseURL
	if baseRaw == "" {
		baseRaw = DefaultBaseURL
	}
	base, err := url.Parse(baseRaw)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base URL %q has no scheme or host", baseRaw)
	}

	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, fmt.Errorf("cookie jar: %w", err)
	}
	if cfg.OrgCode != "" {
		jar.SetCookies(base, []*http.Cookie{{Name: orgCookieName, Value: cfg.OrgCode}})
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}

	rl := cfg.RateLimit
	if rl.RequestsPerSecond <= 0 {
		rl = DefaultRateLimit
	}
	if rl.BurstSize <= 0 {
		rl.BurstSize = 1
	}

	seiBase := *base
	seiBase.Path = "/sei/"
	seiBase.RawQuery = ""

	return &client{
		http:    &http.Client{Jar: jar, Timeout: timeout},
		base:    base,
		seiBase: &seiBase,
		limiter: rate.NewLimiter(rate.Limit(rl.RequestsPerSecond), rl.BurstSize),
	}, nil
}

// absoluteURL resolves a portal href. Relative paths resolve against
// the /sei/ application root, absolute URLs pass through untouched.
func (c *client) absoluteURL(href string) string {
	if href == "" {
		return ""
	}
	if strings.HasPrefix(href, "http://") || strings.HasPrefix(href, "https://") {
		return href
	}
	ref, err := url.Parse(strings.TrimPrefix(href, "/"))
	if err != nil {
		return href
	}
	return c.seiBase.ResolveReference(ref).String()
}

// get fetches a page and returns the decoded markup.
func (c *client) get(ctx context.Context, rawURL string, query url.Values) (string, error) {
	resp, err := c.do(ctx, http.MethodGet, c.withQuery(rawURL, query), nil, acceptHTML)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	return decodeBody(resp)
}

// postForm submits form data and returns the decoded markup.
func (c *client) postForm(ctx context.Context, action string, data url.Values) (string, error) {
	resp, err := c.do(ctx, http.MethodPost, action, strings.NewReader(data.Encode()), acceptHTML)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	return decodeBody(resp)
}

// getBinary fetches a raw artifact, capped at limit bytes.
func (c *client) getBinary(ctx context.Context, rawURL string, limit int64) ([]byte, string, error) {
	resp, err := c.do(ctx, http.MethodGet, rawURL, nil, acceptBinary)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, limit+1))
	if err != nil {
		return nil, "", &RequestError{URL: rawURL, Err: err}
	}
	return body, resp.Header.Get("Content-Type"), nil
}

func (c *client) do(ctx context.Context, method, rawURL string, body io.Reader, accept string) (*http.Response, error) {
	target := c.absoluteURL(rawURL)

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, &RequestError{URL: target, Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", accept)
	if method == http.MethodPost {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{URL: target, Err: err}
	}
	if resp.StatusCode >= 400 {
		resp.Body.Close()
		return nil, &RequestError{URL: target, Status: resp.StatusCode}
	}
	return resp, nil
}

func (c *client) withQuery(rawURL string, query url.Values) string {
	if len(query) == 0 {
		return rawURL
	}
	sep := "?"
	if strings.Contains(rawURL, "?") {
		sep = "&"
	}
	return rawURL + sep + query.Encode()
}

func (c *client) close() {
	c.http.CloseIdleConnections()
}

// decodeBody reads the response as text. The portal serves Latin-1
// pages, declared or not, so that is the default decoding.
func decodeBody(resp *http.Response) (string, error) {
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", &RequestError{URL: resp.Request.URL.String(), Err: err}
	}
	if strings.Contains(strings.ToLower(resp.Header.Get("Content-Type")), "utf-8") {
		return string(raw), nil
	}
	decoded, err := charmap.ISO8859_1.NewDecoder().Bytes(raw)
	if err != nil {
		return string(raw), nil
	}
	return string(decoded), nil
}
