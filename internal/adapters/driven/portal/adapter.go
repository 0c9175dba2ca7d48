package portal

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
	"github.com/automatiza-mg/sei-cli/internal/logger"
)

// Ensure Adapter implements the port.
var _ driven.PortalAdapter = (*Adapter)(nil)

// binaryCap bounds how much of an artifact response is read. One byte
// past the cap is kept so callers can tell capped from exactly-at-cap.
const binaryCap = 100 << 20

// Adapter is the portal adapter over the real SEI web interface. One
// adapter owns one authenticated session; parallel workers construct
// their own.
type Adapter struct {
	client    *client
	parser    *parser
	endpoints driven.Endpoints
}

// New creates a portal adapter. The organisation cookie is planted
// before the first request; no network activity happens here.
func New(cfg Config) (*Adapter, error) {
	c, err := newClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("portal: %w", err)
	}

	loginPath := cfg.LoginPath
	if loginPath == "" {
		loginPath = DefaultLoginPath
	}
	controlPath := cfg.ControlPath
	if controlPath == "" {
		controlPath = DefaultControlPath
	}
	selectorPath := cfg.UnitSelectorPath
	if selectorPath == "" {
		selectorPath = DefaultUnitSelectorPath
	}

	a := &Adapter{
		client: c,
		parser: &parser{resolve: c.absoluteURL},
		endpoints: driven.Endpoints{
			Login:        c.base.String() + loginPath,
			Control:      c.absoluteURL(controlPath),
			UnitSelector: c.absoluteURL(selectorPath),
		},
	}
	return a, nil
}

// Endpoints returns the portal's well-known URLs.
func (a *Adapter) Endpoints() driven.Endpoints {
	return a.endpoints
}

// Fetch GETs and parses a portal page.
func (a *Adapter) Fetch(ctx context.Context, path string, query url.Values) (*domain.Page, error) {
	markup, err := a.client.get(ctx, path, query)
	if err != nil {
		return nil, err
	}

	page := a.parser.parse(markup)
	if err := a.classify(path, page); err != nil {
		return nil, err
	}
	return page, nil
}

// SubmitForm resubmits a serialised form with the overrides applied.
func (a *Adapter) SubmitForm(ctx context.Context, form domain.Form, fields map[string]string) (*domain.Page, error) {
	if form.Action == "" {
		return nil, fmt.Errorf("portal: form %q has no action", form.Name)
	}

	merged := form.WithFields(fields)
	data := url.Values{}
	for k, v := range merged.Fields {
		data.Set(k, v)
	}

	var markup string
	var err error
	if merged.Method == "get" {
		markup, err = a.client.get(ctx, merged.Action, data)
	} else {
		markup, err = a.client.postForm(ctx, merged.Action, data)
	}
	if err != nil {
		return nil, err
	}

	logger.Debug("Submitted form %q to %s (%d fields)", merged.Name, merged.Action, len(data))

	page := a.parser.parse(markup)
	if err := a.classify(merged.Action, page); err != nil {
		return nil, err
	}
	return page, nil
}

// FetchBinary GETs a raw artifact.
func (a *Adapter) FetchBinary(ctx context.Context, path string) ([]byte, string, error) {
	return a.client.getBinary(ctx, path, binaryCap)
}

// Close releases the underlying HTTP resources.
func (a *Adapter) Close() error {
	a.client.close()
	return nil
}

// classify turns a bounced-to-login response into an expiry signal.
// Requests against the login page itself are exempt: there the login
// form is the expected content, not a bounce.
func (a *Adapter) classify(target string, page *domain.Page) error {
	if strings.Contains(target, "login.php") {
		return nil
	}
	if page.LoggedIn {
		return nil
	}
	for i := range page.Forms {
		if _, ok := page.Forms[i].Fields[driven.LoginFieldUser]; ok {
			return fmt.Errorf("portal: redirected to login: %w", domain.ErrSessionExpired)
		}
	}
	return nil
}
