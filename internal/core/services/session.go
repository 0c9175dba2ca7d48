package services

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driving"
	"github.com/automatiza-mg/sei-cli/internal/logger"
)

// Ensure SessionManager implements the interface.
var _ driving.SessionManager = (*SessionManager)(nil)

// SessionState is one state of the session life-cycle machine.
type SessionState int

// Session states, in the order the machine walks them. Ready is the
// only state downstream stages may read under; Degraded is passed
// through when the desired unit cannot be activated.
const (
	StateUnauthenticated SessionState = iota
	StateAuthenticating
	StateAuthenticated
	StateUnitVerifying
	StateUnitSwitching
	StateDegraded
	StateReady
)

// String returns the state name for logs.
func (s SessionState) String() string {
	switch s {
	case StateUnauthenticated:
		return "Unauthenticated"
	case StateAuthenticating:
		return "Authenticating"
	case StateAuthenticated:
		return "Authenticated"
	case StateUnitVerifying:
		return "UnitVerifying"
	case StateUnitSwitching:
		return "UnitSwitching"
	case StateDegraded:
		return "Degraded"
	case StateReady:
		return "Ready"
	}
	return "Unknown"
}

// QueryUnitID is the unit-switch query parameter on the selector page.
const QueryUnitID = "id_unidade"

// SessionManager drives a portal session from cold to a known-good
// unit context. One instance owns exactly one portal session; parallel
// download workers each construct their own.
type SessionManager struct {
	adapter driven.PortalAdapter
	creds   domain.Credentials
	unit    string

	state    SessionState
	ready    *driving.ReadySession
	control  *domain.Page
	warnings []domain.Warning
	resets   int
}

// NewSessionManager creates a session manager for the given desired
// unit. No network activity happens until EnsureReady.
func NewSessionManager(adapter driven.PortalAdapter, creds domain.Credentials, unit string) *SessionManager {
	return &SessionManager{
		adapter: adapter,
		creds:   creds,
		unit:    unit,
		state:   StateUnauthenticated,
	}
}

// EnsureReady walks the state machine until Ready. Once ready,
// subsequent calls return the same session without network activity
// until Reset is called.
func (m *SessionManager) EnsureReady(ctx context.Context) (*driving.ReadySession, error) {
	if m.state == StateReady && m.ready != nil {
		return m.ready, nil
	}
	if m.unit == "" {
		return nil, fmt.Errorf("%w: desired unit is required", domain.ErrConfiguration)
	}
	if m.resets > 1 {
		return nil, fmt.Errorf("%w: session expired twice in a row", domain.ErrAuthentication)
	}

	for m.state != StateReady {
		var err error
		switch m.state {
		case StateUnauthenticated:
			m.state = StateAuthenticating
		case StateAuthenticating:
			err = m.authenticate(ctx)
		case StateAuthenticated:
			m.state = StateUnitVerifying
		case StateUnitVerifying:
			err = m.verifyUnit(ctx)
		case StateUnitSwitching:
			m.switchUnit(ctx)
		case StateDegraded:
			// Switching failure is best effort: continue on the
			// unit that was active before the attempt.
			m.becomeReady(m.control.ActiveUnit, true)
		}
		if err != nil {
			m.state = StateUnauthenticated
			m.ready = nil
			return nil, err
		}
	}

	m.resets = 0
	return m.ready, nil
}

// Reset drops the session after an expiry signal. The next
// EnsureReady call re-authenticates from scratch.
func (m *SessionManager) Reset() {
	logger.Debug("Session reset after expiry signal")
	m.state = StateUnauthenticated
	m.ready = nil
	m.control = nil
	m.resets++
}

// Warnings returns the non-fatal conditions recorded so far.
func (m *SessionManager) Warnings() []domain.Warning {
	return m.warnings
}

// authenticate submits credentials to the portal login form.
// Any failure here is fatal and never retried automatically.
func (m *SessionManager) authenticate(ctx context.Context) error {
	if err := m.creds.Validate(); err != nil {
		return fmt.Errorf("%w: login, secret and org code are required", err)
	}

	ep := m.adapter.Endpoints()
	logger.Info("Opening login page")
	page, err := m.adapter.Fetch(ctx, ep.Login, nil)
	if err != nil {
		return fmt.Errorf("%w: open login page: %w", domain.ErrAuthentication, err)
	}

	form := findForm(page, driven.LoginFieldUser)
	if form == nil {
		return fmt.Errorf("%w: login form not found", domain.ErrAuthentication)
	}

	logger.Info("Submitting credentials as %s", m.creds.Login)
	result, err := m.adapter.SubmitForm(ctx, *form, map[string]string{
		driven.LoginFieldUser:   m.creds.Login,
		driven.LoginFieldSecret: m.creds.Secret,
		driven.LoginFieldOrg:    m.creds.OrgCode,
		driven.LoginFieldAction: driven.LoginActionSubmit,
		driven.LoginFieldSubmit: driven.LoginFieldSubmit,
	})
	if err != nil {
		return fmt.Errorf("%w: submit login: %w", domain.ErrAuthentication, err)
	}

	if !result.LoggedIn {
		return fmt.Errorf("%w: %s", domain.ErrAuthentication, loginFailureReason(result))
	}

	logger.Info("Authenticated")
	m.state = StateAuthenticated
	return nil
}

// verifyUnit reads the active unit from the case-control page and
// decides whether a switch is needed.
func (m *SessionManager) verifyUnit(ctx context.Context) error {
	ep := m.adapter.Endpoints()
	control, err := m.adapter.Fetch(ctx, ep.Control, nil)
	if err != nil {
		return fmt.Errorf("%w: open case control: %w", domain.ErrAuthentication, err)
	}
	m.control = control

	if domain.UnitEqual(control.ActiveUnit, m.unit) {
		logger.Info("Active unit already %q", control.ActiveUnit)
		m.becomeReady(control.ActiveUnit, false)
		return nil
	}

	logger.Info("Active unit %q differs from desired %q", control.ActiveUnit, m.unit)
	m.state = StateUnitSwitching
	return nil
}

// switchUnit tries to activate the desired unit. Failure is non-fatal:
// it records one warning and degrades to the prior unit.
func (m *SessionManager) switchUnit(ctx context.Context) {
	ep := m.adapter.Endpoints()

	selector, err := m.adapter.Fetch(ctx, ep.UnitSelector, nil)
	if err != nil {
		m.degrade(fmt.Sprintf("unit switch: open selector: %v", err))
		return
	}

	var target *domain.UnitOption
	for i := range selector.Units {
		if domain.UnitEqual(selector.Units[i].Name, m.unit) {
			target = &selector.Units[i]
			break
		}
	}
	if target == nil {
		m.degrade(fmt.Sprintf("unit switch: unit %q not offered", m.unit))
		return
	}

	logger.Info("Switching to unit %q (id %s)", target.Name, target.ID)
	if _, err := m.adapter.Fetch(ctx, ep.UnitSelector, url.Values{QueryUnitID: {target.ID}}); err != nil {
		m.degrade(fmt.Sprintf("unit switch: submit selection: %v", err))
		return
	}

	// Reload the control page to confirm consistent state.
	control, err := m.adapter.Fetch(ctx, ep.Control, nil)
	if err != nil {
		m.degrade(fmt.Sprintf("unit switch: reload control: %v", err))
		return
	}
	m.control = control

	if !domain.UnitEqual(control.ActiveUnit, m.unit) {
		m.degrade(fmt.Sprintf("unit switch: portal kept unit %q", control.ActiveUnit))
		return
	}

	logger.Info("Unit switch confirmed: %q", control.ActiveUnit)
	m.becomeReady(control.ActiveUnit, false)
}

func (m *SessionManager) degrade(message string) {
	logger.Warn("%s", message)
	m.warnings = append(m.warnings, domain.Warning{Stage: domain.StageSession, Message: message})
	m.state = StateDegraded
}

func (m *SessionManager) becomeReady(unit string, degraded bool) {
	m.ready = &driving.ReadySession{
		ActiveUnit: unit,
		Degraded:   degraded,
		Control:    m.control,
	}
	m.state = StateReady
}

// findForm returns the first form carrying the given field, falling
// back to the first form on the page.
func findForm(page *domain.Page, field string) *domain.Form {
	for i := range page.Forms {
		if _, ok := page.Forms[i].Fields[field]; ok {
			return &page.Forms[i]
		}
	}
	if len(page.Forms) > 0 {
		return &page.Forms[0]
	}
	return nil
}

// loginFailureReason maps the post-login page to a cause: invalid
// credentials, a locked account or an unrecognised page shape.
func loginFailureReason(page *domain.Page) string {
	body := strings.ToLower(page.Alert + " " + page.RawHTML)
	switch {
	case strings.Contains(body, "senha") && strings.Contains(body, "inval"):
		return "invalid credentials"
	case strings.Contains(body, "inval"):
		return "invalid credentials"
	case strings.Contains(body, "bloque"):
		return "account locked"
	}
	return "login not confirmed"
}
