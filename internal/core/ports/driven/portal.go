package driven

import (
	"context"
	"errors"
	"net/url"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
)

// PortalAdapter performs authenticated portal requests and returns
// parsed page structures. It owns the HTTP session (cookies, encoding,
// rate limiting); the orchestration core only sees domain.Page values.
//
// Implementations classify failures: errors wrapping
// domain.ErrSessionExpired reset the session state machine, errors
// satisfying IsTransient feed the retry loops, anything else is
// treated as permanent for the operation at hand.
type PortalAdapter interface {
	// Endpoints returns the portal's well-known paths.
	Endpoints() Endpoints

	// Fetch GETs a page and parses it. path may be absolute or
	// relative to the portal base URL.
	Fetch(ctx context.Context, path string, query url.Values) (*domain.Page, error)

	// SubmitForm posts a serialised form with the given field
	// overrides applied and parses the response.
	SubmitForm(ctx context.Context, form domain.Form, fields map[string]string) (*domain.Page, error)

	// FetchBinary GETs a raw artifact, returning the body and the
	// response content type.
	FetchBinary(ctx context.Context, path string) ([]byte, string, error)

	// Close releases the underlying HTTP resources.
	Close() error
}

// Endpoints are the portal paths the orchestration flows start from.
// They come from configuration; the core never hard-codes them.
type Endpoints struct {
	// Login is the authentication page.
	Login string

	// Control is the case-control page listing both categories.
	Control string

	// UnitSelector is the unit-selection page.
	UnitSelector string
}

// Login form field names, part of the adapter contract.
const (
	LoginFieldUser   = "txtUsuario"
	LoginFieldSecret = "pwdSenha"
	LoginFieldOrg    = "selOrgao"
	LoginFieldAction = "hdnAcao"
	LoginFieldSubmit = "Acessar"

	// LoginActionSubmit is the hdnAcao value for a credential post.
	LoginActionSubmit = "2"
)

// Pagination field-name templates on the control form; the category's
// portal group name ("Recebidos"/"Gerados") fills the slot.
const (
	PagingFieldCurrent       = "hdn%sPaginaAtual"
	PagingFieldSelectorUpper = "sel%sPaginacaoSuperior"
	PagingFieldSelectorLower = "sel%sPaginacaoInferior"
)

// Artifact-generation form fields.
const (
	PDFFieldGenerate = "hdnFlagGerar"
	PDFFieldType     = "rdoTipo"
	PDFFieldSubmit   = "btnGerar"
	PDFGenerateOn    = "1"
	PDFTypeAll       = "T"
	PDFSubmitLabel   = "Gerar"
)

// transienter is implemented by adapter errors that are worth
// retrying (timeouts, transport failures, 5xx responses).
type transienter interface {
	Transient() bool
}

// IsTransient reports whether the error is classified as transient by
// the adapter that produced it.
func IsTransient(err error) bool {
	var t transienter
	return errors.As(err, &t) && t.Transient()
}
