package services

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driving"
)

// transientErr satisfies the adapter's transient classification.
type transientErr struct{ msg string }

func (e transientErr) Error() string   { return e.msg }
func (e transientErr) Transient() bool { return true }

// stubResponse is one queued adapter answer.
type stubResponse struct {
	page *domain.Page
	err  error
}

// fakeAdapter is a scriptable driven.PortalAdapter. Responses queue up
// per target; the last queued response repeats once the queue drains.
type fakeAdapter struct {
	mu        sync.Mutex
	endpoints driven.Endpoints
	responses map[string][]stubResponse
	fetched   []string
	submits   []submitCall
	binary    []byte
	binaryCT  string
	binaryErr error
	closed    bool
}

type submitCall struct {
	form   domain.Form
	fields map[string]string
}

func newFakeAdapter() *fakeAdapter {
	return &fakeAdapter{
		endpoints: driven.Endpoints{
			Login:        "login",
			Control:      "control",
			UnitSelector: "units",
		},
		responses: make(map[string][]stubResponse),
		binaryCT:  "application/pdf",
	}
}

// enqueue scripts the next response for a target. Submitted forms are
// keyed as "submit:<form name>".
func (f *fakeAdapter) enqueue(target string, page *domain.Page, err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.responses[target] = append(f.responses[target], stubResponse{page: page, err: err})
}

func (f *fakeAdapter) pop(target string) stubResponse {
	queue := f.responses[target]
	if len(queue) == 0 {
		return stubResponse{err: fmt.Errorf("no response scripted for %q", target)}
	}
	head := queue[0]
	if len(queue) > 1 {
		f.responses[target] = queue[1:]
	}
	return head
}

func (f *fakeAdapter) Endpoints() driven.Endpoints { return f.endpoints }

func (f *fakeAdapter) Fetch(_ context.Context, path string, query url.Values) (*domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	key := path
	if len(query) > 0 {
		key = path + "?" + query.Encode()
	}
	f.fetched = append(f.fetched, key)
	resp := f.pop(key)
	return resp.page, resp.err
}

func (f *fakeAdapter) SubmitForm(_ context.Context, form domain.Form, fields map[string]string) (*domain.Page, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits = append(f.submits, submitCall{form: form, fields: fields})
	resp := f.pop("submit:" + form.Name)
	return resp.page, resp.err
}

func (f *fakeAdapter) FetchBinary(_ context.Context, path string) ([]byte, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetched = append(f.fetched, path)
	return f.binary, f.binaryCT, f.binaryErr
}

func (f *fakeAdapter) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.closed = true
	return nil
}

func (f *fakeAdapter) fetchCount(target string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, key := range f.fetched {
		if key == target {
			n++
		}
	}
	return n
}

// fakeSession is a canned driving.SessionManager for stages that only
// need a ready session.
type fakeSession struct {
	mu       sync.Mutex
	ready    *driving.ReadySession
	err      error
	ensures  int
	resets   int
	warnings []domain.Warning
}

func (s *fakeSession) EnsureReady(_ context.Context) (*driving.ReadySession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ensures++
	if s.err != nil {
		return nil, s.err
	}
	return s.ready, nil
}

func (s *fakeSession) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resets++
}

func (s *fakeSession) Warnings() []domain.Warning { return s.warnings }

// fakeFactory hands out a shared scripted adapter and session pair.
type fakeFactory struct {
	mu       sync.Mutex
	adapter  driven.PortalAdapter
	sessions int
	err      error
}

func (f *fakeFactory) NewSession() (driven.PortalAdapter, driving.SessionManager, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, nil, f.err
	}
	f.sessions++
	return f.adapter, &fakeSession{ready: &driving.ReadySession{ActiveUnit: "UNIT"}}, nil
}

// Page builders shared across the stage tests.

func loginPage() *domain.Page {
	return &domain.Page{
		Title: "SEI / Acesso",
		Forms: []domain.Form{{
			Name:   "frmLogin",
			Action: "login",
			Method: "post",
			Fields: map[string]string{
				driven.LoginFieldUser:   "",
				driven.LoginFieldSecret: "",
				driven.LoginFieldOrg:    "",
				driven.LoginFieldAction: "",
			},
		}},
	}
}

func loggedInPage() *domain.Page {
	return &domain.Page{LoggedIn: true, Title: "SEI - Controle de Processos"}
}

const controlFormName = "frmProcedimentoControlar"

// controlPage builds a logged-in control page with both listings and a
// paging-capable control form.
func controlPage(unit string, received, generated []domain.Case, totalPages int) *domain.Page {
	fields := map[string]string{}
	for _, group := range []string{"Recebidos", "Gerados"} {
		fields[fmt.Sprintf(driven.PagingFieldCurrent, group)] = "0"
		fields[fmt.Sprintf(driven.PagingFieldSelectorUpper, group)] = "0"
		fields[fmt.Sprintf(driven.PagingFieldSelectorLower, group)] = "0"
	}
	return &domain.Page{
		LoggedIn:   true,
		ActiveUnit: unit,
		Forms: []domain.Form{{
			Name:   controlFormName,
			Action: "control",
			Method: "post",
			Fields: fields,
		}},
		Listings: map[domain.Category]domain.Listing{
			domain.CategoryReceived: {
				Present: true,
				Rows:    received,
				Pagination: domain.PageInfo{
					TotalRecords: len(received) * totalPages,
					CurrentPage:  0,
					TotalPages:   totalPages,
					PerPage:      len(received),
				},
			},
			domain.CategoryGenerated: {
				Present: true,
				Rows:    generated,
				Pagination: domain.PageInfo{
					TotalRecords: len(generated) * totalPages,
					CurrentPage:  0,
					TotalPages:   totalPages,
					PerPage:      len(generated),
				},
			},
		},
	}
}

// listingPage builds a follow-up page for one category.
func listingPage(category domain.Category, rows []domain.Case, current, totalPages int) *domain.Page {
	page := controlPage("UNIT", nil, nil, totalPages)
	listing := page.Listings[category]
	listing.Rows = rows
	listing.Pagination.CurrentPage = current
	page.Listings[category] = listing
	return page
}

func caseRow(number string, category domain.Category) domain.Case {
	return domain.Case{
		Number:      number,
		ProcedureID: "id-" + number,
		URL:         "case/" + number,
		Category:    category,
	}
}

var testCreds = domain.Credentials{Login: "user", Secret: "secret", OrgCode: "21"}
