package cli

import (
	"fmt"
	"path/filepath"

	"github.com/automatiza-mg/sei-cli/internal/adapters/driven/config/file"
	"github.com/automatiza-mg/sei-cli/internal/adapters/driven/debug"
	"github.com/automatiza-mg/sei-cli/internal/adapters/driven/portal"
	"github.com/automatiza-mg/sei-cli/internal/adapters/driven/storage/sqlite"
	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driving"
	"github.com/automatiza-mg/sei-cli/internal/core/services"
)

// stack bundles the wired services for one invocation.
type stack struct {
	session    driving.SessionManager
	collector  driving.Collector
	enricher   driving.Enricher
	downloader driving.Downloader
	pipeline   driving.Pipeline
	history    driven.HistoryStore

	closers []func() error
}

// close releases every resource the stack opened, keeping the first
// error.
func (s *stack) close() error {
	var first error
	for _, c := range s.closers {
		if err := c(); err != nil && first == nil {
			first = err
		}
	}
	return first
}

// stackOptions selects the optional pieces of the stack.
type stackOptions struct {
	dumpHTML bool
	history  bool
}

// newStack is swapped in tests.
var newStack = buildStack

// buildStack wires the portal adapter and services from validated
// settings. Parallel download workers get independent sessions through
// the factory so no cookie jar is shared.
func buildStack(settings *file.Settings, opts stackOptions) (*stack, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	cfg := portal.Config{
		BaseURL: settings.BaseURL,
		OrgCode: settings.OrgCode,
	}
	adapter, err := portal.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("portal adapter: %w", err)
	}

	st := &stack{}
	st.closers = append(st.closers, adapter.Close)

	creds := settings.Credentials()
	session := services.NewSessionManager(adapter, creds, settings.Unit)

	var sink driven.DebugSink
	if opts.dumpHTML || settings.DebugHTML {
		sink = debug.NewFileSink(settings.DumpDir(), settings.DebugHTMLLimit)
	}

	var history driven.HistoryStore
	if opts.history {
		store, err := sqlite.NewStore(settings.DataDir)
		if err != nil {
			_ = st.close()
			return nil, fmt.Errorf("history store: %w", err)
		}
		history = store
		st.closers = append(st.closers, store.Close)
	}

	factory := &sessionFactory{cfg: cfg, creds: creds, unit: settings.Unit}

	st.session = session
	st.collector = services.NewCollector(adapter, session)
	st.enricher = services.NewEnricher(adapter, session, sink)
	st.downloader = services.NewDownloader(adapter, session, factory)
	st.history = history
	st.pipeline = services.NewPipeline(
		st.session, st.collector, st.enricher, st.downloader, history)
	return st, nil
}

// sessionFactory hands each download worker its own adapter and
// session manager.
type sessionFactory struct {
	cfg   portal.Config
	creds domain.Credentials
	unit  string
}

var _ driving.SessionFactory = (*sessionFactory)(nil)

func (f *sessionFactory) NewSession() (driven.PortalAdapter, driving.SessionManager, error) {
	adapter, err := portal.New(f.cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("portal adapter: %w", err)
	}
	return adapter, services.NewSessionManager(adapter, f.creds, f.unit), nil
}

// defaultDownloadDir is where artifacts land when --dir is not given.
func defaultDownloadDir(settings *file.Settings) string {
	return filepath.Join(settings.DataDir, "pdf")
}
