package services

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
	"github.com/automatiza-mg/sei-cli/internal/core/ports/driven"
)

const generationForm = "frmGerarPdf"

// scriptArtifactFlow scripts the full happy path for one case: case
// page, tree, generation options, form submit, binary.
func scriptArtifactFlow(adapter *fakeAdapter, c domain.Case) {
	adapter.enqueue(c.URL, casePageWithTree("tree/"+c.Number), nil)
	adapter.enqueue("tree/"+c.Number,
		&domain.Page{LoggedIn: true, PDFLink: "pdfopts/" + c.Number}, nil)
	adapter.enqueue("pdfopts/"+c.Number, &domain.Page{
		LoggedIn: true,
		Forms: []domain.Form{{
			Name:   generationForm,
			Action: "controlador.php?acao=procedimento_gerar_pdf",
			Method: "post",
			Fields: map[string]string{driven.PDFFieldType: driven.PDFTypeAll},
		}},
	}, nil)
	adapter.enqueue("submit:"+generationForm,
		&domain.Page{LoggedIn: true, DownloadURL: "bin/" + c.Number}, nil)
	adapter.binary = []byte("%PDF-1.7 fake body")
}

func quietDownloader(adapter *fakeAdapter, session *fakeSession) (*Downloader, *[]time.Duration) {
	d := NewDownloader(adapter, session, nil)
	var sleeps []time.Duration
	d.sleep = func(dur time.Duration) { sleeps = append(sleeps, dur) }
	return d, &sleeps
}

func TestDownloadAll_Sequential(t *testing.T) {
	first := caseRow("1500.01.0000001/2026-11", domain.CategoryReceived)
	second := caseRow("1500.01.0000002/2026-22", domain.CategoryReceived)

	adapter := newFakeAdapter()
	scriptArtifactFlow(adapter, first)
	scriptArtifactFlow(adapter, second)

	dir := t.TempDir()
	d, sleeps := quietDownloader(adapter, &fakeSession{})
	report, err := d.DownloadAll(context.Background(),
		[]domain.Case{first, second}, domain.DownloadOptions{Enabled: true, Dir: dir})

	require.NoError(t, err)
	assert.Equal(t, 2, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	require.Len(t, report.Outcomes, 2)
	assert.Equal(t, 1, report.Outcomes[0].Attempts)

	data, err := os.ReadFile(report.Outcomes[0].Path)
	require.NoError(t, err)
	assert.Equal(t, "%PDF-1.7 fake body", string(data))

	// One pause between the two cases, none after the last.
	assert.Equal(t, []time.Duration{interCasePause}, *sleeps)
}

func TestDownloadAll_SubmitsGenerationFlag(t *testing.T) {
	c := caseRow("1500.01.0000001/2026-11", domain.CategoryReceived)
	adapter := newFakeAdapter()
	scriptArtifactFlow(adapter, c)

	d, _ := quietDownloader(adapter, &fakeSession{})
	_, err := d.DownloadAll(context.Background(), []domain.Case{c},
		domain.DownloadOptions{Enabled: true, Dir: t.TempDir()})

	require.NoError(t, err)
	require.Len(t, adapter.submits, 1)
	fields := adapter.submits[0].fields
	assert.Equal(t, driven.PDFGenerateOn, fields[driven.PDFFieldGenerate])
	assert.Equal(t, driven.PDFSubmitLabel, fields[driven.PDFFieldSubmit])
}

func TestDownloadAll_RetriesThenSucceeds(t *testing.T) {
	c := caseRow("1500.01.0000001/2026-11", domain.CategoryReceived)
	adapter := newFakeAdapter()
	adapter.enqueue(c.URL, nil, transientErr{msg: "bad gateway"})
	scriptArtifactFlow(adapter, c)

	d, sleeps := quietDownloader(adapter, &fakeSession{})
	report, err := d.DownloadAll(context.Background(), []domain.Case{c},
		domain.DownloadOptions{Enabled: true, Dir: t.TempDir(), Retries: 3})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 2, report.Outcomes[0].Attempts)
	assert.Equal(t, []time.Duration{backoff(1)}, *sleeps)
}

func TestDownloadAll_FailureKeepsBatchGoing(t *testing.T) {
	broken := caseRow("1500.01.0000001/2026-11", domain.CategoryReceived)
	healthy := caseRow("1500.01.0000002/2026-22", domain.CategoryReceived)

	adapter := newFakeAdapter()
	adapter.enqueue(broken.URL, nil, transientErr{msg: "portal down"})
	scriptArtifactFlow(adapter, healthy)

	d, _ := quietDownloader(adapter, &fakeSession{})
	report, err := d.DownloadAll(context.Background(),
		[]domain.Case{broken, healthy},
		domain.DownloadOptions{Enabled: true, Dir: t.TempDir(), Retries: 2})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, report.Failed)
	assert.Equal(t, broken.Number, report.Outcomes[0].CaseNumber)
	assert.Contains(t, report.Outcomes[0].Reason, "portal down")
	assert.Equal(t, 2, report.Outcomes[0].Attempts)
}

func TestDownloadAll_MissingGenerationLink(t *testing.T) {
	c := caseRow("1500.01.0000001/2026-11", domain.CategoryReceived)
	adapter := newFakeAdapter()
	adapter.enqueue(c.URL, casePageWithTree("tree/1"), nil)
	adapter.enqueue("tree/1", &domain.Page{LoggedIn: true}, nil)

	d, _ := quietDownloader(adapter, &fakeSession{})
	report, err := d.DownloadAll(context.Background(), []domain.Case{c},
		domain.DownloadOptions{Enabled: true, Dir: t.TempDir()})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Outcomes[0].Reason, "generation link missing")
}

func TestDownloadAll_RejectsNonPDF(t *testing.T) {
	c := caseRow("1500.01.0000001/2026-11", domain.CategoryReceived)
	adapter := newFakeAdapter()
	scriptArtifactFlow(adapter, c)
	adapter.binaryCT = "text/html; charset=iso-8859-1"

	d, _ := quietDownloader(adapter, &fakeSession{})
	report, err := d.DownloadAll(context.Background(), []domain.Case{c},
		domain.DownloadOptions{Enabled: true, Dir: t.TempDir()})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Outcomes[0].Reason, "not a PDF")
}

func TestDownloadAll_RejectsEmptyBody(t *testing.T) {
	c := caseRow("1500.01.0000001/2026-11", domain.CategoryReceived)
	adapter := newFakeAdapter()
	scriptArtifactFlow(adapter, c)
	adapter.binary = nil

	d, _ := quietDownloader(adapter, &fakeSession{})
	report, err := d.DownloadAll(context.Background(), []domain.Case{c},
		domain.DownloadOptions{Enabled: true, Dir: t.TempDir()})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Failed)
	assert.Contains(t, report.Outcomes[0].Reason, "empty artifact")
}

func TestDownloadAll_ResetsSessionOnExpiry(t *testing.T) {
	c := caseRow("1500.01.0000001/2026-11", domain.CategoryReceived)
	adapter := newFakeAdapter()
	adapter.enqueue(c.URL, nil, domain.ErrSessionExpired)
	scriptArtifactFlow(adapter, c)

	session := &fakeSession{}
	d, _ := quietDownloader(adapter, session)
	report, err := d.DownloadAll(context.Background(), []domain.Case{c},
		domain.DownloadOptions{Enabled: true, Dir: t.TempDir(), Retries: 2})

	require.NoError(t, err)
	assert.Equal(t, 1, report.Succeeded)
	assert.Equal(t, 1, session.resets)
}

func TestDownloadAll_HonoursLimit(t *testing.T) {
	first := caseRow("1500.01.0000001/2026-11", domain.CategoryReceived)
	second := caseRow("1500.01.0000002/2026-22", domain.CategoryReceived)

	adapter := newFakeAdapter()
	scriptArtifactFlow(adapter, first)

	d, _ := quietDownloader(adapter, &fakeSession{})
	report, err := d.DownloadAll(context.Background(),
		[]domain.Case{first, second},
		domain.DownloadOptions{Enabled: true, Dir: t.TempDir(), Limit: 1})

	require.NoError(t, err)
	assert.Len(t, report.Outcomes, 1)
	assert.Equal(t, 0, adapter.fetchCount(second.URL))
}

func TestDownloadAll_Parallel(t *testing.T) {
	var cases []domain.Case
	adapter := newFakeAdapter()
	for i := 0; i < 40; i++ {
		c := caseRow(fmt.Sprintf("1500.01.%07d/2026-%02d", i+1, i+10), domain.CategoryReceived)
		scriptArtifactFlow(adapter, c)
		cases = append(cases, c)
	}

	factory := &fakeFactory{adapter: adapter}
	d := NewDownloader(newFakeAdapter(), &fakeSession{}, factory)
	d.sleep = func(time.Duration) {}

	report, err := d.DownloadAll(context.Background(), cases, domain.DownloadOptions{
		Enabled:  true,
		Dir:      t.TempDir(),
		Parallel: true,
		Workers:  4,
	})

	require.NoError(t, err)
	assert.Equal(t, 40, report.Succeeded)
	assert.Equal(t, 0, report.Failed)
	assert.Equal(t, 4, factory.sessions)
	require.Len(t, report.Outcomes, 40)

	// Every case appears exactly once in the report.
	seen := make(map[string]int)
	for _, outcome := range report.Outcomes {
		seen[outcome.CaseNumber]++
	}
	for _, c := range cases {
		assert.Equal(t, 1, seen[c.Number], c.Number)
	}
}

func TestDownloadOne(t *testing.T) {
	c := caseRow("1500.01.0000001/2026-11", domain.CategoryReceived)
	adapter := newFakeAdapter()
	scriptArtifactFlow(adapter, c)

	dir := t.TempDir()
	d, _ := quietDownloader(adapter, &fakeSession{})
	outcome := d.DownloadOne(context.Background(), &c, dir)

	assert.True(t, outcome.Succeeded)
	assert.Equal(t, 1, outcome.Attempts)
	assert.Equal(t, filepath.Join(dir, ArtifactFilename(c.Number)), outcome.Path)
	assert.FileExists(t, outcome.Path)
}

func TestArtifactFilename(t *testing.T) {
	assert.Equal(t, "processo_1500_01_0310980_2025-88.pdf",
		ArtifactFilename("1500.01.0310980/2025-88"))
	assert.Equal(t, "processo_artifact.pdf", ArtifactFilename("///"))
}
