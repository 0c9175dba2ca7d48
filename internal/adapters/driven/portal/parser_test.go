package portal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
)

func testParser(t *testing.T) *parser {
	t.Helper()
	c, err := newClient(Config{BaseURL: "https://www.sei.mg.gov.br"})
	require.NoError(t, err)
	return &parser{resolve: c.absoluteURL}
}

const controlPage = `<html>
<head><title>SEI - Controle de Processos</title></head>
<body>
<a id="lnkInfraUnidade" href="#" title="SEPLAG/AUTOMATIZAMG">SEPLAG/AUTOMATIZAMG</a>
<div id="divInfraMensagens"><div class="alert alert-warning">Aviso de manutencao</div></div>
<form id="frmProcedimentoControlar" name="frmProcedimentoControlar" action="controlador.php?acao=procedimento_controlar" method="post">
<input type="hidden" name="hdnInfraCampos" value="numero,unidade"/>
<input type="hidden" id="hdnRecebidosPaginaAtual" name="hdnRecebidosPaginaAtual" value="0"/>
<input type="hidden" id="hdnGeradosPaginaAtual" name="hdnGeradosPaginaAtual" value="0"/>
<select name="selRecebidosPaginacaoSuperior"><option value="0" selected>1</option><option value="1">2</option><option value="2">3</option></select>
<select name="selRecebidosPaginacaoInferior"><option value="0" selected>1</option><option value="1">2</option><option value="2">3</option></select>
<input type="radio" name="rdoOrdenacao" value="data"/>
<input type="radio" name="rdoOrdenacao" value="numero" checked/>
<input type="radio" name="rdoVisao" value="resumida"/>
<input type="radio" name="rdoVisao" value="detalhada"/>
<input type="checkbox" name="chkSinExibirAnotacoes" value="S"/>
<textarea name="txtObservacao">  anotado  </textarea>
<table id="tblProcessosRecebidos">
<caption>Processos Recebidos - 120 registros - 1 a 50</caption>
<tr id="P100"><td>
<a class="processoVisualizado"
   href="controlador.php?acao=procedimento_trabalhar&amp;id_procedimento=100&amp;infra_hash=h100"
   onmouseover="return infraTooltipMostrar('Pagamento de bolsa','Memorando')">1500. 01. 0310980/2025 - 88</a>
<a href="controlador.php?acao=procedimento_atribuicao_listar&amp;id_procedimento=100" title="Atribuído para Maria Souza">maria.souza</a>
<a onmouseover="return infraTooltipMostrar('Urgente','')"><img class="imagemStatus" src="imagens/marcador_vermelho.svg"/></a>
<img src="imagens/exclamacao.svg"/>
</td></tr>
<tr id="P101"><td>
<a href="controlador.php?acao=procedimento_trabalhar&amp;id_procedimento=101&amp;infra_hash=h101">1500.01.0000001/2024-11</a>
<img src="imagens/anotacao_laranja.svg"/>
</td></tr>
</table>
<table id="tblProcessosGerados">
<caption>Processos Gerados - 2 registros</caption>
<tr id="P200"><td>
<a href="controlador.php?acao=procedimento_trabalhar&amp;id_procedimento=200&amp;infra_hash=h200">9999.01.7654321/2023-55</a>
</td></tr>
</table>
</form>
<a href="sair.php">Sair</a>
</body></html>`

func TestParseControlPage(t *testing.T) {
	page := testParser(t).parse(controlPage)

	assert.Equal(t, "SEI - Controle de Processos", page.Title)
	assert.True(t, page.LoggedIn)
	assert.Equal(t, "SEPLAG/AUTOMATIZAMG", page.ActiveUnit)
	assert.Equal(t, "Aviso de manutencao", page.Alert)
}

func TestParseControlForm(t *testing.T) {
	page := testParser(t).parse(controlPage)

	require.Len(t, page.Forms, 1)
	form := page.Forms[0]

	assert.Equal(t, "frmProcedimentoControlar", form.Name)
	assert.Equal(t, "post", form.Method)
	assert.Equal(t, "https://www.sei.mg.gov.br/sei/controlador.php?acao=procedimento_controlar", form.Action)

	assert.Equal(t, "numero,unidade", form.Fields["hdnInfraCampos"])
	assert.Equal(t, "0", form.Fields["hdnRecebidosPaginaAtual"])
	assert.Equal(t, "0", form.Fields["selRecebidosPaginacaoSuperior"])

	// Checked radio wins, an unchecked group falls back to its first
	// value, unchecked checkboxes stay out entirely.
	assert.Equal(t, "numero", form.Fields["rdoOrdenacao"])
	assert.Equal(t, "resumida", form.Fields["rdoVisao"])
	assert.NotContains(t, form.Fields, "chkSinExibirAnotacoes")

	assert.Equal(t, "anotado", form.Fields["txtObservacao"])
}

func TestParseControlListings(t *testing.T) {
	page := testParser(t).parse(controlPage)

	received := page.Listings[domain.CategoryReceived]
	require.True(t, received.Present)
	require.Len(t, received.Rows, 2)

	first := received.Rows[0]
	assert.Equal(t, "1500.01.0310980/2025-88", first.Number)
	assert.Equal(t, "100", first.ProcedureID)
	assert.Equal(t, "h100", first.Hash)
	assert.Equal(t, domain.CategoryReceived, first.Category)
	assert.True(t, first.Viewed)
	assert.Equal(t, "Pagamento de bolsa", first.Title)
	assert.Equal(t, "Memorando", first.TypeSpec)
	assert.Equal(t, "Maria Souza", first.AssigneeName)
	assert.Equal(t, "maria.souza", first.AssigneeID)
	assert.Equal(t, []string{"Urgente"}, first.Markers)
	assert.True(t, first.HasNewDocuments)
	assert.False(t, first.HasAnnotations)
	assert.Contains(t, first.URL, "https://www.sei.mg.gov.br/sei/controlador.php")

	second := received.Rows[1]
	assert.Equal(t, "1500.01.0000001/2024-11", second.Number)
	assert.False(t, second.Viewed)
	assert.True(t, second.HasAnnotations)

	generated := page.Listings[domain.CategoryGenerated]
	require.True(t, generated.Present)
	require.Len(t, generated.Rows, 1)
	assert.Equal(t, "9999.01.7654321/2023-55", generated.Rows[0].Number)
	assert.Equal(t, domain.CategoryGenerated, generated.Rows[0].Category)
}

func TestParseControlPagination(t *testing.T) {
	page := testParser(t).parse(controlPage)

	received := page.Listings[domain.CategoryReceived].Pagination
	assert.Equal(t, 120, received.TotalRecords)
	assert.Equal(t, 50, received.PerPage)
	assert.Equal(t, 0, received.CurrentPage)
	assert.Equal(t, 3, received.TotalPages)
	assert.True(t, received.HasNext())

	// Without a range in the caption the row count stands in for the
	// page size.
	generated := page.Listings[domain.CategoryGenerated].Pagination
	assert.Equal(t, 2, generated.TotalRecords)
	assert.Equal(t, 1, generated.PerPage)
	assert.Equal(t, 2, generated.TotalPages)
}

func TestParseUnitSelector(t *testing.T) {
	markup := `<html><body>
<a href="sair.php">Sair</a>
<select id="selInfraUnidades" name="selInfraUnidades">
<option value="110000001">SEPLAG/AUTOMATIZAMG</option>
<option value="110000002" selected>SEPLAG/DCGP</option>
</select>
<table>
<tr><td><a href="controlador.php?acao=infra_unidade_atual_alterar&amp;id_unidade=110000003&amp;infra_hash=u3">SEPLAG/GAB</a></td></tr>
<tr><td><a href="controlador.php?acao=infra_unidade_atual_alterar&amp;id_unidade=110000001&amp;infra_hash=u1">SEPLAG/AUTOMATIZAMG</a></td></tr>
</table>
</body></html>`

	page := testParser(t).parse(markup)

	assert.Equal(t, "SEPLAG/DCGP", page.ActiveUnit)
	require.Len(t, page.Units, 3)
	assert.Equal(t, domain.UnitOption{ID: "110000001", Name: "SEPLAG/AUTOMATIZAMG"}, page.Units[0])
	assert.Equal(t, domain.UnitOption{ID: "110000002", Name: "SEPLAG/DCGP"}, page.Units[1])
	assert.Equal(t, domain.UnitOption{ID: "110000003", Name: "SEPLAG/GAB"}, page.Units[2])
}

func TestParseLoginPage(t *testing.T) {
	markup := `<html><head><title>SEI / SIP - Acesso</title></head><body>
<form id="frmLogin" action="login.php?sigla_orgao_sistema=GOVMG" method="post">
<input type="text" name="txtUsuario" value=""/>
<input type="password" name="pwdSenha" value=""/>
<select name="selOrgao"><option value="0">GOVMG</option><option value="28">SEPLAG</option></select>
<input type="hidden" name="hdnAcao" value="1"/>
<input type="submit" name="Acessar" value="Acessar"/>
</form>
</body></html>`

	page := testParser(t).parse(markup)

	assert.False(t, page.LoggedIn)
	require.Len(t, page.Forms, 1)
	form := page.Forms[0]
	assert.Contains(t, form.Fields, "txtUsuario")
	assert.Contains(t, form.Fields, "pwdSenha")
	assert.Equal(t, "0", form.Fields["selOrgao"])
	assert.Equal(t, "1", form.Fields["hdnAcao"])
}

func TestParseCasePageTreeFrame(t *testing.T) {
	markup := `<html><body>
<a href="sair.php">Sair</a>
<iframe id="ifrArvore" src="controlador.php?acao=procedimento_selecionar&amp;id_procedimento=100"></iframe>
<iframe id="ifrVisualizacao" src="controlador.php?acao=procedimento_trabalhar"></iframe>
</body></html>`

	page := testParser(t).parse(markup)
	assert.Equal(t,
		"https://www.sei.mg.gov.br/sei/controlador.php?acao=procedimento_selecionar&id_procedimento=100",
		page.TreeSrc)
}

func TestParseDownloadFrame(t *testing.T) {
	markup := `<html><body>
<a href="sair.php">Sair</a>
<iframe id="ifrDownload" src="controlador.php?acao=exibir_arquivo&amp;chave=abc123"></iframe>
</body></html>`

	page := testParser(t).parse(markup)
	assert.Equal(t,
		"https://www.sei.mg.gov.br/sei/controlador.php?acao=exibir_arquivo&chave=abc123",
		page.DownloadURL)
}

func TestParseDownloadFrameFromScript(t *testing.T) {
	markup := `<html><body>
<a href="sair.php">Sair</a>
<script>document.getElementById('ifrDownload').src = 'controlador.php?acao=exibir_arquivo&chave=xyz';</script>
</body></html>`

	page := testParser(t).parse(markup)
	assert.Equal(t,
		"https://www.sei.mg.gov.br/sei/controlador.php?acao=exibir_arquivo&chave=xyz",
		page.DownloadURL)
}

func TestAbsoluteURL(t *testing.T) {
	c, err := newClient(Config{BaseURL: "https://www.sei.mg.gov.br"})
	require.NoError(t, err)

	assert.Equal(t,
		"https://www.sei.mg.gov.br/sei/controlador.php?acao=procedimento_controlar",
		c.absoluteURL("controlador.php?acao=procedimento_controlar"))
	assert.Equal(t,
		"https://www.sei.mg.gov.br/sei/controlador.php?acao=x",
		c.absoluteURL("/controlador.php?acao=x"))
	assert.Equal(t, "https://example.com/x", c.absoluteURL("https://example.com/x"))
	assert.Equal(t, "", c.absoluteURL(""))
}
