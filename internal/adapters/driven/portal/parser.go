package portal

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/net/html"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
)

var (
	reTooltip     = regexp.MustCompile(`(?i)infraTooltipMostrar\('([^']*)',\s*'([^']*)'\)`)
	reTooltipHead = regexp.MustCompile(`(?i)infraTooltipMostrar\('([^']*)'`)
	reCaptionAll  = regexp.MustCompile(`(\d+)\s+registros`)
	reCaptionSpan = regexp.MustCompile(`-\s*(\d+)\s*a\s*(\d+)`)
	rePDFHref     = regexp.MustCompile(`(?i)href="([^"]*acao=procedimento_gerar_pdf[^"]+)"`)
	reDownloadSrc = regexp.MustCompile(`(?i)['"]([^'"]*acao=exibir_arquivo[^'"]+)['"]`)
)

// portalGroup is the portal's table/field name for a category.
var portalGroup = map[domain.Category]string{
	domain.CategoryReceived:  "Recebidos",
	domain.CategoryGenerated: "Gerados",
}

// parser turns one page of portal markup into a domain.Page. resolve
// maps portal hrefs to absolute URLs.
type parser struct {
	resolve func(string) string
}

func (p *parser) parse(markup string) *domain.Page {
	page := &domain.Page{RawHTML: markup}

	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return page
	}

	page.Title = nodeText(findElement(root, "title"))
	page.LoggedIn = strings.Contains(markup, "Sair") || strings.Contains(markup, "Controle de Processos")
	page.Alert = p.alertText(root)
	page.ActiveUnit = p.activeUnit(root)
	page.Units = p.unitOptions(root)
	page.Forms = p.forms(root)
	page.Listings = p.listings(root)
	page.TreeSrc = p.frameSrc(root, "ifrArvore", "")
	page.PDFLink = p.pdfLink(root, markup)
	page.DownloadURL = p.downloadURL(root, markup)

	if strings.Contains(markup, "infraArvoreNo") {
		tree := parseTree(markup, p.resolve)
		page.Documents = tree.documents
		page.CaseSigners = tree.caseSigners
		page.CaseConfidential = tree.caseConfidential
	}

	return page
}

// alertText returns the portal message-box content, if shown.
func (p *parser) alertText(root *html.Node) string {
	box := findByID(root, "divInfraMensagens")
	if box == nil {
		return ""
	}
	var alert *html.Node
	walk(box, func(n *html.Node) {
		if alert == nil && n.Type == html.ElementNode && hasClass(n, "alert") {
			alert = n
		}
	})
	if alert == nil {
		alert = box
	}
	return nodeText(alert)
}

// activeUnit reads the unit shown in the page header.
func (p *parser) activeUnit(root *html.Node) string {
	if link := findByID(root, "lnkInfraUnidade"); link != nil {
		if txt := nodeText(link); txt != "" {
			return txt
		}
		if title := attrVal(link, "title"); title != "" {
			return title
		}
	}
	if sel := findByID(root, "selInfraUnidades"); sel != nil {
		for _, opt := range childElements(sel, "option") {
			if _, ok := attr(opt, "selected"); ok {
				return nodeText(opt)
			}
		}
	}
	return ""
}

// unitOptions lists the units offered on the selection page. The
// selector renders either a select box or a link table.
func (p *parser) unitOptions(root *html.Node) []domain.UnitOption {
	var units []domain.UnitOption
	seen := make(map[string]bool)

	if sel := findByID(root, "selInfraUnidades"); sel != nil {
		for _, opt := range childElements(sel, "option") {
			id := attrVal(opt, "value")
			name := nodeText(opt)
			if id == "" || name == "" || seen[id] {
				continue
			}
			units = append(units, domain.UnitOption{ID: id, Name: name})
			seen[id] = true
		}
	}

	walk(root, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "a" {
			return
		}
		href := attrVal(n, "href")
		if !strings.Contains(href, "infra_unidade_atual_alterar") {
			return
		}
		id := queryParam(href, "id_unidade")
		name := nodeText(n)
		if id == "" || name == "" || seen[id] {
			return
		}
		units = append(units, domain.UnitOption{ID: id, Name: name})
		seen[id] = true
	})

	return units
}

// forms serialises every form on the page following browser rules:
// radio and checkbox inputs count only when checked, selects take the
// selected option or the first one, and radio groups with nothing
// checked fall back to their first value.
func (p *parser) forms(root *html.Node) []domain.Form {
	var forms []domain.Form
	walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "form" {
			forms = append(forms, p.serializeForm(n))
		}
	})
	return forms
}

func (p *parser) serializeForm(form *html.Node) domain.Form {
	name := attrVal(form, "name")
	if name == "" {
		name = attrVal(form, "id")
	}
	method := strings.ToLower(attrVal(form, "method"))
	if method == "" {
		method = "post"
	}

	fields := make(map[string]string)
	radioGroups := make(map[string]string)

	walk(form, func(n *html.Node) {
		if n.Type != html.ElementNode {
			return
		}
		fieldName := attrVal(n, "name")
		if fieldName == "" {
			return
		}
		switch n.Data {
		case "input":
			typ := strings.ToLower(attrVal(n, "type"))
			value := attrVal(n, "value")
			switch typ {
			case "radio", "checkbox":
				if typ == "radio" {
					if _, tracked := radioGroups[fieldName]; !tracked {
						radioGroups[fieldName] = value
					}
				}
				if _, ok := attr(n, "checked"); ok {
					fields[fieldName] = value
				}
			default:
				fields[fieldName] = value
			}
		case "select":
			selected := ""
			first := ""
			for i, opt := range childElements(n, "option") {
				if i == 0 {
					first = attrVal(opt, "value")
				}
				if _, ok := attr(opt, "selected"); ok && selected == "" {
					selected = attrVal(opt, "value")
				}
			}
			if selected == "" {
				selected = first
			}
			fields[fieldName] = selected
		case "textarea":
			fields[fieldName] = strings.TrimSpace(nodeText(n))
		}
	})

	// The portal expects one value per radio group even when nothing
	// is checked.
	for groupName, firstValue := range radioGroups {
		if _, ok := fields[groupName]; !ok {
			fields[groupName] = firstValue
		}
	}

	return domain.Form{
		Name:   name,
		Action: p.resolve(attrVal(form, "action")),
		Method: method,
		Fields: fields,
	}
}

// listings parses both category tables along with their paging state.
func (p *parser) listings(root *html.Node) map[domain.Category]domain.Listing {
	listings := make(map[domain.Category]domain.Listing, len(domain.Categories))
	for _, category := range domain.Categories {
		listings[category] = p.listing(root, category)
	}
	return listings
}

func (p *parser) listing(root *html.Node, category domain.Category) domain.Listing {
	group := portalGroup[category]
	table := findByID(root, "tblProcessos"+group)

	listing := domain.Listing{Present: table != nil}
	rowCount := 0
	if table != nil {
		for _, row := range caseRows(table) {
			rowCount++
			if c, ok := p.caseFromRow(row, category); ok {
				listing.Rows = append(listing.Rows, c)
			}
		}
	}
	listing.Pagination = p.pageInfo(root, table, group, rowCount)
	return listing
}

// caseRows returns the table rows that carry case records.
func caseRows(table *html.Node) []*html.Node {
	var rows []*html.Node
	walk(table, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "tr" && strings.HasPrefix(attrVal(n, "id"), "P") {
			rows = append(rows, n)
		}
	})
	return rows
}

// caseFromRow extracts one case record from a listing row. Rows
// without a recognisable case link or number are skipped.
func (p *parser) caseFromRow(row *html.Node, category domain.Category) (domain.Case, bool) {
	link := findLink(row, "acao=procedimento_trabalhar")
	if link == nil {
		return domain.Case{}, false
	}

	href := attrVal(link, "href")
	number := domain.FindCaseNumber(nodeText(link))
	if number == "" {
		number = domain.FindCaseNumber(attrVal(link, "title"))
	}
	if number == "" {
		number = domain.FindCaseNumber(href)
	}
	if number == "" || href == "" {
		return domain.Case{}, false
	}

	caseURL := p.resolve(href)
	c := domain.Case{
		Number:      number,
		ProcedureID: queryParam(caseURL, "id_procedimento"),
		URL:         caseURL,
		Category:    category,
		Viewed:      hasClass(link, "processoVisualizado"),
		Hash:        queryParam(caseURL, "infra_hash"),
	}

	if m := reTooltip.FindStringSubmatch(attrVal(link, "onmouseover")); m != nil {
		c.Title = strings.TrimSpace(m[1])
		c.TypeSpec = strings.TrimSpace(m[2])
	}

	if assignee := findLink(row, "acao=procedimento_atribuicao_listar"); assignee != nil {
		c.AssigneeName = strings.TrimPrefix(attrVal(assignee, "title"), "Atribuído para ")
		c.AssigneeID = nodeText(assignee)
	}

	walk(row, func(n *html.Node) {
		if n.Type != html.ElementNode || n.Data != "img" {
			return
		}
		src := attrVal(n, "src")
		if strings.Contains(src, "exclamacao.svg") {
			c.HasNewDocuments = true
		}
		if strings.Contains(src, "anotacao") {
			c.HasAnnotations = true
		}
		if hasClass(n, "imagemStatus") {
			if parent := closest(n, "a"); parent != nil {
				if m := reTooltipHead.FindStringSubmatch(attrVal(parent, "onmouseover")); m != nil {
					if marker := strings.TrimSpace(m[1]); marker != "" {
						c.Markers = append(c.Markers, marker)
					}
				}
			}
		}
	})

	return c, true
}

// pageInfo derives a listing's paging state from the table caption
// and the hidden paging fields the control page carries.
func (p *parser) pageInfo(root, table *html.Node, group string, rowCount int) domain.PageInfo {
	info := domain.PageInfo{}

	if table != nil {
		if caption := findElement(table, "caption"); caption != nil {
			text := nodeText(caption)
			if m := reCaptionAll.FindStringSubmatch(text); m != nil {
				info.TotalRecords, _ = strconv.Atoi(m[1])
			}
			if m := reCaptionSpan.FindStringSubmatch(text); m != nil {
				from, _ := strconv.Atoi(m[1])
				to, _ := strconv.Atoi(m[2])
				if to >= from {
					info.PerPage = to - from + 1
				}
			}
		}
	}
	if info.PerPage <= 0 && rowCount > 0 {
		info.PerPage = rowCount
	}
	if info.TotalRecords <= 0 && rowCount > 0 {
		info.TotalRecords = rowCount
	}

	if hidden := findByID(root, "hdn"+group+"NroItens"); hidden != nil && info.PerPage <= 0 {
		if n, err := strconv.Atoi(attrVal(hidden, "value")); err == nil {
			info.PerPage = n
		}
	}
	if hidden := findByID(root, "hdn"+group+"Itens"); hidden != nil && info.TotalRecords <= 0 {
		items := 0
		for _, item := range strings.Split(attrVal(hidden, "value"), ",") {
			if item != "" {
				items++
			}
		}
		info.TotalRecords = items
	}
	if hidden := findByID(root, "hdn"+group+"PaginaAtual"); hidden != nil {
		if n, err := strconv.Atoi(attrVal(hidden, "value")); err == nil {
			info.CurrentPage = n
		}
	}

	if info.PerPage <= 0 {
		info.PerPage = max(1, info.TotalRecords)
	}
	info.TotalPages = max(1, (info.TotalRecords+info.PerPage-1)/info.PerPage)
	return info
}

// frameSrc returns a frame URL matched by id and, optionally, a
// required href fragment.
func (p *parser) frameSrc(root *html.Node, id, mustContain string) string {
	frame := findByID(root, id)
	if frame == nil {
		return ""
	}
	src := attrVal(frame, "src")
	if src == "" {
		return ""
	}
	if mustContain != "" && !strings.Contains(src, mustContain) {
		return ""
	}
	return p.resolve(src)
}

// pdfLink finds the artifact-generation action inside a tree page.
func (p *parser) pdfLink(root *html.Node, markup string) string {
	if link := findLink(root, "acao=procedimento_gerar_pdf"); link != nil {
		return p.resolve(attrVal(link, "href"))
	}
	if m := rePDFHref.FindStringSubmatch(markup); m != nil {
		return p.resolve(m[1])
	}
	return ""
}

// downloadURL finds the final artifact URL a generation response
// points its download frame at.
func (p *parser) downloadURL(root *html.Node, markup string) string {
	if src := p.frameSrc(root, "ifrDownload", "acao=exibir_arquivo"); src != "" {
		return src
	}
	if m := reDownloadSrc.FindStringSubmatch(markup); m != nil {
		return p.resolve(m[1])
	}
	return ""
}

// queryParam pulls a single query value out of a URL string.
func queryParam(rawURL, key string) string {
	_, query, ok := strings.Cut(rawURL, "?")
	if !ok {
		return ""
	}
	for _, pair := range strings.Split(query, "&") {
		k, v, _ := strings.Cut(pair, "=")
		if k == key {
			return v
		}
	}
	return ""
}
