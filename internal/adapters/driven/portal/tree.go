package portal

import (
	"regexp"
	"sort"
	"strings"

	"golang.org/x/net/html"

	"github.com/automatiza-mg/sei-cli/internal/core/domain"
)

// The document tree is not markup: the tree frame carries a script
// that builds it node by node. These patterns pull the constructor
// calls, the late property assignments and the per-node actions out
// of that script.
var (
	reTreeNode   = regexp.MustCompile(`(?s)Nos\[(\d+)\]\s*=\s*new\s+infraArvoreNo\((.*?)\);`)
	reNodeProp   = regexp.MustCompile(`(?s)Nos\[(\d+)\]\.(\w+)\s*=\s*('(?:\\.|[^'])*'|"(?:\\.|[^"])*"|[^;]+);`)
	reTreeAction = regexp.MustCompile(`(?s)NosAcoes\[(\d+)\]\s*=\s*new\s+infraArvoreAcao\((.*?)\);`)

	reAlertSingle = regexp.MustCompile(`(?s)alert\('(.*?)'\)`)
	reAlertDouble = regexp.MustCompile(`(?s)alert\("(.*?)"\)`)
	reBlankLine   = regexp.MustCompile(`\n\s*\n`)
)

// treeResult is the parsed document subtree plus the signature and
// access-level findings that attach to the case itself.
type treeResult struct {
	documents        []domain.Document
	caseSigners      []string
	caseConfidential bool
}

// parseTree extracts the document subtree from a tree-frame page.
func parseTree(markup string, resolve func(string) string) treeResult {
	script := scriptText(markup)
	if script == "" {
		return treeResult{}
	}

	byIndex := make(map[int]*domain.Document)
	var indexes []int

	for _, m := range reTreeNode.FindAllStringSubmatch(script, -1) {
		idx := atoi(m[1])
		args := splitJSArgs(m[2])
		if len(args) < 7 {
			continue
		}

		nodeType := unquoteJS(args[0])
		if !strings.Contains(strings.ToUpper(nodeType), "DOCUMENTO") {
			continue
		}

		id := unquoteJS(args[1])
		parentID := unquoteJS(args[2])
		href := unquoteJS(args[3])
		frameTarget := unquoteJS(args[4])
		aux := unquoteJS(args[5])
		label := unquoteJS(args[6])
		if label == "" {
			label = aux
		}
		if label == "" {
			label = id
		}

		doc := &domain.Document{
			ID:       id,
			Title:    label,
			Type:     nodeType,
			Metadata: map[string]any{"order": idx, "node_type": nodeType},
		}
		if href != "" {
			doc.URL = resolve(href)
			doc.Hash = queryParam(href, "infra_hash")
		}
		if parentID != "" {
			doc.Metadata["parent_id"] = parentID
		}
		if frameTarget != "" {
			doc.Metadata["frame_target"] = frameTarget
		}
		if len(args) > 7 {
			if icon := unquoteJS(args[7]); icon != "" {
				doc.Metadata["icon"] = icon
				slug := icon[strings.LastIndex(icon, "/")+1:]
				if q := strings.IndexByte(slug, '?'); q >= 0 {
					slug = slug[:q]
				}
				doc.Metadata["icon_slug"] = slug
				if strings.Contains(strings.ToLower(icon), "sigilo") {
					doc.Confidential = true
				}
			}
		}
		if len(args) > 14 {
			if class := unquoteJS(args[14]); class != "" {
				doc.Indicators = append(doc.Indicators, class)
				doc.Metadata["css_class"] = class
				if strings.Contains(strings.ToLower(class), "novisitado") {
					doc.New = true
				}
			}
		}
		if len(args) > 15 {
			if number := unquoteJS(args[15]); number != "" {
				doc.Metadata["document_number"] = number
			}
		}

		if _, dup := byIndex[idx]; !dup {
			indexes = append(indexes, idx)
		}
		byIndex[idx] = doc
	}

	if len(byIndex) == 0 {
		return treeResult{}
	}

	byID := make(map[string]*domain.Document, len(byIndex))
	for _, doc := range byIndex {
		if doc.ID != "" {
			byID[doc.ID] = doc
		}
	}

	applyNodeProps(script, byIndex, resolve)
	result := treeResult{}
	applyNodeActions(script, byID, &result)

	sort.Ints(indexes)
	for _, idx := range indexes {
		result.documents = append(result.documents, *byIndex[idx])
	}
	return result
}

// applyNodeProps folds the late Nos[i].prop assignments into the
// parsed documents. Only signature, source and markup fragments carry
// information the tree constructor lacks.
func applyNodeProps(script string, byIndex map[int]*domain.Document, resolve func(string) string) {
	for _, m := range reNodeProp.FindAllStringSubmatch(script, -1) {
		doc := byIndex[atoi(m[1])]
		if doc == nil {
			continue
		}
		value := unquoteJS(m[3])
		if value == "" {
			continue
		}

		switch m[2] {
		case "assinatura":
			text := fragmentText(value)
			if text != "" {
				doc.Signed = true
				doc.Signers = []string{text}
				doc.Metadata["signature_text"] = text
			}
		case "src":
			resolved := resolve(value)
			if strings.Contains(strings.ToLower(value), "documento_visualizar") {
				doc.ViewURL = resolved
			} else {
				doc.DownloadURL = resolved
			}
			if _, ok := doc.Metadata["source_src"]; !ok {
				doc.Metadata["source_src"] = value
			}
		case "html":
			doc.Metadata["html_fragment"] = value
			if href := firstHref(value); href != "" {
				doc.ViewURL = resolve(href)
			}
		}
	}
}

// applyNodeActions folds the NosAcoes entries into documents. Actions
// targeting a node that is not a document attach to the case itself.
func applyNodeActions(script string, byID map[string]*domain.Document, result *treeResult) {
	for _, m := range reTreeAction.FindAllStringSubmatch(script, -1) {
		args := splitJSArgs(m[2])
		if len(args) == 0 {
			continue
		}

		actionType := strings.ToUpper(unquoteJS(args[0]))
		targetID := ""
		if len(args) > 2 {
			targetID = unquoteJS(args[2])
		}
		jsCode := ""
		if len(args) > 3 {
			jsCode = unquoteJS(args[3])
		}
		label := ""
		if len(args) > 5 {
			label = unquoteJS(args[5])
		}
		icon := ""
		if len(args) > 6 {
			icon = unquoteJS(args[6])
		}

		doc := byID[targetID]

		switch actionType {
		case "ASSINATURA":
			alert := alertText(jsCode)
			if alert == "" {
				alert = label
			}
			names := signerNames(alert)
			if doc != nil {
				if alert != "" {
					if _, ok := doc.Metadata["signature_alert"]; !ok {
						doc.Metadata["signature_alert"] = alert
					}
				}
				if len(names) > 0 {
					doc.Signed = true
					for _, name := range names {
						doc.Signers = appendMissing(doc.Signers, name)
					}
				}
			} else {
				for _, name := range names {
					result.caseSigners = appendMissing(result.caseSigners, name)
				}
			}
		case "NIVEL_ACESSO":
			alert := alertText(jsCode)
			if alert == "" {
				alert = label
			}
			if doc != nil {
				doc.Confidential = true
				if alert != "" {
					if _, ok := doc.Metadata["access_level"]; !ok {
						doc.Metadata["access_level"] = alert
					}
				}
				if icon != "" {
					doc.Metadata["action_icons"] = appendAnyMissing(doc.Metadata["action_icons"], icon)
				}
			} else {
				result.caseConfidential = true
			}
		default:
			if doc != nil && icon != "" {
				doc.Metadata["action_icons"] = appendAnyMissing(doc.Metadata["action_icons"], icon)
			}
		}
	}
}

// scriptText concatenates the script bodies of a page.
func scriptText(markup string) string {
	root, err := html.Parse(strings.NewReader(markup))
	if err != nil {
		return ""
	}
	var sb strings.Builder
	walk(root, func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == "script" {
			for c := n.FirstChild; c != nil; c = c.NextSibling {
				if c.Type == html.TextNode {
					sb.WriteString(c.Data)
					sb.WriteString("\n")
				}
			}
		}
	})
	return sb.String()
}

// splitJSArgs splits a JavaScript argument list on top-level commas,
// honouring quoted strings and nested brackets.
func splitJSArgs(argList string) []string {
	var args []string
	var current strings.Builder
	depth := 0
	var quote byte

	for i := 0; i < len(argList); i++ {
		ch := argList[i]
		if quote != 0 {
			current.WriteByte(ch)
			if ch == '\\' && i+1 < len(argList) {
				i++
				current.WriteByte(argList[i])
			} else if ch == quote {
				quote = 0
			}
			continue
		}
		switch ch {
		case '\'', '"':
			quote = ch
			current.WriteByte(ch)
		case '(', '[', '{':
			depth++
			current.WriteByte(ch)
		case ')', ']', '}':
			depth--
			current.WriteByte(ch)
		case ',':
			if depth == 0 {
				args = append(args, current.String())
				current.Reset()
			} else {
				current.WriteByte(ch)
			}
		default:
			current.WriteByte(ch)
		}
	}
	if current.Len() > 0 {
		args = append(args, current.String())
	}
	return args
}

// unquoteJS turns a JavaScript literal into its plain string value.
// Unquoted null becomes empty; other bare tokens pass through.
func unquoteJS(literal string) string {
	s := strings.TrimSpace(literal)
	// The tree builder splices empty concatenations into some values.
	s = strings.TrimSuffix(s, `.concat('')`)
	s = strings.TrimSuffix(s, `.concat("")`)
	if s == "" || s == "null" {
		return ""
	}
	if len(s) >= 2 && (s[0] == '\'' || s[0] == '"') && s[len(s)-1] == s[0] {
		body := s[1 : len(s)-1]
		replacer := strings.NewReplacer(
			`\n`, "\n", `\r`, "\r", `\t`, "\t",
			`\'`, "'", `\"`, `"`, `\\`, `\`,
		)
		return replacer.Replace(body)
	}
	return s
}

// alertText extracts the message shown by an alert(...) call.
func alertText(jsCode string) string {
	if jsCode == "" {
		return ""
	}
	if m := reAlertSingle.FindStringSubmatch(jsCode); m != nil {
		return unquoteJS("'" + m[1] + "'")
	}
	if m := reAlertDouble.FindStringSubmatch(jsCode); m != nil {
		return unquoteJS(`"` + m[1] + `"`)
	}
	return ""
}

// signerNames pulls signer names out of a signature alert. The portal
// formats one block per signature, each opening with an "assinado
// por" line followed by the signer's name.
func signerNames(alert string) []string {
	text := strings.TrimSpace(alert)
	if text == "" {
		return nil
	}

	var names []string
	for _, block := range splitBlankLines(text) {
		lines := nonEmptyLines(block)
		if len(lines) == 0 {
			continue
		}
		if strings.HasPrefix(strings.ToLower(lines[0]), "assinado por") {
			lines = lines[1:]
		}
		if len(lines) > 0 {
			names = appendMissing(names, lines[0])
		}
	}

	if len(names) == 0 && strings.HasPrefix(strings.ToLower(text), "assinado por") {
		lines := nonEmptyLines(text)
		if len(lines) > 1 {
			names = appendMissing(names, lines[1])
		}
	}
	return names
}

// fragmentText strips markup from an HTML fragment.
func fragmentText(fragment string) string {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return strings.TrimSpace(fragment)
	}
	return nodeText(root)
}

// firstHref returns the first anchor target inside an HTML fragment.
func firstHref(fragment string) string {
	root, err := html.Parse(strings.NewReader(fragment))
	if err != nil {
		return ""
	}
	var href string
	walk(root, func(n *html.Node) {
		if href == "" && n.Type == html.ElementNode && n.Data == "a" {
			href = attrVal(n, "href")
		}
	})
	return href
}

func splitBlankLines(text string) []string {
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	var blocks []string
	for _, block := range reBlankLine.Split(normalized, -1) {
		if strings.TrimSpace(block) != "" {
			blocks = append(blocks, block)
		}
	}
	return blocks
}

func nonEmptyLines(block string) []string {
	var lines []string
	for _, line := range strings.Split(block, "\n") {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			lines = append(lines, trimmed)
		}
	}
	return lines
}

func appendMissing(list []string, value string) []string {
	if value == "" {
		return list
	}
	for _, existing := range list {
		if existing == value {
			return list
		}
	}
	return append(list, value)
}

// appendAnyMissing grows a []string stored behind a metadata value.
func appendAnyMissing(existing any, value string) []string {
	list, _ := existing.([]string)
	return appendMissing(list, value)
}

func atoi(s string) int {
	n := 0
	for _, r := range s {
		n = n*10 + int(r-'0')
	}
	return n
}
