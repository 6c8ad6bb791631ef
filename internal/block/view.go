package block

import (
	"strconv"
	"strings"

	"github.com/goliatone/go-embed/internal/providers"
	"github.com/goliatone/go-slug"
	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

const (
	classRoot      = "embed-block"
	classPreloader = "embed-block__preloader"
	classURL       = "embed-block__url"
	classContent   = "embed-block__content"
	classError     = "embed-block__content--error"
	classCaption   = "embed-block__caption"

	captionPlaceholder = "Enter a caption"
)

// ViewOptions tune rendering.
type ViewOptions struct {
	ReadOnly bool
	// IframeTemplate is the provider markup for local embeds. Empty uses
	// providers.DefaultIframeHTML.
	IframeTemplate string
}

// Render builds the block element tree for data. It has no side effects and
// returns a fresh tree on every call.
func Render(data Data, opts ViewOptions) *html.Node {
	root := element(atom.Div, classRoot)
	if modifier := modifierClass(data.ProviderKey); modifier != "" {
		addClass(root, modifier)
		setAttr(root, "data-service", data.ProviderKey)
	}

	switch data.State() {
	case StateLoading:
		preloader := element(atom.Div, classPreloader)
		source := element(atom.Div, classURL)
		source.AppendChild(text(data.SourceURL))
		preloader.AppendChild(source)
		root.AppendChild(preloader)
		return root
	case StateError:
		content := element(atom.Div, classContent)
		addClass(content, classError)
		appendFragment(content, data.HTML)
		root.AppendChild(content)
	case StateRendered:
		content := element(atom.Div, classContent)
		if data.HTML != "" {
			appendFragment(content, data.HTML)
		} else {
			content.AppendChild(iframe(data, opts.IframeTemplate))
		}
		root.AppendChild(content)
	default:
		root.AppendChild(element(atom.Div, classContent))
	}

	root.AppendChild(caption(data.Caption, opts.ReadOnly))
	return root
}

// RenderString serialises node to HTML.
func RenderString(node *html.Node) string {
	if node == nil {
		return ""
	}
	var b strings.Builder
	if err := html.Render(&b, node); err != nil {
		return ""
	}
	return b.String()
}

// CaptionText returns the text content of the caption region under root.
func CaptionText(root *html.Node) string {
	node := findByClass(root, classCaption)
	if node == nil {
		return ""
	}
	var b strings.Builder
	collectText(node, &b)
	return b.String()
}

// SetCaptionText replaces the caption content under root. It reports false
// when root has no caption region.
func SetCaptionText(root *html.Node, value string) bool {
	node := findByClass(root, classCaption)
	if node == nil {
		return false
	}
	for child := node.FirstChild; child != nil; {
		next := child.NextSibling
		node.RemoveChild(child)
		child = next
	}
	if value != "" {
		node.AppendChild(text(value))
	}
	return true
}

func caption(value string, readOnly bool) *html.Node {
	node := element(atom.Div, classCaption)
	setAttr(node, "data-placeholder", captionPlaceholder)
	if !readOnly {
		setAttr(node, "contenteditable", "true")
	}
	if value != "" {
		node.AppendChild(text(value))
	}
	return node
}

func iframe(data Data, template string) *html.Node {
	frame := firstIframe(template)
	if frame == nil {
		frame = firstIframe(providers.DefaultIframeHTML)
	}
	if frame == nil {
		frame = &html.Node{Type: html.ElementNode, Data: "iframe", DataAtom: atom.Iframe}
	}
	setAttr(frame, "src", data.EmbedURL)
	if data.Width > 0 {
		setAttr(frame, "width", strconv.Itoa(data.Width))
	}
	if data.Height > 0 {
		setAttr(frame, "height", strconv.Itoa(data.Height))
	}
	return frame
}

func firstIframe(markup string) *html.Node {
	if strings.TrimSpace(markup) == "" {
		return nil
	}
	nodes, err := html.ParseFragment(strings.NewReader(markup), fragmentContext())
	if err != nil {
		return nil
	}
	for _, node := range nodes {
		if found := findElement(node, atom.Iframe); found != nil {
			if found.Parent != nil {
				found.Parent.RemoveChild(found)
			}
			return found
		}
	}
	return nil
}

func appendFragment(parent *html.Node, markup string) {
	nodes, err := html.ParseFragment(strings.NewReader(markup), fragmentContext())
	if err != nil {
		parent.AppendChild(text(markup))
		return
	}
	for _, node := range nodes {
		parent.AppendChild(node)
	}
}

func fragmentContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "div", DataAtom: atom.Div}
}

func modifierClass(key string) string {
	if strings.TrimSpace(key) == "" {
		return ""
	}
	normalized, err := slug.Normalize(key)
	if err != nil || normalized == "" {
		return ""
	}
	return classRoot + "--" + normalized
}

func element(a atom.Atom, class string) *html.Node {
	node := &html.Node{Type: html.ElementNode, Data: a.String(), DataAtom: a}
	if class != "" {
		setAttr(node, "class", class)
	}
	return node
}

func text(value string) *html.Node {
	return &html.Node{Type: html.TextNode, Data: value}
}

func setAttr(node *html.Node, key, value string) {
	for i := range node.Attr {
		if node.Attr[i].Namespace == "" && node.Attr[i].Key == key {
			node.Attr[i].Val = value
			return
		}
	}
	node.Attr = append(node.Attr, html.Attribute{Key: key, Val: value})
}

func attr(node *html.Node, key string) string {
	for _, a := range node.Attr {
		if a.Namespace == "" && a.Key == key {
			return a.Val
		}
	}
	return ""
}

func addClass(node *html.Node, class string) {
	existing := attr(node, "class")
	if existing == "" {
		setAttr(node, "class", class)
		return
	}
	setAttr(node, "class", existing+" "+class)
}

func hasClass(node *html.Node, class string) bool {
	for _, c := range strings.Fields(attr(node, "class")) {
		if c == class {
			return true
		}
	}
	return false
}

func findByClass(node *html.Node, class string) *html.Node {
	if node == nil {
		return nil
	}
	if node.Type == html.ElementNode && hasClass(node, class) {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findByClass(child, class); found != nil {
			return found
		}
	}
	return nil
}

func findElement(node *html.Node, a atom.Atom) *html.Node {
	if node == nil {
		return nil
	}
	if node.Type == html.ElementNode && node.DataAtom == a {
		return node
	}
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		if found := findElement(child, a); found != nil {
			return found
		}
	}
	return nil
}

func collectText(node *html.Node, b *strings.Builder) {
	for child := node.FirstChild; child != nil; child = child.NextSibling {
		switch child.Type {
		case html.TextNode:
			b.WriteString(child.Data)
		case html.ElementNode:
			if child.DataAtom == atom.Br {
				b.WriteString("\n")
				continue
			}
			collectText(child, b)
		}
	}
}
