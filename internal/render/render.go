// Package render turns post sources into the HTML shown by the live preview.
package render

import (
	"fmt"
	"html"
	"io"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/ast"
	md_html "github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"
	"github.com/mmarkdown/mmark/v2/lang"
	"github.com/mmarkdown/mmark/v2/mparser"
	"github.com/mmarkdown/mmark/v2/render/mhtml"
	"github.com/rs/zerolog"

	"github.com/debemdeboas/archive-studio/internal/cache"
	"github.com/debemdeboas/archive-studio/internal/config"
	"github.com/debemdeboas/archive-studio/internal/util"
)

var renderLogger zerolog.Logger

func SetLogger(l zerolog.Logger) {
	renderLogger = l
}

// Rendered is a post source turned into HTML.
type Rendered struct {
	HTML []byte
	// Info is the front matter, nil when the source has none.
	Info *util.ExtendedTitleData
	Hash string
}

// Title is the front matter title or fallback.
func (r *Rendered) Title(fallback string) string {
	if r.Info != nil && r.Info.TitleData != nil && r.Info.Title != "" {
		return r.Info.Title
	}
	return fallback
}

// Renderer renders with one syntax theme and remembers recent results by
// content hash.
type Renderer struct {
	syntaxTheme string
	cache       *cache.Cache[string, *Rendered]
}

func NewRenderer(syntaxTheme string) *Renderer {
	if styles.Get(syntaxTheme) == styles.Fallback {
		renderLogger.Warn().Str("theme", syntaxTheme).Msg("Unknown syntax theme, using fallback")
	}
	return &Renderer{
		syntaxTheme: syntaxTheme,
		cache:       cache.NewBoundedCache[string, *Rendered](64),
	}
}

func (r *Renderer) SyntaxTheme() string {
	return r.syntaxTheme
}

func (r *Renderer) Render(md []byte) *Rendered {
	hash := util.ContentHash(md)
	return r.cache.GetOrSet(hash, func() *Rendered {
		renderLogger.Debug().Str("hash", hash).Msg("Rendering post")
		info, body := util.SplitFrontMatter(md)
		return &Rendered{
			HTML: RenderMarkdown(body, info, r.syntaxTheme),
			Info: info,
			Hash: hash,
		}
	})
}

func HighlightCode(code, language, highlightTheme string) string {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code
	}

	var buf strings.Builder
	if err := Formatter().Format(&buf, styles.Get(highlightTheme), iterator); err != nil {
		return code
	}

	res := html.UnescapeString(buf.String())
	return config.RegexCallout.ReplaceAllString(res, "<span class=\"callout\">$1</span>")
}

// RenderMarkdown renders a body whose front matter was already removed.
func RenderMarkdown(body []byte, info *util.ExtendedTitleData, highlightTheme string) []byte {
	switch config.MarkdownRenderer {
	case "mmark":
		language := "en"
		if info != nil && info.TitleData != nil && info.Language != "" {
			language = info.Language
		}
		return renderMmark(body, language, highlightTheme)
	default:
		return renderClassic(body, highlightTheme)
	}
}

func codeBlockHook(highlightTheme string) func(io.Writer, ast.Node, bool) (ast.WalkStatus, bool) {
	return func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
		if code, ok := node.(*ast.CodeBlock); ok && entering {
			var lang string
			if code.Info != nil {
				lang = string(code.Info)
			}
			fmt.Fprintf(w, "<div class=\"highlight\">%s</div>", HighlightCode(string(code.Literal), lang, highlightTheme))
			return ast.GoToNext, true
		}
		return ast.GoToNext, false
	}
}

func renderClassic(md []byte, highlightTheme string) []byte {
	highlight := codeBlockHook(highlightTheme)
	opts := md_html.RendererOptions{
		Flags: md_html.CommonFlags | md_html.HrefTargetBlank | md_html.FootnoteReturnLinks,
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if status, done := highlight(w, node, entering); done {
				return status, done
			}
			if callout, ok := node.(*ast.Callout); ok && entering {
				fmt.Fprintf(w, "<span class=\"callout\">%s</span>", callout.ID)
				return ast.GoToNext, true
			}
			return ast.GoToNext, false
		},
	}

	doc := parser.NewWithExtensions(
		parser.CommonExtensions | parser.AutoHeadingIDs | parser.Footnotes | parser.Attributes | parser.SuperSubscript,
	).Parse(md)
	return markdown.Render(doc, md_html.NewRenderer(opts))
}

func renderMmark(md []byte, language, highlightTheme string) []byte {
	md = markdown.NormalizeNewlines(md)

	p := parser.NewWithExtensions(mparser.Extensions | parser.NoIntraEmphasis)
	init := mparser.NewInitial("")
	p.Opts = parser.Options{
		ParserHook:    mparser.Hook,
		ReadIncludeFn: init.ReadInclude,
		Flags:         parser.FlagsNone,
	}

	doc := markdown.Parse(md, p)
	mparser.AddIndex(doc)

	mhtmlOpts := mhtml.RendererOptions{
		Language: lang.New(language),
	}
	highlight := codeBlockHook(highlightTheme)

	opts := md_html.RendererOptions{
		RenderNodeHook: func(w io.Writer, node ast.Node, entering bool) (ast.WalkStatus, bool) {
			if status, done := highlight(w, node, entering); done {
				return status, done
			}
			return mhtmlOpts.RenderHook(w, node, entering)
		},
		Flags: md_html.CommonFlags | md_html.FootnoteNoHRTag | md_html.FootnoteReturnLinks,
	}

	return markdown.Render(doc, md_html.NewRenderer(opts))
}
