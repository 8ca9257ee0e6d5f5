package render

import (
	"bytes"
	"slices"
	"strings"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters/html"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"

	"github.com/debemdeboas/archive-studio/internal/cache"
)

func Formatter() *html.Formatter {
	return html.New(
		html.WithClasses(true),
		html.TabWidth(4),
		html.WithLineNumbers(true),
		html.WrapLongLines(true),
	)
}

var syntaxCSS = cache.NewCache[string, string]()

// SyntaxCSS is the stylesheet for code highlighted with theme.
func SyntaxCSS(theme string) string {
	return syntaxCSS.GetOrSet(theme, func() string {
		var buf strings.Builder
		style := styles.Get(theme)

		bg := style.Get(chroma.Background)
		if !bg.Colour.IsSet() {
			// Pick a readable text colour when the theme does not set one.
			luminance := (0.299*float64(bg.Background.Red()) +
				0.587*float64(bg.Background.Green()) +
				0.114*float64(bg.Background.Blue())) / 255
			if luminance > 0.5 {
				buf.WriteString(".chroma { color: #181818; }\n")
			}
		}

		Formatter().WriteCSS(&buf, style)
		return buf.String()
	})
}

func SyntaxThemes() []string {
	names := styles.Names()
	slices.Sort(names)
	return names
}

// HighlightSource renders the raw markdown source with highlighting, for the
// preview's source view.
func HighlightSource(source, theme string) (string, error) {
	lexer := lexers.Get("markdown")
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get(theme)
	if style == nil {
		style = styles.Fallback
	}

	formatter := html.New(
		html.WithClasses(true),
		html.WithLineNumbers(false),
		html.PreventSurroundingPre(true),
	)

	var buf bytes.Buffer
	iterator, err := lexer.Tokenise(nil, source)
	if err != nil {
		return source, err
	}
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return source, err
	}

	result := `<div class="markdown-source">` + buf.String() + `</div>`
	return strings.ReplaceAll(result, "\n", "<br>\n"), nil
}
