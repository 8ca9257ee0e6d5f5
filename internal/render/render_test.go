package render

import (
	"strings"
	"sync"
	"testing"
)

func TestRender(t *testing.T) {
	tests := []struct {
		name      string
		markdown  string
		contains  []string
		excludes  []string
		wantTitle string
	}{
		{
			name:      "basic markdown",
			markdown:  "# Test Header\n\nSome content with `code`",
			contains:  []string{"Test Header", "<code>code</code>"},
			wantTitle: "fallback",
		},
		{
			name:     "code block with syntax highlighting",
			markdown: "```go\nfunc main() {\n    fmt.Println(\"Hello\")\n}\n```",
			contains: []string{`class="highlight"`, "chroma", "Println"},
		},
		{
			name:      "front matter is not rendered",
			markdown:  "%%%\ntitle = \"From front matter\"\nslug = \"fm\"\n%%%\n\nBody paragraph.\n",
			contains:  []string{"Body paragraph."},
			excludes:  []string{"slug", "%%%"},
			wantTitle: "From front matter",
		},
	}

	r := NewRenderer("github")
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := r.Render([]byte(tt.markdown))
			html := string(out.HTML)

			for _, want := range tt.contains {
				if !strings.Contains(html, want) {
					t.Errorf("expected HTML to contain %q, got %s", want, html)
				}
			}
			for _, unwanted := range tt.excludes {
				if strings.Contains(html, unwanted) {
					t.Errorf("expected HTML not to contain %q, got %s", unwanted, html)
				}
			}
			if tt.wantTitle != "" {
				if got := out.Title("fallback"); got != tt.wantTitle {
					t.Errorf("Title() = %q, want %q", got, tt.wantTitle)
				}
			}
		})
	}
}

func TestRenderIsCachedByContent(t *testing.T) {
	r := NewRenderer("monokai")
	md := []byte("# Cached\n")

	first := r.Render(md)
	second := r.Render([]byte("# Cached\n"))
	if first != second {
		t.Error("expected the same content to hit the cache")
	}

	other := r.Render([]byte("# Different\n"))
	if other == first || other.Hash == first.Hash {
		t.Error("different content shared a cache entry")
	}
}

func TestRenderConcurrency(t *testing.T) {
	r := NewRenderer("github")
	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			md := []byte("## Post\n\nparagraph " + strings.Repeat("x", i%3))
			if out := r.Render(md); len(out.HTML) == 0 {
				t.Error("empty render")
			}
		}()
	}
	wg.Wait()
}

func TestSyntaxCSS(t *testing.T) {
	css := SyntaxCSS("github")
	if !strings.Contains(css, ".chroma") {
		t.Errorf("expected chroma rules, got %q", css)
	}
	if SyntaxCSS("github") != css {
		t.Error("expected a stable stylesheet")
	}

	themes := SyntaxThemes()
	if len(themes) == 0 {
		t.Fatal("no syntax themes")
	}
	for i := 1; i < len(themes); i++ {
		if themes[i-1] > themes[i] {
			t.Fatal("themes not sorted")
		}
	}
}

func TestHighlightSource(t *testing.T) {
	out, err := HighlightSource("# Title\n\ntext", "github")
	if err != nil {
		t.Fatalf("HighlightSource() error = %v", err)
	}
	if !strings.HasPrefix(out, `<div class="markdown-source">`) || !strings.Contains(out, "<br>") {
		t.Errorf("unexpected output %q", out)
	}
}
