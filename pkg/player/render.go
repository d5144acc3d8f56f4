package player

import (
	"io"
	"os"

	"github.com/charmbracelet/glamour"
	"github.com/muesli/termenv"
	"golang.org/x/term"

	"github.com/weftworks/skein/pkg/story"
)

// ContentRenderer transforms text content before it is written out.
type ContentRenderer func(string) (string, error)

// NewMarkdownRenderer returns a ContentRenderer that renders markdown
// for the terminal, detecting a light or dark background automatically.
func NewMarkdownRenderer() ContentRenderer {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
	)
	return func(markdown string) (string, error) {
		if err != nil {
			return markdown, err
		}
		return r.Render(markdown)
	}
}

// styler translates story styles into ANSI sequences. With the Ascii
// profile it passes text through untouched.
type styler struct {
	profile termenv.Profile
}

// detectProfile picks a color profile for the writer: full detection
// for real terminals, plain text for everything else.
func detectProfile(w io.Writer) termenv.Profile {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return termenv.Ascii
	}
	return termenv.ColorProfile()
}

func (s styler) apply(text string, st story.Style) string {
	if s.profile == termenv.Ascii || len(st) == 0 {
		return text
	}
	out := termenv.String(text)
	if v, ok := st.Get("bold"); ok {
		if b, _ := v.(bool); b {
			out = out.Bold()
		}
	}
	if v, ok := st.Get("italic"); ok {
		if b, _ := v.(bool); b {
			out = out.Italic()
		}
	}
	if v, ok := st.Get("underline"); ok {
		if b, _ := v.(bool); b {
			out = out.Underline()
		}
	}
	if v, ok := st.Get("color"); ok {
		if c, _ := v.(string); c != "" {
			out = out.Foreground(s.profile.Color(c))
		}
	}
	return out.String()
}
