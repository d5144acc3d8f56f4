package player

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/muesli/termenv"

	"github.com/weftworks/skein"
	"github.com/weftworks/skein/pkg/story"
)

// Player runs the interactive loop for one story: stream output,
// offer the links, read a choice, follow it, repeat. The terminal is
// append-only, so items spliced into the middle of the output buffer
// appear in arrival order rather than buffer order.
type Player struct {
	input    io.Reader
	output   io.Writer
	renderer ContentRenderer
	logger   *slog.Logger
	headless bool
	profile  *termenv.Profile
}

// Option defines a functional option for configuring the Player.
type Option func(*Player)

// WithIO sets the reader choices come from and the writer output goes
// to. Defaults to stdin and stdout.
func WithIO(r io.Reader, w io.Writer) Option {
	return func(p *Player) {
		p.input = r
		p.output = w
	}
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(p *Player) {
		p.logger = logger
	}
}

// WithRenderer sets a transformer applied to text content before it
// is written.
func WithRenderer(r ContentRenderer) Option {
	return func(p *Player) {
		p.renderer = r
	}
}

// WithMarkdown renders text content as terminal markdown.
func WithMarkdown() Option {
	return WithRenderer(NewMarkdownRenderer())
}

// WithHeadless drops the prompt decoration and closing line, for
// piped input and scripted sessions.
func WithHeadless(headless bool) Option {
	return func(p *Player) {
		p.headless = headless
	}
}

// WithProfile forces a termenv color profile instead of detecting one
// from the output writer.
func WithProfile(profile termenv.Profile) Option {
	return func(p *Player) {
		p.profile = &profile
	}
}

// New creates a Player.
func New(opts ...Option) *Player {
	p := &Player{}
	for _, opt := range opts {
		opt(p)
	}
	if p.input == nil {
		p.input = os.Stdin
	}
	if p.output == nil {
		p.output = os.Stdout
	}
	if p.logger == nil {
		p.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return p
}

// Run begins the story and loops until it offers no further choices,
// the input ends, or the context is canceled. The reader's choices
// are matched by menu number first, then by link name.
func (p *Player) Run(ctx context.Context, st *skein.Story) error {
	styl := styler{profile: detectProfile(p.output)}
	if p.profile != nil {
		styl.profile = *p.profile
	}
	lines := newLineSource(p.input)

	st.Observe(story.Observers{OutputAdded: func(o story.Output) {
		p.printItem(styl, o)
	}})

	if err := st.Begin(); err != nil {
		return fmt.Errorf("begin: %w", err)
	}

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		if st.State() == story.StatePaused {
			if err := p.waitResume(ctx, st, lines); err != nil {
				return err
			}
			continue
		}

		links := st.Links()
		if len(links) == 0 {
			break
		}
		p.printMenu(styl, links)

		choice, err := p.readChoice(ctx, lines)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case "":
			continue
		case "exit", "quit":
			return nil
		}

		if err := p.follow(st, choice); err != nil {
			return err
		}
	}

	if !p.headless {
		fmt.Fprintln(p.output, "\nThe end.")
	}
	return nil
}

// follow resolves the choice against the current links. Unknown
// choices inform the reader and leave the story untouched.
func (p *Player) follow(st *skein.Story, choice string) error {
	var err error
	if n, convErr := strconv.Atoi(choice); convErr == nil {
		err = st.FollowLinkAt(n - 1)
	} else {
		err = st.FollowLinkNamed(choice)
	}

	var nfe *story.NotFoundError
	if errors.As(err, &nfe) {
		fmt.Fprintf(p.output, "No choice matching %q.\n", choice)
		return nil
	}
	if errors.Is(err, story.ErrDeadLink) {
		fmt.Fprintf(p.output, "That choice leads nowhere.\n")
		return nil
	}
	return err
}

func (p *Player) waitResume(ctx context.Context, st *skein.Story, lines *lineSource) error {
	if !p.headless {
		fmt.Fprint(p.output, "(paused; press Enter to continue) ")
	}
	if _, err := lines.read(ctx); err != nil {
		if err == io.EOF {
			// Input is gone; unwind the pause so the story can end in
			// a resumable state for whoever picks it up next.
			return st.Resume()
		}
		return err
	}
	return st.Resume()
}

func (p *Player) readChoice(ctx context.Context, lines *lineSource) (string, error) {
	if !p.headless {
		fmt.Fprint(p.output, "> ")
	}
	text, err := lines.read(ctx)
	if err != nil {
		return "", err
	}
	clean, err := SanitizeInput(text)
	if err != nil {
		fmt.Fprintf(p.output, "Error: %v. Please try again.\n", err)
		return "", nil
	}
	return strings.ToLower(strings.TrimSpace(clean)), nil
}

// printItem streams one buffered item to the terminal. Links are
// withheld for the menu; markers, embeds and style tags have no
// printable form.
func (p *Player) printItem(styl styler, o story.Output) {
	switch item := o.(type) {
	case *story.Text:
		content := item.Content
		if p.renderer != nil {
			if rendered, err := p.renderer(content); err == nil {
				content = strings.TrimRight(rendered, "\n") + "\n"
			} else {
				p.logger.Warn("content renderer failed", "err", err)
			}
		}
		fmt.Fprint(p.output, styl.apply(content, item.Attrs().Style))
	case *story.LineBreak:
		fmt.Fprintln(p.output)
	}
}

func (p *Player) printMenu(styl styler, links []*story.Link) {
	fmt.Fprintln(p.output)
	for i, l := range links {
		fmt.Fprintf(p.output, "%d) %s\n", i+1, styl.apply(l.Name, l.Attrs().Style))
	}
}
