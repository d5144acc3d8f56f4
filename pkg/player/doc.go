/*
Package player implements a line-oriented terminal front end for a
skein story.

It bridges the playback engine and an interactive reader: buffered
output streams to the terminal as it is produced, links become a
numbered menu, and choices are read back one line at a time. Styles
stamped on output items are translated to ANSI sequences when the
output is a real terminal, and an optional renderer can post-process
text content (for example through a markdown renderer).

# Key Components

  - Player: the main loop tying a story to a reader and writer.
  - ContentRenderer: transforms text content before it is written.
  - SanitizeInput: the input hygiene applied to every line read.

# Usage

	p := player.New(
		player.WithIO(os.Stdin, os.Stdout),
		player.WithMarkdown(),
	)

	if err := p.Run(ctx, st); err != nil {
		log.Fatal(err)
	}
*/
package player
