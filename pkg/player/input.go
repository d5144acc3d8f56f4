package player

import (
	"bufio"
	"context"
	"io"
	"strings"
	"sync"
)

// lineSource reads lines on a dedicated goroutine so a canceled
// context can interrupt a blocked read. The pump starts on first use.
type lineSource struct {
	reader *bufio.Reader
	ch     chan lineResult
	once   sync.Once
}

type lineResult struct {
	text string
	err  error
}

func newLineSource(r io.Reader) *lineSource {
	return &lineSource{reader: bufio.NewReader(r)}
}

func (l *lineSource) start() {
	l.once.Do(func() {
		l.ch = make(chan lineResult)
		go l.pump()
	})
}

func (l *lineSource) pump() {
	for {
		text, err := l.reader.ReadString('\n')
		if text != "" {
			l.ch <- lineResult{text: text}
		}
		if err != nil {
			if err != io.EOF {
				l.ch <- lineResult{err: err}
			}
			close(l.ch)
			return
		}
	}
}

// read returns the next trimmed line. io.EOF reports the end of the
// input stream; a done context wins over a pending line.
func (l *lineSource) read(ctx context.Context) (string, error) {
	l.start()
	select {
	case <-ctx.Done():
		return "", ctx.Err()
	case res, ok := <-l.ch:
		if !ok {
			return "", io.EOF
		}
		if res.err != nil {
			return "", res.err
		}
		return strings.TrimSpace(res.text), nil
	}
}
