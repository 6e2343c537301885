package ui

import (
	"bytes"
	"fmt"
	"io"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/formatters"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/alecthomas/chroma/v2/styles"
	"github.com/charmbracelet/glamour"
)

// RenderMarkdown renders markdown for the terminal using glamour.
func RenderMarkdown(content string) (string, error) {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return "", err
	}
	return renderer.Render(content)
}

// HighlightJSON colours JSON for a true-color terminal. On any highlighting
// failure the input is returned unchanged.
func HighlightJSON(data []byte) string {
	lexer := lexers.Get("json")
	if lexer == nil {
		return string(data)
	}
	lexer = chroma.Coalesce(lexer)

	style := styles.Get("dracula")
	if style == nil {
		style = styles.Fallback
	}

	formatter := formatters.Get("terminal16m")
	if formatter == nil {
		formatter = formatters.Fallback
	}

	iterator, err := lexer.Tokenise(nil, string(data))
	if err != nil {
		return string(data)
	}

	var buf bytes.Buffer
	if err := formatter.Format(&buf, style, iterator); err != nil {
		return string(data)
	}
	return buf.String()
}

// Spinner animates a message on w until Stop is called.
type Spinner struct {
	stop chan struct{}
	done chan struct{}
}

// StartSpinner starts a spinner on w.
func StartSpinner(w io.Writer, message string) *Spinner {
	s := &Spinner{stop: make(chan struct{}), done: make(chan struct{})}
	go s.run(w, message)
	return s
}

// Stop clears the spinner line and waits for the animation to end.
func (s *Spinner) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Spinner) run(w io.Writer, message string) {
	frames := []string{"⠋", "⠙", "⠹", "⠸", "⠼", "⠴", "⠦", "⠧", "⠇", "⠏"}
	ticker := time.NewTicker(80 * time.Millisecond)
	defer ticker.Stop()
	defer close(s.done)

	i := 0
	for {
		select {
		case <-s.stop:
			fmt.Fprint(w, "\r\033[2K")
			return
		case <-ticker.C:
			fmt.Fprintf(w, "\r%s %s", Highlight.Render(frames[i]), message)
			i = (i + 1) % len(frames)
		}
	}
}
