package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/smileynet/compview/internal/orchestrator"
)

// maxEventSize bounds one event line. Cursor events may carry a whole
// document.
const maxEventSize = 16 << 20

// editorEvent is one line of panel input. Exactly one of Doc or File is set:
//
//	{"doc": "src/pages/Home.tsx", "offset": 120}
//	{"doc": "/abs/Home.tsx", "offset": 120, "text": "<unsaved buffer>"}
//	{"file": "src/blocks/Hero03.tsx"}
//
// Without text, the document is read from disk.
type editorEvent struct {
	Doc    string  `json:"doc,omitempty"`
	Offset int     `json:"offset,omitempty"`
	Text   *string `json:"text,omitempty"`
	File   string  `json:"file,omitempty"`
}

// eventSink receives editor events. Clear resets the panel before the first
// event and Flush resolves a debounced cursor move once input ends.
type eventSink interface {
	Cursor(docPath, text string, offset int)
	OpenFile(path string) (orchestrator.Command, orchestrator.Outcome)
	Clear()
	Flush()
}

// readEvents feeds JSON lines from r into sink until r ends or ctx is done.
// Malformed lines are logged and skipped.
func readEvents(ctx context.Context, r io.Reader, sink eventSink, logger *slog.Logger) error {
	lines := make(chan []byte)
	errc := make(chan error, 1)

	go func() {
		sc := bufio.NewScanner(r)
		sc.Buffer(make([]byte, 0, 64*1024), maxEventSize)
		for sc.Scan() {
			line := append([]byte(nil), sc.Bytes()...)
			select {
			case lines <- line:
			case <-ctx.Done():
				return
			}
		}
		errc <- sc.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errc:
			if err != nil {
				return fmt.Errorf("reading events: %w", err)
			}
			return nil
		case line := <-lines:
			if err := dispatch(line, sink); err != nil {
				logger.Warn("panel: skipping event", slog.Any("error", err))
			}
		}
	}
}

// dispatch decodes one event line and delivers it.
func dispatch(line []byte, sink eventSink) error {
	if len(line) == 0 {
		return nil
	}
	var ev editorEvent
	if err := json.Unmarshal(line, &ev); err != nil {
		return fmt.Errorf("decoding %q: %w", truncate(line), err)
	}

	switch {
	case ev.File != "":
		path, err := filepath.Abs(ev.File)
		if err != nil {
			return err
		}
		sink.OpenFile(path)
		return nil

	case ev.Doc != "":
		path, err := filepath.Abs(ev.Doc)
		if err != nil {
			return err
		}
		var text string
		if ev.Text != nil {
			text = *ev.Text
		} else {
			data, err := os.ReadFile(path)
			if err != nil {
				return fmt.Errorf("reading document: %w", err)
			}
			text = string(data)
		}
		sink.Cursor(path, text, ev.Offset)
		return nil
	}
	return fmt.Errorf("event %q names neither doc nor file", truncate(line))
}

func truncate(b []byte) string {
	const limit = 80
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
