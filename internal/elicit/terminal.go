package elicit

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"

	"golang.org/x/term"
)

// Terminal asks questions on a line-oriented terminal.  Forms are read from
// in; passphrases are read from the tty behind fd with echo disabled.
//
// in is read one line at a time and only while a form is waiting, so the
// next byte after an answered form is still in the tty for a passphrase
// read.
type Terminal struct {
	out io.Writer
	fd  int
	in  io.Reader

	mu sync.Mutex

	// pending carries a line read started by a form whose context ended
	// first.  The next form or passphrase prompt consumes it.
	pending chan lineResult
}

type lineResult struct {
	line string
	err  error
}

// NewTerminal returns a Terminal reading from in and writing prompts to out.
// fd is the descriptor used for hidden passphrase entry; pass -1 to disable.
func NewTerminal(in io.Reader, out io.Writer, fd int) *Terminal {
	return &Terminal{in: in, out: out, fd: fd}
}

// Stdio returns a Terminal on the process's stdin and stderr.
func Stdio() *Terminal {
	return NewTerminal(os.Stdin, os.Stderr, int(os.Stdin.Fd()))
}

// scanLine reads up to and excluding the next newline without reading
// past it.
func scanLine(r io.Reader) (string, error) {
	var (
		b    [1]byte
		line []byte
	)
	for {
		n, err := r.Read(b[:])
		if n == 1 {
			if b[0] == '\n' {
				return string(line), nil
			}
			line = append(line, b[0])
		}
		if err != nil {
			if errors.Is(err, io.EOF) && len(line) > 0 {
				return string(line), nil
			}
			return "", err
		}
	}
}

// readLine returns the next line of input.  Must be called with mu held.
func (t *Terminal) readLine(ctx context.Context) (string, error) {
	if t.pending == nil {
		ch := make(chan lineResult, 1)
		go func() {
			line, err := scanLine(t.in)
			ch <- lineResult{line: line, err: err}
		}()
		t.pending = ch
	}

	select {
	case r := <-t.pending:
		t.pending = nil
		return strings.TrimSpace(r.line), r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// ElicitForm prints message, then asks for each property in name order.
// An empty answer to a required field, or "n" to a boolean, declines.
func (t *Terminal) ElicitForm(ctx context.Context, message string, schema Schema) (Response, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "\n%s\n", message)

	names := make([]string, 0, len(schema.Properties))
	for name := range schema.Properties {
		names = append(names, name)
	}
	sort.Strings(names)

	content := make(map[string]any, len(names))
	for _, name := range names {
		prop := schema.Properties[name]
		title := prop.Title
		if title == "" {
			title = name
		}
		if prop.Description != "" {
			fmt.Fprintf(t.out, "%s\n", prop.Description)
		}

		switch prop.Type {
		case "boolean":
			fmt.Fprintf(t.out, "%s [y/N]: ", title)
		default:
			fmt.Fprintf(t.out, "%s: ", title)
		}

		line, err := t.readLine(ctx)
		if errors.Is(err, io.EOF) {
			return Response{Action: Cancel}, nil
		}
		if err != nil {
			return Response{}, err
		}

		if prop.Type == "boolean" {
			yes := strings.EqualFold(line, "y") || strings.EqualFold(line, "yes")
			if !yes {
				return Response{Action: Decline}, nil
			}
			content[name] = true
			continue
		}
		if line == "" {
			return Response{Action: Decline}, nil
		}
		content[name] = line
	}
	return Response{Action: Accept, Content: content}, nil
}

// PromptPassphrase reads a hidden passphrase from the terminal.  The hidden
// read itself cannot be interrupted, so ctx is only checked before it.
func (t *Terminal) PromptPassphrase(ctx context.Context, message string, confirm bool) ([]byte, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if t.fd < 0 || !term.IsTerminal(t.fd) {
		return nil, fmt.Errorf("stdin is not a terminal: %w", ErrNotInteractive)
	}

	// An abandoned form read still owns the tty.  Let it finish on an
	// echoed line before the hidden read starts.
	if t.pending != nil {
		fmt.Fprint(t.out, "\nPress Enter to continue.")
		if _, err := t.readLine(ctx); err != nil {
			return nil, err
		}
	}

	pass, err := t.readHidden(message)
	if err != nil {
		return nil, err
	}
	if !confirm {
		return pass, nil
	}

	again, err := t.readHidden("Repeat passphrase: ")
	if err != nil {
		clear(pass)
		return nil, err
	}
	defer clear(again)
	if !bytes.Equal(pass, again) {
		clear(pass)
		return nil, errors.New("passphrases do not match")
	}
	return pass, nil
}

func (t *Terminal) readHidden(prompt string) ([]byte, error) {
	fmt.Fprint(t.out, prompt)
	defer fmt.Fprintln(t.out)

	raw, err := term.ReadPassword(t.fd)
	if err != nil {
		return nil, fmt.Errorf("failed to read passphrase: %w", err)
	}
	if len(raw) == 0 {
		return nil, errors.New("passphrase cannot be empty")
	}
	pass := make([]byte, len(raw))
	copy(pass, raw)
	clear(raw)
	return pass, nil
}
