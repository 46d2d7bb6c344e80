package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
)

// prompter reads one answer per line. Reads give up when ctx is done so a
// signal during a prompt ends the program.
type prompter struct {
	r *bufio.Reader
	w io.Writer
}

func newPrompter(r io.Reader, w io.Writer) *prompter {
	return &prompter{r: bufio.NewReader(r), w: w}
}

type lineResult struct {
	line string
	err  error
}

// ask prints question and returns the trimmed answer. Closed input reads as
// an empty answer.
func (p *prompter) ask(ctx context.Context, question string) (string, error) {
	fmt.Fprint(p.w, question)

	ch := make(chan lineResult, 1)
	go func() {
		line, err := p.r.ReadString('\n')
		ch <- lineResult{line: line, err: err}
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(p.w)
		return "", ctx.Err()
	case res := <-ch:
		if res.err != nil && !errors.Is(res.err, io.EOF) {
			return "", fmt.Errorf("reading answer: %w", res.err)
		}
		if errors.Is(res.err, io.EOF) {
			fmt.Fprintln(p.w)
		}
		return strings.TrimSpace(res.line), nil
	}
}

// confirm treats Enter, y and yes as agreement.
func (p *prompter) confirm(ctx context.Context, question string) (bool, error) {
	answer, err := p.ask(ctx, question)
	if err != nil {
		return false, err
	}
	switch strings.ToLower(answer) {
	case "", "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
