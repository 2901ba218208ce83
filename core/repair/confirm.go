package repair

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"chunk-mender/core/chunk"
)

// Prompt is the question asked before unrecoverable chunks are deleted.
const Prompt = "Delete chunks and save? "

// Confirmer asks the operator whether unrecoverable chunks may be deleted.
type Confirmer interface {
	Confirm(ctx context.Context, damaged []chunk.Coord) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(ctx context.Context, damaged []chunk.Coord) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(ctx context.Context, damaged []chunk.Coord) (bool, error) {
	return f(ctx, damaged)
}

// AlwaysConfirm approves without asking.
var AlwaysConfirm = ConfirmFunc(func(context.Context, []chunk.Coord) (bool, error) {
	return true, nil
})

// IsAffirmative reports whether an operator answer approves deletion.
// Only "y" is accepted, case-insensitively, ignoring surrounding whitespace.
func IsAffirmative(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), "y")
}

// ReaderConfirmer prints a banner and Prompt to Out and reads one line from In.
type ReaderConfirmer struct {
	In  io.Reader
	Out io.Writer

	// Banner renders the text shown before the prompt. Optional.
	Banner func(damaged []chunk.Coord) string
}

// Confirm asks once. EOF or a read error counts as a refusal. Cancelling ctx
// while the operator has not answered returns ctx.Err(); the pending read is
// left to finish on its own.
func (r *ReaderConfirmer) Confirm(ctx context.Context, damaged []chunk.Coord) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}

	if r.Banner != nil {
		fmt.Fprintln(r.Out, r.Banner(damaged))
	}
	fmt.Fprint(r.Out, Prompt)

	answers := make(chan string, 1)
	go func() {
		answer, _ := bufio.NewReader(r.In).ReadString('\n')
		answers <- answer
	}()

	select {
	case <-ctx.Done():
		fmt.Fprintln(r.Out)
		return false, ctx.Err()
	case answer := <-answers:
		return IsAffirmative(answer), nil
	}
}
