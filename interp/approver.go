package interp

import (
	"bufio"
	"io"
	"strings"

	"github.com/gookit/color"
)

// Approver gates each dispatch candidate. Returning false skips the call.
type Approver interface {
	Approve(call DispatchableCall) (bool, error)
}

// ConsoleApprover prompts on Out and reads one line from In per candidate.
// A trimmed, case-insensitive "y" approves; anything else rejects.
type ConsoleApprover struct {
	In  io.Reader
	Out io.Writer

	reader *bufio.Reader
}

func NewConsoleApprover(in io.Reader, out io.Writer) *ConsoleApprover {
	return &ConsoleApprover{In: in, Out: out, reader: bufio.NewReader(in)}
}

func (a *ConsoleApprover) Approve(call DispatchableCall) (bool, error) {
	color.Fprintf(a.Out, "\n<cyan>=== External Call Request ===</>\n")
	color.Fprintf(a.Out, "Function: <yellow>%s</>\n", call.Function)
	color.Fprintf(a.Out, "Argument: %s\n", call.Argument)
	color.Fprintf(a.Out, "Approve? (y/n): ")

	line, err := a.reader.ReadString('\n')
	if err != nil && line == "" {
		return false, err
	}
	return strings.EqualFold(strings.TrimSpace(line), "y"), nil
}

// ApproveAll accepts every candidate, dispatching the same calls as a nil
// approver.
type ApproveAll struct{}

func (ApproveAll) Approve(DispatchableCall) (bool, error) {
	return true, nil
}
