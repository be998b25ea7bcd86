package cmd

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/manifoldco/promptui"
)

const (
	cmdExit  = "/exit"
	cmdReset = "/reset"
)

var errQuit = errors.New("quit")

// readMessage asks for the next user line. errQuit is returned on Ctrl+C, Ctrl+D or /exit.
func readMessage(label string) (string, error) {
	p := promptui.Prompt{Label: label}
	line, err := p.Run()
	if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
		return "", errQuit
	}
	if err != nil {
		return "", err
	}
	line = strings.TrimSpace(line)
	if line == cmdExit {
		return "", errQuit
	}
	return line, nil
}

// deltaPrinter writes only the part of a growing snapshot not printed yet.
type deltaPrinter struct {
	w       io.Writer
	printed string
}

func (p *deltaPrinter) update(snapshot string) {
	if strings.HasPrefix(snapshot, p.printed) {
		fmt.Fprint(p.w, snapshot[len(p.printed):])
	} else {
		fmt.Fprint(p.w, "\n"+snapshot)
	}
	p.printed = snapshot
}

func (p *deltaPrinter) finish(final string) {
	if final != p.printed {
		p.update(final)
	}
	fmt.Fprintln(p.w)
	p.printed = ""
}
