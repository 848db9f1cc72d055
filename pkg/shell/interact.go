package shell

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"strings"

	"src.oopis.dev/pkg/buildinfo"
	"src.oopis.dev/pkg/eval"
	"src.oopis.dev/pkg/sys"
)

// Interact runs the interactive read-eval loop until stdin is exhausted.
//
// Input lines are read on their own goroutine so that a line typed while a
// command is running can answer that command's modal input request. A line
// nobody asked for is dropped.
func Interact(rt *Runtime, fds [3]*os.File) error {
	fmt.Fprintf(fds[1], "OopisOS %s\n", buildinfo.Value.Version)

	lines := make(chan string)
	go func() {
		defer close(lines)
		in := bufio.NewScanner(fds[0])
		in.Buffer(make([]byte, 0, 4096), 1024*1024)
		for in.Scan() {
			lines <- in.Text()
		}
	}()

	sigs := sys.NotifySignals()

	for {
		rt.Term.ShowPrompt(rt.Prompt(), false)
		line, ok := readLine(lines, sigs, fds[2])
		rt.Term.EndPrompt()
		if !ok {
			break
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		rt.Sessions.AddHistory(line)
		evalInteractive(rt, line, lines, sigs)
	}

	fmt.Fprintln(fds[1])
	return rt.Sessions.SaveCurrent()
}

// readLine waits for the next input line between commands. Interrupts here
// have nothing to cancel and are ignored.
func readLine(lines <-chan string, sigs <-chan os.Signal, stderr *os.File) (string, bool) {
	for {
		select {
		case line, ok := <-lines:
			return line, ok
		case sig := <-sigs:
			handleSignal(sig, stderr)
		}
	}
}

// evalInteractive runs one typed line to completion, feeding subsequent
// input lines to the broker and translating interrupts into cancellation.
func evalInteractive(rt *Runtime, line string, lines <-chan string, sigs <-chan os.Signal) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		rt.Evaler.Eval(ctx, line, eval.EvalCfg{Interactive: true})
	}()

	for {
		select {
		case answer, ok := <-lines:
			if !ok {
				// Stdin is gone; the command cannot be answered anymore.
				cancel()
				rt.Dialog.CancelPending()
				<-done
				return
			}
			if rt.Dialog.Deliver(answer) {
				rt.Term.EndPrompt()
			} else {
				logger.Printf("dropping unconsumed input %q", answer)
			}
		case sig := <-sigs:
			if sig == os.Interrupt {
				cancel()
				rt.Dialog.CancelPending()
				rt.Term.EndPrompt()
			} else {
				handleSignal(sig, rt.Term.err)
			}
		case <-done:
			return
		}
	}
}
