package shell

import (
	"context"
	"errors"
	"fmt"
	"os"
	"unicode/utf8"

	oerrs "src.oopis.dev/pkg/errs"
	"src.oopis.dev/pkg/eval"
	"src.oopis.dev/pkg/prog"
)

// Script executes a host-side script file, or args[0] itself when
// codeInArg is set. The remaining arguments become the script's arguments.
func Script(rt *Runtime, args []string, codeInArg bool) error {
	code := args[0]
	if !codeInArg {
		var err error
		code, err = readFileUTF8(args[0])
		if err != nil {
			return fmt.Errorf("cannot read script %q: %w", args[0], err)
		}
	}

	err := rt.Evaler.RunScriptContent(context.Background(), code, args[1:])
	if err == nil {
		return nil
	}
	// Evaluation failures have already been shown through the terminal;
	// the step cap is the one error raised by the loop itself.
	var steps *oerrs.StepsExceeded
	if errors.As(err, &steps) {
		rt.Term.Append(err.Error(), eval.OutputOpts{Class: eval.ClassError})
	}
	return prog.Exit(1)
}

var errSourceNotUTF8 = errors.New("source is not UTF-8")

func readFileUTF8(fname string) (string, error) {
	bytes, err := os.ReadFile(fname)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(bytes) {
		return "", errSourceNotUTF8
	}
	return string(bytes), nil
}
