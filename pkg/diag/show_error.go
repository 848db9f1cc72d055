package diag

import (
	"fmt"
	"io"
)

// ShowError shows an error. It uses the Show method if the error implements
// [Shower], and the Error method otherwise. The error message is always
// written in the "error" style.
func ShowError(w io.Writer, err error) {
	if shower, ok := err.(Shower); ok {
		fmt.Fprintln(w, shower.Show(""))
	} else {
		fmt.Fprintf(w, "%s%s%s\n", messageStart, err.Error(), messageEnd)
	}
}
