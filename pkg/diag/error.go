package diag

import (
	"fmt"
	"strings"
)

// Error is an error with a source context attached. The type parameter
// determines the value of certain metadata; see [ErrorTag].
type Error[T ErrorTag] struct {
	Message string
	Context Context

	// Indicates whether the error may be caused by partial input. More
	// precisely, this field is true if and only if the range of the error
	// sits at the very end of the source.
	Partial bool
}

// ErrorTag is used to parameterize [Error] into different concrete types. The
// ErrorTag method is called with a zero receiver, and its return value is used
// as a prefix in [Error.Error] and as a title in [Error.Show].
type ErrorTag interface {
	comparable
	ErrorTag() string
}

// Error returns a plain text representation of the error.
func (e *Error[T]) Error() string {
	return errorTag[T]() + ": " + e.errorNoType()
}

func (e *Error[T]) errorNoType() string {
	return fmt.Sprintf("%d-%d in %s: %s",
		e.Context.From, e.Context.To, e.Context.Name, e.Message)
}

// Range returns the range of the error.
func (e *Error[T]) Range() Ranging {
	return e.Context.Range()
}

var messageStart = "\033[31;1m"
var messageEnd = "\033[m"

// Show shows the error with its context.
func (e *Error[T]) Show(indent string) string {
	return fmt.Sprintf("%s: %s%s%s\n%s%s",
		title(errorTag[T]()), messageStart, e.Message, messageEnd,
		indent+"  ", e.Context.ShowCompact(indent+"  "))
}

func errorTag[T ErrorTag]() string {
	var tag T
	return tag.ErrorTag()
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// PackErrors packs multiple instances of [Error] with the same tag into one
// error:
//
//   - If called with no errors, it returns nil.
//
//   - If called with one error, it returns that error itself.
//
//   - If called with more than one error, it returns an error that combines
//     all of them. The returned error also implements [Shower], and its Error
//     and Show methods only report the number of underlying errors.
func PackErrors[T ErrorTag](errs []*Error[T]) error {
	switch len(errs) {
	case 0:
		return nil
	case 1:
		return errs[0]
	default:
		return combinedErrors[T]{errs}
	}
}

// UnpackErrors returns the constituent [Error] instances in an error if it is
// built from [PackErrors]. Otherwise it returns nil.
func UnpackErrors[T ErrorTag](err error) []*Error[T] {
	switch err := err.(type) {
	case *Error[T]:
		return []*Error[T]{err}
	case combinedErrors[T]:
		return err.errs
	default:
		return nil
	}
}

type combinedErrors[T ErrorTag] struct{ errs []*Error[T] }

func (ce combinedErrors[T]) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "multiple %ss in %s: ",
		errorTag[T](), ce.errs[0].Context.Name)
	for i, e := range ce.errs {
		if i > 0 {
			sb.WriteString("; ")
		}
		fmt.Fprintf(&sb, "%d-%d: %s", e.Context.From, e.Context.To, e.Message)
	}
	return sb.String()
}

func (ce combinedErrors[T]) Show(indent string) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Multiple %ss:", errorTag[T]())
	for _, e := range ce.errs {
		sb.WriteString("\n" + indent + "  ")
		sb.WriteString(e.Show(indent + "  "))
	}
	return sb.String()
}
