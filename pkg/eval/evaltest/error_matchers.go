package evaltest

import (
	"fmt"
	"reflect"

	"src.oopis.dev/pkg/parse"
)

type errorMatcher interface{ matchError(error) bool }

func matchErr(want, got error) bool {
	if want == nil {
		return got == nil
	}
	if matcher, ok := want.(errorMatcher); ok {
		return matcher.matchError(got)
	}
	return reflect.DeepEqual(want, got)
}

// AnyError is an error that can be passed to Case.Throws to match any
// non-nil error.
var AnyError anyError

type anyError struct{}

func (anyError) Error() string           { return "any error" }
func (anyError) matchError(e error) bool { return e != nil }

// AnyParseError is an error that can be passed to Case.Throws to match any
// parse error.
var AnyParseError anyParseError

type anyParseError struct{}

func (anyParseError) Error() string           { return "any parse error" }
func (anyParseError) matchError(e error) bool { return len(parse.UnpackErrors(e)) > 0 }

// ErrorWithType returns an error that can be passed to Case.Throws to match
// any error with the same type as the argument.
func ErrorWithType(v error) error { return errWithType{v} }

type errWithType struct{ v error }

func (e errWithType) Error() string { return fmt.Sprintf("error with type %T", e.v) }

func (e errWithType) matchError(e2 error) bool {
	return reflect.TypeOf(e.v) == reflect.TypeOf(e2)
}

// ErrorWithMessage returns an error that can be passed to Case.Throws to
// match any error with the given message.
func ErrorWithMessage(msg string) error { return errWithMessage{msg} }

type errWithMessage struct{ msg string }

func (e errWithMessage) Error() string { return "error with message " + e.msg }

func (e errWithMessage) matchError(e2 error) bool {
	return e2 != nil && e.msg == e2.Error()
}

// OneOfErrors returns an error that can be passed to Case.Throws to match
// any one of the given errors.
func OneOfErrors(errs ...error) error { return errOneOf{errs} }

type errOneOf struct{ errs []error }

func (e errOneOf) Error() string { return fmt.Sprint("one of ", e.errs) }

func (e errOneOf) matchError(got error) bool {
	for _, want := range e.errs {
		if matchErr(want, got) {
			return true
		}
	}
	return false
}
