package diag

import (
	"errors"
	"strings"
	"testing"

	"src.oopis.dev/pkg/testutil"
)

type testTag struct{}

func (testTag) ErrorTag() string { return "test error" }

func setCulpritMarkers(t *testing.T, begin, end string) {
	testutil.Set(t, &culpritLineBegin, begin)
	testutil.Set(t, &culpritLineEnd, end)
}

func TestContextShow(t *testing.T) {
	setCulpritMarkers(t, "<", ">")
	tests := []struct {
		name    string
		context *Context
		want    string
	}{
		{
			"single-line culprit",
			NewContext("[test]", "echo bad | this", Ranging{11, 15}),
			"[test], line 1:\necho bad | <this>",
		},
		{
			"multi-line culprit",
			NewContext("[test]", "a\nbc\nd", Ranging{2, 5}),
			"[test], line 2-3:\n<bc>\n<d>",
		},
		{
			"zero-width culprit uses placeholder",
			NewContext("[test]", "abc", Ranging{3, 3}),
			"[test], line 1:\nabc<^>",
		},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			if got := test.context.Show(""); got != test.want {
				t.Errorf("Show(\"\") = %q, want %q", got, test.want)
			}
		})
	}
}

func TestErrorAndUnpack(t *testing.T) {
	err1 := &Error[testTag]{
		Message: "bad thing",
		Context: *NewContext("src", "code", Ranging{0, 4}),
	}
	if got, want := err1.Error(), "test error: 0-4 in src: bad thing"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}

	if got := PackErrors[testTag](nil); got != nil {
		t.Errorf("PackErrors(nil) = %v, want nil", got)
	}
	if got := PackErrors([]*Error[testTag]{err1}); got != error(err1) {
		t.Errorf("PackErrors([1 error]) did not return the error itself")
	}

	err2 := &Error[testTag]{
		Message: "worse thing",
		Context: *NewContext("src", "code", Ranging{1, 2}),
	}
	packed := PackErrors([]*Error[testTag]{err1, err2})
	if !strings.Contains(packed.Error(), "multiple test errors") {
		t.Errorf("packed.Error() = %q, want mention of multiple errors", packed.Error())
	}
	unpacked := UnpackErrors[testTag](packed)
	if len(unpacked) != 2 || unpacked[0] != err1 || unpacked[1] != err2 {
		t.Errorf("UnpackErrors did not round-trip: %v", unpacked)
	}
	if got := UnpackErrors[testTag](errors.New("plain")); got != nil {
		t.Errorf("UnpackErrors(plain error) = %v, want nil", got)
	}
}

func TestShowError(t *testing.T) {
	setCulpritMarkers(t, "<", ">")
	testutil.Set(t, &messageStart, "{")
	testutil.Set(t, &messageEnd, "}")

	var sb strings.Builder
	ShowError(&sb, errors.New("plain error"))
	if got, want := sb.String(), "{plain error}\n"; got != want {
		t.Errorf("ShowError(plain) wrote %q, want %q", got, want)
	}

	sb.Reset()
	ShowError(&sb, &Error[testTag]{
		Message: "bad", Context: *NewContext("src", "code", Ranging{0, 4})})
	if got := sb.String(); !strings.Contains(got, "Test error") {
		t.Errorf("ShowError(diag error) wrote %q, want title-cased tag", got)
	}
}
