package eval_test

import (
	"strings"
	"testing"

	. "src.oopis.dev/pkg/eval/evaltest"
)

func TestSaveAndLoadFs(t *testing.T) {
	f := NewFixture(t)
	f.MustEval(t, "echo hi > f.txt", "savefs", "rm f.txt")
	if got := f.UI.Output(); !strings.Contains(got, "Filesystem state saved for Guest.") {
		t.Errorf("savefs printed %q", got)
	}
	if _, err := f.FS.ReadFile("/home/Guest/f.txt", "/", "root"); err == nil {
		t.Fatal("f.txt still present after rm")
	}

	f.UI.Reset()
	f.MustEval(t, "loadfs")
	if got := f.UI.Output(); !strings.Contains(got, "restored") {
		t.Errorf("loadfs printed %q", got)
	}
	got, err := f.FS.ReadFile("/home/Guest/f.txt", "/", "root")
	if err != nil {
		t.Fatalf("read restored file: %v", err)
	}
	if got != "hi\n" {
		t.Errorf("restored content = %q, want %q", got, "hi\n")
	}
}

func TestLoadFsWithoutSave(t *testing.T) {
	Test(t,
		That("loadfs").
			Throws(ErrorWithMessage("loadfs: no saved filesystem state found")),
	)
}
