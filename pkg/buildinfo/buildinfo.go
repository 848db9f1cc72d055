// Package buildinfo contains build information.
package buildinfo

import (
	"encoding/json"
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"
	"time"

	"src.oopis.dev/pkg/must"
	"src.oopis.dev/pkg/prog"
)

// VersionBase identifies the version of oopis. On the development branch it
// identifies the next release.
const VersionBase = "0.1.0"

// VCSOverride may be set during compilation with
//
//	-ldflags "-X src.oopis.dev/pkg/buildinfo.VCSOverride=time-commit"
//
// to inject VCS information when none is available from the Go toolchain,
// where time is in the yyyymmddhhmmss format and commit is the first 12
// characters of the commit hash.
var VCSOverride string

// BuildVariant may be set during compilation with
//
//	-ldflags "-X src.oopis.dev/pkg/buildinfo.BuildVariant=name"
//
// to identify a particular build, such as a distribution package.
var BuildVariant string

// Type describes the build information.
type Type struct {
	Version   string `json:"version"`
	GoVersion string `json:"goversion"`
}

// Value contains the build information of the current binary.
var Value = Type{
	Version:   addVariant(oopisVersion(), BuildVariant),
	GoVersion: runtime.Version(),
}

func addVariant(version, variant string) string {
	if variant != "" {
		version += "+" + variant
	}
	return version
}

func oopisVersion() string {
	return devVersion(VersionBase, VCSOverride, debug.ReadBuildInfo)
}

// devVersion builds a version string for a development build, using the same
// pseudo-version format as the Go module system where VCS data is available.
func devVersion(next, vcsOverride string, f func() (*debug.BuildInfo, bool)) string {
	fallback := next + "-dev.unknown"
	if vcsOverride != "" {
		return next + "-dev.0." + vcsOverride
	}
	bi, ok := f()
	if !ok {
		return fallback
	}
	// If the main module's version is known, use it.
	if v := bi.Main.Version; v != "" && v != "(devel)" {
		return strings.TrimPrefix(v, "v")
	}
	// Otherwise build a pseudo-version from the VCS metadata.
	m := make(map[string]string)
	for _, s := range bi.Settings {
		if k := s.Key; k == "vcs.revision" || k == "vcs.time" || k == "vcs.modified" {
			m[k] = s.Value
		}
	}
	if m["vcs.revision"] == "" || m["vcs.time"] == "" || m["vcs.modified"] == "" {
		return fallback
	}
	t, err := time.Parse(time.RFC3339Nano, m["vcs.time"])
	if err != nil {
		return fallback
	}
	revision := m["vcs.revision"]
	if len(revision) > 12 {
		revision = revision[:12]
	}
	version := next + "-dev.0." + t.Format("20060102150405") + "-" + revision
	if m["vcs.modified"] == "true" {
		version += "-dirty"
	}
	return version
}

// Program is the buildinfo subprogram.
type Program struct {
	version, buildinfo bool
	json               *bool
}

func (p *Program) RegisterFlags(fs *prog.FlagSet) {
	fs.BoolVar(&p.version, "version", false, "Output the version and quit")
	fs.BoolVar(&p.buildinfo, "buildinfo", false, "Output information about the build and quit")
	p.json = fs.JSON()
}

func (p *Program) Run(fds [3]*os.File, _ []string) error {
	switch {
	case p.buildinfo:
		if *p.json {
			fmt.Fprintln(fds[1], mustToJSON(Value))
		} else {
			fmt.Fprintln(fds[1], "Version:", Value.Version)
			fmt.Fprintln(fds[1], "Go version:", Value.GoVersion)
		}
	case p.version:
		if *p.json {
			fmt.Fprintln(fds[1], mustToJSON(Value.Version))
		} else {
			fmt.Fprintln(fds[1], Value.Version)
		}
	default:
		return prog.ErrNextProgram
	}
	return nil
}

func mustToJSON(v any) string {
	return string(must.OK1(json.Marshal(v)))
}
