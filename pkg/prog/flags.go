package prog

import "flag"

// FlagSet wraps a [flag.FlagSet], and provides methods for flags shared by
// multiple subprograms, so that they only get registered once.
type FlagSet struct {
	*flag.FlagSet
	json *bool
}

// JSON returns a pointer to the value of the shared -json flag, registering
// it on first use.
func (fs *FlagSet) JSON() *bool {
	if fs.json == nil {
		var json bool
		fs.BoolVar(&json, "json", false,
			"Show the output from -buildinfo or -version in JSON")
		fs.json = &json
	}
	return fs.json
}
