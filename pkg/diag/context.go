// Package diag contains building blocks for formatting and processing
// diagnostic information.
package diag

import (
	"fmt"
	"strings"
)

// Context stores a range of text in a named piece of source code. It is
// typically part of an error that can be associated with the source, like a
// parse error.
type Context struct {
	Name   string
	Source string
	Ranging

	savedShowInfo *rangeShowInfo
}

// NewContext creates a new Context.
func NewContext(name, source string, r Ranger) *Context {
	return &Context{name, source, r.Range(), nil}
}

// Information about the range that is only computed when the context is
// actually shown.
type rangeShowInfo struct {
	// Text before the culprit on the same line, if any.
	head string
	// Source[From:To], with a trailing newline stripped.
	culprit string
	// Text after the culprit on the same line, if any.
	tail string
	// 1-based line numbers of the first and last culprit line.
	beginLine, endLine int
}

// Variables controlling how the culprit is highlighted. Can be overridden in
// tests.
var (
	culpritLineBegin   = "\033[1;4m"
	culpritLineEnd     = "\033[m"
	culpritPlaceHolder = "^"
)

func (c *Context) showInfo() *rangeShowInfo {
	if c.savedShowInfo != nil {
		return c.savedShowInfo
	}
	before := c.Source[:c.From]
	culprit := c.Source[c.From:c.To]
	after := c.Source[c.To:]

	head := lastLine(before)
	beginLine := strings.Count(before, "\n") + 1

	var tail string
	if strings.HasSuffix(culprit, "\n") {
		culprit = culprit[:len(culprit)-1]
	} else {
		tail = firstLine(after)
	}
	endLine := beginLine + strings.Count(culprit, "\n")

	c.savedShowInfo = &rangeShowInfo{head, culprit, tail, beginLine, endLine}
	return c.savedShowInfo
}

// Show shows the context, putting the source excerpt on a new line.
func (c *Context) Show(indent string) string {
	if err := c.checkPosition(); err != nil {
		return err.Error()
	}
	return c.Name + ", " + c.lineRange() + "\n" + indent + c.relevantSource(indent)
}

// ShowCompact shows the context, with the source excerpt on the same line as
// the position description.
func (c *Context) ShowCompact(indent string) string {
	if err := c.checkPosition(); err != nil {
		return err.Error()
	}
	desc := c.Name + ", " + c.lineRange() + " "
	// Extra indent so that the following lines line up with the first one.
	descIndent := strings.Repeat(" ", len([]rune(desc)))
	return desc + c.relevantSource(indent+descIndent)
}

func (c *Context) checkPosition() error {
	if c.From == -1 {
		return fmt.Errorf("%s, unknown position", c.Name)
	} else if c.From < 0 || c.To > len(c.Source) || c.From > c.To {
		return fmt.Errorf("%s, invalid position %d-%d", c.Name, c.From, c.To)
	}
	return nil
}

func (c *Context) lineRange() string {
	info := c.showInfo()
	if info.beginLine == info.endLine {
		return fmt.Sprintf("line %d:", info.beginLine)
	}
	return fmt.Sprintf("line %d-%d:", info.beginLine, info.endLine)
}

func (c *Context) relevantSource(indent string) string {
	info := c.showInfo()

	var sb strings.Builder
	sb.WriteString(info.head)

	culprit := info.culprit
	if culprit == "" {
		culprit = culpritPlaceHolder
	}
	for i, line := range strings.Split(culprit, "\n") {
		if i > 0 {
			sb.WriteByte('\n')
			sb.WriteString(indent)
		}
		sb.WriteString(culpritLineBegin)
		sb.WriteString(line)
		sb.WriteString(culpritLineEnd)
	}

	sb.WriteString(info.tail)
	return sb.String()
}

func firstLine(s string) string {
	i := strings.IndexByte(s, '\n')
	if i == -1 {
		return s
	}
	return s[:i]
}

func lastLine(s string) string {
	// LastIndexByte returns -1 if there is no newline, which happens to be
	// exactly what we want.
	return s[strings.LastIndexByte(s, '\n')+1:]
}
