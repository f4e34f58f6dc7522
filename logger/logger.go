// This file is part of armv7m.
//
// armv7m is free software: you can redistribute it and/or modify
// it under the terms of the GNU General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// armv7m is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE.  See the
// GNU General Public License for more details.
//
// You should have received a copy of the GNU General Public License
// along with armv7m.  If not, see <https://www.gnu.org/licenses/>.

// Package logger implements a small ring-buffered log that the rest of the
// emulator writes informational and fault entries to. An entry's detail is
// formatted to a string when the entry is added; entries are only written
// out to a writer on request (Write, Tail).
package logger

import (
	"fmt"
	"io"
	"strings"
	"sync"
)

// Permission is consulted before an entry is added to the log. Types that
// want to suppress logging in some context (eg. a disposable emulation used
// only for regression testing) implement this interface and pass themselves
// as the permission argument to Log/Logf.
type Permission interface {
	AllowLogging() bool
}

// Allow is a Permission that always allows logging. Most call sites that
// don't have a more specific permission source use this.
const Allow = allow(true)

type allow bool

func (a allow) AllowLogging() bool {
	return bool(a)
}

type entry struct {
	tag    string
	detail string
}

// Logger is a fixed-capacity ring of log entries. The oldest entry is
// discarded once capacity is reached.
type Logger struct {
	crit    sync.Mutex
	entries []entry
	size    int
	next    int
	count   int
}

// NewLogger is the preferred method of initialisation for the Logger type.
// size is the maximum number of entries retained.
func NewLogger(size int) *Logger {
	if size < 1 {
		size = 1
	}
	return &Logger{
		entries: make([]entry, size),
		size:    size,
	}
}

func formatDetail(detail interface{}) string {
	switch v := detail.(type) {
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	case string:
		return v
	default:
		return fmt.Sprintf("%v", v)
	}
}

// Log adds a new entry to the log, identified by tag, provided permission
// allows it.
func (log *Logger) Log(permission Permission, tag string, detail interface{}) {
	if permission == nil || !permission.AllowLogging() {
		return
	}

	log.crit.Lock()
	defer log.crit.Unlock()

	log.entries[log.next] = entry{tag: tag, detail: formatDetail(detail)}
	log.next = (log.next + 1) % log.size
	if log.count < log.size {
		log.count++
	}
}

// Logf is like Log but the detail is created with a fmt.Sprintf-style
// format string.
func (log *Logger) Logf(permission Permission, tag string, format string, args ...interface{}) {
	log.Log(permission, tag, fmt.Sprintf(format, args...))
}

// Clear empties the log.
func (log *Logger) Clear() {
	log.crit.Lock()
	defer log.crit.Unlock()
	log.next = 0
	log.count = 0
}

// order returns entries oldest-first.
func (log *Logger) order() []entry {
	if log.count < log.size {
		return log.entries[:log.count]
	}
	ordered := make([]entry, log.size)
	copy(ordered, log.entries[log.next:])
	copy(ordered[log.size-log.next:], log.entries[:log.next])
	return ordered
}

// Write renders the entire log to w, one entry per line, in the form
// "tag: detail".
func (log *Logger) Write(w io.Writer) {
	log.crit.Lock()
	defer log.crit.Unlock()

	for _, e := range log.order() {
		fmt.Fprintf(w, "%s: %s\n", e.tag, e.detail)
	}
}

// Tail renders at most the last n entries to w. If n is greater than the
// number of entries present then the whole log is rendered.
func (log *Logger) Tail(w io.Writer, n int) {
	log.crit.Lock()
	defer log.crit.Unlock()

	ordered := log.order()
	if n < 0 {
		n = 0
	}
	if n > len(ordered) {
		n = len(ordered)
	}
	for _, e := range ordered[len(ordered)-n:] {
		fmt.Fprintf(w, "%s: %s\n", e.tag, e.detail)
	}
}

// String renders the log as it would appear from Write, without requiring
// an io.Writer from the caller.
func (log *Logger) String() string {
	var b strings.Builder
	log.Write(&b)
	return b.String()
}

// central is the default, package-level log that most of the emulator
// writes to. A dedicated Logger can always be created with NewLogger for
// isolated use (eg. in tests).
var central = NewLogger(500)

// Log adds an entry to the central log.
func Log(tag string, detail interface{}) {
	central.Log(Allow, tag, detail)
}

// Logf adds an entry to the central log using a format string.
func Logf(tag string, format string, args ...interface{}) {
	central.Logf(Allow, tag, format, args...)
}

// Write renders the central log.
func Write(w io.Writer) {
	central.Write(w)
}

// Tail renders the last n entries of the central log.
func Tail(w io.Writer, n int) {
	central.Tail(w, n)
}

// Clear empties the central log.
func Clear() {
	central.Clear()
}
