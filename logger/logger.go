// Package logger provides thread-safe, leveled logging for a tree instance
// (SPEC_FULL.md §2.1): a Logger wraps an io.WriteCloser, the `verbose`
// config option (spec.md §6.1) picks its threshold, and AddReport
// (reports.go) schedules the recurring tree-stats lines instance.Instance
// registers, backing their interval off via github.com/cenkalti/backoff the
// same way the teacher's logger package schedules its own periodic loggers.
package logger

import (
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// log message importance
const (
	Debug   int = 9 // temporary or possibly interesting
	Info    int = 7 // interesting
	Warning int = 5 // temporary or client error
	Error   int = 3 // permanent degradation
	Fatal   int = 1 // irrecoverable error
)

// fatalExitCode is the code Logger will abort the process with if a
// fatal-level message is printed.
const fatalExitCode int = 3

// Logger is a utility for thread-safe and leveled logging. Use .Log() or one
// of its wrappers for issues that can be caught as they happen (instance's
// per-operation Debug trace), AddReport for the recurring tree-stats line,
// and .Compose() to make sure a report's multiple writes land as one
// message. Should not be dereferenced or moved as it contains mutexes.
type Logger struct {
	writeTo   io.WriteCloser
	writeLock sync.Mutex
	Treshold  int
	reports   reportScheduler
}

// NewLogger creates a new logger with a minimum importance level.
// Even though Logger implements WriteCloser, Loggers should not be nested.
func NewLogger(writeTo io.WriteCloser, level int) *Logger {
	l := &Logger{
		writeTo:  writeTo,
		Treshold: level,
		reports:  newReportScheduler(),
	}
	go reportRunner(l)
	return l
}

// NewStderrLogger is the construction shortcut instance.New uses: a logger
// writing to os.Stderr at Debug level when verbose is set, Info otherwise
// (spec.md §6.1's `verbose` option).
func NewStderrLogger(verbose bool) *Logger {
	level := Info
	if verbose {
		level = Debug
	}
	return NewLogger(os.Stderr, level)
}

// Close releases the underlying Writer and stops the tree-stats report
// scheduler. Safe to call more than once.
func (l *Logger) Close() {
	l.reports.Close()
	l.writeLock.Lock()
	defer l.writeLock.Unlock()
	if l.writeTo == nil {
		return
	}
	// Might return an error, but where should the error message be written?
	if f, ok := l.writeTo.(*os.File); !ok || f != os.Stderr && f != os.Stdout {
		_ = l.writeTo.Close()
	}
	l.writeTo = nil
}

func (l *Logger) prefixMessage(level int) {
	if l.Treshold < Debug {
		fmt.Fprint(l.writeTo, time.Now().Format("2006-01-02 15:04:05: "))
	}
	if level == Warning {
		fmt.Fprint(l.writeTo, "WARNING: ")
	} else if level == Error {
		fmt.Fprint(l.writeTo, "ERROR: ")
	} else if level == Fatal && l.Treshold != Debug {
		fmt.Fprint(l.writeTo, "FATAL: ")
	}
}

// Compose holds the write lock across a report's Writeln calls so a
// multi-line tree-stats report never interleaves with another goroutine's
// Debug trace. runDueReports is the only caller outside tests.
func (l *Logger) Compose(level int) Composer {
	c := Composer{
		level:    level,
		writeTo:  nil,
		heldLock: nil,
	}
	if level <= l.Treshold {
		c.writeTo = l.writeTo
		c.heldLock = &l.writeLock
		l.writeLock.Lock()
		l.prefixMessage(level)
	}
	return c
}

// Log writes the message if it passes the logger's importance threshold.
func (l *Logger) Log(level int, format string, args ...interface{}) {
	if level <= l.Treshold {
		l.writeLock.Lock()
		defer l.writeLock.Unlock()
		l.prefixMessage(level)
		if len(args) == 0 {
			fmt.Fprint(l.writeTo, format)
		} else {
			fmt.Fprintf(l.writeTo, format, args...)
		}
		fmt.Fprintln(l.writeTo)
		if level == Fatal {
			os.Exit(fatalExitCode)
		}
	}
}

// Wrappers around Log()

func (l *Logger) Debug(format string, args ...interface{}) {
	l.Log(Debug, format, args...)
}

func (l *Logger) Info(format string, args ...interface{}) {
	l.Log(Info, format, args...)
}

func (l *Logger) Warning(format string, args ...interface{}) {
	l.Log(Warning, format, args...)
}

func (l *Logger) Error(format string, args ...interface{}) {
	l.Log(Error, format, args...)
}

func (l *Logger) Fatal(format string, args ...interface{}) {
	l.Log(Fatal, format, args...)
}

// FatalIf does nothing if cond is false, but otherwise prints the message
// and aborts the process.
func (l *Logger) FatalIf(cond bool, format string, args ...interface{}) {
	if cond {
		l.Fatal(format, args...)
	}
}

// FatalIfErr does nothing if err is nil, but otherwise prints
// "Failed to <..>: $err.Error()" and aborts the process.
func (l *Logger) FatalIfErr(err error, format string, args ...interface{}) {
	if err != nil {
		args = append(args, err.Error())
		l.Fatal("Failed to "+format+": %s", args...)
	}
}

// Composer lets a tree-stats report span multiple Writeln calls while
// holding the logger's write lock, so the lines of every report due in one
// scheduler wake-up (such as instance.go's logStats, which writes a single
// line) never interleave with another goroutine's writes. End the message by
// calling Close() (runDueReports always does, via defer).
type Composer struct {
	level    int       // Only used for Fatal
	writeTo  io.Writer // nil if level is ignored
	heldLock *sync.Mutex
}

// Writeln writes a formatted string plus a newline.
func (c *Composer) Writeln(format string, args ...interface{}) {
	if c.writeTo != nil {
		if len(args) == 0 {
			fmt.Fprint(c.writeTo, format)
		} else {
			fmt.Fprintf(c.writeTo, format, args...)
		}
		fmt.Fprintln(c.writeTo)
	}
}

// Close releases the mutex on the logger and exits the process for `Fatal`
// composers.
func (c *Composer) Close() {
	if c.writeTo != nil {
		fmt.Fprintln(c.writeTo)
		c.heldLock.Unlock()
		if c.level == Fatal {
			os.Exit(fatalExitCode)
		}
		c.writeTo = nil
	}
}
