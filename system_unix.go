//go:build !windows && !plan9

package statuslog

import (
	"fmt"
	"log/syslog"
	"os"
)

// openPlatformLog connects to the local syslog daemon at LOG_NOTICE, falling
// back to stderr when no daemon is listening
func openPlatformLog(tag string) (func(string), func() error) {
	w, err := syslog.New(syslog.LOG_NOTICE|syslog.LOG_USER, tag)
	if err != nil {
		return stderrSystemLog(tag), nil
	}
	return func(line string) { _ = w.Notice(line) }, w.Close
}

func stderrSystemLog(tag string) func(string) {
	return func(line string) {
		fmt.Fprintf(os.Stderr, "%s: %s\n", tag, line)
	}
}
