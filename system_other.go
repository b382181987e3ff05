//go:build windows || plan9

package statuslog

import (
	"fmt"
	"os"
)

// openPlatformLog writes to stderr where no syslog daemon exists
func openPlatformLog(tag string) (func(string), func() error) {
	return func(line string) {
		fmt.Fprintf(os.Stderr, "%s: %s\n", tag, line)
	}, nil
}
