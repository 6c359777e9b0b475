// Package debug appends diagnostic entries to log files under the
// repository's .git/ai/logs/ directory. Hook handlers log here instead of
// stderr so diagnostics never interleave with git's own output.
package debug

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Log appends a debug entry to the named log file in gitDir/ai/logs/.
// Best effort: logging failures are silent.
func Log(gitDir, logName, message string, data interface{}) {
	logDir := filepath.Join(gitDir, "ai", "logs")
	_ = os.MkdirAll(logDir, 0o755)

	logFile := filepath.Join(logDir, logName)
	f, err := os.OpenFile(logFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()

	ts := time.Now().Format("2006-01-02T15:04:05")
	fmt.Fprintf(f, "\n%s\n", strings.Repeat("=", 60))
	fmt.Fprintf(f, "[%s] %s\n", ts, message)

	if data != nil {
		b, err := json.MarshalIndent(data, "", "  ")
		if err == nil {
			fmt.Fprintf(f, "%s\n", b)
		}
	}
}

// Logf appends a formatted one-line entry.
func Logf(gitDir, logName, format string, args ...interface{}) {
	Log(gitDir, logName, fmt.Sprintf(format, args...), nil)
}
