package netscan

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/officewatch/officewatch/internal/errors"
)

const (
	scanLogDirPerm  = 0750
	scanLogFilePerm = 0600
)

// ScanLog appends timestamped raw scanner output to a daily log file. It is
// a side channel for audit/debugging: callers treat writes as best-effort
// and must never fail the reporting path on a log error.
type ScanLog struct {
	dir string
	now func() time.Time
}

// NewScanLog creates a scan log writing under dir. The directory is created
// lazily on first write.
func NewScanLog(dir string) *ScanLog {
	return &ScanLog{dir: dir, now: time.Now}
}

// Append writes one labeled entry to today's log file.
func (l *ScanLog) Append(label, raw string) error {
	if l.dir == "" {
		return nil
	}

	if err := os.MkdirAll(l.dir, scanLogDirPerm); err != nil {
		return errors.WrapScanError(errors.CodeScanLogWrite, "Failed to create scan log directory", err)
	}

	now := l.now()
	path := filepath.Join(l.dir, fmt.Sprintf("scan-%s.log", now.Format("2006-01-02")))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, scanLogFilePerm)
	if err != nil {
		return errors.WrapScanError(errors.CodeScanLogWrite, "Failed to open scan log file", err)
	}
	defer f.Close()

	entry := fmt.Sprintf("[%s] %s\n%s\n\n", now.Format(time.RFC3339), label, raw)
	if _, err := f.WriteString(entry); err != nil {
		return errors.WrapScanError(errors.CodeScanLogWrite, "Failed to write scan log entry", err)
	}
	return nil
}
