package mailer

import (
	"fmt"
	"strings"
	"time"
)

const (
	// ReportSubject is the subject of scheduled reports.
	ReportSubject = "Daily File Organizer Report"
	// TestSubject is the subject of the connectivity test mail.
	TestSubject = "Test Email - File Organizer"
	// TestBody is the body of the connectivity test mail.
	TestBody = "This is a test email to verify the SMTP settings work."
)

// Summary carries the run statistics included in a report.
type Summary struct {
	Operation  string
	RunID      string
	FinishedAt time.Time
	Moved      int
	Failed     int
	Skipped    int
	Findings   int
	LogPath    string
}

// ReportBody renders the report text for summary. Zero counters are omitted.
func ReportBody(summary Summary) string {
	finished := summary.FinishedAt
	if finished.IsZero() {
		finished = time.Now()
	}

	var b strings.Builder
	b.WriteString("Hello,\n\n")
	fmt.Fprintf(&b, "Your file organizer has completed its task at %s.\n", finished.Format("2006-01-02 15:04:05"))
	b.WriteString("You can check the logs for details of files moved or scanned.\n")

	var lines []string
	if summary.Operation != "" {
		lines = append(lines, "Operation: "+summary.Operation)
	}
	if summary.RunID != "" {
		lines = append(lines, "Run: "+summary.RunID)
	}
	if summary.Moved > 0 {
		lines = append(lines, fmt.Sprintf("Files moved: %d", summary.Moved))
	}
	if summary.Skipped > 0 {
		lines = append(lines, fmt.Sprintf("Files skipped: %d", summary.Skipped))
	}
	if summary.Failed > 0 {
		lines = append(lines, fmt.Sprintf("Failures: %d", summary.Failed))
	}
	if summary.Findings > 0 {
		lines = append(lines, fmt.Sprintf("Suspicious findings: %d", summary.Findings))
	}
	if summary.LogPath != "" {
		lines = append(lines, "Log file: "+summary.LogPath)
	}
	if len(lines) > 0 {
		b.WriteString("\n")
		for _, line := range lines {
			b.WriteString(line)
			b.WriteString("\n")
		}
	}

	b.WriteString("\nBest regards,\nFile Organizer Automation\n")
	return b.String()
}
