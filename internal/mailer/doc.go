// Package mailer sends plain-text run reports over SMTP and schedules
// delayed sends that can be cancelled before they fire.
//
// SMTPSender speaks STARTTLS + PLAIN auth to the configured server. NewSender
// returns ErrNotConfigured when host, sender or recipient are missing so
// callers can report the condition instead of failing mid-send.
package mailer
