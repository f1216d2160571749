package mailer

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/wneessen/go-mail"
)

// Message is one outgoing mail. Attachment, when set, names a file that is
// attached if it exists.
type Message struct {
	Subject    string
	Body       string
	Attachment string
}

// Render produces the RFC 5322 bytes for msg.
func (m Message) Render(from, to string, date time.Time) ([]byte, error) {
	msg, err := m.build(from, to, date)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if _, err := msg.WriteTo(&buf); err != nil {
		return nil, fmt.Errorf("write message: %w", err)
	}
	return buf.Bytes(), nil
}

func (m Message) build(from, to string, date time.Time) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("from address: %w", err)
	}
	if err := msg.To(to); err != nil {
		return nil, fmt.Errorf("to address: %w", err)
	}
	msg.Subject(m.Subject)
	msg.SetDateWithValue(date)
	msg.SetBodyString(mail.TypeTextPlain, m.Body)

	attach, err := m.hasAttachment()
	if err != nil {
		return nil, err
	}
	if attach {
		msg.AttachFile(m.Attachment)
	}
	return msg, nil
}

// hasAttachment reports false when no attachment is set or the file is
// absent.
func (m Message) hasAttachment() (bool, error) {
	if strings.TrimSpace(m.Attachment) == "" {
		return false, nil
	}
	info, err := os.Stat(m.Attachment)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat attachment: %w", err)
	}
	if info.IsDir() {
		return false, fmt.Errorf("attachment %s is a directory", m.Attachment)
	}
	return true, nil
}
