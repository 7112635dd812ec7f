package gmail

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"mime"
	"mime/multipart"
	"mime/quotedprintable"
	"net/textproto"
	"strings"
	"time"

	"github.com/teemow/mindfulday/internal/genai"
)

// SubjectPrefix starts every plan subject line.
const SubjectPrefix = "Mindful Day AI"

// Subject returns "Mindful Day AI - DD-MM-YYYY" for day.
func Subject(day time.Time) string {
	return SubjectPrefix + " - " + day.Format("02-01-2006")
}

//go:embed plan.html.tmpl
var planHTML string

var planTemplate = template.Must(template.New("plan").Parse(planHTML))

// encodeRFC2047 encodes a string for use in email headers according to RFC 2047.
// ASCII strings are returned unchanged.
func encodeRFC2047(s string) string {
	for _, r := range s {
		if r > 127 {
			return mime.BEncoding.Encode("UTF-8", s)
		}
	}
	return s
}

// buildMessage renders plan as an RFC 5322 message with a plain text and an
// HTML alternative.
func buildMessage(to, subject string, plan *genai.DailyPlan) ([]byte, error) {
	var html bytes.Buffer
	if err := planTemplate.Execute(&html, plan); err != nil {
		return nil, fmt.Errorf("failed to render html body: %w", err)
	}

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	if err := writePart(mw, "text/plain", plan.Text()); err != nil {
		return nil, err
	}
	if err := writePart(mw, "text/html", html.String()); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("failed to close multipart body: %w", err)
	}

	var msg bytes.Buffer
	msg.WriteString("To: " + to + "\r\n")
	msg.WriteString("Subject: " + encodeRFC2047(subject) + "\r\n")
	msg.WriteString("MIME-Version: 1.0\r\n")
	msg.WriteString("Content-Type: multipart/alternative; boundary=\"" + mw.Boundary() + "\"\r\n")
	msg.WriteString("\r\n")
	msg.Write(body.Bytes())

	return msg.Bytes(), nil
}

func writePart(mw *multipart.Writer, contentType, content string) error {
	header := textproto.MIMEHeader{}
	header.Set("Content-Type", contentType+"; charset=\"UTF-8\"")
	header.Set("Content-Transfer-Encoding", "quoted-printable")

	pw, err := mw.CreatePart(header)
	if err != nil {
		return fmt.Errorf("failed to create %s part: %w", contentType, err)
	}

	qp := quotedprintable.NewWriter(pw)
	if _, err := qp.Write([]byte(strings.ReplaceAll(content, "\r\n", "\n"))); err != nil {
		return fmt.Errorf("failed to write %s part: %w", contentType, err)
	}
	return qp.Close()
}
