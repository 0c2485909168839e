package mailparse

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	_ "github.com/emersion/go-message/charset"
	"github.com/emersion/go-message/mail"
)

// ParsedMessage holds the decoded fields of one delivery. FromHeader and
// ToHeader keep the full header value (display name included) because the
// sender-domain fallback works on that form.
type ParsedMessage struct {
	Subject    string
	FromHeader string
	ToHeader   string
	Body       string
	Raw        string
}

// Parse decodes raw message bytes. It never fails hard: the returned
// ParsedMessage is always usable, with empty strings for whatever could not
// be decoded. A non-nil error only reports that degradation happened.
func Parse(raw []byte) (ParsedMessage, error) {
	parsed := ParsedMessage{Raw: decodeText(raw)}

	reader, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		return parsed, fmt.Errorf("read message: %w", err)
	}

	if subject, err := reader.Header.Subject(); err == nil {
		parsed.Subject = subject
	}
	parsed.FromHeader = headerText(reader.Header, "From")
	parsed.ToHeader = headerText(reader.Header, "To")

	topType, _, _ := reader.Header.ContentType()
	multipart := strings.HasPrefix(topType, "multipart/")

	var parts []string
	var degraded error
	for {
		part, err := reader.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			degraded = fmt.Errorf("read part: %w", err)
			break
		}

		header, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}
		if multipart {
			mediaType, _, _ := header.ContentType()
			if !strings.HasPrefix(mediaType, "text/plain") && mediaType != "" {
				continue
			}
		}
		body, err := io.ReadAll(part.Body)
		if err != nil {
			degraded = fmt.Errorf("read part body: %w", err)
			continue
		}
		parts = append(parts, decodeText(body))
	}
	parsed.Body = strings.Join(parts, "\n")

	return parsed, degraded
}

// headerText returns the decoded header value, falling back to the raw value
// when decoding fails (unknown charsets in encoded words).
func headerText(header mail.Header, key string) string {
	if value, err := header.Text(key); err == nil {
		return value
	}
	return header.Get(key)
}

func decodeText(b []byte) string {
	if utf8.Valid(b) {
		return string(b)
	}
	return strings.ToValidUTF8(string(b), string(utf8.RuneError))
}
