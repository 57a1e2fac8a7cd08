package normalize

import (
	"fmt"
	"io"
	"strings"

	"github.com/jhillyerd/enmime"

	"github.com/dmolnar/mailstate/internal/models"
)

// FullBody is the result of parsing a complete RFC 822 message body.
type FullBody struct {
	Text        string
	HTML        string
	Attachments []models.MimePart
}

// ParseFullBody parses a raw RFC 822 message and extracts the body variants
// and attachment parts. Inline parts (content-id set) are not treated as
// attachments.
func ParseFullBody(r io.Reader) (*FullBody, error) {
	envelope, err := enmime.ReadEnvelope(r)
	if err != nil {
		return nil, fmt.Errorf("failed to parse message body: %w", err)
	}

	html := envelope.HTML
	if html == "" && envelope.Text != "" {
		html = strings.ReplaceAll(envelope.Text, "\n", "<br>")
	}

	body := &FullBody{Text: envelope.Text, HTML: html}
	for _, p := range envelope.Attachments {
		if p.ContentID != "" {
			continue
		}
		body.Attachments = append(body.Attachments, models.MimePart{
			PartID:      p.PartID,
			ContentType: p.ContentType,
			Size:        len(p.Content),
			Disposition: "attachment",
			Filename:    p.FileName,
		})
	}
	return body, nil
}
