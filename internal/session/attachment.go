package session

import (
	"encoding/base64"
	"mime"
	"net/http"
	"path/filepath"
	"strings"
)

// textAttachmentHeader separates the prompt from inlined text file content.
const textAttachmentHeader = "[ATTACHED FILE CONTENT]:"

// Attachment is a file supplied with a generation request.
type Attachment struct {
	Name     string
	MimeType string
	Data     []byte
}

// NewAttachment builds an Attachment. An empty mimeType is inferred from the
// file extension and then from the content.
func NewAttachment(name, mimeType string, data []byte) *Attachment {
	mimeType = strings.TrimSpace(mimeType)
	if mimeType == "" {
		mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(name)))
	}
	if mimeType == "" && len(data) > 0 {
		mimeType = http.DetectContentType(data)
	}
	return &Attachment{Name: name, MimeType: strings.ToLower(mimeType), Data: data}
}

// mediaType returns the MIME type without parameters.
func (a *Attachment) mediaType() string {
	mt, _, err := mime.ParseMediaType(a.MimeType)
	if err != nil {
		return strings.ToLower(strings.TrimSpace(a.MimeType))
	}
	return mt
}

// IsText reports whether the attachment is inlined into the prompt rather
// than sent as binary data.
func (a *Attachment) IsText() bool {
	return a.mediaType() == "text/plain"
}

// IsImage reports whether the attachment is kept as the creation's original
// image.
func (a *Attachment) IsImage() bool {
	return strings.HasPrefix(a.mediaType(), "image/")
}

// Base64 returns the standard base64 encoding of the data.
func (a *Attachment) Base64() string {
	return base64.StdEncoding.EncodeToString(a.Data)
}

// DataURL returns the data as a data URL.
func (a *Attachment) DataURL() string {
	return "data:" + a.mediaType() + ";base64," + a.Base64()
}

// appendText appends text file content to prompt under the attachment
// header.
func appendText(prompt string, a *Attachment) string {
	return prompt + "\n\n" + textAttachmentHeader + "\n" + string(a.Data)
}
