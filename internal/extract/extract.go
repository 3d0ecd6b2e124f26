package extract

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/ledongthuc/pdf"
)

const MimePDF = "application/pdf"

var (
	ErrEmpty       = errors.New("empty document")
	ErrUnsupported = errors.New("only PDF documents are supported")
	ErrUnreadable  = errors.New("document could not be parsed")
)

var pdfMagic = []byte("%PDF-")

// Document is what the service learns about an uploaded plan before sending
// it upstream.
type Document struct {
	ContentType string
	Pages       int
	Text        string
}

// Sniff reports the content type of data, recognizing PDFs by magic bytes.
func Sniff(data []byte) string {
	if bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\r\n "), pdfMagic) {
		return MimePDF
	}
	return http.DetectContentType(data)
}

// Inspect validates that data is a readable PDF and counts its pages. Text is
// extracted up to maxText bytes; maxText <= 0 skips text extraction.
func Inspect(ctx context.Context, data []byte, maxText int) (doc Document, err error) {
	if err := ctx.Err(); err != nil {
		return Document{}, err
	}
	if len(data) == 0 {
		return Document{}, ErrEmpty
	}
	doc.ContentType = Sniff(data)
	if doc.ContentType != MimePDF {
		return Document{}, fmt.Errorf("%w: got %s", ErrUnsupported, doc.ContentType)
	}

	// The pdf reader panics on some malformed cross-reference tables.
	defer func() {
		if rec := recover(); rec != nil {
			doc, err = Document{}, fmt.Errorf("%w: %v", ErrUnreadable, rec)
		}
	}()

	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return Document{}, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	doc.Pages = reader.NumPage()
	if maxText > 0 {
		doc.Text = plainText(reader, maxText)
	}
	return doc, nil
}

// plainText never fails inspection; unreadable text comes back empty.
func plainText(reader *pdf.Reader, limit int) (text string) {
	defer func() {
		if recover() != nil {
			text = ""
		}
	}()
	plain, err := reader.GetPlainText()
	if err != nil {
		return ""
	}
	var buf bytes.Buffer
	if _, err := io.CopyN(&buf, plain, int64(limit)); err != nil && !errors.Is(err, io.EOF) {
		return ""
	}
	return strings.TrimSpace(buf.String())
}
