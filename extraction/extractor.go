// Package extraction turns an uploaded clinical document into plain text by
// rasterizing it page by page and running OCR on every page.
package extraction

import (
	"Medicare/apperrors"
	"bytes"
	"context"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"
	"strings"

	"github.com/gabriel-vasile/mimetype"
	"github.com/nfnt/resize"
	log "github.com/sirupsen/logrus"
)

// Rasterizer renders every page of a multi-page document to an image.
type Rasterizer interface {
	Rasterize(ctx context.Context, document []byte) ([]image.Image, error)
}

// Recognizer runs OCR over one PNG encoded page.
type Recognizer interface {
	Recognize(ctx context.Context, page []byte) (string, error)
}

// Extractor is safe for concurrent use when its Rasterizer and Recognizer are.
type Extractor struct {
	rasterizer   Rasterizer
	recognizer   Recognizer
	maxPageWidth uint
}

// NewExtractor builds an Extractor. Pages wider than maxPageWidth are scaled
// down before OCR; zero disables scaling.
func NewExtractor(rasterizer Rasterizer, recognizer Recognizer, maxPageWidth uint) *Extractor {
	return &Extractor{rasterizer: rasterizer, recognizer: recognizer, maxPageWidth: maxPageWidth}
}

// Extract returns the text of every page concatenated in page order. Any
// page failing OCR fails the whole document.
func (e *Extractor) Extract(ctx context.Context, document []byte) (string, error) {
	if len(document) == 0 {
		return "", apperrors.Validation("document is empty")
	}

	pages, err := e.pages(ctx, document)
	if err != nil {
		return "", err
	}
	if len(pages) == 0 {
		return "", apperrors.Validation("document has no pages")
	}

	var text strings.Builder
	for i, page := range pages {
		if err := ctx.Err(); err != nil {
			return "", apperrors.Upstream(err, "ocr cancelled")
		}
		encoded, err := e.encodePage(page)
		if err != nil {
			return "", apperrors.Upstream(err, fmt.Sprintf("encode page %d", i+1))
		}
		pageText, err := e.recognizer.Recognize(ctx, encoded)
		if err != nil {
			return "", apperrors.Upstream(err, fmt.Sprintf("ocr page %d", i+1))
		}
		text.WriteString(pageText)
	}

	log.WithFields(log.Fields{"pages": len(pages), "chars": text.Len()}).Debug("document extracted")
	return text.String(), nil
}

func (e *Extractor) pages(ctx context.Context, document []byte) ([]image.Image, error) {
	mtype := mimetype.Detect(document)
	switch {
	case mtype.Is("application/pdf"):
		pages, err := e.rasterizer.Rasterize(ctx, document)
		if err != nil {
			return nil, apperrors.Upstream(err, "rasterize document")
		}
		return pages, nil
	case mtype.Is("image/png"), mtype.Is("image/jpeg"):
		img, _, err := image.Decode(bytes.NewReader(document))
		if err != nil {
			return nil, apperrors.Validation("decode %s: %v", mtype.String(), err)
		}
		return []image.Image{img}, nil
	default:
		return nil, apperrors.Validation("unsupported document type %s", mtype.String())
	}
}

func (e *Extractor) encodePage(page image.Image) ([]byte, error) {
	if e.maxPageWidth > 0 && uint(page.Bounds().Dx()) > e.maxPageWidth {
		page = resize.Resize(e.maxPageWidth, 0, page, resize.Lanczos3)
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, page); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
