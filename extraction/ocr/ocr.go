// Package ocr holds the cgo backed rasterizer and recognizer used in
// production. It needs MuPDF and Tesseract at build time.
package ocr

import (
	"context"
	"image"

	"github.com/gen2brain/go-fitz"
	"github.com/otiai10/gosseract/v2"
	"github.com/pkg/errors"
)

// FitzRasterizer renders PDF pages with MuPDF.
type FitzRasterizer struct {
	DPI float64
}

func (r FitzRasterizer) Rasterize(ctx context.Context, document []byte) ([]image.Image, error) {
	doc, err := fitz.NewFromMemory(document)
	if err != nil {
		return nil, errors.Wrap(err, "open pdf")
	}
	defer doc.Close()

	dpi := r.DPI
	if dpi <= 0 {
		dpi = 200
	}

	pages := make([]image.Image, 0, doc.NumPage())
	for n := 0; n < doc.NumPage(); n++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		img, err := doc.ImageDPI(n, dpi)
		if err != nil {
			return nil, errors.Wrapf(err, "render page %d", n+1)
		}
		pages = append(pages, img)
	}
	return pages, nil
}

// TesseractRecognizer runs tesseract through gosseract. A client is created
// per page since gosseract clients are not safe for concurrent use.
type TesseractRecognizer struct {
	Language string
}

func (r TesseractRecognizer) Recognize(ctx context.Context, page []byte) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	client := gosseract.NewClient()
	defer client.Close()

	if r.Language != "" {
		if err := client.SetLanguage(r.Language); err != nil {
			return "", errors.Wrap(err, "set ocr language")
		}
	}
	if err := client.SetImageFromBytes(page); err != nil {
		return "", errors.Wrap(err, "load page image")
	}
	text, err := client.Text()
	return text, errors.Wrap(err, "recognize page")
}
