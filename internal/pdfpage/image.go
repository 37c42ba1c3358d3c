// Package pdfpage bridges stored PDF bytes and the page-image bytes the
// extraction engine consumes. Scanned novels carry one full-page raster image
// per page, so pulling the first page's embedded image is sufficient; no PDF
// rendering is involved.
package pdfpage

import (
	"bytes"
	"io"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"

	"github.com/fumikura/novelmatch/internal/common"
)

// FirstPageImage extracts the raster image embedded in page 1 of a scanned
// PDF. When the page carries several images, the first in object order wins.
func FirstPageImage(pdf []byte) ([]byte, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed

	images, err := api.ExtractImagesRaw(bytes.NewReader(pdf), []string{"1"}, conf)
	if err != nil {
		return nil, common.NewAppError(common.CodeInvalidPDF, "failed to extract page image", err)
	}

	for _, pageImages := range images {
		for _, img := range pageImages {
			data, err := io.ReadAll(img)
			if err != nil {
				return nil, common.NewAppError(common.CodeInvalidPDF, "failed to read page image stream", err)
			}
			if len(data) > 0 {
				return data, nil
			}
		}
	}
	return nil, common.NewAppError(common.CodeNoTextExtracted, "first page carries no scan image", nil)
}

// PageCount reports the number of pages in the PDF.
func PageCount(pdf []byte) (int, error) {
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	n, err := api.PageCount(bytes.NewReader(pdf), conf)
	if err != nil {
		return 0, common.NewAppError(common.CodeInvalidPDF, "failed to count pages", err)
	}
	return n, nil
}
