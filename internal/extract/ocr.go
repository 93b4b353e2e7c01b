package extract

import (
	"bytes"
	"fmt"
	"image"
	"image/png"

	"github.com/otiai10/gosseract/v2"
)

// recognitionWhitelist constrains OCR output to characters that occur in
// technical manuals, which cuts down on noise from low-quality scans.
const recognitionWhitelist = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789 .,;:!?%()[]-_/\"'°+=#&"

// TesseractRecognizer wraps a gosseract client. The client is configured once
// at creation and must be released with Close.
type TesseractRecognizer struct {
	client *gosseract.Client
}

func NewTesseractRecognizer(language string) (*TesseractRecognizer, error) {
	if language == "" {
		language = "eng"
	}
	client := gosseract.NewClient()
	if err := client.SetLanguage(language); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set recognition language: %w", err)
	}
	if err := client.SetPageSegMode(gosseract.PSM_AUTO); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set page segmentation mode: %w", err)
	}
	if err := client.SetWhitelist(recognitionWhitelist); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("set character whitelist: %w", err)
	}
	return &TesseractRecognizer{client: client}, nil
}

func (t *TesseractRecognizer) Recognize(img image.Image) (string, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return "", fmt.Errorf("encode page raster: %w", err)
	}
	if err := t.client.SetImageFromBytes(buf.Bytes()); err != nil {
		return "", fmt.Errorf("load page raster: %w", err)
	}
	text, err := t.client.Text()
	if err != nil {
		return "", fmt.Errorf("recognize page raster: %w", err)
	}
	return text, nil
}

func (t *TesseractRecognizer) Close() error {
	return t.client.Close()
}
