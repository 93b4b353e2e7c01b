package extract

import (
	"context"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"math"
	"path/filepath"
	"regexp"
	"strings"

	"manualqa/internal/config"
	"manualqa/internal/util"
)

// SourceFile is an uploaded file as the pipeline sees it.
type SourceFile struct {
	Name string
	Data []byte
}

// Fragment is one positioned text run from a page's text layer.
type Fragment struct {
	Text string
	Y    float64
}

// Document is a loaded page-oriented file.
type Document interface {
	PageCount() int
	PageText(i int) (string, error)
	PageFragments(i int) ([]Fragment, error)
	PageImage(i int, scale float64) (image.Image, error)
	Close() error
}

// Recognizer turns a rasterized page into text. Implementations hold native
// resources and must be closed.
type Recognizer interface {
	Recognize(img image.Image) (string, error)
	Close() error
}

// yBreakThreshold is the vertical baseline shift, in points, that the
// positional tier treats as a line break.
const yBreakThreshold = 2.0

// Engine converts a source file into extracted text using a layered
// strategy: direct text-layer extraction, positional reconstruction, then
// rasterize-and-recognize. Each tier is tried only when the previous one
// failed or produced insufficient text.
type Engine struct {
	openDocument    func(data []byte) (Document, error)
	newRecognizer   func() (Recognizer, error)
	scale           float64
	minCharsPerPage int
	minTotalChars   int
	log             *slog.Logger
}

func NewEngine(cfg config.Config, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	e := &Engine{
		openDocument: OpenPDF,
		newRecognizer: func() (Recognizer, error) {
			return NewTesseractRecognizer(cfg.OCRLanguage)
		},
		scale:           cfg.OCRScale,
		minCharsPerPage: cfg.MinCharsPerPage,
		minTotalChars:   cfg.MinTotalChars,
		log:             log,
	}
	if e.scale <= 0 {
		e.scale = 2.0
	}
	if e.minCharsPerPage <= 0 {
		e.minCharsPerPage = 100
	}
	if e.minTotalChars <= 0 {
		e.minTotalChars = 200
	}
	return e
}

// Extract returns the text of file. forceRecognition runs the recognition
// tier even when the text layer looks sufficient.
func (e *Engine) Extract(ctx context.Context, file SourceFile, forceRecognition bool) (string, error) {
	return e.ExtractWithProgress(ctx, file, forceRecognition, nil)
}

// ExtractWithProgress additionally reports recognition-tier progress as
// (pagesDone, pagesTotal) so callers can surface OCR progress. onRecognize
// may be nil and is only invoked when the recognition tier runs.
func (e *Engine) ExtractWithProgress(ctx context.Context, file SourceFile, forceRecognition bool, onRecognize func(done, total int)) (string, error) {
	if len(file.Data) == 0 {
		return "", fmt.Errorf("extract %s: %w", file.Name, util.ErrEmptyFile)
	}
	switch strings.ToLower(filepath.Ext(file.Name)) {
	case ".txt":
		text := normalizeText(string(file.Data))
		if text == "" {
			return "", fmt.Errorf("extract %s: %w", file.Name, util.ErrEmptyFile)
		}
		return text, nil
	case ".pdf":
		return e.extractPDF(ctx, file, forceRecognition, onRecognize)
	default:
		return "", fmt.Errorf("extract %s: %w", file.Name, util.ErrUnsupportedType)
	}
}

type tierResult struct {
	text       string
	sufficient bool
}

func (e *Engine) extractPDF(ctx context.Context, file SourceFile, forceRecognition bool, onRecognize func(done, total int)) (string, error) {
	doc, err := e.openDocument(file.Data)
	if err != nil {
		return "", fmt.Errorf("extract %s: %w", file.Name, err)
	}
	defer func() {
		_ = doc.Close()
	}()

	if doc.PageCount() == 0 {
		return "", fmt.Errorf("extract %s: %w", file.Name, util.ErrNoReadableText)
	}

	res, err := e.directTier(doc)
	if err != nil {
		e.log.Debug("direct text layer failed, reconstructing from positions",
			"file", file.Name, "error", err)
		res, err = e.positionalTier(doc)
	}
	if err == nil && res.sufficient && !forceRecognition {
		return normalizeText(res.text), nil
	}

	recognized, recErr := e.recognitionTier(ctx, doc, onRecognize)
	if recErr == nil && strings.TrimSpace(recognized) != "" {
		return normalizeText(recognized), nil
	}
	if recErr != nil {
		if errors.Is(recErr, util.ErrCancelled) {
			return "", recErr
		}
		e.log.Warn("recognition tier failed", "file", file.Name, "error", recErr)
	}
	// A merely-insufficient text layer still beats failing outright.
	if strings.TrimSpace(res.text) != "" {
		return normalizeText(res.text), nil
	}
	return "", fmt.Errorf("extract %s: %w", file.Name, util.ErrNoReadableText)
}

// directTier pulls each page's text layer verbatim, joining pages with a
// blank line.
func (e *Engine) directTier(doc Document) (tierResult, error) {
	var b strings.Builder
	for i := 0; i < doc.PageCount(); i++ {
		text, err := doc.PageText(i)
		if err != nil {
			return tierResult{}, fmt.Errorf("page %d text layer: %w", i+1, err)
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(text)
	}
	text := b.String()
	return tierResult{text: text, sufficient: e.sufficient(text, doc.PageCount())}, nil
}

// positionalTier rebuilds reading order from raw fragments, inserting a line
// break when the vertical baseline shifts by more than a small threshold.
func (e *Engine) positionalTier(doc Document) (tierResult, error) {
	var b strings.Builder
	pagesRead := 0
	for i := 0; i < doc.PageCount(); i++ {
		frags, err := doc.PageFragments(i)
		if err != nil {
			e.log.Debug("skipping unreadable page in positional tier", "page", i+1, "error", err)
			continue
		}
		pagesRead++
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		prevY := math.NaN()
		for _, f := range frags {
			if !math.IsNaN(prevY) {
				if math.Abs(f.Y-prevY) > yBreakThreshold {
					b.WriteString("\n")
				} else {
					b.WriteString(" ")
				}
			}
			b.WriteString(f.Text)
			prevY = f.Y
		}
	}
	if pagesRead == 0 {
		return tierResult{}, fmt.Errorf("no page yielded positional fragments")
	}
	text := b.String()
	return tierResult{text: text, sufficient: e.sufficient(text, doc.PageCount())}, nil
}

// recognitionTier rasterizes each page and runs OCR. The recognizer handle is
// created lazily on the first page and released on every exit path.
func (e *Engine) recognitionTier(ctx context.Context, doc Document, onProgress func(done, total int)) (text string, err error) {
	var rec Recognizer
	defer func() {
		if rec != nil {
			_ = rec.Close()
		}
	}()

	total := doc.PageCount()
	var b strings.Builder
	for i := 0; i < total; i++ {
		if cerr := ctx.Err(); cerr != nil {
			return "", fmt.Errorf("recognition: %w: %v", util.ErrCancelled, cerr)
		}
		img, ierr := doc.PageImage(i, e.scale)
		if ierr != nil {
			return "", fmt.Errorf("render page %d: %w", i+1, ierr)
		}
		if rec == nil {
			rec, err = e.newRecognizer()
			if err != nil {
				return "", fmt.Errorf("create recognizer: %w", err)
			}
		}
		pageText, rerr := rec.Recognize(img)
		if rerr != nil {
			return "", fmt.Errorf("recognize page %d: %w", i+1, rerr)
		}
		if strings.TrimSpace(pageText) != "" {
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(pageText)
		}
		if onProgress != nil {
			onProgress(i+1, total)
		}
	}
	return b.String(), nil
}

// sufficient implements the text-layer sufficiency heuristic: the direct
// result is kept only when it averages at least minCharsPerPage characters
// per page and minTotalChars characters overall.
func (e *Engine) sufficient(text string, pages int) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < e.minTotalChars {
		return false
	}
	if pages <= 0 {
		pages = 1
	}
	return len(trimmed)/pages >= e.minCharsPerPage
}

var (
	reSpaceRuns   = regexp.MustCompile(`[ \t]+`)
	reNewlineRuns = regexp.MustCompile(`\n{3,}`)
	reLineEdges   = regexp.MustCompile(`[ \t]*\n[ \t]*`)
)

// normalizeText collapses whitespace runs, strips form-feed and carriage
// return artifacts, and caps consecutive blank lines at one.
func normalizeText(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\r", "\n")
	s = strings.ReplaceAll(s, "\f", "\n")
	s = reSpaceRuns.ReplaceAllString(s, " ")
	s = reLineEdges.ReplaceAllString(s, "\n")
	s = reNewlineRuns.ReplaceAllString(s, "\n\n")
	return strings.TrimSpace(s)
}
