package extract

import (
	"context"
	"errors"
	"image"
	"log/slog"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"manualqa/internal/util"
)

type fakeDoc struct {
	texts     []string
	fragments [][]Fragment
	textErr   error
	imageErr  error
	closed    bool
}

func (f *fakeDoc) PageCount() int { return len(f.texts) }

func (f *fakeDoc) PageText(i int) (string, error) {
	if f.textErr != nil {
		return "", f.textErr
	}
	return f.texts[i], nil
}

func (f *fakeDoc) PageFragments(i int) ([]Fragment, error) {
	if f.fragments == nil {
		return nil, errors.New("no fragments")
	}
	return f.fragments[i], nil
}

func (f *fakeDoc) PageImage(i int, scale float64) (image.Image, error) {
	if f.imageErr != nil {
		return nil, f.imageErr
	}
	return image.NewGray(image.Rect(0, 0, 8, 8)), nil
}

func (f *fakeDoc) Close() error {
	f.closed = true
	return nil
}

type fakeRecognizer struct {
	pages  []string
	calls  int
	err    error
	closed bool
}

func (f *fakeRecognizer) Recognize(img image.Image) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	out := f.pages[f.calls%len(f.pages)]
	f.calls++
	return out, nil
}

func (f *fakeRecognizer) Close() error {
	f.closed = true
	return nil
}

func testEngine(doc Document, rec *fakeRecognizer, recErr error) (*Engine, *int) {
	created := 0
	e := &Engine{
		openDocument: func([]byte) (Document, error) { return doc, nil },
		newRecognizer: func() (Recognizer, error) {
			created++
			if recErr != nil {
				return nil, recErr
			}
			return rec, nil
		},
		scale:           2.0,
		minCharsPerPage: 100,
		minTotalChars:   200,
		log:             slog.Default(),
	}
	return e, &created
}

func page(chars int) string {
	return strings.Repeat("manual text ", chars/12+1)[:chars]
}

func pdfFile() SourceFile {
	return SourceFile{Name: "manual.pdf", Data: []byte("%PDF-fake")}
}

func TestExtractPlainTextPassthrough(t *testing.T) {
	e, _ := testEngine(nil, nil, nil)
	got, err := e.Extract(context.Background(), SourceFile{Name: "notes.txt", Data: []byte("  hello   world \r\n\n\n\n ok ")}, false)
	require.NoError(t, err)
	require.Equal(t, "hello world\n\nok", got)
}

func TestExtractEmptyFile(t *testing.T) {
	e, _ := testEngine(nil, nil, nil)
	_, err := e.Extract(context.Background(), SourceFile{Name: "notes.txt"}, false)
	require.ErrorIs(t, err, util.ErrEmptyFile)
}

func TestExtractUnsupportedType(t *testing.T) {
	e, _ := testEngine(nil, nil, nil)
	_, err := e.Extract(context.Background(), SourceFile{Name: "slides.pptx", Data: []byte("x")}, false)
	require.ErrorIs(t, err, util.ErrUnsupportedType)
}

func TestDirectTierSufficientSkipsRecognition(t *testing.T) {
	// 5 pages x 600 chars: comfortably above both thresholds.
	doc := &fakeDoc{texts: []string{page(600), page(600), page(600), page(600), page(600)}}
	e, created := testEngine(doc, &fakeRecognizer{pages: []string{"ocr"}}, nil)

	got, err := e.Extract(context.Background(), pdfFile(), false)
	require.NoError(t, err)
	require.NotEmpty(t, got)
	require.Equal(t, 0, *created, "recognition tier must not run")
	require.True(t, doc.closed)
}

func TestInsufficientTextTriggersRecognition(t *testing.T) {
	// 5 pages x 8 chars: 40 chars total, far below thresholds.
	doc := &fakeDoc{texts: []string{page(8), page(8), page(8), page(8), page(8)}}
	rec := &fakeRecognizer{pages: []string{"recognized manual content"}}
	e, created := testEngine(doc, rec, nil)

	got, err := e.Extract(context.Background(), pdfFile(), false)
	require.NoError(t, err)
	require.Contains(t, got, "recognized manual content")
	require.Equal(t, 1, *created, "recognizer created lazily once")
	require.True(t, rec.closed, "recognizer released after the run")
}

func TestRecognitionEmptyFailsWithNoReadableText(t *testing.T) {
	doc := &fakeDoc{texts: []string{"", "", "", "", ""}}
	rec := &fakeRecognizer{pages: []string{""}}
	e, _ := testEngine(doc, rec, nil)

	_, err := e.Extract(context.Background(), pdfFile(), false)
	require.ErrorIs(t, err, util.ErrNoReadableText)
	require.True(t, rec.closed)
}

func TestRecognitionFailureKeepsPartialDirectText(t *testing.T) {
	doc := &fakeDoc{texts: []string{"forty characters of partial direct text!", "", "", "", ""}}
	e, _ := testEngine(doc, nil, errors.New("tesseract missing"))

	got, err := e.Extract(context.Background(), pdfFile(), false)
	require.NoError(t, err)
	require.Contains(t, got, "partial direct text")
}

func TestForceRecognitionOverridesSufficientText(t *testing.T) {
	doc := &fakeDoc{texts: []string{page(600), page(600)}}
	rec := &fakeRecognizer{pages: []string{"forced ocr output"}}
	e, created := testEngine(doc, rec, nil)

	got, err := e.Extract(context.Background(), pdfFile(), true)
	require.NoError(t, err)
	require.Contains(t, got, "forced ocr output")
	require.Equal(t, 1, *created)
	require.True(t, rec.closed)
}

func TestPositionalTierAfterDirectFailure(t *testing.T) {
	long := page(300)
	doc := &fakeDoc{
		texts:   []string{long},
		textErr: errors.New("bad content stream"),
		fragments: [][]Fragment{{
			{Text: long[:150], Y: 700},
			{Text: long[150:], Y: 700},
			{Text: "next line", Y: 680},
		}},
	}
	e, created := testEngine(doc, &fakeRecognizer{pages: []string{"ocr"}}, nil)

	got, err := e.Extract(context.Background(), pdfFile(), false)
	require.NoError(t, err)
	require.Contains(t, got, "next line")
	require.Contains(t, got, "\n", "baseline shift must become a line break")
	require.Equal(t, 0, *created)
}

func TestRecognitionCancelled(t *testing.T) {
	doc := &fakeDoc{texts: []string{"", ""}}
	rec := &fakeRecognizer{pages: []string{"text"}}
	e, _ := testEngine(doc, rec, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Extract(ctx, pdfFile(), false)
	require.ErrorIs(t, err, util.ErrCancelled)
}

func TestRecognitionProgressReported(t *testing.T) {
	doc := &fakeDoc{texts: []string{"", "", ""}}
	rec := &fakeRecognizer{pages: []string{"a", "b", "c"}}
	e, _ := testEngine(doc, rec, nil)

	var reports []int
	_, err := e.ExtractWithProgress(context.Background(), pdfFile(), false, func(done, total int) {
		require.Equal(t, 3, total)
		reports = append(reports, done)
	})
	require.NoError(t, err)
	require.Equal(t, []int{1, 2, 3}, reports)
}

func TestNormalizeText(t *testing.T) {
	in := "a  b\tc\f d\r\n\n\n\n\ne"
	require.Equal(t, "a b c\nd\n\ne", normalizeText(in))
}

func TestSufficiencyHeuristic(t *testing.T) {
	e, _ := testEngine(nil, nil, nil)
	require.True(t, e.sufficient(page(3000), 5), "600 chars/page passes")
	require.False(t, e.sufficient(page(40), 5), "40 chars total fails")
	require.False(t, e.sufficient(page(450), 5), "90 chars/page fails")
}
