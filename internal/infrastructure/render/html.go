// Package render turns certificate payloads into documents on local disk.
package render

import (
	"bytes"
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"os"
	"path/filepath"
	"strings"

	"github.com/pot-code/course-certificate/internal/certificate"
	"github.com/pot-code/course-certificate/internal/infrastructure/logging"
	"github.com/pot-code/course-certificate/internal/infrastructure/uuid"
	"go.uber.org/zap"
)

//go:embed templates/certificate.html
var templateFS embed.FS

var certificateTemplate = template.Must(template.ParseFS(templateFS, "templates/certificate.html"))

// ErrInvalidRef reference does not name a document inside the output dir
var ErrInvalidRef = errors.New("invalid document reference")

// Extension file extension of rendered documents
const Extension = ".html"

// ContentType of rendered documents
const ContentType = "text/html; charset=utf-8"

// refSuffixAlphabet lowercase so refs never differ from each other only by case
const refSuffixAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"

// HTMLRenderer writes one html file per render call into OutputDir, the ref is the file name.
//
// refs carry a random suffix, two renders of the same certificate number never share a file
type HTMLRenderer struct {
	OutputDir       string
	LessonCount     int
	SuffixGenerator uuid.Generator
}

var _ certificate.DocumentRenderer = &HTMLRenderer{}

// NewHTMLRenderer create the output dir if missing
func NewHTMLRenderer(outputDir string, lessonCount int) (*HTMLRenderer, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	return &HTMLRenderer{
		OutputDir:       outputDir,
		LessonCount:     lessonCount,
		SuffixGenerator: uuid.NewAlphabetGenerator(refSuffixAlphabet, 8),
	}, nil
}

type templateData struct {
	RecipientName     string
	CertificateNumber string
	IssuedDate        string
	ProgramTitle      string
	LessonCount       int
	Signatories       []certificate.Signatory
}

func (hr *HTMLRenderer) Render(ctx context.Context, payload *certificate.Payload) (string, error) {
	var buf bytes.Buffer
	if err := certificateTemplate.Execute(&buf, templateData{
		RecipientName:     payload.RecipientName,
		CertificateNumber: payload.CertificateNumber,
		IssuedDate:        payload.IssuedAt.Format("02.01.2006"),
		ProgramTitle:      payload.ProgramTitle,
		LessonCount:       hr.LessonCount,
		Signatories:       payload.Signatories,
	}); err != nil {
		return "", fmt.Errorf("execute certificate template: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}

	suffix, err := hr.SuffixGenerator.Generate()
	if err != nil {
		return "", fmt.Errorf("generate document suffix: %w", err)
	}
	ref := payload.CertificateNumber + "-" + suffix + Extension
	path, err := hr.path(ref)
	if err != nil {
		return "", err
	}
	if err := hr.publish(path, buf.Bytes()); err != nil {
		return "", err
	}

	logging.ExtractLoggerFromContext(ctx).Debug("certificate document rendered", zap.String("document.ref", ref))
	return ref, nil
}

// publish writes content to a private temp file, then links it to path.
// Link refuses an existing target, so a published document is never replaced
func (hr *HTMLRenderer) publish(path string, content []byte) error {
	tmp, err := os.CreateTemp(hr.OutputDir, ".render-*")
	if err != nil {
		return fmt.Errorf("create certificate document: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		return fmt.Errorf("write certificate document: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("write certificate document: %w", err)
	}
	if err := os.Link(tmp.Name(), path); err != nil {
		return fmt.Errorf("publish certificate document: %w", err)
	}
	return nil
}

func (hr *HTMLRenderer) Discard(ctx context.Context, ref string) error {
	path, err := hr.path(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// Open the caller closes the file
func (hr *HTMLRenderer) Open(ref string) (*os.File, error) {
	path, err := hr.path(ref)
	if err != nil {
		return nil, err
	}
	return os.Open(path)
}

func (hr *HTMLRenderer) path(ref string) (string, error) {
	if ref == "" || ref != filepath.Base(ref) || strings.HasPrefix(ref, ".") {
		return "", fmt.Errorf("%w: %q", ErrInvalidRef, ref)
	}
	return filepath.Join(hr.OutputDir, ref), nil
}
