package handler

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/course-certificate/internal/certificate"
	"github.com/pot-code/course-certificate/internal/infrastructure/auth"
	"github.com/pot-code/course-certificate/internal/infrastructure/logging"
	"go.uber.org/zap"
)

// DocumentStore opens rendered documents for download
type DocumentStore interface {
	Open(ref string) (*os.File, error)
}

type CertificateHandler struct {
	certificateUseCase certificate.CertificateUseCase
	evaluator          certificate.EligibilityEvaluator
	names              certificate.NameResolver
	documents          DocumentStore
	jwtUtil            *auth.JWTUtil
	renderTimeout      time.Duration
	contentType        string
	extension          string
}

func NewCertificateHandler(
	CertificateUseCase certificate.CertificateUseCase,
	Evaluator certificate.EligibilityEvaluator,
	Names certificate.NameResolver,
	Documents DocumentStore,
	JWTUtil *auth.JWTUtil,
	RenderTimeout time.Duration,
	ContentType string,
	Extension string,
) *CertificateHandler {
	return &CertificateHandler{
		CertificateUseCase, Evaluator, Names, Documents, JWTUtil,
		RenderTimeout, ContentType, Extension,
	}
}

func (ch *CertificateHandler) HandleGetEligibility(c echo.Context) error {
	claims := ch.jwtUtil.GetContextToken(c)

	verdict, err := ch.evaluator.Evaluate(c.Request().Context(), claims.UID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, verdict)
}

// HandleGenerate issue the certificate or return the existing one
func (ch *CertificateHandler) HandleGenerate(c echo.Context) error {
	claims := ch.jwtUtil.GetContextToken(c)

	ctx, cancel := context.WithTimeout(c.Request().Context(), ch.renderTimeout)
	defer cancel()

	cert, err := ch.certificateUseCase.IssueOrGet(ctx, claims.UID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cert)
}

func (ch *CertificateHandler) HandleGetCertificate(c echo.Context) error {
	claims := ch.jwtUtil.GetContextToken(c)

	cert, err := ch.certificateUseCase.GetCertificate(c.Request().Context(), claims.UID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, cert)
}

// HandleDownload stream the rendered document as an attachment named after the learner
func (ch *CertificateHandler) HandleDownload(c echo.Context) error {
	claims := ch.jwtUtil.GetContextToken(c)
	ctx := c.Request().Context()

	cert, err := ch.certificateUseCase.GetCertificate(ctx, claims.UID)
	if err != nil {
		return respondError(c, err)
	}
	name, err := ch.names.DisplayName(ctx, claims.UID)
	if err != nil {
		return respondError(c, err)
	}

	f, err := ch.documents.Open(cert.DocumentRef)
	if err != nil {
		logging.ExtractLoggerFromContext(ctx).Error("certificate document missing",
			zap.String("account.id", claims.UID), zap.String("document.ref", cert.DocumentRef), zap.Error(err))
		return c.JSON(http.StatusNotFound,
			NewRESTStandardError(http.StatusNotFound, "certificate document not found").SetTraceID(traceID(c)))
	}
	defer f.Close()

	c.Response().Header().Set(echo.HeaderContentDisposition, attachmentDisposition(downloadName(name, ch.extension)))
	return c.Stream(http.StatusOK, ch.contentType, f)
}

func downloadName(displayName, extension string) string {
	return "Сертификат_" + strings.Join(strings.Fields(displayName), "_") + extension
}

func attachmentDisposition(filename string) string {
	return fmt.Sprintf(`attachment; filename="certificate%s"; filename*=UTF-8''%s`,
		filenameExt(filename), url.PathEscape(filename))
}

func filenameExt(filename string) string {
	if i := strings.LastIndexByte(filename, '.'); i >= 0 {
		return filename[i:]
	}
	return ""
}
