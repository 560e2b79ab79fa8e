package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/course-certificate/internal/infrastructure/auth"
	"github.com/pot-code/course-certificate/internal/infrastructure/validate"
	"github.com/pot-code/course-certificate/internal/lesson"
)

type LessonHandler struct {
	lessonUseCase lesson.LessonUseCase
	jwtUtil       *auth.JWTUtil
	validator     validate.Validator
}

func NewLessonHandler(LessonUseCase lesson.LessonUseCase, JWTUtil *auth.JWTUtil, Validator validate.Validator) *LessonHandler {
	return &LessonHandler{LessonUseCase, JWTUtil, Validator}
}

type completeLessonRequest struct {
	LessonNumber *int `json:"lesson_number" validate:"required"`
}

func (lh *LessonHandler) HandleCompleteLesson(c echo.Context) error {
	claims := lh.jwtUtil.GetContextToken(c)

	req := new(completeLessonRequest)
	if err := c.Bind(req); err != nil {
		return bindingError(c, []*validate.FieldError{validate.NewFieldError("body", err.Error())})
	}
	if errs := lh.validator.Struct(req); errs != nil {
		return bindingError(c, errs)
	}

	if err := lh.lessonUseCase.CompleteLesson(c.Request().Context(), claims.UID, *req.LessonNumber); err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, map[string]interface{}{"lesson_number": *req.LessonNumber, "completed": true})
}

func (lh *LessonHandler) HandleGetLessonProgress(c echo.Context) error {
	claims := lh.jwtUtil.GetContextToken(c)

	progress, err := lh.lessonUseCase.GetProgress(c.Request().Context(), claims.UID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, progress)
}
