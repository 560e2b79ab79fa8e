package handler

import (
	"encoding/json"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/pot-code/course-certificate/internal/infrastructure/auth"
	"github.com/pot-code/course-certificate/internal/infrastructure/validate"
	"github.com/pot-code/course-certificate/internal/testattempt"
)

type TestHandler struct {
	testAttemptUseCase testattempt.TestAttemptUseCase
	jwtUtil            *auth.JWTUtil
	validator          validate.Validator
}

func NewTestHandler(TestAttemptUseCase testattempt.TestAttemptUseCase, JWTUtil *auth.JWTUtil, Validator validate.Validator) *TestHandler {
	return &TestHandler{TestAttemptUseCase, JWTUtil, Validator}
}

type submitTestRequest struct {
	Score          *int            `json:"score" validate:"required"`
	TotalQuestions int             `json:"total_questions" validate:"required"`
	Answers        json.RawMessage `json:"answers"`
}

type submitTestResponse struct {
	Passed         bool `json:"passed"`
	Score          int  `json:"score"`
	TotalQuestions int  `json:"total_questions"`
}

type attemptResponse struct {
	ID             string          `json:"id"`
	Score          int             `json:"score"`
	TotalQuestions int             `json:"total_questions"`
	Passed         bool            `json:"passed"`
	Answers        json.RawMessage `json:"answers,omitempty"`
	TakenAt        string          `json:"taken_at"`
}

func (th *TestHandler) HandleSubmitTest(c echo.Context) error {
	claims := th.jwtUtil.GetContextToken(c)

	req := new(submitTestRequest)
	if err := c.Bind(req); err != nil {
		return bindingError(c, []*validate.FieldError{validate.NewFieldError("body", err.Error())})
	}
	if errs := th.validator.Struct(req); errs != nil {
		return bindingError(c, errs)
	}

	attempt, err := th.testAttemptUseCase.SubmitAttempt(c.Request().Context(), claims.UID, *req.Score, req.TotalQuestions, req.Answers)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(http.StatusOK, submitTestResponse{attempt.Passed, attempt.Score, attempt.TotalQuestions})
}

func (th *TestHandler) HandleGetResults(c echo.Context) error {
	claims := th.jwtUtil.GetContextToken(c)

	attempts, err := th.testAttemptUseCase.ListAttempts(c.Request().Context(), claims.UID)
	if err != nil {
		return respondError(c, err)
	}
	result := make([]*attemptResponse, 0, len(attempts))
	for _, a := range attempts {
		item := &attemptResponse{
			ID:             a.ID,
			Score:          a.Score,
			TotalQuestions: a.TotalQuestions,
			Passed:         a.Passed,
			TakenAt:        a.TakenAt.Format("2006-01-02T15:04:05.000Z07:00"),
		}
		if json.Valid(a.Answers) {
			item.Answers = a.Answers
		}
		result = append(result, item)
	}
	return c.JSON(http.StatusOK, result)
}
