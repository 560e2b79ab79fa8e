package handler

import (
	"encoding/json"
	"strings"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/pot-code/course-certificate/internal/certificate"
	"github.com/pot-code/course-certificate/internal/infrastructure/auth"
	"github.com/pot-code/course-certificate/internal/lesson"
	"github.com/pot-code/course-certificate/internal/testattempt"
)

// ProgressFeedHandler answers snapshot requests over a websocket
type ProgressFeedHandler struct {
	lessonUseCase      lesson.LessonUseCase
	testAttemptUseCase testattempt.TestAttemptUseCase
	evaluator          certificate.EligibilityEvaluator
	jwtUtil            *auth.JWTUtil
}

func NewProgressFeedHandler(
	LessonUseCase lesson.LessonUseCase,
	TestAttemptUseCase testattempt.TestAttemptUseCase,
	Evaluator certificate.EligibilityEvaluator,
	JWTUtil *auth.JWTUtil,
) *ProgressFeedHandler {
	return &ProgressFeedHandler{LessonUseCase, TestAttemptUseCase, Evaluator, JWTUtil}
}

type feedMessage struct {
	Topic string      `json:"topic"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

// HandleMessage read one topic name ("progress", "attempts" or "eligibility") and reply with its snapshot
func (fh *ProgressFeedHandler) HandleMessage(c echo.Context, conn *websocket.Conn) error {
	_, message, err := conn.ReadMessage()
	if err != nil {
		return err
	}
	claims := fh.jwtUtil.GetContextToken(c)
	ctx := c.Request().Context()
	topic := strings.TrimSpace(string(message))

	reply := feedMessage{Topic: topic}
	switch topic {
	case "progress":
		reply.Data, err = fh.lessonUseCase.GetProgress(ctx, claims.UID)
	case "attempts":
		reply.Data, err = fh.testAttemptUseCase.ListAttempts(ctx, claims.UID)
	case "eligibility":
		reply.Data, err = fh.evaluator.Evaluate(ctx, claims.UID)
	default:
		reply.Error = "unknown topic"
	}
	if err != nil {
		reply.Data, reply.Error = nil, err.Error()
	}

	payload, err := json.Marshal(reply)
	if err != nil {
		return err
	}
	return conn.WriteMessage(websocket.TextMessage, payload)
}
