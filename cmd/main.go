package main

import (
	"context"
	"log"

	"github.com/pot-code/course-certificate/internal/account"
	"github.com/pot-code/course-certificate/internal/certificate"
	"github.com/pot-code/course-certificate/internal/eligibility"
	infra "github.com/pot-code/course-certificate/internal/infrastructure"
	"github.com/pot-code/course-certificate/internal/infrastructure/driver"
	"github.com/pot-code/course-certificate/internal/infrastructure/logging"
	"github.com/pot-code/course-certificate/internal/infrastructure/render"
	"github.com/pot-code/course-certificate/internal/infrastructure/uuid"
	"github.com/pot-code/course-certificate/internal/interfaces/rest"
	"github.com/pot-code/course-certificate/internal/lesson"
	"github.com/pot-code/course-certificate/internal/testattempt"
	"go.uber.org/zap"
)

func main() {
	log.SetFlags(log.Lshortfile | log.Ldate | log.Ltime)
	option, err := infra.InitConfig()
	if err != nil {
		log.Fatal(err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		FilePath: option.Logging.FilePath,
		Level:    option.Logging.Level,
		AppID:    option.AppID,
		Env:      option.Env,
	})
	if err != nil {
		log.Fatalf("Failed to create logger: %s\n", err)
	}
	defer logger.Sync()

	dbConn, err := driver.GetDBConnection(&driver.DBConfig{
		User:     option.Database.User,
		Password: option.Database.Password,
		MaxConn:  option.Database.MaxConn,
		Protocol: option.Database.Protocol,
		Driver:   option.Database.Driver,
		Host:     option.Database.Host,
		Port:     option.Database.Port,
		Query:    option.Database.Query,
		Schema:   option.Database.Schema,
		Path:     option.Database.Path,
	})
	if err != nil {
		logger.Fatal("Failed to create DB connection", zap.Error(err))
	}
	defer dbConn.Close(context.Background())
	logger.Debug("Create DB connection instance", zap.String("db.driver", option.Database.Driver),
		zap.String("db.schema", option.Database.Schema),
		zap.String("db.host", option.Database.Host),
	)
	if err := driver.Migrate(logging.SetLoggerInContext(context.Background(), logger), dbConn); err != nil {
		logger.Fatal("Failed to migrate schema", zap.Error(err))
	}

	var (
		rdb   driver.KeyValueDB
		guard certificate.IssueGuard
	)
	if option.KVStore.Enabled {
		client := driver.NewRedisClient(option.KVStore.Host, option.KVStore.Port, option.KVStore.Password)
		defer client.Close()
		if err := client.Ping(context.Background()); err != nil {
			logger.Warn("kv store unreachable, issue guard degraded", zap.Error(err))
		}
		rdb = client
		guard = certificate.NewKVIssueGuard(client, option.Certificate.GuardTTL)
	}

	renderer, err := render.NewHTMLRenderer(option.Certificate.OutputDir, option.Course.LessonCount)
	if err != nil {
		logger.Fatal("Failed to prepare certificate output", zap.Error(err))
	}

	UUIDGenerator := uuid.NewNanoIDGenerator(option.Security.IDLength)

	AccountRepo := account.NewAccountRepository(dbConn)
	AccountUseCase := account.NewAccountUseCase(AccountRepo, option.Course.LessonCount)

	LessonRepo := lesson.NewLessonRepository(dbConn)
	LessonUseCase := lesson.NewLessonUseCase(LessonRepo, option.Course.LessonCount)

	TestAttemptRepo := testattempt.NewTestAttemptRepository(dbConn, UUIDGenerator)
	TestAttemptUseCase := testattempt.NewTestAttemptUseCase(TestAttemptRepo, testattempt.PassThreshold{
		Numerator:   option.Course.PassNumerator,
		Denominator: option.Course.PassDenominator,
	})

	Evaluator := eligibility.NewEvaluator(LessonRepo, TestAttemptRepo, option.Course.LessonCount)

	CertificateRepo := certificate.NewCertificateRepository(dbConn)
	IssuerUseCase := certificate.NewIssuerUseCase(CertificateRepo, Evaluator, AccountUseCase, renderer, guard)
	IssuerUseCase.ProgramTitle = option.Certificate.ProgramTitle
	IssuerUseCase.NumberAttempts = option.Certificate.NumberAttempts

	if err := rest.Serve(dbConn, rdb, option, &rest.UseCases{
		Account:           AccountUseCase,
		Lesson:            LessonUseCase,
		TestAttempt:       TestAttemptUseCase,
		Eligibility:       Evaluator,
		Certificate:       IssuerUseCase,
		Documents:         renderer,
		DocumentType:      render.ContentType,
		DocumentExtension: render.Extension,
	}, logger); err != nil {
		logger.Error("Server stopped", zap.Error(err))
	}
}
