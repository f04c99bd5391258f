package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/mwalimu/shule/core"
	"github.com/mwalimu/shule/core/attendance"
	"github.com/mwalimu/shule/core/grade"
	"github.com/mwalimu/shule/core/student"
	"github.com/mwalimu/shule/core/user"

	echoapi "github.com/mwalimu/shule/apps/api/echo"
	logsvc "github.com/mwalimu/shule/services/logger"
	"github.com/mwalimu/shule/storage/database"
	sqlxrepos "github.com/mwalimu/shule/storage/database/sqlx"
)

func main() {
	conf := core.NewConfig()

	std := log.New(os.Stdout, fmt.Sprintf("%s API : ", conf.AppName), log.LstdFlags|log.Lshortfile)
	var logger core.Logger
	if conf.Debug || conf.RollbarToken == "" {
		logger = logsvc.NewStdLogger(std)
	} else {
		logger = logsvc.NewRollbarLogger(std, conf)
	}

	if err := run(conf, logger); err != nil {
		logger.Fatal("api startup failed", err)
	}
}

func run(conf *core.Config, logger core.Logger) error {
	// set up validation
	enLocale := en.New()
	uni := ut.New(enLocale, enLocale)
	translator, _ := uni.GetTranslator(enLocale.Locale())
	validate := validator.New()
	core.InitValidators(validate, translator)
	user.RegisterValidators(validate, translator)

	// set up DB
	sdb, err := database.Open(conf)
	if err != nil {
		return errors.Wrap(err, "opening database")
	}
	defer func() { _ = sdb.Close() }()

	db := sqlx.NewDb(sdb, conf.Database.Engine)
	repos := sqlxrepos.NewRepositories(db)

	// set up services
	classifier, err := attendance.NewClassifier(conf.Attendance)
	if err != nil {
		return errors.Wrap(err, "configuring attendance classifier")
	}
	usrSvc := user.NewService(repos.User)
	stuSvc := student.NewService(repos.Student)
	attSvc := attendance.NewService(repos.Attendance, repos.Student, classifier, logger)
	gradeSvc := grade.NewService(repos.Grade, repos.Student, conf, logger)

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, os.Interrupt, syscall.SIGTERM)

	// start API server
	app := echoapi.NewServer(
		&echoapi.Options{
			Conf:          conf,
			Logger:        logger,
			Validate:      validate,
			Translator:    translator,
			UserSvc:       usrSvc,
			StudentSvc:    stuSvc,
			AttendanceSvc: attSvc,
			GradeSvc:      gradeSvc,
			Shutdown:      func() { shutdown <- syscall.SIGTERM },
		},
	)
	go app.Start()

	sig := <-shutdown
	logger.Info(fmt.Sprintf("%v: shutting down...", sig))

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := app.Stop(ctx); err != nil {
		return errors.Wrap(err, "stopping server")
	}
	return nil
}
