package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/authz"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/coursework"
	"github.com/trezcool/darasa/core/user"
	logsvc "github.com/trezcool/darasa/services/logger"
	"github.com/trezcool/darasa/storage/database"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

func main() {
	// =========================================================================
	// Set up Dependencies

	conf := core.Conf

	// set up loggers
	logger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "API : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	logger.Enable(!conf.Debug)

	dbLogger := logsvc.NewRollbarLogger(
		log.New(os.Stdout, "DB : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile),
		conf,
	)
	dbLogger.Enable(!conf.Debug)

	// set up DB
	db, err := setUpDB(conf)
	if err != nil {
		logger.Fatal(fmt.Sprintf("setting up database: %v", err), err)
	}
	defer func() {
		if err = db.Close(); err != nil {
			dbLogger.Fatal("Failed to close", err)
		}
	}()

	// set up repos & services
	usrRepo := sqlxrepos.NewUserRepository(db)
	crsRepo := sqlxrepos.NewCourseRepository(db)
	cwRepo := sqlxrepos.NewCourseworkRepository(db)

	policy := authz.NewPolicy(crsRepo)
	usrSvc := user.NewService(usrRepo)
	crsSvc := course.NewService(crsRepo, policy)
	cwSvc := coursework.NewService(cwRepo, crsRepo, policy)

	// =========================================================================
	// Initialize App

	logger.Info(fmt.Sprintf("Application initializing : version %q", conf.Build))
	defer logger.Info("Application stopped")

	// =========================================================================
	// Start API Service

	server := echoapi.NewServer(
		echoapi.ServerDeps{
			Addr:          conf.Server.Addr,
			Logger:        logger,
			UserSvc:       usrSvc,
			CourseSvc:     crsSvc,
			CourseworkSvc: cwSvc,
		},
	)
	server.Start()

	// =========================================================================
	// Shutdown

	select {
	case err = <-server.Errors():
		logger.Fatal(fmt.Sprintf("server error: %v", err), err)

	case sig := <-server.ShutdownSignal():
		logger.Info(fmt.Sprintf("%v: Start shutdown...", sig))

		// give outstanding requests a deadline for completion
		ctx, cancel := context.WithTimeout(context.Background(), conf.Server.ShutdownTimeout)
		defer cancel()

		// asking listener to shutdown and shed load
		if err = server.Shutdown(ctx); err != nil {
			logger.Error(fmt.Sprintf("could not stop server gracefully: %v", err), err)

			if err = server.Close(); err != nil {
				logger.Fatal(fmt.Sprintf("could not force stop server: %v", err), err)
			}
		}
	}
}

func setUpDB(conf *core.Config) (*sqlx.DB, error) {
	if err := database.CreateIfNotExist(conf); err != nil {
		return nil, err
	}

	db, err := database.Open(conf)
	if err != nil {
		return nil, err
	}

	if err = database.Migrate(db.DB); err != nil {
		return nil, err
	}
	return db, nil
}
