package main

import (
	"log"
	"os"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/storage/database"
	sqlxrepos "github.com/trezcool/darasa/storage/database/sqlx"
)

var logger *log.Logger

func main() {
	defer os.Exit(0)

	logger = log.New(os.Stdout, "ADMIN : ", log.LstdFlags|log.Lmicroseconds|log.Lshortfile)

	// set up DB
	var db *sqlx.DB
	err := database.CreateIfNotExist(core.Conf)
	errAndDie(err)
	db, err = database.Open(core.Conf)
	errAndDie(err)
	defer db.Close()
	errAndDie(db.Ping())

	// start CLI
	cli := commandLine{
		db:      db,
		usrRepo: sqlxrepos.NewUserRepository(db),
	}
	if err := cli.run(os.Args); err != nil {
		if err != errHelp {
			logger.Printf("\nerror: %s\n", err)
		}
		os.Exit(1)
	}
}

func errAndDie(err error) {
	if err != nil {
		logger.Fatal(err)
	}
}
