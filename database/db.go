package database

import (
	"os"
	"path"

	"github.com/EdoardoFiore/madmin-strongswan/config"
	"github.com/EdoardoFiore/madmin-strongswan/database/model"

	sqlitegorm "github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

var db *gorm.DB

func OpenDB(dbPath string) error {
	dir := path.Dir(dbPath)
	err := os.MkdirAll(dir, 0o750)
	if err != nil {
		return err
	}

	var gormLogger logger.Interface

	if config.IsDebug() {
		gormLogger = logger.Default
	} else {
		gormLogger = logger.Discard
	}

	c := &gorm.Config{
		Logger: gormLogger,
	}
	db, err = gorm.Open(sqlitegorm.Open(dbPath+"?_pragma=foreign_keys(1)"), c)
	if err != nil {
		return err
	}

	if config.IsDebug() {
		db = db.Debug()
	}
	return err
}

func InitDB(dbPath string) error {
	err := OpenDB(dbPath)
	if err != nil {
		return err
	}

	return db.AutoMigrate(
		&model.Tunnel{},
		&model.ChildSa{},
		&model.FirewallRule{},
		&model.TrafficSample{},
	)
}

func GetDB() *gorm.DB {
	return db
}

func IsNotFound(err error) bool {
	return err == gorm.ErrRecordNotFound
}
