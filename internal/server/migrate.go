package server

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// DefaultMigrations is the migrations source used when none is given.
const DefaultMigrations = "file://migrations"

// Migrate applies the plant schema migrations from dir to the database at dsn.
// steps <= 0 applies every pending migration in direction. An up-to-date database
// is not an error.
func Migrate(dir, dsn, direction string, steps int) error {
	if direction != "up" && direction != "down" {
		return fmt.Errorf("unknown direction: %s", direction)
	}
	if dsn == "" {
		return errors.New("postgres dsn is empty")
	}
	if dir == "" {
		dir = DefaultMigrations
	}

	m, err := migrate.New(dir, dsn)
	if err != nil {
		return err
	}
	defer m.Close()

	switch {
	case direction == "up" && steps > 0:
		err = m.Steps(steps)
	case direction == "up":
		err = m.Up()
	case steps > 0:
		err = m.Steps(-steps)
	default:
		err = m.Down()
	}
	if errors.Is(err, migrate.ErrNoChange) {
		return nil
	}
	return err
}
