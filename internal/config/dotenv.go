package config

import (
	"os"

	"github.com/joho/godotenv"
)

// LoadDotEnv exports the variables of path (".env" when empty) into the
// process environment. A missing file is not an error and variables already
// set are kept.
func LoadDotEnv(path string) error {
	if path == "" {
		path = ".env"
	}
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return err
	}
	return godotenv.Load(path)
}
