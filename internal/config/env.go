package config

import "github.com/joho/godotenv"

// LoadEnv loads variables from a .env file in the working directory into the
// process environment. Variables that are already set win. A missing file is
// reported as an os.IsNotExist error so callers can choose to ignore it.
func LoadEnv(filenames ...string) error {
	return godotenv.Load(filenames...)
}
