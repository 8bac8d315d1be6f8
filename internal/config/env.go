package config

import (
	"errors"
	"io/fs"
	"strings"

	"github.com/joho/godotenv"
)

// DefaultEnvFile is read when no --env-file argument is given.
const DefaultEnvFile = ".env"

// EnvFileFromArgs finds --env-file in raw arguments. Binaries call it before
// flags are parsed so the file can feed env-tagged options.
func EnvFileFromArgs(args []string) string {
	for i, arg := range args {
		if arg == "--" {
			break
		}
		if v, ok := strings.CutPrefix(arg, "--env-file="); ok {
			return v
		}
		if arg == "--env-file" && i+1 < len(args) {
			return args[i+1]
		}
	}
	return DefaultEnvFile
}

// LoadEnv loads the dotenv file named by args into the process environment.
// Variables already set are kept. A missing default file is not an error; a
// missing file named explicitly is.
func LoadEnv(args []string) (string, error) {
	path := EnvFileFromArgs(args)
	err := godotenv.Load(path)
	if err != nil && path == DefaultEnvFile && errors.Is(err, fs.ErrNotExist) {
		return path, nil
	}
	return path, err
}
