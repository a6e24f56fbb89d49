package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
)

// CleanString trims surrounding whitespace and optionally lowers the result.
func CleanString(s string, lower ...bool) string {
	s = strings.TrimSpace(s)
	if len(lower) > 0 && lower[0] {
		s = strings.ToLower(s)
	}
	return s
}

// Getwd walks up from the current working directory looking for the project
// root ("sge"). `go test` runs each package from its own directory, which
// breaks relative asset paths; anchoring on the root keeps them stable.
// see: https://stackoverflow.com/questions/23847003/golang-tests-and-working-directory
func Getwd() string {
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}

	for dir := wd; ; dir = filepath.Dir(dir) {
		if fi, err := os.Stat(dir); err == nil && fi.IsDir() && filepath.Base(dir) == "sge" {
			return dir
		}
		if parent := filepath.Dir(dir); parent == dir || parent == string(os.PathSeparator) {
			// no project root above us; keep the caller's working directory
			return wd
		}
	}
}
