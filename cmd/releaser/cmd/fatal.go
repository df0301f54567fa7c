package cmd

import (
	"log"
	"os"
)

var (
	// globals used to patch over calls to os.Exit() during test

	osExit = os.Exit

	// infoLogger wraps informative messages to os.Stderr without cluttering expected output in tests.
	infoLogger = log.New(os.Stderr, "", 0)
)
