package main

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		log.Error(err)
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
