package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newSagaCLI().Exec(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
