package main

import (
	"os"

	"github.com/km-arc/go-europa/app"
	"github.com/km-arc/go-europa/framework/console"
)

func main() {
	if err := console.New(app.Setup).Exec(); err != nil {
		os.Exit(1)
	}
}
