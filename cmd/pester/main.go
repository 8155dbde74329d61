package main

import (
	"os"

	"github.com/pesterhq/pester/internal/app"
)

func main() {
	os.Exit(app.Main(os.Args))
}
