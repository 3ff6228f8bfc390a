package main

import (
	"embed"
	"fmt"
	"os"

	"github.com/klabast/wb-services/timetable-roster/internal/commands"
)

//go:embed static/*
var staticFiles embed.FS

//go:embed static/index.html
var indexHTML []byte

func main() {
	assets := commands.Assets{Static: staticFiles, Index: indexHTML}
	if err := commands.Execute(assets); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
