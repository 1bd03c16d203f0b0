/*
Copyright © 2025 tieubaoca
*/
package main

import (
	"errors"
	"io/fs"

	"github.com/joho/godotenv"
	"github.com/tieubaoca/research-assistant/cmd"
)

func main() {
	cmd.Execute()
}

func init() {
	// .env is optional; real environment variables win either way.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		panic("Error loading .env file: " + err.Error())
	}
}
