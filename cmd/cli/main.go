// Package main is the entry point for the permctl binary.
package main

import (
	"os"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ArmorCode-Public-Test/metabase/pkg/cli"
)

func main() {
	os.Exit(cli.Execute())
}
