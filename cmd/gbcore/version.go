package main

import (
	"fmt"

	"github.com/alecthomas/kong"
)

var _version = "dev"

// versionFlag prints the version and exits, like --version on any
// well-behaved CLI, without requiring a repository to be open.
type versionFlag string

func (versionFlag) Decode(_ *kong.DecodeContext) error { return nil }
func (versionFlag) IsBool() bool                       { return true }

func (versionFlag) BeforeApply(app *kong.Kong) error {
	fmt.Fprintln(app.Stdout, "gbcore", _version)
	app.Exit(0)
	return nil
}

type versionCmd struct{}

func (*versionCmd) Run() error {
	fmt.Println("gbcore", _version)
	return nil
}
