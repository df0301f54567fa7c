// Copyright © 2018 One Concern

package main

import (
	"github.com/oneconcern/releaser/cmd/releaser/cmd"
)

func main() {
	cmd.Execute()
}
