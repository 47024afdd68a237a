package main

import (
	"github.com/maxgio92/looptrace/pkg/cmd"
)

func main() {
	cmd.Execute()
}
