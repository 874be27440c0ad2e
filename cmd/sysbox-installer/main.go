package main

import (
	"github.com/Dstack-TEE/dstack-sysbox-installer/internal/cli"
)

func main() {
	cli.Execute()
}
