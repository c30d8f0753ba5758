package main

import (
	"context"
	"os"

	"github.com/MaartenS11/iasm/cmd"
)

func main() {
	if err := cmd.RootCmd.ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}
