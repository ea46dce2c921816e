package main

import (
	"fmt"
	"os"

	batchrename "github.com/thrawn01/batch-rename"
)

func main() {
	if err := batchrename.RunCmd(os.Args, nil); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
