package main

import (
	"fmt"
	"os"

	"github.com/dmitrijs2005/drivegate/internal/sharetoken"
)

func main() {
	if err := sharetoken.Run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
