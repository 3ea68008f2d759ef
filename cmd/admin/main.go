package main

import (
	"fmt"
	"os"
)

func main() {
	if len(os.Args) >= 2 {
		switch os.Args[1] {
		case "db":
			dbCmd(os.Args[2:])
			return
		case "sessions":
			getCmd("sessions", "/admin/v1/sessions", os.Args[2:])
			return
		case "results":
			getCmd("results", "/admin/v1/results", os.Args[2:])
			return
		}
	}
	fmt.Fprintln(os.Stderr, "usage: admin <sessions|results|db> [flags]")
	os.Exit(2)
}
