package main

import (
	"flag"
	"fmt"
	"os"

	"bt03/process/report"
)

func main() {
	username := flag.String("username", "admin", "username to report for")
	list := flag.Bool("list", false, "list per-chart rows for each run")
	flag.Parse()

	dsn := os.Getenv("DB_DSN")
	if dsn == "" {
		fmt.Fprintln(os.Stderr, "DB_DSN not set; export DB_DSN and retry")
		os.Exit(2)
	}

	report.RunReport(*username, *list)
}
