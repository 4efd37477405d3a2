package main

import "bt03/process/sanitize"

func main() {
	sanitize.Run()
}
