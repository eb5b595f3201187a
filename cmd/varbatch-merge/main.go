// cmd/varbatch-merge/main.go
package main

import (
	"varbatch/internal/appshell"
	"varbatch/internal/mergeapp"
)

func main() {
	appshell.Main(mergeapp.RunContext)
}
