// cmd/varbatch/main.go
package main

import (
	"varbatch/internal/app"
	"varbatch/internal/appshell"
)

func main() {
	appshell.Main(app.RunContext)
}
