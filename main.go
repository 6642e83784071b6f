package main

import (
	"github.com/datastax/sql-data-gateway/cmd"
)

func main() {
	cmd.Execute()
}
