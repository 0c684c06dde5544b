package main

import (
	"time"

	"github.com/glasspane/glasspane/acquire"
	"github.com/glasspane/glasspane/cmd"
	"github.com/glasspane/glasspane/config"
	"github.com/glasspane/glasspane/filesystem"
	"github.com/glasspane/glasspane/log"
	"github.com/glasspane/glasspane/where"
	"github.com/samber/lo"
)

func main() {
	lo.Must0(config.Setup())
	lo.Must0(log.Setup())

	go acquire.CollectGarbage(filesystem.API(), where.Plugins(), time.Now())

	cmd.Execute()
}
