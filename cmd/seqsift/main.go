package main

import (
	"os"

	"github.com/seqsift/seqsift/protocol"
	"github.com/seqsift/seqsift/types"
	"github.com/seqsift/seqsift/utils/logger"
	"github.com/seqsift/seqsift/utils/safego"

	_ "github.com/seqsift/seqsift/engines/memory"     // registering the in-memory engine
	_ "github.com/seqsift/seqsift/engines/relational" // registering the sqlite and postgres engines
)

func main() {
	defer safego.Recovery(true)

	if err := protocol.CreateRootCommand().Execute(); err != nil {
		logger.Error(err)
		os.Exit(types.ExitCode(err))
	}
}
