// Command datapipe builds the datasets and loaders of an options file and
// inspects what they produce.
package main

import (
	"os"

	"github.com/Noofbiz/datapipe/logger"
)

func main() {
	if err := Execute(); err != nil {
		logger.New("main").Errorf("%v", err)
		os.Exit(1)
	}
}
