// seqid CLI - generate and inspect time-ordered 64-bit ids
package main

import (
	"os"
)

func main() {
	if err := newRootCmd(os.LookupEnv).Execute(); err != nil {
		os.Exit(1)
	}
}
