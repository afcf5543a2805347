// Command nameprobe checks identifier availability against the remote
// validation endpoint and writes the results as delimited records.
package main

import (
	"os"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
