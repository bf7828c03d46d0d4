// Command geone runs pluri-Gaussian simulations of categorical fields from
// YAML scenario files.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
