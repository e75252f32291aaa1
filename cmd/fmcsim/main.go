// Command fmcsim runs the external-memory bring-up against the host
// simulator, inspects profiles, and watches a real board's console.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "fmcsim:", err)
		os.Exit(1)
	}
}
