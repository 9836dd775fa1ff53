// Command aalwines is the verifier's CLI entry point: it loads a network,
// runs a batch of queries against it, and streams the results as JSON.
package main

import "os"

func main() {
	os.Exit(int(run()))
}
