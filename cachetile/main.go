// Command cachetile derives cache geometries, generates typed constants, and
// benchmarks cache-tiled aggregates.
package main

import "github.com/sarchlab/cachetile/cachetile/cmd"

func main() {
	cmd.Execute()
}
