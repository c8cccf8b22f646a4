package cmd

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/sarchlab/cachetile/mem/cachegeom"
)

// config holds the flag defaults read from the environment.
type config struct {
	Arch        string
	Iterations  int
	Inner       int
	Record      string
	MonitorPort int
}

var defaults = loadConfig()

// loadConfig reads an optional .env file into the environment and builds the
// defaults from it. Variables already set are not overridden.
func loadConfig() config {
	err := godotenv.Load()
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "Ignoring .env file: %v\n", err)
	}

	return configFromEnv(os.LookupEnv)
}

func configFromEnv(lookup func(string) (string, bool)) config {
	c := config{
		Arch:       cachegeom.NativeArch(),
		Iterations: 1000,
		Inner:      1,
	}

	if v, ok := lookup("CACHETILE_ARCH"); ok && v != "" {
		c.Arch = v
	}

	if v, ok := lookup("CACHETILE_RECORD"); ok {
		c.Record = v
	}

	envInt(lookup, "CACHETILE_ITERATIONS", &c.Iterations)
	envInt(lookup, "CACHETILE_INNER", &c.Inner)
	envInt(lookup, "CACHETILE_MONITOR_PORT", &c.MonitorPort)

	return c
}

func envInt(lookup func(string) (string, bool), key string, dst *int) {
	v, ok := lookup(key)
	if !ok || v == "" {
		return
	}

	n, err := strconv.Atoi(v)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Ignoring %s=%q: %v\n", key, v, err)
		return
	}

	*dst = n
}
