// Command cachectl inspects and modifies the caches described by a
// cacheprovider YAML configuration.
//
//	cachectl --config cache.yaml --cache sessions set user:1 alice --ttl 10m
//	cachectl --config cache.yaml --cache sessions get user:1
package main

import (
	"context"
	"os"
)

func main() {
	os.Exit(run(context.Background(), os.Args, os.Stdout, os.Stderr))
}
