package main

import "github.com/raktchain/raktchain/protocol/params"

// Binary defaults.
//
// Keep these centralized so config/cli/api stay consistent.
const (
	DefaultDataDir   = params.DefaultDataDir
	DefaultAPIAddr   = "127.0.0.1:8332"
	DefaultStore     = "file"
	DefaultHash      = "sha256"
	DefaultLogLevel  = "info"
	DefaultLogFormat = "pretty"
)
