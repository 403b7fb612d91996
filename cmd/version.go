// cmd/version.go
package cmd

// Version is the application version, intended to be overridden at build
// time:
//
//	go build -ldflags "-X github.com/xkilldash9x/uiprobe-cli/cmd.Version=1.2.0"
var Version = "0.1.0"
