// Package rpc exposes the controller commands over net/rpc, so that a
// running fusionx can be driven from another process.
package rpc

import (
	"net"

	"fusionx/emu/log"
)

var modRPC = log.NewModule("rpc")

// name under which the controller proxy is registered.
const service = "fusionx"

func UnusedPort() int {
	l, err := net.Listen("tcp", "localhost:0")
	if err != nil {
		panic("pickUnusedPort failed: " + err.Error())
	}
	port := l.Addr().(*net.TCPAddr).Port
	if err := l.Close(); err != nil {
		panic("pickUnusedPort failed: " + err.Error())
	}
	return port
}

// LoadArgs are the arguments of a LoadMemory call.
type LoadArgs struct {
	Addr uint32
	Data []byte
	Kind string
}
