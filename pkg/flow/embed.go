package flow

import (
	"embed"
	"io/fs"
)

//go:embed flows/*
var embeddedFlows embed.FS

// EmbeddedFS returns the bundled example flows. Pass it to LoadFS.
func EmbeddedFS() fs.FS {
	sub, err := fs.Sub(embeddedFlows, "flows")
	if err != nil {
		// The embed directive guarantees the subpath exists.
		panic(err)
	}
	return sub
}
