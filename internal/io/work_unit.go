package io

// Contains the minimal data needed to persist a single output file, i.e. an
// encoded tile image or a metadata sidecar.
type WorkUnit struct {
	FilePath string
	Data     []byte
}
