// Copyright 2018 The Solid Core Data Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

// Package config holds the flag-driven configuration for the nopb
// command line: which schema file describes a buffer and which buffer
// file it lives in.
package config

import (
	"flag"

	"github.com/pkg/errors"
)

// Config holds the shared schema/buffer flag values: Register adds the
// flags to a flag set, and Load fills in the paths once it has parsed.
type Config struct {
	SchemaPath string
	BufferPath string

	schemaFlag *string
	bufferFlag *string
}

// Register adds -schema and -buffer flags to fs.
func Register(fs *flag.FlagSet) *Config {
	c := &Config{}
	c.schemaFlag = fs.String("schema", "", "path to a schema description (JSON or compact bytes)")
	c.bufferFlag = fs.String("buffer", "", "path to a buffer file")
	return c
}

// Load validates that the registered flags were given and copies them in.
func (c *Config) Load() error {
	if c.schemaFlag == nil || *c.schemaFlag == "" {
		return errors.New("config: -schema is required")
	}
	c.SchemaPath = *c.schemaFlag
	if c.bufferFlag != nil {
		c.BufferPath = *c.bufferFlag
	}
	return nil
}
