/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package zkconfig

import (
	_ "embed"
)

//go:embed log4j.properties
var log4jProperties []byte

// Log4jProperties returns the logging configuration shipped next to zoo.cfg.
// The log file is written in place, rotation is left to the host.
func Log4jProperties() []byte {
	out := make([]byte, len(log4jProperties))
	copy(out, log4jProperties)
	return out
}
