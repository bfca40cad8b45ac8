/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package netutils

// WildcardAddress is what a member binds when it must listen on every
// interface of its container.
const WildcardAddress = "0.0.0.0"

// IsInAddrAny reports whether addr does not identify a single host.
func IsInAddrAny(addr string) bool {
	return addr == "" || addr == "::/0" || addr == "::" || addr == WildcardAddress
}
