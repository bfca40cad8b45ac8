/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package ensemble

import "errors"

// None of these are transient.  Retrying with the same input reproduces the
// same failure, the caller has to fix the host list first.
var (
	ErrInsufficientDomains = errors.New("no failure domains to select a quorum from")
	ErrEmptyEnsemble       = errors.New("ensemble has no members")
	ErrInconsistentLink    = errors.New("inconsistent topology link")
	ErrInvalidHost         = errors.New("invalid host")
	ErrInvalidTuning       = errors.New("invalid tuning")
)
