/*
Copyright 2025-Present Couchbase, Inc.

Use of this software is governed by the Business Source License included in
the file licenses/BSL-Couchbase.txt.  As of the Change Date specified in that
file, in accordance with the Business Source License, use of this software will
be governed by the Apache License, Version 2.0, included in the file
licenses/APL2.txt.
*/

package latestonlychannel

import "context"

// Wrap returns a channel yielding only the newest value seen on inputCh.
// The reader is never handed a value that was superseded before it was read,
// and the sender never waits on the reader.  The output is closed once
// inputCh is closed (after any pending value is delivered) or ctx is done.
func Wrap[T any](ctx context.Context, inputCh <-chan T) <-chan T {
	outputCh := make(chan T)

	go func() {
		defer close(outputCh)

		var pending T
		hasPending := false
		inputOpen := true

		for inputOpen || hasPending {
			// a nil channel never becomes ready, which disables that case
			var sendCh chan<- T
			if hasPending {
				sendCh = outputCh
			}
			recvCh := inputCh
			if !inputOpen {
				recvCh = nil
			}

			select {
			case <-ctx.Done():
				return
			case value, ok := <-recvCh:
				if !ok {
					inputOpen = false
					continue
				}
				pending = value
				hasPending = true
			case sendCh <- pending:
				var zero T
				pending = zero
				hasPending = false
			}
		}
	}()

	return outputCh
}
