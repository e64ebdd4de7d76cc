// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"time"
)

// DelayPolicy is applied after every provider call, whatever its outcome.
type DelayPolicy interface {
	Wait(ctx context.Context) error
}

// FixedDelay blocks for a fixed duration after each call.
//
// Nominatim's usage policy allows at most one request per second and has no
// burst allowance; violations get the whole client throttled.
type FixedDelay time.Duration

// NominatimDelay is the delay mandated by the public Nominatim instance.
const NominatimDelay = FixedDelay(time.Second)

// NoDelay disables the pause. Meant for tests and private providers.
const NoDelay = FixedDelay(0)

// Wait implements DelayPolicy.
func (d FixedDelay) Wait(ctx context.Context) error {
	if d <= 0 {
		return nil
	}

	timer := time.NewTimer(time.Duration(d))
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
