// Copyright 2025 The ChapaUY Authors
// SPDX-License-Identifier: Apache-2.0

package geocode

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFixedDelay(t *testing.T) {
	start := time.Now()
	if err := FixedDelay(20 * time.Millisecond).Wait(context.Background()); err != nil {
		t.Fatalf("Wait returned error: %v", err)
	}

	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Errorf("Wait returned after %v, want at least 20ms", elapsed)
	}
}

func TestNoDelay(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := NoDelay.Wait(ctx); err != nil {
		t.Errorf("NoDelay.Wait() = %v, want nil", err)
	}
}

func TestFixedDelayCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NominatimDelay.Wait(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Wait() = %v, want %v", err, context.Canceled)
	}
}
