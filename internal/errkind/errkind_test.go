// Eventcube - OLAP Rollup Query Engine for Ad-Tech Event Analytics
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/eventcube

package errkind

import (
	"errors"
	"fmt"
	"testing"
)

func TestWrapAndOf(t *testing.T) {
	base := errors.New("boom")
	wrapped := Wrap(QueryMalformed, base)

	if Of(wrapped) != QueryMalformed {
		t.Errorf("Of(wrapped) = %v, want QueryMalformed", Of(wrapped))
	}
	if !errors.Is(wrapped, base) {
		t.Error("errors.Is should see through the Kind wrapper")
	}
}

func TestWrapNil(t *testing.T) {
	if Wrap(IoFailure, nil) != nil {
		t.Error("Wrap(kind, nil) must return nil")
	}
}

func TestOf_UnwrappedError(t *testing.T) {
	if Of(errors.New("plain")) != Unknown {
		t.Error("Of on an error never wrapped should be Unknown")
	}
}

func TestOf_NestedWrap(t *testing.T) {
	base := errors.New("root cause")
	kinded := Wrap(InputFormat, base)
	nested := fmt.Errorf("context: %w", kinded)
	if Of(nested) != InputFormat {
		t.Errorf("Of(nested) = %v, want InputFormat", Of(nested))
	}
}

func TestExitCode_Distinct(t *testing.T) {
	kinds := []Kind{InputFormat, CatalogAbsent, QueryMalformed, UnsupportedOperation, RollupUnfit, IoFailure}
	seen := make(map[int]Kind)
	for _, k := range kinds {
		code := ExitCode(k)
		if code == 0 {
			t.Errorf("ExitCode(%v) = 0, a known-failure kind must not exit success", k)
		}
		if other, ok := seen[code]; ok {
			t.Errorf("ExitCode collision: %v and %v both map to %d", k, other, code)
		}
		seen[code] = k
	}
}

func TestExitCode_Unknown(t *testing.T) {
	if ExitCode(Unknown) != 0 {
		t.Errorf("ExitCode(Unknown) = %d, want 0", ExitCode(Unknown))
	}
}

func TestKindString(t *testing.T) {
	if InputFormat.String() != "InputFormat" {
		t.Errorf("String() = %q", InputFormat.String())
	}
	if Kind(999).String() != "Unknown" {
		t.Errorf("unrecognized kind should stringify to Unknown")
	}
}
