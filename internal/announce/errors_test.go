// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package announce

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorKind(t *testing.T) {
	tests := []struct {
		err  error
		want string
	}{
		{nil, ""},
		{&NoEligibleTargetsError{Policy: PolicyAll}, "no_eligible_targets"},
		{fmt.Errorf("%w: held by run x", ErrTargetsBusy), "targets_busy"},
		{&TargetNotFoundError{Room: "Attic"}, "target_not_found"},
		{&GroupOperationError{Op: "isolate", Room: "Living", Err: errors.New("boom")}, "group_operation"},
		{fmt.Errorf("%w: bad", ErrInvalidRequest), "invalid_request"},
		{context.DeadlineExceeded, "internal"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ErrorKind(tt.err), "%v", tt.err)
	}
}

func TestErrorMessages(t *testing.T) {
	assert.Equal(t, "no eligible targets for policy all", (&NoEligibleTargetsError{Policy: PolicyAll}).Error())
	assert.Equal(t, `target "Attic" not found`, (&TargetNotFoundError{Room: "Attic"}).Error())
	assert.Equal(t, `attach "Kitchen" to "Living": boom`,
		(&GroupOperationError{Op: "attach", Room: "Kitchen", Coordinator: "Living", Err: errors.New("boom")}).Error())
}
