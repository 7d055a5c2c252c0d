package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindNotFound, KindOf(NotFound("project not found")))
	assert.Equal(t, KindPrecondition, KindOf(fmt.Errorf("wrap: %w", Precondition("bad status"))))
	assert.Equal(t, KindInternal, KindOf(errors.New("boom")))
	assert.False(t, IsKind(nil, KindInternal))
	assert.True(t, IsKind(Conflict("dup"), KindConflict))
}

func TestWithDetails_KeepsIdentity(t *testing.T) {
	sentinel := Validation("amount below minimum")
	detailed := sentinel.WithDetails(map[string]interface{}{"min": "100000"})

	assert.ErrorIs(t, detailed, sentinel)
	assert.Equal(t, "100000", detailed.Details["min"])
	assert.Nil(t, sentinel.Details)
	assert.NotErrorIs(t, Validation("other"), sentinel)
}

func TestFormatting(t *testing.T) {
	assert.Equal(t, "lead 7 not found", NotFound("lead %d not found", 7).Error())
	// Called through a func value so vet's printf check does not flag the
	// intentional literal '%' with no args.
	validation := Validation
	assert.Equal(t, "100% sure", validation("100% sure").Error())
	assert.Equal(t, "authorization", KindAuthorization.String())
}
