package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, KindInternal},
		{"plain", errors.New("x"), KindInternal},
		{"bare not found", ErrorNotFound, KindNotFound},
		{"wrapped not found", fmt.Errorf("select: %w", ErrorNotFound), KindNotFound},
		{"tagged", E(KindForbidden, "op", nil), KindForbidden},
		{"wrapped tagged", fmt.Errorf("outer: %w", Validation("op", "title", "required")), KindValidation},
		{"outermost wins", E(KindStoreTransient, "outer", E(KindSourceMissing, "inner", nil)), KindStoreTransient},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, KindOf(tt.err))
		})
	}
}

func TestError_Message(t *testing.T) {
	err := E(KindStoreTransient, "assets.Copy", errors.New("timeout"))
	assert.Equal(t, "assets.Copy: store_transient: timeout", err.Error())
	assert.ErrorIs(t, err, err.Err)

	v := Validation("posts.Create", "title", "title is required")
	assert.Equal(t, "posts.Create: title is required", v.Error())
	assert.Equal(t, "title", FieldOf(fmt.Errorf("wrap: %w", v)))
}

func TestTransient_Nil(t *testing.T) {
	assert.NoError(t, Transient("op", nil))
	assert.True(t, IsKind(Transient("op", errors.New("x")), KindStoreTransient))
}

func TestKind_String(t *testing.T) {
	assert.Equal(t, "SOURCE_MISSING", KindSourceMissing.String())
	assert.Equal(t, "PARTIAL_CLEANUP_FAILURE", KindPartialCleanup.String())
	assert.Equal(t, "INTERNAL", Kind(200).String())
}
