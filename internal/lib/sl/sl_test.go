package sl_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/agoraplace/auth-service/internal/lib/sl"
	"github.com/stretchr/testify/assert"
)

func TestErr(t *testing.T) {
	attr := sl.Err(errors.New("boom"))
	assert.Equal(t, "error", attr.Key)
	assert.Equal(t, slog.KindString, attr.Value.Kind())
	assert.Equal(t, "boom", attr.Value.String())
}

func TestOp(t *testing.T) {
	attr := sl.Op("auth.Login")
	assert.Equal(t, "op", attr.Key)
	assert.Equal(t, "auth.Login", attr.Value.String())
}
