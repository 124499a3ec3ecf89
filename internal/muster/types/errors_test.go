package types_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/BrandonDHaskell/muster/internal/muster/types"
)

func TestError_IsMatchesByKind(t *testing.T) {
	err := types.NotFound(`sheet "Historial" not found`, errors.New("no rows"))

	assert.ErrorIs(t, err, types.ErrNotFound)
	assert.NotErrorIs(t, err, types.ErrValidation)
	assert.Equal(t, types.KindNotFound, types.KindOf(err))
}

func TestError_WrappedKeepsKind(t *testing.T) {
	inner := errors.New("disk I/O error")
	err := fmt.Errorf("close session: %w", types.Processing("write exit", inner))

	assert.ErrorIs(t, err, types.ErrProcessing)
	assert.ErrorIs(t, err, inner)
	assert.Equal(t, types.KindProcessing, types.KindOf(err))
	assert.Equal(t, types.ErrorKind(""), types.KindOf(inner))
}

func TestParseMode(t *testing.T) {
	cases := []struct {
		in   string
		want types.Mode
		ok   bool
	}{
		{"real", types.ModeReal, true},
		{"", types.ModeReal, true},
		{"SIMULATED", types.ModeSimulated, true},
		{"simulacro", types.ModeSimulated, true},
		{" drill ", types.ModeSimulated, true},
		{"fire", types.Mode("fire"), false},
	}
	for _, tc := range cases {
		got, ok := types.ParseMode(tc.in)
		assert.Equal(t, tc.ok, ok, tc.in)
		assert.Equal(t, tc.want, got, tc.in)
	}
}

func TestAccessEvent_Type(t *testing.T) {
	assert.Equal(t, types.EventEntry, types.AccessEvent{EntryRaw: "08:00"}.Type())
	assert.Equal(t, types.EventExit, types.AccessEvent{ExitRaw: "10:00"}.Type())
	assert.Equal(t, types.EventEntryExit, types.AccessEvent{EntryRaw: "08:00", ExitRaw: "10:00"}.Type())
	assert.Equal(t, types.EventUnknown, types.AccessEvent{}.Type())

	assert.True(t, types.AccessEvent{EntryRaw: "08:00"}.IsOpen())
	assert.True(t, types.AccessEvent{ExitRaw: "10:00"}.IsOrphanExit())
}

func TestValidateStruct(t *testing.T) {
	err := types.ValidateStruct(types.EvacuationRequest{Mode: "fire"})
	require.Error(t, err)
	assert.ErrorIs(t, err, types.ErrValidation)

	var e *types.Error
	require.ErrorAs(t, err, &e)
	assert.Equal(t, "targets is required", e.Fields["targets"])
	assert.Equal(t, "mode must be one of: real simulated", e.Fields["mode"])

	assert.NoError(t, types.ValidateStruct(types.EvacuationRequest{Targets: []string{"8-1-1"}, Mode: types.ModeReal}))
	assert.Error(t, types.ValidateStruct(types.AccessRequest{Identity: "8-1-1", Direction: "lateral"}))
}
