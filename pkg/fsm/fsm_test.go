package fsm

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"seeker-engine/pkg/errutil"
)

type state string
type event string

var light = New("light",
	Rule[state, event]{From: "off", Event: "press", To: "on"},
	Rule[state, event]{From: "on", Event: "press", To: "off"},
	Rule[state, event]{From: "on", Event: "break", To: "broken"},
)

func TestNextFollowsTable(t *testing.T) {
	to, err := light.Next("off", "press")
	require.NoError(t, err)
	require.Equal(t, state("on"), to)

	to, err = light.Next("on", "break")
	require.NoError(t, err)
	require.Equal(t, state("broken"), to)
}

func TestNextRejectsUnknownPair(t *testing.T) {
	_, err := light.Next("broken", "press")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrIllegalTransition))
	require.Equal(t, errutil.StatusConflict, errutil.StatusOf(err))

	var te *TransitionError
	require.True(t, errors.As(err, &te))
	require.Equal(t, "broken", te.From)
	require.Equal(t, "press", te.Event)
}

func TestTerminal(t *testing.T) {
	require.True(t, light.IsTerminal("broken"))
	require.False(t, light.IsTerminal("on"))
	require.True(t, light.Can("off", "press"))
	require.False(t, light.Can("off", "break"))
}
