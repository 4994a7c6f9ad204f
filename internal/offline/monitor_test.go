package offline

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMonitorInitialState(t *testing.T) {
	require.True(t, NewMonitor(true).Online())
	require.False(t, NewMonitor(false).Online())
}

func TestMonitorFiresOnTransitionOnly(t *testing.T) {
	m := NewMonitor(true)
	ch := m.Subscribe()

	m.SetOnline(true) // no transition
	select {
	case v := <-ch:
		t.Fatalf("unexpected notification %v for identical state", v)
	default:
	}

	m.SetOnline(false)
	require.False(t, <-ch)
	require.False(t, m.Online())

	m.SetOnline(false) // still no transition
	m.SetOnline(true)
	require.True(t, <-ch)
	require.True(t, m.Online())
}

func TestMonitorSlowSubscriberDoesNotBlock(t *testing.T) {
	m := NewMonitor(false)
	_ = m.Subscribe() // never read

	// Overflow the buffer; SetOnline must not deadlock.
	for i := 0; i < 10; i++ {
		m.SetOnline(i%2 == 0)
	}
	require.False(t, m.Online())
}
