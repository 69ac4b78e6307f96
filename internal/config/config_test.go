package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRunModeRejectsOnlyReplayAndOnlyVerifyTogether(t *testing.T) {
	m := RunMode{OnlyReplay: true, OnlyVerify: true}
	assert.Error(t, m.Validate())
}

func TestRunModeDefaultRunsBoth(t *testing.T) {
	var m RunMode
	assert.NoError(t, m.Validate())
	assert.True(t, m.ShouldReplay())
	assert.True(t, m.ShouldVerify())
}

func TestTuningShouldDelayRequiresMembershipWhenSetNonEmpty(t *testing.T) {
	tun := &Tuning{DelayInsert: true, DelayableTables: map[string]bool{"public.orders": true}}
	assert.True(t, tun.ShouldDelay("public.orders"))
	assert.False(t, tun.ShouldDelay("public.users"))
}

func TestTuningShouldDelayFalseWhenDisabled(t *testing.T) {
	tun := &Tuning{DelayInsert: false}
	assert.False(t, tun.ShouldDelay("public.orders"))
}

func TestTuningShouldDelayEmptySetThrottlesNothing(t *testing.T) {
	tun := &Tuning{DelayInsert: true}
	assert.False(t, tun.ShouldDelay("public.orders"))
}

func TestEnvIntFallsBackOnMalformedValue(t *testing.T) {
	t.Setenv("NUM_OF_BUFFERS", "not-a-number")
	assert.Equal(t, defaultNumBuffers, envInt("NUM_OF_BUFFERS", defaultNumBuffers))
}

func TestEnvSetSplitsAndTrims(t *testing.T) {
	t.Setenv("DELAYABLE_CONFIG", "a, b ,c")
	got := envSet("DELAYABLE_CONFIG")
	assert.Equal(t, map[string]bool{"a": true, "b": true, "c": true}, got)
}
