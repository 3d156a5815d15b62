package harness

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDiscover(t *testing.T) {
	procs := &fakeTable{
		procs: []ProcInfo{{PID: 50, Name: "java", Args: []string{"java", "minecraft-old"}}},
		listed: func(call int, f *fakeTable) {
			if call == 3 {
				f.procs = append(f.procs,
					ProcInfo{PID: 60, Name: "java", Args: []string{"java", "-jar", "launcher.jar"}},
					ProcInfo{PID: 70, Name: "java", Args: []string{"java", "net.minecraft.client.main.Main", "--gameDir", "/games/pack"}},
				)
			}
		},
	}

	inst, err := Discover(testContext(), procs, DefaultMatch, 5*time.Millisecond, time.Second)

	require.NoError(t, err)
	assert.Equal(t, "/games/pack", inst.GameDir)
	assert.Equal(t, []string{"java", "net.minecraft.client.main.Main", "--gameDir", "/games/pack"}, inst.Command)
	assert.Equal(t, []int{70}, procs.terminated)
}

func TestDiscover_Cancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(testContext(), 50*time.Millisecond)
	defer cancel()

	_, err := Discover(ctx, &fakeTable{}, DefaultMatch, 5*time.Millisecond, time.Second)

	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestLock(t *testing.T) {
	dir := t.TempDir()

	first, err := Lock(dir)
	require.NoError(t, err)
	assert.FileExists(t, filepath.Join(dir, LockFile))

	_, err = Lock(dir)
	require.ErrorIs(t, err, ErrLocked)

	require.NoError(t, first.Unlock())
	again, err := Lock(dir)
	require.NoError(t, err)
	require.NoError(t, again.Unlock())
}
