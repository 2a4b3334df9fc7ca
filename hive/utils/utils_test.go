package utils

import (
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestGeneratePidFile(t *testing.T) {

	// Simulate a sample process running (e.g cat)
	cmd := exec.Command("cat")
	cmd.Start()

	err := WritePidFile("utilsunittest", cmd.Process.Pid)

	assert.NoError(t, err)

	// Read the PID file and verify contents
	pid, err := ReadPidFile("utilsunittest")

	assert.NoError(t, err)
	assert.Equal(t, cmd.Process.Pid, pid)

	// Test attempt to read a PID file that doesn't exist
	_, err = ReadPidFile("nonexistentpidfile")
	assert.Error(t, err)

	// Cleanup
	err = RemovePidFile("utilsunittest")
	assert.NoError(t, err)
}

func TestKillProcess(t *testing.T) {
	// Create a test process
	cmd := exec.Command("sleep", "60")
	err := cmd.Start()
	assert.NoError(t, err)

	pid := cmd.Process.Pid

	go func() {
		time.Sleep(500 * time.Millisecond)
		// Kill the process
		err = KillProcess(pid)
		assert.NoError(t, err)

	}()

	// Reap the process so it does not stay DEFUNCT
	if err := cmd.Wait(); err != nil {
		// often you expect a non nil error here since it was terminated by a signal
		t.Logf("process exited after SIGTERM: %v", err)
	}

	// Test killing non-existent process
	err = KillProcess(999999)
	assert.Error(t, err, "Should error when killing non-existent process")
}

func TestStopProcess(t *testing.T) {
	// Create and start a test process
	cmd := exec.Command("sleep", "60")
	err := cmd.Start()
	assert.NoError(t, err)

	// Write PID file
	testName := "stopprocess-test"

	err = WritePidFile(testName, cmd.Process.Pid)

	assert.NoError(t, err)

	go func() {
		time.Sleep(500 * time.Millisecond)

		// Stop the process
		err = StopProcess(testName)
		assert.NoError(t, err)

		// Verify PID file was removed
		_, err = ReadPidFile(testName)
		assert.Error(t, err, "PID file should be removed")

	}()

	// Reap the process so it does not stay DEFUNCT
	if err := cmd.Wait(); err != nil {
		// often you expect a non nil error here since it was terminated by a signal
		t.Logf("process exited after SIGTERM: %v", err)
	}

	// Test stopping non-existent process
	err = StopProcess("nonexistent-process")
	assert.Error(t, err, "Should error when stopping non-existent process")
}

func TestStopProcessAt(t *testing.T) {
	tmpDir := t.TempDir()

	cmd := exec.Command("sleep", "60")
	err := cmd.Start()
	assert.NoError(t, err)

	err = WritePidFileTo(tmpDir, "stopprocessat-test", cmd.Process.Pid)
	assert.NoError(t, err)

	go func() {
		time.Sleep(500 * time.Millisecond)

		err = StopProcessAt(tmpDir, "stopprocessat-test")
		assert.NoError(t, err)

		_, err = ReadPidFileFrom(tmpDir, "stopprocessat-test")
		assert.Error(t, err, "PID file should be removed")
	}()

	if err := cmd.Wait(); err != nil {
		t.Logf("process exited after SIGTERM: %v", err)
	}
}
