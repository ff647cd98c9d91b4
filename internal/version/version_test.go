package version

import "testing"

func withBuild(t *testing.T, v, commit, built string) {
	t.Helper()
	origVersion, origCommit, origBuildTime := Version, Commit, BuildTime
	t.Cleanup(func() {
		Version, Commit, BuildTime = origVersion, origCommit, origBuildTime
	})
	Version, Commit, BuildTime = v, commit, built
}

func TestString(t *testing.T) {
	withBuild(t, "1.2.3", "abc1234", "2024-01-15T10:00:00Z")

	want := "1.2.3 (abc1234) built 2024-01-15T10:00:00Z"
	if got := String(); got != want {
		t.Errorf("String() = %q, want %q", got, want)
	}
}

func TestGet(t *testing.T) {
	withBuild(t, "0.4.0", "deadbee", "unknown")

	info := Get()
	if info.Version != "0.4.0" {
		t.Errorf("Version = %q, want %q", info.Version, "0.4.0")
	}
	if info.Commit != "deadbee" {
		t.Errorf("Commit = %q, want %q", info.Commit, "deadbee")
	}
	if info.APIVersion != APIVersion {
		t.Errorf("APIVersion = %q, want %q", info.APIVersion, APIVersion)
	}
}

func TestDefaultValues(t *testing.T) {
	// ldflags may override these in release builds.
	if Version == "" || Commit == "" || BuildTime == "" {
		t.Errorf("build variables must not be empty: %q %q %q", Version, Commit, BuildTime)
	}
}
