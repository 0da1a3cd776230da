package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "replaygain.toml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name    string
		body    string
		want    Config
		wantErr string
	}{
		{
			name: "empty file keeps defaults",
			body: "",
			want: Default(),
		},
		{
			name: "overrides",
			body: `
chunk_frames = 1024
library_path = "/var/lib/replaygain"
write_file_tags = false
log_level = "debug"
report = true
`,
			want: Config{
				ChunkFrames:   1024,
				LibraryPath:   "/var/lib/replaygain",
				WriteFileTags: false,
				LogLevel:      "debug",
				LogFile:       "replaygain-debug.log",
				Report:        true,
			},
		},
		{
			name:    "unknown key",
			body:    "chunk_size = 10\n",
			wantErr: "unknown keys",
		},
		{
			name:    "bad chunk frames",
			body:    "chunk_frames = 0\n",
			wantErr: "chunk_frames must be positive",
		},
		{
			name:    "bad log level",
			body:    `log_level = "loud"` + "\n",
			wantErr: "unknown log_level",
		},
		{
			name:    "malformed",
			body:    "chunk_frames = \n",
			wantErr: "failed to load config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Load(writeConfig(t, tt.body))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Load() error = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("Load() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestLoadMissing(t *testing.T) {
	t.Chdir(t.TempDir())

	got, err := Load("")
	if err != nil {
		t.Fatalf("Load(\"\") error = %v", err)
	}
	if got != Default() {
		t.Errorf("Load(\"\") = %+v, want defaults", got)
	}

	if _, err := Load("elsewhere.toml"); err == nil {
		t.Error("Load() of a named missing file returned no error")
	}
}
