package config

import (
	"log/slog"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/tchung1970/record/lib/capture"
)

func TestLoad(t *testing.T) {
	testCases := []struct {
		name    string
		env     map[string]string
		wantErr bool
		wantCfg *Config
	}{
		{
			name: "defaults (no env set)",
			env:  map[string]string{},
			wantCfg: &Config{
				Duration:     60,
				OutputDir:    ".",
				PreRoll:      3,
				Display:      capture.DefaultDisplay(runtime.GOOS),
				PathToFFmpeg: "ffmpeg",
				StopTimeout:  5 * time.Second,
				LogLevel:     "warn",
			},
		},
		{
			name: "custom valid env",
			env: map[string]string{
				"RECORD_DURATION":     "15",
				"RECORD_OUTPUT_DIR":   "/tmp",
				"RECORD_PREROLL":      "0",
				"RECORD_DISPLAY":      ":1.0",
				"RECORD_FFMPEG_PATH":  "/usr/local/bin/ffmpeg",
				"RECORD_STOP_TIMEOUT": "2s",
				"RECORD_LOG_LEVEL":    "debug",
			},
			wantCfg: &Config{
				Duration:     15,
				OutputDir:    "/tmp",
				PreRoll:      0,
				Display:      ":1.0",
				PathToFFmpeg: "/usr/local/bin/ffmpeg",
				StopTimeout:  2 * time.Second,
				LogLevel:     "debug",
			},
		},
		{
			name:    "zero duration",
			env:     map[string]string{"RECORD_DURATION": "0"},
			wantErr: true,
		},
		{
			name:    "negative duration",
			env:     map[string]string{"RECORD_DURATION": "-5"},
			wantErr: true,
		},
		{
			name:    "non-numeric duration",
			env:     map[string]string{"RECORD_DURATION": "ten"},
			wantErr: true,
		},
		{
			name:    "negative preroll",
			env:     map[string]string{"RECORD_PREROLL": "-1"},
			wantErr: true,
		},
		{
			name:    "zero stop timeout",
			env:     map[string]string{"RECORD_STOP_TIMEOUT": "0s"},
			wantErr: true,
		},
		{
			name:    "unknown log level",
			env:     map[string]string{"RECORD_LOG_LEVEL": "chatty"},
			wantErr: true,
		},
		{
			name:    "missing ffmpeg path (set to empty)",
			env:     map[string]string{"RECORD_FFMPEG_PATH": ""},
			wantErr: true,
		},
		{
			name:    "missing output dir (set to empty)",
			env:     map[string]string{"RECORD_OUTPUT_DIR": ""},
			wantErr: true,
		},
	}

	for idx := range testCases {
		tc := testCases[idx]
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}

			cfg, err := Load()

			if tc.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				require.NotNil(t, cfg)
				require.Equal(t, tc.wantCfg, cfg)
			}
		})
	}
}

func TestSlogLevel(t *testing.T) {
	for in, want := range map[string]slog.Level{
		"debug": slog.LevelDebug,
		"INFO":  slog.LevelInfo,
		"warn":  slog.LevelWarn,
		"error": slog.LevelError,
	} {
		cfg := &Config{LogLevel: in}
		require.Equal(t, want, cfg.SlogLevel(), in)
	}
}

func TestLoadDefaultDisplayFollowsCapture(t *testing.T) {
	t.Setenv("RECORD_DISPLAY", "")

	cfg, err := Load()
	require.NoError(t, err)
	require.Equal(t, capture.DefaultDisplay(runtime.GOOS), cfg.Display)
}
