package config

import (
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
)

func readYAML(t *testing.T, doc string) *viper.Viper {
	t.Helper()
	v := viper.New()
	v.SetConfigType("yaml")
	if err := v.ReadConfig(strings.NewReader(doc)); err != nil {
		t.Fatalf("could not read yaml: %v", err)
	}
	return v
}

func TestDefault(t *testing.T) {
	cfg := Default()
	if got := cfg.PlatformNames(); !reflect.DeepEqual(got, []string{"netease_max", "kugou"}) {
		t.Fatalf("unexpected enabled platforms %v", got)
	}
	if cfg.Refine().MaxIterations != 21 {
		t.Fatalf("expected iteration cap 21, got %d", cfg.Refine().MaxIterations)
	}
	if cfg.Retry().Attempts != 3 || cfg.Retry().Sleep != 5*time.Second {
		t.Fatalf("unexpected retry policy %+v", cfg.Retry())
	}
	kugou, ok := cfg.Platform("kugou")
	if !ok {
		t.Fatal("kugou platform missing")
	}
	if kugou.SourceColumn(ColTrack) != "work_name" || kugou.SourceColumn(ColArtist) != "ori_author_name" {
		t.Fatalf("unexpected kugou mapping %v", kugou.Columns)
	}
	if cfg.Aliases().Canonical("Inst") != "instrumental" {
		t.Fatalf("inst should alias to instrumental")
	}
	if cfg.Aliases().Canonical("") != "generic" {
		t.Fatalf("blank version should be generic")
	}
}

func TestLoadOverlaysDefaults(t *testing.T) {
	v := readYAML(t, `
refine:
  max_iterations: 5
retry:
  attempts: 2
  sleep: 250ms
version_aliases:
  acoustic version: acoustic
platforms:
  - name: kugou
    dsn: /data/kugou.sqlite
  - name: napster
    kind: http
    url: https://example.com/search?q={song}
    rows_path: data.songs
    columns:
      id: p_song_id
      title: p_track
`)
	cfg, err := Load(v)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Refine().MaxIterations != 5 || !cfg.Refine().IncludeTrackOnly {
		t.Fatalf("unexpected refine settings %+v", cfg.Refine())
	}
	if cfg.Retry().Sleep != 250*time.Millisecond {
		t.Fatalf("unexpected sleep %v", cfg.Retry().Sleep)
	}
	if got := cfg.PlatformNames(); !reflect.DeepEqual(got, []string{"kugou", "napster"}) {
		t.Fatalf("configured list should replace built-ins, got %v", got)
	}
	kugou, _ := cfg.Platform("kugou")
	if kugou.Table != "kugou_songs" || kugou.SourceColumn(ColSongID) != "audio_id" {
		t.Fatalf("built-in platform defaults not inherited: %+v", kugou)
	}
	if cfg.Aliases().Canonical("Acoustic Version") != "acoustic" || cfg.Aliases().Canonical("inst") != "instrumental" {
		t.Fatalf("aliases should extend the built-in table: %v", cfg.Aliases().Map())
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		doc  string
	}{
		{"unknown kind", "platforms:\n  - name: x\n    kind: ftp\n"},
		{"duplicate", "platforms:\n  - name: kugou\n  - name: kugou\n"},
		{"missing track column", "platforms:\n  - name: x\n    columns:\n      id: p_song_id\n"},
		{"zero cap", "refine:\n  max_iterations: 0\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(readYAML(t, tt.doc))
			if !errors.Is(err, ErrInvalidConfig) {
				t.Fatalf("expected ErrInvalidConfig, got %v", err)
			}
		})
	}
}

func TestConfigIsNotShared(t *testing.T) {
	cfg := Default()
	p, _ := cfg.Platform("kugou")
	p.Columns["work_name"] = "changed"
	again, _ := cfg.Platform("kugou")
	if again.Columns["work_name"] != ColTrack {
		t.Fatal("mutating a returned platform leaked into the configuration")
	}

	narrowed, err := cfg.With(WithPlatforms("kugou"))
	if err != nil {
		t.Fatalf("With: %v", err)
	}
	if !reflect.DeepEqual(narrowed.PlatformNames(), []string{"kugou"}) {
		t.Fatalf("unexpected platforms %v", narrowed.PlatformNames())
	}
	if len(cfg.PlatformNames()) != 2 {
		t.Fatal("With modified the original configuration")
	}
}
