package vdf_test

import (
	"strings"
	"testing"

	"github.com/deckops/steamback/internal/vdf"
)

func TestParseFlat(t *testing.T) {
	doc := `"AppState"
{
	"appid"		"275850"
	"name"		"No Man's Sky"
	"installdir"		"No Man's Sky"
	"StateFlags"		"4"
}
`
	kv := vdf.ParseFlat(strings.NewReader(doc))

	if kv["appid"] != "275850" {
		t.Errorf("expected appid 275850, got %q", kv["appid"])
	}
	if kv["installdir"] != "No Man's Sky" {
		t.Errorf("expected installdir, got %q", kv["installdir"])
	}
	if _, ok := kv["AppState"]; ok {
		t.Error("bare section names must not appear as keys")
	}
}

func TestParseLibraryFolders(t *testing.T) {
	doc := `"libraryfolders"
{
	"0"
	{
		"path"		"/home/deck/.local/share/Steam"
		"label"		""
	}
	"1"
	{
		"path"		"/run/media/mmcblk0p1"
		"label"		"sdcard"
	}
}
`
	paths := vdf.ParseLibraryFolders(strings.NewReader(doc))

	want := []string{"/home/deck/.local/share/Steam", "/run/media/mmcblk0p1"}
	if len(paths) != len(want) {
		t.Fatalf("expected %d paths, got %d: %v", len(want), len(paths), paths)
	}
	for i, p := range want {
		if paths[i] != p {
			t.Errorf("path %d: expected %q, got %q", i, p, paths[i])
		}
	}
}

func TestParseRemoteCache(t *testing.T) {
	doc := `"275850"
{
	"ChangeNumber"		"-6703994677807818784"
	"ostype"		"-184"
	"my games/XCOM2/XComGame/SaveData/profile.bin"
	{
		"root"		"2"
		"size"		"15741"
		"sha"		"df59d8d7b2f0c7ddd25e966493d61c1b107f9b7a"
	}
	"my games/XCOM2/XComGame/SaveData/save1.sav"
	{
		"root"		"2"
		"size"		"99"
	}
}
`
	files := vdf.ParseRemoteCache(strings.NewReader(doc))

	want := []string{
		"my games/XCOM2/XComGame/SaveData/profile.bin",
		"my games/XCOM2/XComGame/SaveData/save1.sav",
	}
	if len(files) != len(want) {
		t.Fatalf("expected %d files, got %d: %v", len(want), len(files), files)
	}
	for i, f := range want {
		if files[i] != f {
			t.Errorf("file %d: expected %q, got %q", i, f, files[i])
		}
	}
}

func TestParseRemoteCache_Empty(t *testing.T) {
	doc := `"440"
{
}
`
	files := vdf.ParseRemoteCache(strings.NewReader(doc))
	if len(files) != 0 {
		t.Errorf("expected no files, got %v", files)
	}
}

func TestParseFlatFile_Missing(t *testing.T) {
	_, err := vdf.ParseFlatFile("/nonexistent/appmanifest_1.acf")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}
