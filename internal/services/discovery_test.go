package services

import "testing"

func TestSaveRootFromAutocloud(t *testing.T) {
	tests := []struct {
		name      string
		rcf       []string
		autocloud string
		want      string
	}{
		{
			name: "shared directory prefix stripped",
			rcf: []string{
				"SNAppData/SavedGames/save1.sav",
				"SNAppData/SavedGames/save2.sav",
			},
			autocloud: "/games/Foo/SNAppData/SavedGames",
			want:      "/games/Foo",
		},
		{
			name:      "no directories in rcf keeps autocloud dir",
			rcf:       []string{"save1.sav", "save2.sav"},
			autocloud: "/games/Foo",
			want:      "/games/Foo",
		},
		{
			// a scan stops narrowing at the last pairwise difference, so an
			// entry that is a strict prefix of its neighbours does not widen
			// the stripped directory
			name: "strict prefix entry keeps deepest shared directory",
			rcf: []string{
				"root/a/x",
				"root/a",
				"root/a/y",
			},
			autocloud: "/c/users/steamuser/root/a",
			want:      "/c/users/steamuser",
		},
		{
			name:      "empty rcf maps to nothing",
			rcf:       nil,
			autocloud: "/games/Foo",
			want:      "",
		},
		{
			name:      "prefix not matching autocloud tail is ignored",
			rcf:       []string{"Data/save1.sav", "Data/save2.sav"},
			autocloud: "/games/Foo/Other",
			want:      "/games/Foo/Other",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := saveRootFromAutocloud(tt.rcf, tt.autocloud); got != tt.want {
				t.Errorf("saveRootFromAutocloud(%v, %q) = %q, want %q",
					tt.rcf, tt.autocloud, got, tt.want)
			}
		})
	}
}
