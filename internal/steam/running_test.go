package steam

import "testing"

func TestAppIDFromArgs(t *testing.T) {
	tests := []struct {
		name string
		args []string
		id   int
		ok   bool
	}{
		{
			name: "reaper launch",
			args: []string{"/home/deck/.local/share/Steam/ubuntu12_32/reaper", "SteamLaunch", "AppId=275850", "--", "/path/to/game"},
			id:   275850,
			ok:   true,
		},
		{
			name: "appid without launch marker",
			args: []string{"some-tool", "AppId=620"},
			ok:   false,
		},
		{
			name: "launch marker without appid",
			args: []string{"reaper", "SteamLaunch", "--", "/bin/true"},
			ok:   false,
		},
		{
			name: "malformed appid",
			args: []string{"reaper", "SteamLaunch", "AppId=banana"},
			ok:   false,
		},
		{
			name: "empty",
			args: nil,
			ok:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			id, ok := appIDFromArgs(tt.args)
			if ok != tt.ok {
				t.Fatalf("expected ok=%v, got %v", tt.ok, ok)
			}
			if ok && id != tt.id {
				t.Errorf("expected id %d, got %d", tt.id, id)
			}
		})
	}
}
