package steam

import (
	"context"
	"strconv"
	"strings"

	"github.com/shirou/gopsutil/v3/process"
)

// RunningAppIDs scans the process table for Steam game launches and returns
// the set of running app IDs. Steam starts every game through its reaper
// wrapper with a command line like:
//
//	.../ubuntu12_32/reaper SteamLaunch AppId=275850 -- <game binary> ...
func RunningAppIDs(ctx context.Context) (map[int]struct{}, error) {
	procs, err := process.ProcessesWithContext(ctx)
	if err != nil {
		return nil, err
	}

	ids := map[int]struct{}{}
	for _, p := range procs {
		args, err := p.CmdlineSliceWithContext(ctx)
		if err != nil {
			continue // process may have exited mid-scan
		}
		if id, ok := appIDFromArgs(args); ok {
			ids[id] = struct{}{}
		}
	}
	return ids, nil
}

// appIDFromArgs extracts the app ID from a reaper command line, requiring
// both the SteamLaunch marker and an AppId= argument so unrelated processes
// mentioning AppId never match.
func appIDFromArgs(args []string) (int, bool) {
	launch := false
	appID := 0
	found := false
	for _, a := range args {
		if a == "SteamLaunch" {
			launch = true
			continue
		}
		if v, ok := strings.CutPrefix(a, "AppId="); ok {
			id, err := strconv.Atoi(v)
			if err == nil {
				appID = id
				found = true
			}
		}
	}
	return appID, launch && found
}
