// Package planner creates action plans for mirror operations.
// This includes determining which remote files need to be downloaded and
// which local files are stale.
package planner

import (
	"path"
	"path/filepath"
	"sort"

	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/scanner"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/sftptypes"
)

// ActionType defines the type of mirror action.
type ActionType string

const (
	// ActionDownload indicates a remote file needs to be downloaded
	ActionDownload ActionType = "download"

	// ActionDeleteLocal indicates a local file no longer exists remotely
	ActionDeleteLocal ActionType = "delete"

	// ActionSkip indicates the local copy is current
	ActionSkip ActionType = "skip"
)

// Action represents one planned mirror step.
type Action struct {
	// Type of action (download, delete, skip)
	Type ActionType

	// RemotePath is the absolute remote path (for downloads)
	RemotePath string

	// LocalPath is the absolute local path
	LocalPath string

	// Size is the remote file size in bytes (for downloads)
	Size int64

	// Reason describes why this action was planned
	Reason string
}

// Planner creates action plans for mirror operations.
type Planner struct {
	comparator sftptypes.FileComparator
}

// NewPlanner creates a new planner with the given comparator.
func NewPlanner(comp sftptypes.FileComparator) *Planner {
	return &Planner{
		comparator: comp,
	}
}

// Plan builds the action list from both inventories. Downloads come out
// smallest-first so quick files give feedback early; deletions, when
// requested, follow the downloads.
func (p *Planner) Plan(
	remoteRoot, localRoot string,
	remoteFiles []*sftptypes.RemoteFile,
	localFiles []*sftptypes.LocalFile,
	deleteExtra bool,
) []*Action {
	localMap := buildLocalMap(localRoot, localFiles)
	remoteMap := buildRemoteMap(remoteRoot, remoteFiles)

	var actions []*Action
	for relPath, remote := range remoteMap {
		localPath := filepath.Join(localRoot, filepath.FromSlash(relPath))

		local, exists := localMap[relPath]
		switch {
		case !exists:
			actions = append(actions, &Action{
				Type:       ActionDownload,
				RemotePath: remote.Path,
				LocalPath:  localPath,
				Size:       remote.Size,
				Reason:     "new file",
			})
		case p.comparator.HasChanged(remote, local):
			actions = append(actions, &Action{
				Type:       ActionDownload,
				RemotePath: remote.Path,
				LocalPath:  localPath,
				Size:       remote.Size,
				Reason:     "modified",
			})
		default:
			actions = append(actions, &Action{
				Type:       ActionSkip,
				RemotePath: remote.Path,
				LocalPath:  localPath,
				Size:       remote.Size,
				Reason:     "unchanged",
			})
		}
	}

	if deleteExtra {
		for relPath, local := range localMap {
			if _, exists := remoteMap[relPath]; !exists {
				actions = append(actions, &Action{
					Type:      ActionDeleteLocal,
					LocalPath: local.Path,
					Size:      local.Size,
					Reason:    "removed remotely",
				})
			}
		}
	}

	sortActions(actions)
	return actions
}

// buildLocalMap keys local files by their slash-separated relative path.
func buildLocalMap(localRoot string, files []*sftptypes.LocalFile) map[string]*sftptypes.LocalFile {
	localMap := make(map[string]*sftptypes.LocalFile, len(files))
	for _, file := range files {
		if rel := scanner.RelativeLocal(localRoot, file.Path); rel != "" {
			localMap[rel] = file
		}
	}
	return localMap
}

// buildRemoteMap keys remote files by their path relative to the mirror root.
func buildRemoteMap(remoteRoot string, files []*sftptypes.RemoteFile) map[string]*sftptypes.RemoteFile {
	remoteMap := make(map[string]*sftptypes.RemoteFile, len(files))
	for _, file := range files {
		rel := scanner.RelativeRemote(remoteRoot, file.Path)
		if rel == "" {
			rel = path.Base(file.Path)
		}
		remoteMap[rel] = file
	}
	return remoteMap
}

// sortActions orders the plan: downloads smallest-first, then deletions,
// then skips, with path as the tiebreak so plans are stable.
func sortActions(actions []*Action) {
	order := map[ActionType]int{
		ActionDownload:    1,
		ActionDeleteLocal: 2,
		ActionSkip:        3,
	}
	sort.Slice(actions, func(i, j int) bool {
		a, b := actions[i], actions[j]
		if order[a.Type] != order[b.Type] {
			return order[a.Type] < order[b.Type]
		}
		if a.Type == ActionDownload && a.Size != b.Size {
			return a.Size < b.Size
		}
		return a.LocalPath < b.LocalPath
	})
}

// Stats contains statistics about planned actions.
type Stats struct {
	// Downloads is the number of files to download
	Downloads int

	// Deletes is the number of local files to delete
	Deletes int

	// Skips is the number of unchanged files
	Skips int

	// BytesToDownload is the total bytes to transfer
	BytesToDownload int64
}

// GetStats summarizes a plan.
func GetStats(actions []*Action) Stats {
	var stats Stats
	for _, action := range actions {
		switch action.Type {
		case ActionDownload:
			stats.Downloads++
			stats.BytesToDownload += action.Size
		case ActionDeleteLocal:
			stats.Deletes++
		case ActionSkip:
			stats.Skips++
		}
	}
	return stats
}
