// Package mirror provides the main mirror orchestration logic.
// This includes coordinating the mirror phases and managing the overall
// mirror process.
package mirror

import (
	"context"
	"fmt"
	"time"

	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/executor"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/planner"
	"github.com/input-output-hk/catalyst-forge-libs/sftp/internal/mirror/scanner"
)

// Manager coordinates the three phases of a mirror operation:
// 1. Inventory Building: scan the remote tree and the local target
// 2. Change Detection: compare both sides and plan actions
// 3. Execution: download and prune with concurrency control
type Manager struct {
	scanner  *scanner.Scanner
	planner  *planner.Planner
	executor *executor.Executor
}

// NewManager creates a new mirror manager with the provided components.
func NewManager(sc *scanner.Scanner, pl *planner.Planner, ex *executor.Executor) *Manager {
	return &Manager{
		scanner:  sc,
		planner:  pl,
		executor: ex,
	}
}

// Mirror executes a complete mirror operation following the three-phase
// approach. For dry runs the planned actions are returned without touching
// either side.
func (m *Manager) Mirror(ctx context.Context, config *Config) (*Result, error) {
	startTime := time.Now()

	// Phase 1: Inventory Building
	remoteFiles, err := m.scanner.ScanRemote(ctx, config.RemotePath, config.IncludePatterns, config.ExcludePatterns)
	if err != nil {
		return nil, fmt.Errorf("build remote inventory: %w", err)
	}
	localFiles, err := m.scanner.ScanLocal(ctx, config.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("build local inventory: %w", err)
	}

	// Phase 2: Change Detection and Planning
	actions := m.planner.Plan(config.RemotePath, config.LocalPath, remoteFiles, localFiles, config.DeleteExtra)
	stats := planner.GetStats(actions)

	if config.DryRun {
		return &Result{
			FilesSkipped: stats.Skips,
			Duration:     time.Since(startTime),
			Actions:      actions,
		}, nil
	}

	// Phase 3: Execution
	execResult, err := m.executor.Execute(ctx, actions, stats.BytesToDownload)
	if err != nil {
		return nil, fmt.Errorf("execute mirror plan: %w", err)
	}

	return &Result{
		FilesDownloaded: execResult.FilesDownloaded(),
		FilesSkipped:    stats.Skips,
		FilesDeleted:    execResult.FilesDeleted(),
		BytesDownloaded: execResult.BytesDownloaded(),
		Errors:          execResult.Errors,
		Duration:        time.Since(startTime),
	}, nil
}
