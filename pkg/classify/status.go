// Package classify orchestrates a pre-flight check: it combines divergence
// analysis, tree diffing, and content merging into one SyncStatus that
// tells a caller whether a commit, push, or pull can proceed and exactly
// which files and line ranges stand in the way. The check never mutates
// repository data and never lets an internal detection failure escape: it
// degrades to a conservative status with the failure recorded as advice.
package classify

import (
	"sort"

	"github.com/preflightvcs/preflight/pkg/textmerge"
)

// Op is the operation being checked.
type Op int

const (
	OpCommit Op = iota
	OpPush
	OpPull
)

func (o Op) String() string {
	switch o {
	case OpCommit:
		return "commit"
	case OpPush:
		return "push"
	case OpPull:
		return "pull"
	}
	return "unknown"
}

// Scenario identifies one advice situation. The engine emits scenarios with
// parameters; rendering them as user-facing text is the presentation
// layer's job, keeping the engine free of display strings.
type Scenario int

const (
	// ScenarioDetectionDegraded records an internal failure that forced
	// the check to fall back to conservative capability flags. Detail
	// carries the underlying error text.
	ScenarioDetectionDegraded Scenario = iota
	// ScenarioNoRemote: no remote repository is configured.
	ScenarioNoRemote
	// ScenarioNoUpstream: the branch has no upstream tracking branch.
	ScenarioNoUpstream
	// ScenarioStaleRemoteData: the remote could not be reached; analysis
	// used the last-known remote refs.
	ScenarioStaleRemoteData
	// ScenarioAuthenticationFailed: credentials were rejected.
	ScenarioAuthenticationFailed
	// ScenarioFirstPush: the remote branch does not exist yet.
	ScenarioFirstPush
	// ScenarioRemoteEmpty: the remote repository holds no content for
	// this branch; a first push is safe.
	ScenarioRemoteEmpty
	// ScenarioCleanPush: LocalAhead commits can be pushed fast-forward.
	ScenarioCleanPush
	// ScenarioPullBeforePush: the remote is ahead; pulling first avoids
	// a rejected push.
	ScenarioPullBeforePush
	// ScenarioDivergedHistories: both sides hold unique commits.
	ScenarioDivergedHistories
	// ScenarioForcePushOverwrites: a force push would discard
	// RemoteBehind remote commits.
	ScenarioForcePushOverwrites
	// ScenarioNoCommonHistory: local and remote share no commits.
	ScenarioNoCommonHistory
	// ScenarioConflictsDetected: Paths hold content-level conflicts.
	ScenarioConflictsDetected
	// ScenarioNonOverlappingChanges: both sides changed files but no
	// path overlaps; an automatic merge is safe.
	ScenarioNonOverlappingChanges
	// ScenarioOnlyNewFiles: the only changes are newly added files.
	ScenarioOnlyNewFiles
	// ScenarioUncommittedChanges: Count tracked files have uncommitted
	// modifications.
	ScenarioUncommittedChanges
	// ScenarioUntrackedFiles: Count files are untracked.
	ScenarioUntrackedFiles
	// ScenarioCommitReady: there are changes to commit.
	ScenarioCommitReady
	// ScenarioNothingToCommit: the working tree is clean.
	ScenarioNothingToCommit
	// ScenarioNothingToPush: no local commits await pushing.
	ScenarioNothingToPush
	// ScenarioCleanPull: RemoteBehind commits can be pulled fast-forward.
	ScenarioCleanPull
	// ScenarioUpToDate: local and remote are identical.
	ScenarioUpToDate
	// ScenarioPullNeedsUpstream: pulling requires an upstream branch.
	ScenarioPullNeedsUpstream
)

var scenarioNames = [...]string{
	ScenarioDetectionDegraded:     "detection_degraded",
	ScenarioNoRemote:              "no_remote",
	ScenarioNoUpstream:            "no_upstream",
	ScenarioStaleRemoteData:       "stale_remote_data",
	ScenarioAuthenticationFailed:  "authentication_failed",
	ScenarioFirstPush:             "first_push",
	ScenarioRemoteEmpty:           "remote_empty",
	ScenarioCleanPush:             "clean_push",
	ScenarioPullBeforePush:        "pull_before_push",
	ScenarioDivergedHistories:     "diverged_histories",
	ScenarioForcePushOverwrites:   "force_push_overwrites",
	ScenarioNoCommonHistory:       "no_common_history",
	ScenarioConflictsDetected:     "conflicts_detected",
	ScenarioNonOverlappingChanges: "non_overlapping_changes",
	ScenarioOnlyNewFiles:          "only_new_files",
	ScenarioUncommittedChanges:    "uncommitted_changes",
	ScenarioUntrackedFiles:        "untracked_files",
	ScenarioCommitReady:           "commit_ready",
	ScenarioNothingToCommit:       "nothing_to_commit",
	ScenarioNothingToPush:         "nothing_to_push",
	ScenarioCleanPull:             "clean_pull",
	ScenarioUpToDate:              "up_to_date",
	ScenarioPullNeedsUpstream:     "pull_needs_upstream",
}

func (s Scenario) String() string {
	if int(s) < len(scenarioNames) {
		return scenarioNames[s]
	}
	return "unknown"
}

// Advice is one structured warning or suggestion. Only the fields relevant
// to the scenario are populated.
type Advice struct {
	Scenario     Scenario
	Paths        []string
	Count        int
	LocalAhead   int
	RemoteBehind int
	Detail       string
}

// SyncStatus is the aggregated result of one check. It is constructed once
// per Check call, never mutated afterwards, and owned by the caller.
type SyncStatus struct {
	Op           Op
	Branch       string
	RemoteBranch string // remote-qualified, e.g. "origin/main"
	RemoteURL    string

	// Working-tree path sets, passed through from the status provider.
	Added       []string
	Changed     []string
	Modified    []string
	Missing     []string
	Removed     []string
	Untracked   []string
	Conflicting []string

	HasUncommittedChanges bool
	UncommittedCount      int
	HasUntrackedFiles     bool
	UntrackedCount        int

	// Remote relationship.
	HasRemote       bool
	HasUpstream     bool
	HasLocalCommits bool
	IsLocalEmpty    bool
	IsFirstPush     bool
	IsRemoteEmpty   bool
	LocalAhead      int
	RemoteBehind    int
	CountsCapped    bool

	NeedsForcePush     bool
	NeedsForcePull     bool
	CanFastForwardPush bool
	CanFastForwardPull bool

	// Operation gates.
	CanCommit bool
	CanPush   bool
	CanPull   bool

	// Content-level outcome. HasActualConflicts is true iff at least one
	// path's merge outcome is conflicted; CanAutoMerge is true only when
	// HasActualConflicts is false and either a fast-forward relationship
	// holds or every overlapping path merged cleanly.
	HasActualConflicts       bool
	CanAutoMerge             bool
	HasOnlyNewFiles          bool
	HasNonOverlappingChanges bool
	ConflictDetails          map[string][]textmerge.ConflictBlock

	// Remote-side changes relative to the merge base (or to the local
	// tip when no base exists).
	RemoteAdded    []string
	RemoteModified []string
	RemoteRemoved  []string
	RemoteRenamed  []string

	// Freshness of the remote data behind the analysis.
	RemoteDataStale bool
	HasAuthIssue    bool

	Warnings    []Advice
	Suggestions []Advice

	// degraded is set once any internal failure clamps the capability
	// flags; later stages must not loosen them again.
	degraded bool
}

// ConflictingPaths returns the sorted paths with content conflicts.
func (s *SyncStatus) ConflictingPaths() []string {
	if len(s.ConflictDetails) == 0 {
		return nil
	}
	paths := make([]string, 0, len(s.ConflictDetails))
	for p := range s.ConflictDetails {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

func (s *SyncStatus) warn(a Advice)    { s.Warnings = append(s.Warnings, a) }
func (s *SyncStatus) suggest(a Advice) { s.Suggestions = append(s.Suggestions, a) }
