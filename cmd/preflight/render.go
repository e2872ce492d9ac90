package main

import (
	"fmt"
	"io"

	"github.com/preflightvcs/preflight/pkg/classify"
)

// render prints a status as plain text. The structured result carries
// scenario codes; the wording lives here and only here.
func render(w io.Writer, st *classify.SyncStatus) {
	if st.Branch != "" {
		fmt.Fprintf(w, "on %s", st.Branch)
		if st.RemoteBranch != "" {
			fmt.Fprintf(w, " tracking %s", st.RemoteBranch)
		}
		fmt.Fprintln(w)
	}

	if st.LocalAhead > 0 || st.RemoteBehind > 0 {
		suffix := ""
		if st.CountsCapped {
			suffix = "+"
		}
		fmt.Fprintf(w, "ahead %d%s, behind %d%s\n", st.LocalAhead, suffix, st.RemoteBehind, suffix)
	}

	for _, a := range st.Warnings {
		fmt.Fprintf(w, "warning: %s\n", adviceText(a))
	}
	for _, a := range st.Suggestions {
		fmt.Fprintf(w, "  %s\n", adviceText(a))
	}

	for _, path := range st.ConflictingPaths() {
		blocks := st.ConflictDetails[path]
		fmt.Fprintf(w, "  ! %s (%d conflicting region(s))\n", path, len(blocks))
		for _, b := range blocks {
			fmt.Fprintf(w, "      lines %d-%d: local %d line(s), remote %d line(s)\n",
				b.BeginLine, b.EndLine-1, len(b.LocalLines), len(b.RemoteLines))
		}
	}

	switch {
	case st.HasActualConflicts:
		fmt.Fprintln(w, "result: conflicts detected")
	case st.CanAutoMerge:
		fmt.Fprintln(w, "result: clean")
	default:
		fmt.Fprintln(w, "result: unable to verify")
	}
}

func adviceText(a classify.Advice) string {
	switch a.Scenario {
	case classify.ScenarioDetectionDegraded:
		return fmt.Sprintf("detection degraded: %s", a.Detail)
	case classify.ScenarioNoRemote:
		return "no remote configured; add one to enable push and pull"
	case classify.ScenarioNoUpstream:
		return "branch has no upstream; checking against the default remote"
	case classify.ScenarioStaleRemoteData:
		if a.Detail != "" {
			return fmt.Sprintf("remote unreachable (%s); using cached remote state", a.Detail)
		}
		return "remote unreachable; using cached remote state"
	case classify.ScenarioAuthenticationFailed:
		return "authentication failed; check credentials or token"
	case classify.ScenarioFirstPush:
		return fmt.Sprintf("first push: %d commit(s) will create the remote branch", a.LocalAhead)
	case classify.ScenarioRemoteEmpty:
		return "remote branch does not exist yet"
	case classify.ScenarioCleanPush:
		return fmt.Sprintf("push will fast-forward the remote by %d commit(s)", a.LocalAhead)
	case classify.ScenarioPullBeforePush:
		return fmt.Sprintf("remote has %d new commit(s); pull before pushing", a.RemoteBehind)
	case classify.ScenarioDivergedHistories:
		return fmt.Sprintf("histories diverged (%d local, %d remote) but changes merge cleanly", a.LocalAhead, a.RemoteBehind)
	case classify.ScenarioForcePushOverwrites:
		return fmt.Sprintf("force push would overwrite %d remote commit(s)", a.RemoteBehind)
	case classify.ScenarioNoCommonHistory:
		return "local and remote share no history"
	case classify.ScenarioConflictsDetected:
		return fmt.Sprintf("%d file(s) have conflicting edits", a.Count)
	case classify.ScenarioNonOverlappingChanges:
		return "both sides changed different files; a merge commit will reconcile them"
	case classify.ScenarioOnlyNewFiles:
		return "both sides only added new files; merge is safe"
	case classify.ScenarioUncommittedChanges:
		if a.RemoteBehind > 0 {
			return fmt.Sprintf("%d uncommitted file(s) would collide with %d incoming commit(s); commit or stash first", a.Count, a.RemoteBehind)
		}
		return fmt.Sprintf("%d file(s) with uncommitted changes ready to commit", a.Count)
	case classify.ScenarioUntrackedFiles:
		return fmt.Sprintf("%d untracked file(s); add them to include them in the commit", a.Count)
	case classify.ScenarioCommitReady:
		return "commit can proceed"
	case classify.ScenarioNothingToCommit:
		return "nothing to commit; working tree clean"
	case classify.ScenarioNothingToPush:
		return "nothing to push"
	case classify.ScenarioCleanPull:
		return fmt.Sprintf("pull will fast-forward %d commit(s)", a.RemoteBehind)
	case classify.ScenarioUpToDate:
		return "already up to date"
	case classify.ScenarioPullNeedsUpstream:
		return "set an upstream so pull knows which branch to merge"
	default:
		return a.Scenario.String()
	}
}
