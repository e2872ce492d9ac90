package classify

// advise appends the structured suggestions for the requested operation.
// Warnings about the environment (missing remote, stale data, degraded
// detection) are recorded where they are discovered; this pass only ranks
// what the user should do next.
func (c *Checker) advise(st *SyncStatus) {
	switch st.Op {
	case OpCommit:
		c.adviseCommit(st)
	case OpPush:
		c.advisePush(st)
	case OpPull:
		c.advisePull(st)
	}
}

func (c *Checker) adviseCommit(st *SyncStatus) {
	if !st.HasUncommittedChanges && !st.HasUntrackedFiles {
		st.suggest(Advice{Scenario: ScenarioNothingToCommit})
		return
	}
	if st.HasUncommittedChanges {
		st.suggest(Advice{
			Scenario: ScenarioUncommittedChanges,
			Count:    st.UncommittedCount,
		})
	}
	if st.HasUntrackedFiles {
		st.suggest(Advice{
			Scenario: ScenarioUntrackedFiles,
			Paths:    st.Untracked,
			Count:    st.UntrackedCount,
		})
	}
	st.suggest(Advice{Scenario: ScenarioCommitReady})
}

func (c *Checker) advisePush(st *SyncStatus) {
	if !st.HasRemote {
		return
	}
	if st.IsFirstPush {
		st.suggest(Advice{Scenario: ScenarioFirstPush, LocalAhead: st.LocalAhead})
		return
	}
	if st.IsRemoteEmpty && !st.HasLocalCommits {
		st.suggest(Advice{Scenario: ScenarioNothingToPush})
		return
	}

	switch {
	case st.HasActualConflicts:
		st.suggest(Advice{
			Scenario:     ScenarioConflictsDetected,
			Paths:        st.ConflictingPaths(),
			Count:        len(st.ConflictDetails),
			LocalAhead:   st.LocalAhead,
			RemoteBehind: st.RemoteBehind,
		})
	case st.NeedsForcePush:
		if st.CanAutoMerge {
			st.suggest(Advice{
				Scenario:     ScenarioDivergedHistories,
				LocalAhead:   st.LocalAhead,
				RemoteBehind: st.RemoteBehind,
			})
		} else {
			st.suggest(Advice{
				Scenario:     ScenarioForcePushOverwrites,
				RemoteBehind: st.RemoteBehind,
			})
		}
		if st.LocalAhead == 0 && st.RemoteBehind == 0 {
			st.suggest(Advice{Scenario: ScenarioNoCommonHistory})
		}
	case st.RemoteBehind > 0:
		st.suggest(Advice{
			Scenario:     ScenarioPullBeforePush,
			RemoteBehind: st.RemoteBehind,
		})
	case st.CanFastForwardPush:
		st.suggest(Advice{Scenario: ScenarioCleanPush, LocalAhead: st.LocalAhead})
	case st.LocalAhead == 0:
		st.suggest(Advice{Scenario: ScenarioNothingToPush})
	}

	if st.HasNonOverlappingChanges && !st.HasActualConflicts && st.NeedsForcePush {
		if st.HasOnlyNewFiles {
			st.suggest(Advice{Scenario: ScenarioOnlyNewFiles})
		} else {
			st.suggest(Advice{Scenario: ScenarioNonOverlappingChanges})
		}
	}
}

func (c *Checker) advisePull(st *SyncStatus) {
	if !st.HasRemote {
		return
	}
	if !st.HasUpstream && st.RemoteBehind > 0 {
		st.suggest(Advice{Scenario: ScenarioPullNeedsUpstream})
	}

	switch {
	case st.HasActualConflicts:
		st.suggest(Advice{
			Scenario:     ScenarioConflictsDetected,
			Paths:        st.ConflictingPaths(),
			Count:        len(st.ConflictDetails),
			RemoteBehind: st.RemoteBehind,
		})
	case st.RemoteBehind == 0 && st.LocalAhead == 0 && !st.IsRemoteEmpty:
		st.suggest(Advice{Scenario: ScenarioUpToDate})
	case st.CanFastForwardPull:
		st.suggest(Advice{Scenario: ScenarioCleanPull, RemoteBehind: st.RemoteBehind})
	case st.NeedsForcePull:
		st.suggest(Advice{
			Scenario:     ScenarioUncommittedChanges,
			Count:        st.UncommittedCount,
			RemoteBehind: st.RemoteBehind,
		})
	case st.RemoteBehind == 0:
		st.suggest(Advice{Scenario: ScenarioUpToDate})
	}
}
