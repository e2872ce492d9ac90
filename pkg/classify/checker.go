package classify

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/preflightvcs/preflight/pkg/ancestry"
	"github.com/preflightvcs/preflight/pkg/divergence"
	"github.com/preflightvcs/preflight/pkg/remotesync"
	"github.com/preflightvcs/preflight/pkg/textmerge"
	"github.com/preflightvcs/preflight/pkg/treediff"
	"github.com/preflightvcs/preflight/pkg/vcs"
)

// Checker runs pre-flight checks for one workspace. Build one Checker per
// workspace handle; independent workspaces are checked concurrently through
// independent Checkers.
type Checker struct {
	repo  vcs.Repository
	sync  *remotesync.Synchronizer
	creds vcs.Credentials

	// DefaultRemote is consulted when the branch has no upstream
	// configured (the typical freshly-initialized workspace). Empty
	// means "origin".
	DefaultRemote string

	// Cap overrides the divergence enumeration bound when positive.
	Cap int
}

// NewChecker returns a Checker over repo using sync for remote access.
func NewChecker(repo vcs.Repository, sync *remotesync.Synchronizer, creds vcs.Credentials) *Checker {
	return &Checker{repo: repo, sync: sync, creds: creds}
}

func (c *Checker) defaultRemote() string {
	if c.DefaultRemote != "" {
		return c.DefaultRemote
	}
	return "origin"
}

// Check runs one pre-flight check for op. It always returns a status:
// internal detection failures degrade the result (conservative capability
// flags plus a recorded warning) instead of propagating.
func (c *Checker) Check(ctx context.Context, op Op) *SyncStatus {
	logger := log.With().Str("check_id", uuid.NewString()).Str("op", op.String()).Logger()

	st := &SyncStatus{
		Op:              op,
		ConflictDetails: make(map[string][]textmerge.ConflictBlock),
	}

	branch, err := c.repo.Branch(ctx)
	if err != nil {
		degrade(st, &logger, err)
		c.advise(st)
		return st
	}
	st.Branch = branch

	c.readLocalState(ctx, st, &logger)
	c.readRemoteState(ctx, st, &logger)
	c.advise(st)

	logger.Debug().
		Str("branch", st.Branch).
		Bool("conflicts", st.HasActualConflicts).
		Bool("auto_merge", st.CanAutoMerge).
		Int("ahead", st.LocalAhead).
		Int("behind", st.RemoteBehind).
		Msg("pre-flight check complete")
	return st
}

// degrade records an internal failure and clamps the capability flags to
// their safe values. It is the only place detection errors are absorbed.
func degrade(st *SyncStatus, logger *zerolog.Logger, err error) {
	logger.Warn().Err(err).Msg("detection degraded")
	st.warn(Advice{Scenario: ScenarioDetectionDegraded, Detail: err.Error()})
	st.degraded = true
	st.CanAutoMerge = false
	st.CanPush = false
	st.CanPull = false
}

// readLocalState fills the working-tree pass-through sets and the local
// commit identity.
func (c *Checker) readLocalState(ctx context.Context, st *SyncStatus, logger *zerolog.Logger) {
	ws, err := c.repo.WorkingTreeStatus(ctx)
	if err != nil {
		degrade(st, logger, err)
	} else {
		st.Added = ws.Added
		st.Changed = ws.Changed
		st.Modified = ws.Modified
		st.Missing = ws.Missing
		st.Removed = ws.Removed
		st.Untracked = ws.Untracked
		st.Conflicting = ws.Conflicting

		st.HasUncommittedChanges = ws.HasUncommittedChanges()
		st.UncommittedCount = ws.UncommittedCount()
		st.HasUntrackedFiles = len(ws.Untracked) > 0
		st.UntrackedCount = len(ws.Untracked)
		st.CanCommit = st.HasUncommittedChanges || st.HasUntrackedFiles
	}

	localID, _, err := c.repo.ResolveRef(ctx, "HEAD")
	if err != nil {
		degrade(st, logger, err)
		return
	}
	st.HasLocalCommits = localID != ""
	st.IsLocalEmpty = localID == ""
}

// readRemoteState syncs the remote, classifies divergence, and runs
// content-level conflict analysis when histories diverge.
func (c *Checker) readRemoteState(ctx context.Context, st *SyncStatus, logger *zerolog.Logger) {
	localID, _, err := c.repo.ResolveRef(ctx, "HEAD")
	if err != nil {
		degrade(st, logger, err)
		return
	}

	remoteName := c.defaultRemote()
	remoteBranch := st.Branch
	up, hasUpstream, err := c.repo.Upstream(ctx, st.Branch)
	if err != nil {
		degrade(st, logger, err)
		return
	}
	st.HasUpstream = hasUpstream
	if hasUpstream {
		remoteName = up.Remote
		remoteBranch = up.Branch
		st.RemoteURL = up.URL
	}
	st.RemoteBranch = remoteName + "/" + remoteBranch

	res := c.sync.TrySync(ctx, remotesync.Workspace{Remote: remoteName, Branch: remoteBranch}, c.creds)
	st.HasRemote = res.Reason != remotesync.NoRemoteConfigured
	if !st.HasRemote {
		st.RemoteBranch = ""
		st.warn(Advice{Scenario: ScenarioNoRemote})
		st.CanPush = false
		st.CanPull = false
		return
	}
	if !hasUpstream {
		st.warn(Advice{Scenario: ScenarioNoUpstream})
	}

	switch res.Reason {
	case remotesync.AuthenticationFailed:
		st.HasAuthIssue = true
		st.warn(Advice{Scenario: ScenarioAuthenticationFailed, Detail: detail(res.Err)})
	case remotesync.NetworkUnreachable:
		st.warn(Advice{Scenario: ScenarioStaleRemoteData, Detail: detail(res.Err)})
	}

	// Establish the remote tip: fresh advertisement, then snapshot cache,
	// then the repository's remote-tracking ref.
	remoteID := res.RemoteTip
	st.RemoteDataStale = res.Stale || (!res.Updated && res.Reason != remotesync.NoRemoteConfigured)
	if remoteID == "" && !res.Updated {
		trackingRef := "refs/remotes/" + remoteName + "/" + remoteBranch
		id, ok, err := c.repo.ResolveRef(ctx, trackingRef)
		if err != nil {
			degrade(st, logger, err)
			return
		}
		if ok {
			remoteID = id
		}
	}

	resolver := ancestry.NewResolver(c.repo)
	analyzer := divergence.New(c.repo, resolver)
	if c.Cap > 0 {
		analyzer.Cap = c.Cap
	}

	rep, err := analyzer.Analyze(ctx, localID, remoteID)
	if err != nil {
		degrade(st, logger, err)
		return
	}

	st.LocalAhead = rep.LocalAhead
	st.RemoteBehind = rep.RemoteBehind
	st.CountsCapped = rep.CountsCapped

	if st.degraded {
		// The worktree read failed earlier, so the uncommitted-change
		// checks below would run on unknown state. Report the counts and
		// keep the clamped flags.
		return
	}

	st.CanFastForwardPush = rep.Relationship == divergence.LocalAheadOnly
	st.CanFastForwardPull = rep.Relationship == divergence.RemoteAheadOnly && !st.HasUncommittedChanges
	st.NeedsForcePush = rep.Relationship == divergence.Diverged || rep.Relationship == divergence.NoCommonHistory
	st.NeedsForcePull = st.HasUncommittedChanges && st.RemoteBehind > 0

	switch rep.Relationship {
	case divergence.Identical, divergence.LocalAheadOnly:
		// Pure fast-forward push (or nothing to do): no merging needed.
		st.CanAutoMerge = true

	case divergence.RemoteAheadOnly:
		if !st.HasUncommittedChanges {
			st.CanAutoMerge = true
			break
		}
		// Uncommitted edits must be merged against what the remote
		// changed; the merge base is the local tip itself.
		c.analyzeContent(ctx, st, logger, rep, localID, remoteID)

	case divergence.RemoteMissing:
		if st.RemoteDataStale {
			// The remote could not be read and nothing is cached, so
			// "missing" really means "unknown".
			break
		}
		st.IsFirstPush = st.HasLocalCommits
		st.IsRemoteEmpty = true
		st.CanAutoMerge = st.HasLocalCommits

	case divergence.LocalEmpty:
		st.CanAutoMerge = remoteID != ""

	case divergence.Diverged, divergence.NoCommonHistory:
		c.analyzeContent(ctx, st, logger, rep, localID, remoteID)
	}

	if st.degraded {
		return
	}
	c.setCapabilities(st, rep, res)
}

// setCapabilities derives the push/pull gates from the divergence report
// and the freshness of remote data.
func (c *Checker) setCapabilities(st *SyncStatus, rep *divergence.Report, res remotesync.Result) {
	// Pulling wants a live remote branch; stale refs make a pull
	// outcome unpredictable.
	st.CanPull = res.Updated &&
		(res.Reason == remotesync.Fetched || res.Reason == remotesync.AlreadyUpToDate)

	switch {
	case !st.HasLocalCommits:
		st.CanPush = false
		st.CanPull = st.CanPull || (res.Updated && rep.Relationship != divergence.RemoteMissing)
	case st.HasUncommittedChanges:
		// Uncommitted work blocks a push except for the first-push
		// bootstrap of a fresh workspace.
		st.CanPush = st.IsFirstPush && !st.HasUpstream
	default:
		st.CanPush = true
	}
}

// analyzeContent runs tree diffs from the merge base and three-way merges
// every path changed on both sides. Uncommitted files that also changed
// remotely are merged against their on-disk content, since that is the
// user's actual next edit.
func (c *Checker) analyzeContent(ctx context.Context, st *SyncStatus, logger *zerolog.Logger, rep *divergence.Report, localID, remoteID vcs.CommitID) {
	localCommit, err := c.repo.ReadCommit(ctx, localID)
	if err != nil {
		degrade(st, logger, err)
		return
	}
	remoteCommit, err := c.repo.ReadCommit(ctx, remoteID)
	if err != nil {
		degrade(st, logger, err)
		return
	}

	var baseTree vcs.TreeID
	if rep.HasMergeBase {
		baseCommit, err := c.repo.ReadCommit(ctx, rep.MergeBase)
		if err != nil {
			degrade(st, logger, err)
			return
		}
		baseTree = baseCommit.Tree
	}

	differ := treediff.New(c.repo)

	localChanges, err := differ.Diff(ctx, baseTree, localCommit.Tree)
	if err != nil {
		degrade(st, logger, err)
		return
	}
	remoteChanges, err := differ.Diff(ctx, baseTree, remoteCommit.Tree)
	if err != nil {
		degrade(st, logger, err)
		return
	}

	recordRemoteChanges(st, remoteChanges)

	localByPath := make(map[string]treediff.ChangeEntry, len(localChanges))
	for _, ch := range localChanges {
		localByPath[ch.Path] = ch
	}
	remoteByPath := make(map[string]treediff.ChangeEntry, len(remoteChanges))
	for _, ch := range remoteChanges {
		remoteByPath[ch.Path] = ch
	}

	onlyNew := true
	for _, ch := range localChanges {
		if ch.Type != treediff.Added {
			onlyNew = false
			break
		}
	}
	if onlyNew {
		for _, ch := range remoteChanges {
			if ch.Type != treediff.Added {
				onlyNew = false
				break
			}
		}
	}

	// Paths changed on both sides need a content-level merge.
	overlap := make([]string, 0)
	for p := range localByPath {
		if _, ok := remoteByPath[p]; ok {
			overlap = append(overlap, p)
		}
	}
	sort.Strings(overlap)

	for _, p := range overlap {
		lc := localByPath[p]
		rc := remoteByPath[p]

		baseData, err := c.blobOrNil(ctx, lc.OldBlob)
		if err != nil {
			degrade(st, logger, err)
			return
		}
		if baseData == nil {
			baseData, err = c.blobOrNil(ctx, rc.OldBlob)
			if err != nil {
				degrade(st, logger, err)
				return
			}
		}
		localData, err := c.blobOrNil(ctx, lc.NewBlob)
		if err != nil {
			degrade(st, logger, err)
			return
		}
		remoteData, err := c.blobOrNil(ctx, rc.NewBlob)
		if err != nil {
			degrade(st, logger, err)
			return
		}

		outcome := textmerge.Merge(baseData, localData, remoteData)
		if !outcome.Clean {
			st.ConflictDetails[p] = outcome.Conflicts
		}
	}

	// Uncommitted files that the remote also changed: the user's next
	// edit lives on disk, not in the last commit.
	uncommitted := make(map[string]struct{})
	for _, set := range [][]string{st.Added, st.Changed, st.Modified, st.Missing, st.Removed, st.Untracked} {
		for _, p := range set {
			uncommitted[p] = struct{}{}
		}
	}
	dirtyOverlap := make([]string, 0)
	for p := range uncommitted {
		if _, changed := remoteByPath[p]; changed {
			if _, conflicted := st.ConflictDetails[p]; !conflicted {
				dirtyOverlap = append(dirtyOverlap, p)
			}
		}
	}
	sort.Strings(dirtyOverlap)

	for _, p := range dirtyOverlap {
		rc := remoteByPath[p]

		baseData, err := c.blobOrNil(ctx, rc.OldBlob)
		if err != nil {
			degrade(st, logger, err)
			return
		}
		remoteData, err := c.blobOrNil(ctx, rc.NewBlob)
		if err != nil {
			degrade(st, logger, err)
			return
		}
		localData, err := c.repo.ReadWorkingFile(ctx, p)
		if err != nil {
			// A vanished working file counts as locally deleted, not
			// as a detection failure.
			localData = nil
		}

		outcome := textmerge.Merge(baseData, localData, remoteData)
		if !outcome.Clean {
			st.ConflictDetails[p] = outcome.Conflicts
		}
	}

	st.HasActualConflicts = len(st.ConflictDetails) > 0
	st.HasOnlyNewFiles = !st.HasActualConflicts && onlyNew &&
		(len(localChanges) > 0 || len(remoteChanges) > 0)
	st.HasNonOverlappingChanges = !st.HasActualConflicts &&
		(len(localChanges) > 0 || len(remoteChanges) > 0)
	st.CanAutoMerge = !st.HasActualConflicts
}

func (c *Checker) blobOrNil(ctx context.Context, id vcs.BlobID) ([]byte, error) {
	if id == "" {
		return nil, nil
	}
	return c.repo.ReadBlob(ctx, id)
}

func recordRemoteChanges(st *SyncStatus, changes []treediff.ChangeEntry) {
	for _, ch := range changes {
		switch ch.Type {
		case treediff.Added, treediff.Copied:
			st.RemoteAdded = append(st.RemoteAdded, ch.Path)
		case treediff.Modified:
			st.RemoteModified = append(st.RemoteModified, ch.Path)
		case treediff.Deleted:
			st.RemoteRemoved = append(st.RemoteRemoved, ch.Path)
		case treediff.Renamed:
			st.RemoteRenamed = append(st.RemoteRenamed, ch.OldPath+" -> "+ch.Path)
		}
	}
	sort.Strings(st.RemoteAdded)
	sort.Strings(st.RemoteModified)
	sort.Strings(st.RemoteRemoved)
	sort.Strings(st.RemoteRenamed)
}

func detail(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
