package optimistic

import (
	"github.com/kickback/api/internal/platform/config"
)

// MutationKind names a user action the session can apply optimistically
type MutationKind string

const (
	KindCreateComment  MutationKind = "create_comment"
	KindCreateReply    MutationKind = "create_reply"
	KindToggleReaction MutationKind = "toggle_reaction"
	KindDeleteComment  MutationKind = "delete_comment"
	KindEditComment    MutationKind = "edit_comment"
)

// MutationPolicy decides how a mutation treats the server round trip
type MutationPolicy struct {
	// Await makes the caller wait for the server before returning
	Await bool
	// RollbackOnError restores the pre-mutation cache when the server rejects it
	RollbackOnError bool
	// Reconcile suppresses background refetches and schedules an invalidation on settle
	Reconcile bool
	// Refetch selects which invalidated views are refetched right away
	Refetch RefetchType
}

// Policies maps every mutation kind to its policy
type Policies map[MutationKind]MutationPolicy

// DefaultPolicies keeps comment creation fire-and-forget, awaits and rolls back
// replies, never rolls back reactions and rolls back failed deletes.
func DefaultPolicies() Policies {
	return Policies{
		KindCreateComment:  {Await: false, RollbackOnError: false, Reconcile: true, Refetch: RefetchInactive},
		KindCreateReply:    {Await: true, RollbackOnError: true, Reconcile: true, Refetch: RefetchInactive},
		KindToggleReaction: {Await: false, RollbackOnError: false, Reconcile: false, Refetch: RefetchNone},
		KindDeleteComment:  {Await: false, RollbackOnError: true, Reconcile: true, Refetch: RefetchInactive},
		KindEditComment:    {Await: true, RollbackOnError: false, Reconcile: true, Refetch: RefetchActive},
	}
}

// PoliciesFromConfig applies the configured overrides to the defaults
func PoliciesFromConfig(cfg config.ThreadsConfig) Policies {
	p := DefaultPolicies()

	comment := p[KindCreateComment]
	comment.Await = cfg.CommentAwait
	comment.RollbackOnError = cfg.CommentRollback
	p[KindCreateComment] = comment

	reply := p[KindCreateReply]
	reply.RollbackOnError = cfg.ReplyRollback
	p[KindCreateReply] = reply

	reaction := p[KindToggleReaction]
	reaction.RollbackOnError = cfg.ReactionRollback
	p[KindToggleReaction] = reaction

	return p
}

// For returns the policy of kind, falling back to the default
func (p Policies) For(kind MutationKind) MutationPolicy {
	if policy, ok := p[kind]; ok {
		return policy
	}
	return DefaultPolicies()[kind]
}
