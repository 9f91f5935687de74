package access

import (
	"context"
	"fmt"

	"jan-server/services/conversation-api/internal/domain/conversation"
	"jan-server/services/conversation-api/internal/domain/identity"
	"jan-server/services/conversation-api/internal/utils/platformerrors"
)

// Capabilities are carried as gateway scopes.
const (
	CapViewOwnConversations   = "conversations:view:own"
	CapViewAnyConversations   = "conversations:view:any"
	CapEditOwnConversations   = "conversations:edit:own"
	CapEditAnyConversations   = "conversations:edit:any"
	CapDeleteOwnConversations = "conversations:delete:own"
	CapDeleteAnyConversations = "conversations:delete:any"
	CapCreateConversations    = "conversations:create"
	CapViewThreads            = "threads:view"
	CapDeleteThreads          = "threads:delete"
	CapCreateThreads          = "threads:create"
	CapAdmin                  = "admin"
)

type Operation string

const (
	OpView   Operation = "view"
	OpUpdate Operation = "update"
	OpDelete Operation = "delete"
	OpCreate Operation = "create"
)

type Result string

const (
	Allowed Result = "allowed"
	Denied  Result = "denied"
	Neutral Result = "neutral"
)

// Decision is the outcome of an access check. Reason explains denials.
type Decision struct {
	Result Result
	Reason string
}

func (d Decision) IsAllowed() bool { return d.Result == Allowed }

func allow() Decision { return Decision{Result: Allowed} }

func deny(reason string) Decision { return Decision{Result: Denied, Reason: reason} }

// CapabilityChecker answers whether an actor holds a named capability.
type CapabilityChecker interface {
	HasCapability(actor identity.Principal, capability string) bool
}

// ScopeChecker reads capabilities from principal scopes. The admin scope grants everything.
type ScopeChecker struct{}

func (ScopeChecker) HasCapability(actor identity.Principal, capability string) bool {
	return actor.HasScope(capability) || actor.HasScope(CapAdmin)
}

type ownAny struct {
	own string
	any string
}

var conversationCapabilities = map[Operation]ownAny{
	OpView:   {own: CapViewOwnConversations, any: CapViewAnyConversations},
	OpUpdate: {own: CapEditOwnConversations, any: CapEditAnyConversations},
	OpDelete: {own: CapDeleteOwnConversations, any: CapDeleteAnyConversations},
}

// Policy evaluates conversation and thread access. It never fails; every outcome is a Decision.
type Policy struct {
	checker CapabilityChecker
}

func NewPolicy(checker CapabilityChecker) *Policy {
	if checker == nil {
		checker = ScopeChecker{}
	}
	return &Policy{checker: checker}
}

// CheckConversation decides op on conv. conv is ignored for OpCreate.
func (p *Policy) CheckConversation(actor identity.Principal, op Operation, conv *conversation.Conversation) Decision {
	if op == OpCreate {
		if p.checker.HasCapability(actor, CapCreateConversations) {
			return allow()
		}
		return deny(fmt.Sprintf("The '%s' capability is required.", CapCreateConversations))
	}

	caps, ok := conversationCapabilities[op]
	if !ok {
		return Decision{Result: Neutral}
	}
	if conv == nil {
		return deny("Conversation not found.")
	}
	if p.checker.HasCapability(actor, caps.any) {
		return allow()
	}
	if conv.IsOwnedBy(actor.ID) && p.checker.HasCapability(actor, caps.own) {
		return allow()
	}
	return deny(fmt.Sprintf("The '%s' or '%s' capability is required.", caps.own, caps.any))
}

// CheckThread decides op on thread, evaluating the parent conversation first. parent is
// nil when the owning conversation could not be loaded. For OpCreate thread may be nil
// and the parent is checked for update, since a new thread edits the conversation.
func (p *Policy) CheckThread(actor identity.Principal, op Operation, thread *conversation.Thread, parent *conversation.Conversation) Decision {
	if parent == nil {
		return deny("Parent conversation not found.")
	}
	if thread != nil && thread.ConversationID != parent.PublicID {
		return deny("Thread does not belong to the conversation.")
	}

	parentOp := op
	if op == OpCreate {
		parentOp = OpUpdate
	}
	if parentDecision := p.CheckConversation(actor, parentOp, parent); !parentDecision.IsAllowed() {
		if parentDecision.Result == Neutral {
			return parentDecision
		}
		return deny("Access to parent conversation denied.")
	}

	switch op {
	case OpView:
		return p.requireAny(actor, CapViewThreads)
	case OpUpdate:
		return allow()
	case OpDelete:
		return p.requireAny(actor, CapDeleteThreads)
	case OpCreate:
		return p.requireAny(actor, CapCreateThreads, CapCreateConversations)
	default:
		return Decision{Result: Neutral}
	}
}

func (p *Policy) requireAny(actor identity.Principal, capabilities ...string) Decision {
	for _, c := range capabilities {
		if p.checker.HasCapability(actor, c) {
			return allow()
		}
	}
	if len(capabilities) == 1 {
		return deny(fmt.Sprintf("The '%s' capability is required.", capabilities[0]))
	}
	return deny(fmt.Sprintf("One of %v is required.", capabilities))
}

// ToError converts a non-allowed decision into a forbidden error. It returns nil when allowed.
func ToError(ctx context.Context, d Decision) error {
	if d.IsAllowed() {
		return nil
	}
	reason := d.Reason
	if reason == "" {
		reason = "access denied"
	}
	return platformerrors.NewError(ctx, platformerrors.LayerDomain, platformerrors.ErrorTypeForbidden, reason, nil, "0a9e3d5b-7c21-4f64-b8e0-d3f16a2c9b47")
}
