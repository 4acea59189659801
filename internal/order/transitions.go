package order

type Command string

const (
	CmdCreate       Command = "create"
	CmdEngage       Command = "engage"
	CmdAccept       Command = "accept"
	CmdReject       Command = "reject"
	CmdApproveStart Command = "approve_start"
	CmdStart        Command = "start"
	CmdComplete     Command = "complete"
	CmdRate         Command = "rate"
	CmdCancel       Command = "cancel"
)

type Flow string

const (
	FlowApprovalRequired Flow = "approval_required"
	FlowDirect           Flow = "direct"
)

type CompletionBy string

const (
	CompletionByEither    CompletionBy = "either"
	CompletionByCraftsman CompletionBy = "craftsman"
)

// Policy selects between the flow variants of the lifecycle.
type Policy struct {
	Flow         Flow
	CompletionBy CompletionBy
}

func DefaultPolicy() Policy {
	return Policy{Flow: FlowApprovalRequired, CompletionBy: CompletionByEither}
}

// party constrains which participant of the order may issue a command.
type party int

const (
	partyAny       party = iota // role gate only
	partyClient                 // the order's client
	partyCraftsman              // the bound craftsman
	partyEither                 // client or bound craftsman
)

type rule struct {
	from  []Status
	roles []Role
	party party
	// gated commands need subscription entitlement unless the order is already unlocked
	gated bool
}

func (r rule) allows(s Status) bool {
	for _, f := range r.from {
		if f == s {
			return true
		}
	}
	return false
}

func (r rule) roleAllowed(role Role) bool {
	for _, x := range r.roles {
		if x == role {
			return true
		}
	}
	return false
}

var (
	clientOnly    = []Role{RoleClient}
	craftsmanOnly = []Role{RoleCraftsman}
	bothRoles     = []Role{RoleClient, RoleCraftsman}
)

// rules returns the transition table for a policy.
func (p Policy) rules() map[Command]rule {
	complete := rule{from: []Status{StatusInProgress}, roles: craftsmanOnly, party: partyCraftsman}
	if p.CompletionBy == CompletionByEither {
		complete = rule{from: []Status{StatusInProgress}, roles: bothRoles, party: partyEither}
	}
	start := rule{from: []Status{StatusAccepted}, roles: craftsmanOnly, party: partyCraftsman}
	if p.Flow == FlowApprovalRequired {
		// accepted is never entered in this flow
		start.from = nil
	}
	return map[Command]rule{
		CmdEngage:       {from: []Status{StatusPending}, roles: craftsmanOnly, party: partyAny, gated: true},
		CmdAccept:       {from: []Status{StatusOpenForDiscussion}, roles: craftsmanOnly, party: partyCraftsman, gated: true},
		CmdReject:       {from: []Status{StatusOpenForDiscussion, StatusAccepted}, roles: bothRoles, party: partyEither},
		CmdApproveStart: {from: []Status{StatusWaitingClientApproval}, roles: clientOnly, party: partyClient},
		CmdStart:        start,
		CmdComplete:     complete,
		CmdRate:         {from: []Status{StatusCompleted}, roles: clientOnly, party: partyClient},
		CmdCancel: {
			from:  []Status{StatusPending, StatusOpenForDiscussion, StatusAccepted, StatusWaitingClientApproval, StatusInProgress},
			roles: bothRoles,
			party: partyEither,
		},
	}
}

// acceptTarget is where accept lands under the policy.
func (p Policy) acceptTarget() Status {
	if p.Flow == FlowDirect {
		return StatusAccepted
	}
	return StatusWaitingClientApproval
}
