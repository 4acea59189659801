package order

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sample() *Order {
	return &Order{
		ID:             "o1",
		ClientID:       "cl",
		ClientPhone:    "0500000001",
		ClientLocation: "الدمام",
		Location:       "الدمام - حي الشاطئ",
		Status:         StatusPending,
	}
}

func TestDiscloseClient(t *testing.T) {
	v, err := Disclose(sample(), Actor{ID: "cl", Role: RoleClient}, false)
	require.NoError(t, err)
	assert.False(t, v.Redacted)
	assert.Equal(t, "0500000001", v.ClientPhone)

	_, err = Disclose(sample(), Actor{ID: "other", Role: RoleClient}, false)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestDiscloseCraftsman(t *testing.T) {
	o := sample()
	cr := Actor{ID: "cr", Role: RoleCraftsman}

	v, err := Disclose(o, cr, false)
	require.NoError(t, err)
	assert.True(t, v.Redacted)
	assert.Empty(t, v.ClientPhone)
	assert.Empty(t, v.ClientLocation)
	assert.Empty(t, v.Location)
	assert.Equal(t, "0500000001", o.ClientPhone, "source order untouched")
	assert.Equal(t, "الدمام - حي الشاطئ", o.Location)

	v, err = Disclose(o, cr, true)
	require.NoError(t, err)
	assert.False(t, v.Redacted)
	assert.Equal(t, "الدمام - حي الشاطئ", v.Location)

	o.CraftsmanID = "cr"
	for _, st := range []Status{StatusInProgress, StatusCompleted, StatusRated} {
		o.Status = st
		v, err = Disclose(o, cr, false)
		require.NoError(t, err)
		assert.False(t, v.Redacted, st)
	}

	o.Status = StatusCancelled
	v, err = Disclose(o, cr, false)
	require.NoError(t, err)
	assert.True(t, v.Redacted)

	o.ContactUnlocked = true
	v, err = Disclose(o, cr, false)
	require.NoError(t, err)
	assert.False(t, v.Redacted)
}

func TestDiscloseHidesOtherCraftsmansOrders(t *testing.T) {
	o := sample()
	o.CraftsmanID = "someone"
	o.Status = StatusOpenForDiscussion
	_, err := Disclose(o, Actor{ID: "cr", Role: RoleCraftsman}, true)
	assert.ErrorIs(t, err, ErrUnauthorized)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, Kind(""), KindOf(nil))
	assert.Equal(t, KindAlreadyRated, KindOf(errors.Wrap(ErrAlreadyRated, "o1")))
	assert.Equal(t, KindValidation, KindOf(fmt.Errorf("outer: %w", invalid("bad"))))
	assert.Equal(t, KindCollaboratorUnavailable, KindOf(errors.New("boom")))

	wrapped := unavailable(errors.New("timeout"), "read")
	assert.ErrorIs(t, wrapped, ErrCollaboratorUnavailable)
	assert.Equal(t, ErrNotFound, unavailable(ErrNotFound, "read"))
}

func TestPolicyRules(t *testing.T) {
	approval := DefaultPolicy().rules()
	assert.False(t, approval[CmdStart].allows(StatusAccepted))
	assert.True(t, approval[CmdComplete].roleAllowed(RoleClient))
	assert.Equal(t, StatusWaitingClientApproval, DefaultPolicy().acceptTarget())

	direct := Policy{Flow: FlowDirect, CompletionBy: CompletionByCraftsman}
	rules := direct.rules()
	assert.True(t, rules[CmdStart].allows(StatusAccepted))
	assert.False(t, rules[CmdComplete].roleAllowed(RoleClient))
	assert.Equal(t, StatusAccepted, direct.acceptTarget())

	for _, st := range []Status{StatusRated, StatusRejected, StatusCancelled, StatusCompleted} {
		assert.False(t, rules[CmdCancel].allows(st), st)
	}
}

func TestFilterMatch(t *testing.T) {
	o := sample()
	assert.True(t, Filter{Role: RoleClient, ParticipantID: "cl"}.Match(o))
	assert.False(t, Filter{Role: RoleClient, ParticipantID: "cl", Statuses: []Status{StatusRated}}.Match(o))
	assert.False(t, Filter{Role: RoleCraftsman, ParticipantID: "cr"}.Match(o))
	assert.True(t, Filter{Role: RoleCraftsman, ParticipantID: "cr", IncludeOpen: true}.Match(o))
}

func TestSearchQueryMatch(t *testing.T) {
	p := Profile{Role: RoleCraftsman, Specialty: "كهرباء", Location: "Riyadh - Olaya"}
	assert.True(t, SearchQuery{}.Match(p))
	assert.True(t, SearchQuery{Specialty: "كهرباء", Location: "riyadh"}.Match(p))
	assert.False(t, SearchQuery{Specialty: "سباكة"}.Match(p))
	assert.False(t, SearchQuery{Location: "jeddah"}.Match(p))
	assert.False(t, SearchQuery{}.Match(Profile{Role: RoleClient}))
}
