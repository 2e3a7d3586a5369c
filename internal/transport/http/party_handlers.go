package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/questline/partyhub/internal/async"
	"github.com/questline/partyhub/internal/identity"
	"github.com/questline/partyhub/internal/ids"
	"github.com/questline/partyhub/internal/party"
)

// opWaitTimeout bounds how long a handler waits for an asynchronous party
// operation to complete.
const opWaitTimeout = 15 * time.Second

// PartyHandlers exposes the party cache over HTTP. Handlers run on gin's
// goroutines, so every registry access is funneled through the loop; write
// operations block until their completion callback fires.
type PartyHandlers struct {
	loop     *async.Loop
	registry *party.Registry
	identity *identity.Service
	log      *zerolog.Logger
}

// NewPartyHandlers creates the party handlers.
func NewPartyHandlers(loop *async.Loop, registry *party.Registry, svc *identity.Service, logger *zerolog.Logger) *PartyHandlers {
	return &PartyHandlers{
		loop:     loop,
		registry: registry,
		identity: svc,
		log:      logger,
	}
}

// MemberView is one member in a party state dump.
type MemberView struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName,omitempty"`
	Leader      bool   `json:"leader"`
}

// PartyView is one party in a party state dump.
type PartyView struct {
	PartyID   string                     `json:"partyId"`
	Code      string                     `json:"code,omitempty"`
	Members   []MemberView               `json:"members"`
	Invitees  []string                   `json:"invitees,omitempty"`
	Crossplay bool                       `json:"crossplay"`
	Platforms []string                   `json:"platforms,omitempty"`
	Data      map[string]json.RawMessage `json:"data,omitempty"`
}

// InviteView is one pending invite in a dump.
type InviteView struct {
	PartyID     string `json:"partyId"`
	InviterID   string `json:"inviterId"`
	DisplayName string `json:"inviterDisplayName,omitempty"`
}

// PartyIDResponse carries the party id an operation produced or acted on.
type PartyIDResponse struct {
	PartyID string `json:"partyId"`
}

// InviteeRequest names the target of an invite, kick or promote.
type InviteeRequest struct {
	UserID string `json:"userId" binding:"required"`
}

type opOutcome struct {
	partyID ids.PartyID
	result  party.Result
}

// localUser resolves the authenticated account's full composite identity. The
// registry keys its state by the composite, so the bare token claim is not
// enough.
func (h *PartyHandlers) localUser(c *gin.Context) (ids.UserID, bool) {
	primaryID := c.GetString(ContextKeyUserID)
	account, ok := h.identity.Account(primaryID)
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "account not found"})
		return ids.InvalidUserID(), false
	}
	return account.UserID, true
}

func (h *PartyHandlers) partyID(c *gin.Context) (ids.PartyID, bool) {
	id := ids.ParsePartyID(c.Param("id"))
	if !id.IsValid() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "malformed party id"})
		return id, false
	}
	return id, true
}

// awaitOutcome blocks until the operation completes and writes the response.
func (h *PartyHandlers) awaitOutcome(c *gin.Context, accepted bool, done <-chan opOutcome) {
	if !accepted {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "operation rejected"})
		return
	}
	select {
	case out := <-done:
		if out.result != party.ResultOK {
			c.JSON(http.StatusBadGateway, ErrorResponse{Error: out.result.String()})
			return
		}
		c.JSON(http.StatusOK, PartyIDResponse{PartyID: out.partyID.String()})
	case <-time.After(opWaitTimeout):
		c.JSON(http.StatusGatewayTimeout, ErrorResponse{Error: "operation timed out"})
	}
}

// State dumps the authenticated user's parties.
// GET /api/party
func (h *PartyHandlers) State(c *gin.Context) {
	user, ok := h.localUser(c)
	if !ok {
		return
	}

	var views []PartyView
	h.loop.Call(func() {
		for _, partyID := range h.registry.JoinedParties(user) {
			p := h.registry.Party(user, partyID)
			if p == nil {
				continue
			}
			view := PartyView{
				PartyID:   p.ID().String(),
				Code:      p.Code(),
				Crossplay: p.IsCrossplayParty(),
				Platforms: p.UniquePlatformsForParty(),
				Data:      p.Data().Attributes(),
			}
			for _, member := range p.Members() {
				view.Members = append(view.Members, MemberView{
					UserID:      member.UserID().PrimaryID(),
					DisplayName: member.DisplayName(),
					Leader:      p.LeaderID().Equal(member.UserID()),
				})
			}
			for _, invitee := range p.PendingInvitedUsers() {
				view.Invitees = append(view.Invitees, invitee.PrimaryID())
			}
			views = append(views, view)
		}
	})

	c.JSON(http.StatusOK, gin.H{"parties": views})
}

// Invites dumps the authenticated user's pending invites.
// GET /api/party/invites
func (h *PartyHandlers) Invites(c *gin.Context) {
	user, ok := h.localUser(c)
	if !ok {
		return
	}

	var views []InviteView
	h.loop.Call(func() {
		for _, invite := range h.registry.PendingInvites(user) {
			views = append(views, InviteView{
				PartyID:     invite.PartyID.String(),
				InviterID:   invite.InviterID.PrimaryID(),
				DisplayName: invite.JoinInfo.SourceDisplayName(),
			})
		}
	})

	c.JSON(http.StatusOK, gin.H{"invites": views})
}

// Create creates a new party led by the authenticated user.
// POST /api/party
func (h *PartyHandlers) Create(c *gin.Context) {
	user, ok := h.localUser(c)
	if !ok {
		return
	}

	done := make(chan opOutcome, 1)
	accepted := false
	h.loop.Call(func() {
		accepted = h.registry.CreateParty(user, party.Config{}, func(_ ids.UserID, partyID ids.PartyID, result party.Result) {
			done <- opOutcome{partyID: partyID, result: result}
		})
	})
	h.awaitOutcome(c, accepted, done)
}

// Restore re-registers a party the user is still in on the lobby side.
// POST /api/party/restore
func (h *PartyHandlers) Restore(c *gin.Context) {
	user, ok := h.localUser(c)
	if !ok {
		return
	}

	done := make(chan opOutcome, 1)
	accepted := false
	h.loop.Call(func() {
		accepted = h.registry.RestoreParties(user, func(_ ids.UserID, result party.Result) {
			done <- opOutcome{result: result}
		})
	})
	h.awaitOutcome(c, accepted, done)
}

// Join accepts the cached invite for the party in the path.
// POST /api/party/:id/join
func (h *PartyHandlers) Join(c *gin.Context) {
	user, ok := h.localUser(c)
	if !ok {
		return
	}
	partyID, ok := h.partyID(c)
	if !ok {
		return
	}

	done := make(chan opOutcome, 1)
	accepted := false
	missing := false
	h.loop.Call(func() {
		invite := h.registry.InviteForParty(user, partyID)
		if invite == nil {
			missing = true
			return
		}
		accepted = h.registry.JoinParty(user, invite.JoinInfo, func(_ ids.UserID, partyID ids.PartyID, result party.Result, _ int) {
			done <- opOutcome{partyID: partyID, result: result}
		})
	})
	if missing {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no pending invite for party"})
		return
	}
	h.awaitOutcome(c, accepted, done)
}

// Leave leaves the party.
// POST /api/party/:id/leave
func (h *PartyHandlers) Leave(c *gin.Context) {
	user, ok := h.localUser(c)
	if !ok {
		return
	}
	partyID, ok := h.partyID(c)
	if !ok {
		return
	}

	done := make(chan opOutcome, 1)
	accepted := false
	h.loop.Call(func() {
		accepted = h.registry.LeaveParty(user, partyID, func(_ ids.UserID, partyID ids.PartyID, result party.Result) {
			done <- opOutcome{partyID: partyID, result: result}
		})
	})
	h.awaitOutcome(c, accepted, done)
}

// Invite invites another user into the party.
// POST /api/party/:id/invite
func (h *PartyHandlers) Invite(c *gin.Context) {
	user, ok := h.localUser(c)
	if !ok {
		return
	}
	partyID, ok := h.partyID(c)
	if !ok {
		return
	}
	var req InviteeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	done := make(chan opOutcome, 1)
	accepted := false
	h.loop.Call(func() {
		accepted = h.registry.SendInvitation(user, partyID, ids.UserIDFromPrimary(req.UserID), func(_ ids.UserID, partyID ids.PartyID, _ ids.UserID, result party.Result) {
			done <- opOutcome{partyID: partyID, result: result}
		})
	})
	h.awaitOutcome(c, accepted, done)
}

// Kick removes a member from the party.
// POST /api/party/:id/kick
func (h *PartyHandlers) Kick(c *gin.Context) {
	user, ok := h.localUser(c)
	if !ok {
		return
	}
	partyID, ok := h.partyID(c)
	if !ok {
		return
	}
	var req InviteeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	done := make(chan opOutcome, 1)
	accepted := false
	h.loop.Call(func() {
		accepted = h.registry.KickMember(user, partyID, ids.UserIDFromPrimary(req.UserID), func(_ ids.UserID, partyID ids.PartyID, _ ids.UserID, result party.Result) {
			done <- opOutcome{partyID: partyID, result: result}
		})
	})
	h.awaitOutcome(c, accepted, done)
}

// Promote transfers party leadership.
// POST /api/party/:id/promote
func (h *PartyHandlers) Promote(c *gin.Context) {
	user, ok := h.localUser(c)
	if !ok {
		return
	}
	partyID, ok := h.partyID(c)
	if !ok {
		return
	}
	var req InviteeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}

	done := make(chan opOutcome, 1)
	accepted := false
	h.loop.Call(func() {
		accepted = h.registry.PromoteMember(user, partyID, ids.UserIDFromPrimary(req.UserID), func(_ ids.UserID, partyID ids.PartyID, _ ids.UserID, result party.Result) {
			done <- opOutcome{partyID: partyID, result: result}
		})
	})
	h.awaitOutcome(c, accepted, done)
}

// UpdateData replaces the party's shared attribute blob with the request body.
// PUT /api/party/:id/data
func (h *PartyHandlers) UpdateData(c *gin.Context) {
	user, ok := h.localUser(c)
	if !ok {
		return
	}
	partyID, ok := h.partyID(c)
	if !ok {
		return
	}
	body, err := c.GetRawData()
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body"})
		return
	}
	data, err := party.DataFromAttrs(body)
	if err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "body must be a JSON object"})
		return
	}

	accepted := false
	h.loop.Call(func() {
		accepted = h.registry.UpdatePartyData(user, partyID, data)
	})
	if !accepted {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "operation rejected"})
		return
	}
	c.Status(http.StatusAccepted)
}

// Reject declines the cached invite for the party in the path.
// POST /api/party/:id/reject
func (h *PartyHandlers) Reject(c *gin.Context) {
	user, ok := h.localUser(c)
	if !ok {
		return
	}
	partyID, ok := h.partyID(c)
	if !ok {
		return
	}

	rejected := false
	h.loop.Call(func() {
		rejected = h.registry.RejectInvitation(user, partyID)
	})
	if !rejected {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "no pending invite for party"})
		return
	}
	c.Status(http.StatusNoContent)
}
