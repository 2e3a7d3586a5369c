package lobby

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/questline/partyhub/internal/ids"
	"github.com/questline/partyhub/internal/party"
)

// Pool holds one lobby connection per signed-in local user and routes backend
// calls to the right one. It is the registry's backend in the wired-up
// application.
type Pool struct {
	log  *zerolog.Logger
	url  string
	exec Exec
	sink Sink

	mu      sync.Mutex
	clients map[string]*Client
}

// NewPool constructs an empty pool. Notices from every connection flow into
// the same sink through the same exec.
func NewPool(log *zerolog.Logger, url string, exec Exec, sink Sink) *Pool {
	return &Pool{
		log:     log,
		url:     url,
		exec:    exec,
		sink:    sink,
		clients: make(map[string]*Client),
	}
}

// Connect dials a lobby connection for localUser and starts its read loop.
// An existing connection for the same user is replaced.
func (p *Pool) Connect(ctx context.Context, localUser ids.UserID, token string) error {
	client, err := Dial(ctx, Config{
		Log:       p.log,
		URL:       p.url,
		LocalUser: localUser,
		Token:     token,
		Exec:      p.exec,
		Sink:      p.sink,
	})
	if err != nil {
		return err
	}

	p.mu.Lock()
	previous := p.clients[localUser.PrimaryID()]
	p.clients[localUser.PrimaryID()] = client
	p.mu.Unlock()
	if previous != nil {
		_ = previous.Close()
	}

	go func() {
		if err := client.Run(ctx); err != nil && ctx.Err() == nil {
			p.log.Warn().Err(err).
				Str("user", localUser.DebugString()).
				Msg("lobby connection ended")
		}
		p.mu.Lock()
		if p.clients[localUser.PrimaryID()] == client {
			delete(p.clients, localUser.PrimaryID())
		}
		p.mu.Unlock()
	}()
	return nil
}

// Disconnect closes localUser's connection if one is up.
func (p *Pool) Disconnect(localUser ids.UserID) {
	p.mu.Lock()
	client := p.clients[localUser.PrimaryID()]
	delete(p.clients, localUser.PrimaryID())
	p.mu.Unlock()
	if client != nil {
		_ = client.Close()
	}
}

// Close tears down every connection.
func (p *Pool) Close() {
	p.mu.Lock()
	clients := p.clients
	p.clients = make(map[string]*Client)
	p.mu.Unlock()
	for _, client := range clients {
		_ = client.Close()
	}
}

// Connected reports whether localUser has a live lobby connection.
func (p *Pool) Connected(localUser ids.UserID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.clients[localUser.PrimaryID()] != nil
}

func (p *Pool) client(localUser ids.UserID) (*Client, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	client, ok := p.clients[localUser.PrimaryID()]
	if !ok {
		return nil, fmt.Errorf("user %s is not connected to the lobby", localUser.PrimaryID())
	}
	return client, nil
}

func (p *Pool) CreateParty(ctx context.Context, localUser ids.UserID) (*party.PartyInfo, error) {
	client, err := p.client(localUser)
	if err != nil {
		return nil, err
	}
	return client.CreateParty(ctx, localUser)
}

func (p *Pool) JoinParty(ctx context.Context, localUser ids.UserID, partyID ids.PartyID, inviteToken string) (*party.PartyInfo, error) {
	client, err := p.client(localUser)
	if err != nil {
		return nil, err
	}
	return client.JoinParty(ctx, localUser, partyID, inviteToken)
}

func (p *Pool) LeaveParty(ctx context.Context, localUser ids.UserID, partyID ids.PartyID) error {
	client, err := p.client(localUser)
	if err != nil {
		return err
	}
	return client.LeaveParty(ctx, localUser, partyID)
}

func (p *Pool) SendInvitation(ctx context.Context, localUser ids.UserID, partyID ids.PartyID, invitee ids.UserID) error {
	client, err := p.client(localUser)
	if err != nil {
		return err
	}
	return client.SendInvitation(ctx, localUser, partyID, invitee)
}

func (p *Pool) KickMember(ctx context.Context, localUser ids.UserID, partyID ids.PartyID, target ids.UserID) error {
	client, err := p.client(localUser)
	if err != nil {
		return err
	}
	return client.KickMember(ctx, localUser, partyID, target)
}

func (p *Pool) PromoteLeader(ctx context.Context, localUser ids.UserID, partyID ids.PartyID, target ids.UserID) error {
	client, err := p.client(localUser)
	if err != nil {
		return err
	}
	return client.PromoteLeader(ctx, localUser, partyID, target)
}

func (p *Pool) WritePartyData(ctx context.Context, localUser ids.UserID, partyID ids.PartyID, data *party.Data) error {
	client, err := p.client(localUser)
	if err != nil {
		return err
	}
	return client.WritePartyData(ctx, localUser, partyID, data)
}

func (p *Pool) QueryPartyInfo(ctx context.Context, localUser ids.UserID) (*party.PartyInfo, error) {
	client, err := p.client(localUser)
	if err != nil {
		return nil, err
	}
	return client.QueryPartyInfo(ctx, localUser)
}

func (p *Pool) QueryUserInfo(ctx context.Context, localUser ids.UserID, primaryID string) (party.MemberInfo, error) {
	client, err := p.client(localUser)
	if err != nil {
		return party.MemberInfo{}, err
	}
	return client.QueryUserInfo(ctx, localUser, primaryID)
}

func (p *Pool) RejectInvitation(localUser ids.UserID, partyID ids.PartyID, inviteToken string) {
	client, err := p.client(localUser)
	if err != nil {
		p.log.Warn().Err(err).Str("party", partyID.String()).Msg("cannot reject invite")
		return
	}
	client.RejectInvitation(localUser, partyID, inviteToken)
}
