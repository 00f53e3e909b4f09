package members

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/prose-pod/pod/internal/pod/apperror"
	"github.com/prose-pod/pod/internal/pod/serverctl"
)

// VCardProvider, AvatarProvider, and OnlineStatusProvider are the three
// independent, independently-cached enrichment lookups. Each is a
// narrow, consumer-defined interface so Service never depends on how
// the XMPP server is actually queried.
type VCardProvider interface {
	Nickname(ctx context.Context, jid string) (string, error)
}

type AvatarProvider interface {
	AvatarURL(ctx context.Context, jid string) (string, error)
}

type OnlineStatusProvider interface {
	IsOnline(ctx context.Context, jid string) (bool, error)
}

// Service implements member listing, search, role changes, deletion,
// and enrichment.
type Service struct {
	store    *store
	ctl      serverctl.Controller
	vcards   *ttlCache[string]
	avatars  *ttlCache[string]
	online   *ttlCache[bool]
	vcardSrc VCardProvider
	avatarSrc AvatarProvider
	onlineSrc OnlineStatusProvider
}

func New(db *sql.DB, ctl serverctl.Controller, cacheTTL time.Duration, vcardSrc VCardProvider, avatarSrc AvatarProvider, onlineSrc OnlineStatusProvider) *Service {
	return &Service{
		store: newStore(db), ctl: ctl,
		vcards: newTTLCache[string](cacheTTL), avatars: newTTLCache[string](cacheTTL), online: newTTLCache[bool](cacheTTL),
		vcardSrc: vcardSrc, avatarSrc: avatarSrc, onlineSrc: onlineSrc,
	}
}

const defaultPerPage = 20

// Get returns the bare member row for jid, used by the HTTP layer to
// authorize admin-only routes without pulling in per-JID enrichment.
func (s *Service) Get(ctx context.Context, jid string) (Member, error) {
	m, err := s.store.get(ctx, jid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return Member{}, apperror.New(apperror.CodeNotFound, "member not found")
		}
		return Member{}, fmt.Errorf("members: get: %w", err)
	}
	return m, nil
}

// GetMembers returns page (1-indexed) of all members, ordered by join
// date.
func (s *Service) GetMembers(ctx context.Context, page int) (Page[Member], error) {
	all, err := s.store.listAll(ctx)
	if err != nil {
		return Page[Member]{}, err
	}
	return paginate(all, page), nil
}

// SearchMembers normalizes query (lowercase + accent fold), tokenizes
// on whitespace, filters members whose nickname or JID node contains
// every token, then pages the filtered result.
func (s *Service) SearchMembers(ctx context.Context, query string, page int) (Page[Member], error) {
	all, err := s.store.listAll(ctx)
	if err != nil {
		return Page[Member]{}, err
	}
	tokens := tokenize(query)
	if len(tokens) == 0 {
		return paginate(all, page), nil
	}

	filtered := make([]Member, 0, len(all))
	for _, m := range all {
		nickname := ""
		if n, ok := s.vcards.Get(m.JID); ok {
			nickname = n
		}
		if matches(nickname, m.JID, tokens) {
			filtered = append(filtered, m)
		}
	}
	return paginate(filtered, page), nil
}

func paginate[T any](items []T, page int) Page[T] {
	if page < 1 {
		page = 1
	}
	start := (page - 1) * defaultPerPage
	if start > len(items) {
		start = len(items)
	}
	end := start + defaultPerPage
	if end > len(items) {
		end = len(items)
	}
	return Page[T]{Items: items[start:end], Page: page, PerPage: defaultPerPage, TotalItems: len(items)}
}

// SetMemberRole updates the DB row then calls set_user_role on C2. If
// C2 fails, the DB change stands — the deliberate one-way policy — and
// the caller surfaces a server-side error for the operator to retry.
func (s *Service) SetMemberRole(ctx context.Context, actingJID, jid string, role Role) error {
	if actingJID == jid {
		return apperror.New(apperror.CodeForbidden, "cannot change your own role")
	}
	if err := s.store.setRole(ctx, jid, role); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.New(apperror.CodeNotFound, "member not found")
		}
		return fmt.Errorf("members: set role: %w", err)
	}
	ctlRole := serverctl.RoleMember
	if role == RoleAdmin {
		ctlRole = serverctl.RoleAdmin
	}
	if err := s.ctl.SetUserRole(ctx, jid, ctlRole); err != nil {
		return apperror.Wrap(apperror.CodeInternal, "role updated in database but the xmpp server was not updated; retry", err)
	}
	return nil
}

// DeleteUser removes jid as a member, forbidden when jid is the acting
// user.
func (s *Service) DeleteUser(ctx context.Context, actingJID, jid string) error {
	if actingJID == jid {
		return apperror.New(apperror.CodeForbidden, "cannot remove yourself")
	}
	if err := s.store.delete(ctx, jid); err != nil {
		if errors.Is(err, ErrNotFound) {
			return apperror.New(apperror.CodeNotFound, "member not found")
		}
		return fmt.Errorf("members: delete: %w", err)
	}
	if err := s.ctl.RemoveTeamMember(ctx, jid); err != nil {
		return apperror.Wrap(apperror.CodeInternal, "member removed from database but the xmpp server was not updated; retry", err)
	}
	return nil
}

// Enrich resolves vCard/avatar/online-status for jid, consulting each
// of the three independent TTL caches before falling back to its
// provider. A provider error for one facet does not fail the others —
// the corresponding field is simply left nil.
func (s *Service) Enrich(ctx context.Context, jid string) (EnrichedMember, error) {
	m, err := s.store.get(ctx, jid)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return EnrichedMember{}, apperror.New(apperror.CodeNotFound, "member not found")
		}
		return EnrichedMember{}, fmt.Errorf("members: enrich: %w", err)
	}

	out := EnrichedMember{JID: m.JID, Role: m.Role}

	if nickname, ok := s.vcards.Get(jid); ok {
		out.Nickname = &nickname
	} else if s.vcardSrc != nil {
		if nickname, err := s.vcardSrc.Nickname(ctx, jid); err == nil {
			s.vcards.Set(jid, nickname)
			out.Nickname = &nickname
		}
	}

	if avatar, ok := s.avatars.Get(jid); ok {
		out.Avatar = &avatar
	} else if s.avatarSrc != nil {
		if avatar, err := s.avatarSrc.AvatarURL(ctx, jid); err == nil {
			s.avatars.Set(jid, avatar)
			out.Avatar = &avatar
		}
	}

	if online, ok := s.online.Get(jid); ok {
		out.Online = &online
	} else if s.onlineSrc != nil {
		if online, err := s.onlineSrc.IsOnline(ctx, jid); err == nil {
			s.online.Set(jid, online)
			out.Online = &online
		}
	}

	return out, nil
}
