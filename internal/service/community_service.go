package service

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/nyulibraries/ultraviolet-cli/internal/domain"
	uverrors "github.com/nyulibraries/ultraviolet-cli/internal/errors"
)

// CommunityAPI is the slice of the REST client the community command needs.
type CommunityAPI interface {
	ResolveUser(ctx context.Context, email string) (domain.Identity, error)
	CreateCommunity(ctx context.Context, payload json.RawMessage) (domain.Community, error)
	AddCommunityMember(ctx context.Context, communityID string, member domain.CommunityMember, role string, visible bool) error
}

// CommunityService implements the community admin operations.
type CommunityService struct {
	api CommunityAPI
}

// NewCommunityService creates a new CommunityService.
func NewCommunityService(api CommunityAPI) *CommunityService {
	return &CommunityService{api: api}
}

// BuildCommunityData assembles the community creation payload.
func BuildCommunityData(name, desc, ctype, visibility, policy string) (json.RawMessage, error) {
	data := map[string]interface{}{
		"slug": slugify(name),
		"metadata": map[string]interface{}{
			"title":       name,
			"description": desc,
			"type":        map[string]string{"id": ctype},
		},
		"access": map[string]interface{}{
			"visibility":    visibility,
			"member_policy": policy,
			"record_policy": policy,
		},
	}
	return json.MarshalIndent(data, "", "  ")
}

// Create resolves the owner and creates the community.
func (s *CommunityService) Create(ctx context.Context, payload json.RawMessage, owner string) (domain.Community, error) {
	if _, err := s.api.ResolveUser(ctx, owner); err != nil {
		if uverrors.IsKind(err, uverrors.KindNotFound) {
			return domain.Community{}, uverrors.NotFoundf("Could not get owner successfully. Is %s a valid user?", owner)
		}
		return domain.Community{}, err
	}

	community, err := s.api.CreateCommunity(ctx, payload)
	if err != nil {
		if uverrors.IsKind(err, uverrors.KindConflict) {
			return domain.Community{}, uverrors.Conflictf("A community with this identifier already exists.")
		}
		return domain.Community{}, err
	}
	return community, nil
}

// AddGroup adds the named group to the community as a reader.
func (s *CommunityService) AddGroup(ctx context.Context, communityID, group string) error {
	member := domain.CommunityMember{Type: "group", ID: group}
	return s.api.AddCommunityMember(ctx, communityID, member, "reader", true)
}

// slugify turns a community name into its identifier slug.
func slugify(name string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(name) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		case r == ' ' || r == '-' || r == '_':
			b.WriteRune('-')
		}
	}
	return strings.Trim(b.String(), "-")
}
