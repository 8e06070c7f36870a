// Package matcher selects directory services for a completed profile.
package matcher

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/SafePath-UK/SafePath/internal/models"
)

// MaxResults caps how many services one handoff lists. Signposting works
// by being short; a directory dump is as useless as nothing.
const MaxResults = 3

// ServiceLister is the slice of the store the matcher needs.
type ServiceLister interface {
	ListServices(localAuthority string) ([]models.Service, error)
}

// Matcher ranks directory services against a session profile.
type Matcher struct {
	services ServiceLister
}

// New creates a matcher over the given service directory.
func New(services ServiceLister) *Matcher {
	return &Matcher{services: services}
}

// Match returns up to MaxResults services for the profile's local
// authority, ranked by fit. Local services beat national ones, and a
// category matching the stated support need beats a mismatch.
func (m *Matcher) Match(ctx context.Context, profile models.Profile) ([]models.Service, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	candidates, err := m.services.ListServices(profile.LocalAuthority)
	if err != nil {
		return nil, fmt.Errorf("failed to list services for %s: %w", profile.LocalAuthority, err)
	}

	type ranked struct {
		svc   models.Service
		score int
	}
	var rankedList []ranked
	for _, svc := range candidates {
		rankedList = append(rankedList, ranked{svc: svc, score: score(svc, profile)})
	}
	sort.SliceStable(rankedList, func(i, j int) bool {
		return rankedList[i].score > rankedList[j].score
	})

	var out []models.Service
	for _, r := range rankedList {
		if len(out) == MaxResults {
			break
		}
		out = append(out, r.svc)
	}
	slog.Debug("Matcher.Match ranked services", "localAuthority", profile.LocalAuthority,
		"candidates", len(candidates), "returned", len(out))
	return out, nil
}

// score is a simple additive fit rank; exact weights only matter
// relative to each other.
func score(svc models.Service, profile models.Profile) int {
	s := 0
	if svc.LocalAuthority != "" && equalFold(svc.LocalAuthority, profile.LocalAuthority) {
		s += 2
	}
	if svc.Category != "" && svc.Category == profile.SupportNeed {
		s += 4
	}
	// Anyone homeless benefits from housing services whatever need
	// they named.
	if profile.Homeless != nil && *profile.Homeless && svc.Category == "housing" {
		s++
	}
	return s
}

func equalFold(a, b string) bool {
	return strings.EqualFold(strings.TrimSpace(a), strings.TrimSpace(b))
}
