package session

import (
	"context"
	"strings"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
)

const keySuffix = "_current_donation"

// Store persists the current-donation session of each client scope
type Store interface {
	// Get returns domain.ErrSessionNotFound when nothing is stored under key
	Get(ctx context.Context, key string) (*domain.Session, error)
	// Set overwrites the record wholesale
	Set(ctx context.Context, key string, s *domain.Session) error
	// Clear removes the record; clearing a missing key is not an error
	Clear(ctx context.Context, key string) error
}

// Key builds the storage key of a campaign, optionally narrowed to one client
func Key(campaign, clientID string) string {
	key := strings.ToLower(strings.TrimSpace(campaign)) + keySuffix
	if clientID = strings.TrimSpace(clientID); clientID != "" {
		key += ":" + clientID
	}
	return key
}

// clone copies s so callers never share slices or pointers with the store
func clone(s *domain.Session) *domain.Session {
	if s == nil {
		return nil
	}
	out := *s
	if s.LineItems != nil {
		out.LineItems = append([]domain.LineItem(nil), s.LineItems...)
	}
	if s.Split != nil {
		out.Split = append([]domain.SplitAllocation(nil), s.Split...)
	}
	out.ExpiresAt = copyTime(s.ExpiresAt)
	out.Transaction.ExpiresAt = copyTime(s.Transaction.ExpiresAt)
	out.Transaction.PaidAt = copyTime(s.Transaction.PaidAt)

	art := s.Transaction.Artifact
	if art.Pix != nil {
		p := *art.Pix
		out.Transaction.Artifact.Pix = &p
	}
	if art.Billet != nil {
		b := *art.Billet
		out.Transaction.Artifact.Billet = &b
	}
	if art.Card != nil {
		c := *art.Card
		out.Transaction.Artifact.Card = &c
	}
	return &out
}
