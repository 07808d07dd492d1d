package auth

import (
	"context"

	"go.uber.org/zap"

	"github.com/ebogdum/filesmanager/metadata"
)

// Service is the public surface of the token lifecycle.
type Service struct {
	verifier *CredentialVerifier
	tokens   *TokenAuthority
	logger   *zap.Logger
}

func NewService(verifier *CredentialVerifier, tokens *TokenAuthority, logger *zap.Logger) *Service {
	return &Service{verifier: verifier, tokens: tokens, logger: logger}
}

func (s *Service) VerifyCredentials(ctx context.Context, email, password string) (metadata.ID, error) {
	return s.verifier.Verify(ctx, email, password)
}

func (s *Service) IssueToken(ctx context.Context, id metadata.ID) (string, error) {
	return s.tokens.Issue(ctx, id)
}

func (s *Service) ResolveToken(ctx context.Context, token string) (metadata.ID, error) {
	return s.tokens.Resolve(ctx, token)
}

func (s *Service) RevokeToken(ctx context.Context, token string) error {
	return s.tokens.Revoke(ctx, token)
}

// Login verifies the Basic credentials in authHeader and issues a token.
func (s *Service) Login(ctx context.Context, authHeader string) (string, error) {
	email, password, err := ParseBasicAuth(authHeader)
	if err != nil {
		return "", err
	}

	id, err := s.VerifyCredentials(ctx, email, password)
	if err != nil {
		return "", err
	}
	return s.IssueToken(ctx, id)
}

// HashPassword produces the digest stored for a new identity.
func (s *Service) HashPassword(password string) (string, error) {
	return s.verifier.HashPassword(password)
}
