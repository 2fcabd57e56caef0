package forumauth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/MrEthical07/forumauth/jwt"
	gjwt "github.com/golang-jwt/jwt/v5"
)

func TestLogoutRevokesBothTokens(t *testing.T) {
	te := newTestEngine(t, testConfig())
	te.registerAlice(t)
	login := te.loginAlice(t)

	if err := te.Logout(context.Background(), login.Tokens.AccessToken, login.Tokens.RefreshToken); err != nil {
		t.Fatalf("logout: %v", err)
	}
	if stats := te.RevocationStats(); stats.Access != 1 || stats.Refresh != 1 {
		t.Fatalf("unexpected revocation stats %+v", stats)
	}

	_, err := te.ValidateAccess(context.Background(), login.Tokens.AccessToken)
	mustErrorIs(t, err, ErrTokenRevoked)
	_, err = te.Refresh(context.Background(), login.Tokens.RefreshToken)
	mustErrorIs(t, err, ErrTokenRevoked)
}

func TestLogoutIgnoresForgedTokens(t *testing.T) {
	te := newTestEngine(t, testConfig())
	attackerKey := []byte("attacker-secret-attacker-secret-0123456789")

	forge := func(typ jwt.TokenType, id string) string {
		token, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, jwt.Claims{
			Type: typ,
			RegisteredClaims: gjwt.RegisteredClaims{
				ID:        id,
				Subject:   "victim",
				Issuer:    "forumauth",
				Audience:  gjwt.ClaimStrings{"forum"},
				ExpiresAt: gjwt.NewNumericDate(te.clock.Now().Add(7 * 24 * time.Hour)),
			},
		}).SignedString(attackerKey)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		return token
	}

	for i := 0; i < 200; i++ {
		id := fmt.Sprintf("forged-%d", i)
		if err := te.Logout(context.Background(), forge(jwt.TypeAccess, id), forge(jwt.TypeRefresh, id)); err != nil {
			t.Fatalf("logout %d: %v", i, err)
		}
	}

	if stats := te.RevocationStats(); stats.Access != 0 || stats.Refresh != 0 {
		t.Fatalf("forged tokens reached the registry: %+v", stats)
	}
}
