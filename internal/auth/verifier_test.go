package auth

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"testing"
)

func TestVerifyDevToken(t *testing.T) {
	v := &Verifier{Mode: "dev"}
	p, err := v.Verify("t1:planner")
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.Tenant != "t1" || p.Role != "planner" {
		t.Fatalf("principal: %+v", p)
	}
	if _, err := v.Verify("no-colons"); err == nil {
		t.Fatalf("expected error for malformed dev token")
	}
}

func signHS256(t *testing.T, secret []byte, header, payload string) string {
	t.Helper()
	h := base64.RawURLEncoding.EncodeToString([]byte(header))
	p := base64.RawURLEncoding.EncodeToString([]byte(payload))
	mac := hmac.New(sha256.New, secret)
	mac.Write([]byte(h + "." + p))
	return h + "." + p + "." + base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyHS256(t *testing.T) {
	secret := []byte("topsecret")
	v := &Verifier{Mode: "hmac", HMACSecret: secret, TenantClaim: "tenant", RoleClaim: "role"}

	tok := signHS256(t, secret, `{"alg":"HS256","typ":"JWT"}`, `{"tenant":"t9","role":"Admin"}`)
	p, err := v.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if p.Tenant != "t9" || p.Role != "admin" {
		t.Fatalf("principal: %+v", p)
	}

	bad := signHS256(t, []byte("wrong"), `{"alg":"HS256"}`, `{"tenant":"t9"}`)
	if _, err := v.Verify(bad); err == nil {
		t.Fatalf("expected bad signature error")
	}

	noTenant := signHS256(t, secret, `{"alg":"HS256"}`, `{"role":"user"}`)
	if _, err := v.Verify(noTenant); err == nil {
		t.Fatalf("expected missing tenant error")
	}
}
