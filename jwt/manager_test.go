package jwt

import (
	"crypto/ed25519"
	"crypto/rand"
	"strings"
	"testing"
	"time"

	gjwt "github.com/golang-jwt/jwt/v5"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

func newEdKeys(t *testing.T) (ed25519.PublicKey, ed25519.PrivateKey) {
	t.Helper()
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatalf("generate ed25519 key: %v", err)
	}
	return pub, priv
}

func TestCookieRoundTripHS256(t *testing.T) {
	now := time.Now()
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret, Issuer: "sessiongate"})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	raw, err := m.CreateCookie("tok-1", now, now.Add(10*time.Minute))
	if err != nil {
		t.Fatalf("create cookie: %v", err)
	}
	claims, err := m.ParseCookie(raw)
	if err != nil {
		t.Fatalf("parse cookie: %v", err)
	}
	if claims.SID != "tok-1" {
		t.Fatalf("expected sid tok-1, got %q", claims.SID)
	}
	if claims.ExpiresAt.Unix() != now.Add(10*time.Minute).Unix() {
		t.Fatalf("unexpected exp %v", claims.ExpiresAt)
	}
}

func TestCookieRoundTripEd25519FromSeed(t *testing.T) {
	seed := make([]byte, ed25519.SeedSize)
	if _, err := rand.Read(seed); err != nil {
		t.Fatalf("seed: %v", err)
	}
	priv, pub, err := Ed25519KeysFromSeed(seed)
	if err != nil {
		t.Fatalf("derive keys: %v", err)
	}
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	now := time.Now()
	raw, err := m.CreateCookie("tok-ed", now, now.Add(time.Minute))
	if err != nil {
		t.Fatalf("create cookie: %v", err)
	}
	claims, err := m.ParseCookie(raw)
	if err != nil {
		t.Fatalf("parse cookie: %v", err)
	}
	if claims.SID != "tok-ed" {
		t.Fatalf("unexpected sid %q", claims.SID)
	}
}

func TestParseCookieRejectsExpired(t *testing.T) {
	current := time.Now()
	m, err := NewManager(Config{
		SigningMethod: MethodHS256,
		PrivateKey:    testSecret,
		Now:           func() time.Time { return current },
	})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	raw, err := m.CreateCookie("tok", current, current.Add(time.Minute))
	if err != nil {
		t.Fatalf("create cookie: %v", err)
	}
	current = current.Add(2 * time.Minute)
	if _, err := m.ParseCookie(raw); err == nil {
		t.Fatal("expected expired cookie to be rejected")
	}
}

func TestParseCookieRejectsWrongAlgorithm(t *testing.T) {
	pub, priv := newEdKeys(t)
	m, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: priv, PublicKey: pub})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	claims := CookieClaims{SID: "s1", RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))}}
	tok := gjwt.NewWithClaims(gjwt.SigningMethodHS256, claims)
	raw, err := tok.SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}

	if _, err := m.ParseCookie(raw); err == nil {
		t.Fatal("expected wrong algorithm to be rejected")
	}
}

func TestParseCookieRejectsTampering(t *testing.T) {
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	raw, err := m.CreateCookie("tok", time.Now(), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("create cookie: %v", err)
	}

	parts := strings.Split(raw, ".")
	other, err := m.CreateCookie("other", time.Now(), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("create cookie: %v", err)
	}
	swapped := strings.Split(other, ".")[1]
	forged := parts[0] + "." + swapped + "." + parts[2]
	if _, err := m.ParseCookie(forged); err == nil {
		t.Fatal("expected forged payload to be rejected")
	}

	otherKey, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: []byte("fedcba9876543210fedcba9876543210")})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}
	if _, err := otherKey.ParseCookie(raw); err == nil {
		t.Fatal("expected cookie signed with another key to be rejected")
	}
}

func TestParseCookieRequiresExpAndSID(t *testing.T) {
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret})
	if err != nil {
		t.Fatalf("new manager: %v", err)
	}

	noExp, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, CookieClaims{SID: "x"}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.ParseCookie(noExp); err == nil {
		t.Fatal("expected cookie without exp to be rejected")
	}

	noSID, err := gjwt.NewWithClaims(gjwt.SigningMethodHS256, CookieClaims{
		RegisteredClaims: gjwt.RegisteredClaims{ExpiresAt: gjwt.NewNumericDate(time.Now().Add(time.Minute))},
	}).SignedString(testSecret)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.ParseCookie(noSID); err == nil {
		t.Fatal("expected cookie without sid to be rejected")
	}
}

func TestParseCookieKeyRotation(t *testing.T) {
	pubOld, privOld := newEdKeys(t)
	pubNew, privNew := newEdKeys(t)

	oldSigner, err := NewManager(Config{SigningMethod: MethodEd25519, PrivateKey: privOld, PublicKey: pubOld, KeyID: "old"})
	if err != nil {
		t.Fatalf("old signer: %v", err)
	}
	raw, err := oldSigner.CreateCookie("tok", time.Now(), time.Now().Add(time.Minute))
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	rotated, err := NewManager(Config{
		SigningMethod: MethodEd25519,
		PrivateKey:    privNew,
		KeyID:         "new",
		VerifyKeys:    map[string][]byte{"old": pubOld, "new": pubNew},
	})
	if err != nil {
		t.Fatalf("rotated manager: %v", err)
	}
	if _, err := rotated.ParseCookie(raw); err != nil {
		t.Fatalf("cookie signed with retired key must still verify: %v", err)
	}
}

func TestNewManagerValidation(t *testing.T) {
	pub, _ := newEdKeys(t)
	cases := map[string]Config{
		"short hmac secret":  {SigningMethod: MethodHS256, PrivateKey: []byte("short")},
		"ed25519 no private": {SigningMethod: MethodEd25519, PublicKey: pub},
		"unknown method":     {SigningMethod: "rs256", PrivateKey: testSecret},
		"bad leeway":         {SigningMethod: MethodHS256, PrivateKey: testSecret, Leeway: time.Hour},
	}
	for name, cfg := range cases {
		if _, err := NewManager(cfg); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
	if _, _, err := Ed25519KeysFromSeed([]byte("short")); err == nil {
		t.Fatal("expected short seed to be rejected")
	}
}

func FuzzParseCookie(f *testing.F) {
	m, err := NewManager(Config{SigningMethod: MethodHS256, PrivateKey: testSecret})
	if err != nil {
		f.Fatalf("new manager: %v", err)
	}
	valid, err := m.CreateCookie("seed", time.Now(), time.Now().Add(time.Minute))
	if err != nil {
		f.Fatalf("create: %v", err)
	}
	f.Add(valid)
	f.Add("")
	f.Add("a.b.c")

	f.Fuzz(func(t *testing.T, raw string) {
		claims, err := m.ParseCookie(raw)
		if err == nil && claims.SID == "" {
			t.Fatal("accepted cookie without sid")
		}
	})
}
