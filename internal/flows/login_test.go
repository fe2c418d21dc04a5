package flows

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"
)

var (
	errNotReady        = errors.New("not ready")
	errInvalidCreds    = errors.New("invalid credentials")
	errTokenAuth       = errors.New("token auth failed")
	errBanned          = errors.New("banned")
	errNotLinked       = errors.New("not linked")
	errLimited         = errors.New("rate limited")
	errNoSession       = errors.New("no session")
	errNoAccount       = errors.New("no account")
	errSessionDown     = errors.New("session unavailable")
	errAccountDown     = errors.New("account unavailable")
	errIdentityDown    = errors.New("identity unavailable")
	errBackendExploded = errors.New("backend exploded")
)

type fakeBackend struct {
	mu       sync.Mutex
	sessions map[string]string
	accounts map[string]LoginAccount
	links    map[string]LoginIdentity
	issued   int
	saved    []LoginAccount
	audits   []string
	metrics  map[int]int
	dummyHit int

	storeErr error
	saveErr  error
	linkErr  error
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		sessions: map[string]string{},
		accounts: map[string]LoginAccount{},
		links:    map[string]LoginIdentity{},
		metrics:  map[int]int{},
	}
}

func (b *fakeBackend) addAccount(a LoginAccount) {
	b.accounts[a.Email] = a
}

func (b *fakeBackend) deps() LoginDeps {
	return LoginDeps{
		SessionLifetime: time.Hour,
		DummyHash:       "dummy",
		Now:             func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
		ParseToken: func(tok string) (string, error) {
			email, ok := strings.CutPrefix(tok, "tok:")
			if !ok {
				return "", errors.New("malformed")
			}
			email, _, _ = strings.Cut(email, "#")
			return email, nil
		},
		GetStoredToken: func(_ context.Context, email string) (string, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			tok, ok := b.sessions[email]
			if !ok {
				return "", errNoSession
			}
			return tok, nil
		},
		StoreToken: func(_ context.Context, email, tok string, _ time.Duration) error {
			if b.storeErr != nil {
				return b.storeErr
			}
			b.mu.Lock()
			defer b.mu.Unlock()
			b.sessions[email] = tok
			return nil
		},
		IssueToken: func(email string, _ LoginIdentity) (string, error) {
			b.mu.Lock()
			defer b.mu.Unlock()
			b.issued++
			return "tok:" + email + "#" + string(rune('a'+b.issued)), nil
		},
		GetAccount: func(_ context.Context, email string) (LoginAccount, error) {
			a, ok := b.accounts[email]
			if !ok {
				return LoginAccount{}, errNoAccount
			}
			return a, nil
		},
		SaveAccount: func(_ context.Context, a LoginAccount) error {
			if b.saveErr != nil {
				return b.saveErr
			}
			b.saved = append(b.saved, a)
			b.accounts[a.Email] = a
			return nil
		},
		VerifyPassword: func(pw, hash string) (bool, error) {
			if hash == "dummy" {
				b.dummyHit++
				return false, nil
			}
			return "hash:"+pw == hash, nil
		},
		VerifyIdentity: func(_ context.Context, email string) (LoginIdentity, error) {
			if b.linkErr != nil {
				return LoginIdentity{}, b.linkErr
			}
			id, ok := b.links[email]
			if !ok {
				return LoginIdentity{}, errNotLinked
			}
			return id, nil
		},
		MetricInc: func(id int) { b.metrics[id]++ },
		EmitAudit: func(_ context.Context, event string, _ bool, _ string, _ error, meta func() map[string]string) {
			if meta != nil {
				_ = meta()
			}
			b.audits = append(b.audits, event)
		},
		Metrics: LoginMetrics{
			LoginSuccess:     1,
			LoginFailure:     2,
			LoginRateLimited: 3,
			LoginBanned:      4,
			IdentityRejected: 5,
			TokenFallback:    6,
			SessionIssued:    7,
			PasswordUpgraded: 8,
		},
		Events: LoginEvents{
			LoginSuccess:     "login_success",
			LoginFailure:     "login_failure",
			LoginRateLimited: "login_rate_limited",
			LoginBanned:      "login_banned",
			IdentityRejected: "identity_rejected",
		},
		Errors: LoginErrors{
			EngineNotReady:      errNotReady,
			InvalidCredentials:  errInvalidCreds,
			TokenAuthFailed:     errTokenAuth,
			PermanentBan:        errBanned,
			IdentityNotLinked:   errNotLinked,
			LoginRateLimited:    errLimited,
			SessionNotFound:     errNoSession,
			AccountNotFound:     errNoAccount,
			SessionUnavailable:  errSessionDown,
			AccountUnavailable:  errAccountDown,
			IdentityUnavailable: errIdentityDown,
		},
	}
}

func aliceAccount() LoginAccount {
	return LoginAccount{
		UserID:       "u-1",
		Email:        "alice@example.com",
		Username:     "alice",
		PasswordHash: "hash:correct-horse",
	}
}

func TestRunLoginPasswordSuccessStoresToken(t *testing.T) {
	b := newFakeBackend()
	b.addAccount(aliceAccount())
	b.links["alice@example.com"] = LoginIdentity{ExternalID: "42", AgeGate: true}

	res, err := RunLogin(context.Background(), LoginRequest{Email: "alice@example.com", Password: "correct-horse"}, b.deps())
	if err != nil {
		t.Fatalf("RunLogin: %v", err)
	}
	if res.Strategy != StrategyPassword {
		t.Fatalf("expected password strategy, got %s", res.Strategy)
	}
	if res.Token == "" || b.sessions["alice@example.com"] != res.Token {
		t.Fatalf("returned token %q does not match stored %q", res.Token, b.sessions["alice@example.com"])
	}
	if res.Identity.ExternalID != "42" || !res.Identity.AgeGate {
		t.Fatalf("unexpected identity %+v", res.Identity)
	}
	if len(b.saved) != 1 || b.saved[0].LastLoginAt.IsZero() {
		t.Fatalf("expected last login to be persisted, got %+v", b.saved)
	}
	if b.metrics[1] != 1 || b.metrics[7] != 1 {
		t.Fatalf("expected success and session metrics, got %v", b.metrics)
	}
}

func TestRunLoginTokenStrategy(t *testing.T) {
	b := newFakeBackend()
	b.addAccount(aliceAccount())
	b.links["alice@example.com"] = LoginIdentity{AgeGate: true}
	b.sessions["alice@example.com"] = "tok:alice@example.com#z"

	res, err := RunLogin(context.Background(), LoginRequest{Email: "ignored@example.com", Token: "tok:alice@example.com#z"}, b.deps())
	if err != nil {
		t.Fatalf("RunLogin: %v", err)
	}
	if res.Strategy != StrategyToken {
		t.Fatalf("expected token strategy, got %s", res.Strategy)
	}
	if res.Token == "tok:alice@example.com#z" {
		t.Fatal("expected a freshly issued token")
	}
	if b.sessions["alice@example.com"] != res.Token {
		t.Fatal("new token must replace the stored session")
	}
}

func TestRunLoginTokenFallbackToPassword(t *testing.T) {
	cases := []struct {
		name    string
		token   string
		session string
	}{
		{name: "no stored session", token: "tok:alice@example.com#x"},
		{name: "superseded", token: "tok:alice@example.com#x", session: "tok:alice@example.com#y"},
		{name: "malformed", token: "garbage"},
		{name: "unknown account", token: "tok:ghost@example.com#x", session: ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newFakeBackend()
			b.addAccount(aliceAccount())
			b.links["alice@example.com"] = LoginIdentity{AgeGate: true}
			if tc.session != "" {
				b.sessions["alice@example.com"] = tc.session
			}
			if tc.name == "unknown account" {
				b.sessions["ghost@example.com"] = tc.token
			}

			res, err := RunLogin(context.Background(), LoginRequest{
				Email:    "alice@example.com",
				Password: "correct-horse",
				Token:    tc.token,
			}, b.deps())
			if err != nil {
				t.Fatalf("RunLogin: %v", err)
			}
			if res.Strategy != StrategyPassword {
				t.Fatalf("expected fallback to password, got %s", res.Strategy)
			}
			if b.metrics[6] != 1 {
				t.Fatalf("expected token fallback metric, got %v", b.metrics)
			}
		})
	}
}

func TestRunLoginTokenFailureWithoutPassword(t *testing.T) {
	b := newFakeBackend()
	b.addAccount(aliceAccount())

	_, err := RunLogin(context.Background(), LoginRequest{Email: "alice@example.com", Token: "tok:alice@example.com#x"}, b.deps())
	if !errors.Is(err, errInvalidCreds) {
		t.Fatalf("expected invalid credentials, got %v", err)
	}
	if errors.Is(err, errTokenAuth) {
		t.Fatal("token failure must not leak to the caller")
	}
}

func TestRunLoginUnknownAndWrongPasswordIndistinguishable(t *testing.T) {
	b := newFakeBackend()
	b.addAccount(aliceAccount())

	_, errUnknown := RunLogin(context.Background(), LoginRequest{Email: "nobody@example.com", Password: "x-password"}, b.deps())
	_, errWrong := RunLogin(context.Background(), LoginRequest{Email: "alice@example.com", Password: "x-password"}, b.deps())

	if !errors.Is(errUnknown, errInvalidCreds) || !errors.Is(errWrong, errInvalidCreds) {
		t.Fatalf("expected invalid credentials for both, got %v / %v", errUnknown, errWrong)
	}
	if errUnknown.Error() != errWrong.Error() {
		t.Fatalf("errors must match: %q vs %q", errUnknown, errWrong)
	}
	if b.dummyHit != 1 {
		t.Fatalf("expected dummy hash verification for unknown account, got %d", b.dummyHit)
	}
}

func TestRunLoginBannedNeverIssues(t *testing.T) {
	b := newFakeBackend()
	a := aliceAccount()
	a.Banned = true
	b.addAccount(a)
	b.links["alice@example.com"] = LoginIdentity{AgeGate: true}
	b.sessions["alice@example.com"] = "tok:alice@example.com#old"

	for _, req := range []LoginRequest{
		{Email: "alice@example.com", Password: "correct-horse"},
		{Email: "alice@example.com", Token: "tok:alice@example.com#old"},
	} {
		_, err := RunLogin(context.Background(), req, b.deps())
		if !errors.Is(err, errBanned) {
			t.Fatalf("expected ban, got %v", err)
		}
	}
	if b.issued != 0 {
		t.Fatalf("banned account must never be issued a token, issued=%d", b.issued)
	}
	if b.sessions["alice@example.com"] != "tok:alice@example.com#old" {
		t.Fatal("session must be untouched for banned account")
	}
	if b.audits[len(b.audits)-1] != "login_banned" {
		t.Fatalf("expected ban audit event, got %v", b.audits)
	}
}

func TestRunLoginIdentityNotLinked(t *testing.T) {
	b := newFakeBackend()
	b.addAccount(aliceAccount())

	_, err := RunLogin(context.Background(), LoginRequest{Email: "alice@example.com", Password: "correct-horse"}, b.deps())
	if !errors.Is(err, errNotLinked) {
		t.Fatalf("expected identity not linked, got %v", err)
	}
	if _, ok := b.sessions["alice@example.com"]; ok {
		t.Fatal("no session may be stored when identity verification fails")
	}
}

func TestRunLoginCollaboratorFailures(t *testing.T) {
	cases := []struct {
		name  string
		setup func(*fakeBackend)
		want  error
	}{
		{name: "identity lookup", setup: func(b *fakeBackend) { b.linkErr = errBackendExploded }, want: errIdentityDown},
		{name: "session write", setup: func(b *fakeBackend) { b.storeErr = errBackendExploded }, want: errSessionDown},
		{name: "account save", setup: func(b *fakeBackend) { b.saveErr = errBackendExploded }, want: errAccountDown},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			b := newFakeBackend()
			b.addAccount(aliceAccount())
			b.links["alice@example.com"] = LoginIdentity{AgeGate: true}
			tc.setup(b)

			_, err := RunLogin(context.Background(), LoginRequest{Email: "alice@example.com", Password: "correct-horse"}, b.deps())
			if !errors.Is(err, tc.want) || !errors.Is(err, errBackendExploded) {
				t.Fatalf("expected %v wrapping backend error, got %v", tc.want, err)
			}
		})
	}
}

func TestRunLoginAccountLookupFailure(t *testing.T) {
	b := newFakeBackend()
	deps := b.deps()
	deps.GetAccount = func(context.Context, string) (LoginAccount, error) {
		return LoginAccount{}, errBackendExploded
	}

	_, err := RunLogin(context.Background(), LoginRequest{Email: "alice@example.com", Password: "correct-horse"}, deps)
	if !errors.Is(err, errAccountDown) {
		t.Fatalf("expected account unavailable, got %v", err)
	}
}

func TestRunLoginRateLimit(t *testing.T) {
	b := newFakeBackend()
	b.addAccount(aliceAccount())
	b.links["alice@example.com"] = LoginIdentity{AgeGate: true}

	failures := map[string]int{}
	deps := b.deps()
	deps.CheckLoginRate = func(_ context.Context, email string) error {
		if failures[email] >= 2 {
			return errors.New("limited")
		}
		return nil
	}
	deps.IncrementLoginRate = func(_ context.Context, email string) error {
		failures[email]++
		return nil
	}
	deps.ResetLoginRate = func(_ context.Context, email string) error {
		delete(failures, email)
		return nil
	}

	for i := 0; i < 2; i++ {
		if _, err := RunLogin(context.Background(), LoginRequest{Email: "alice@example.com", Password: "bad-password"}, deps); !errors.Is(err, errInvalidCreds) {
			t.Fatalf("attempt %d: expected invalid credentials, got %v", i, err)
		}
	}
	if _, err := RunLogin(context.Background(), LoginRequest{Email: "alice@example.com", Password: "correct-horse"}, deps); !errors.Is(err, errLimited) {
		t.Fatalf("expected rate limit, got %v", err)
	}
}

func TestRunLoginPasswordUpgradePersisted(t *testing.T) {
	b := newFakeBackend()
	b.addAccount(aliceAccount())
	b.links["alice@example.com"] = LoginIdentity{AgeGate: true}

	deps := b.deps()
	deps.PasswordUpgradeOnLogin = true
	deps.PasswordNeedsUpgrade = func(string) (bool, error) { return true, nil }
	deps.HashPassword = func(pw string) (string, error) { return "hash2:" + pw, nil }

	if _, err := RunLogin(context.Background(), LoginRequest{Email: "alice@example.com", Password: "correct-horse"}, deps); err != nil {
		t.Fatalf("RunLogin: %v", err)
	}
	if got := b.accounts["alice@example.com"].PasswordHash; got != "hash2:correct-horse" {
		t.Fatalf("expected upgraded hash to be saved, got %q", got)
	}
	if b.metrics[8] != 1 {
		t.Fatalf("expected upgrade metric, got %v", b.metrics)
	}
}

func TestRunLoginNotReady(t *testing.T) {
	deps := newFakeBackend().deps()
	deps.VerifyIdentity = nil

	if _, err := RunLogin(context.Background(), LoginRequest{Email: "a@example.com", Password: "x"}, deps); !errors.Is(err, errNotReady) {
		t.Fatalf("expected not ready, got %v", err)
	}
}

func TestStageString(t *testing.T) {
	if StagePersisted.String() != "persisted" || StageFailed.String() != "failed" {
		t.Fatal("unexpected stage names")
	}
	if Stage(200).String() != "unknown" {
		t.Fatal("out of range stage should be unknown")
	}
}
