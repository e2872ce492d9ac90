package gitrepo

import (
	"errors"
	"testing"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"

	"github.com/preflightvcs/preflight/pkg/vcs"
)

func TestCategorizeTransportErr(t *testing.T) {
	var authErr *vcs.AuthError
	var netErr *vcs.NetworkError

	if err := categorizeTransportErr(transport.ErrAuthenticationRequired); !errors.As(err, &authErr) {
		t.Errorf("auth required mapped to %T", err)
	}
	if err := categorizeTransportErr(transport.ErrAuthorizationFailed); !errors.As(err, &authErr) {
		t.Errorf("authorization failed mapped to %T", err)
	}
	if err := categorizeTransportErr(transport.ErrEmptyRemoteRepository); !errors.Is(err, vcs.ErrRemoteBranchAbsent) {
		t.Errorf("empty remote mapped to %v", err)
	}
	if err := categorizeTransportErr(errors.New("dial tcp: timeout")); !errors.As(err, &netErr) {
		t.Errorf("unknown transport error mapped to %T", err)
	}
}

func TestIsSSHURL(t *testing.T) {
	cases := []struct {
		url  string
		want bool
	}{
		{"git@github.com:owner/repo.git", true},
		{"ssh://git@host/repo.git", true},
		{"https://github.com/owner/repo.git", false},
		{"http://host/repo.git", false},
		{"/local/path/repo", false},
	}
	for _, tc := range cases {
		if got := isSSHURL(tc.url); got != tc.want {
			t.Errorf("isSSHURL(%q) = %v, want %v", tc.url, got, tc.want)
		}
	}
}

func TestBuildAuth_HTTPS(t *testing.T) {
	auth, err := buildAuth("https://example.test/repo.git", vcs.Credentials{Token: "tok"})
	if err != nil {
		t.Fatal(err)
	}
	basic, ok := auth.(*githttp.BasicAuth)
	if !ok {
		t.Fatalf("auth = %T, want *http.BasicAuth", auth)
	}
	if basic.Password != "tok" || basic.Username == "" {
		t.Errorf("token auth = %+v, want token as password with non-empty username", basic)
	}

	auth, err = buildAuth("https://example.test/repo.git", vcs.Credentials{Username: "u", Password: "p"})
	if err != nil {
		t.Fatal(err)
	}
	basic, ok = auth.(*githttp.BasicAuth)
	if !ok {
		t.Fatalf("auth = %T, want *http.BasicAuth", auth)
	}
	if basic.Username != "u" || basic.Password != "p" {
		t.Errorf("basic auth = %+v", basic)
	}

	auth, err = buildAuth("https://example.test/repo.git", vcs.Credentials{})
	if err != nil {
		t.Fatal(err)
	}
	if auth != nil {
		t.Errorf("anonymous HTTPS auth = %v, want nil", auth)
	}
}

func TestBuildAuth_SSHKeyMissing(t *testing.T) {
	_, err := buildAuth("git@host:repo.git", vcs.Credentials{SSHKeyPath: "/nonexistent/key"})
	if err == nil {
		t.Fatal("expected error for unreadable key file")
	}
}
