package gitrepo

import (
	"fmt"
	"os"
	"strings"

	"github.com/go-git/go-git/v5/plumbing/transport"
	githttp "github.com/go-git/go-git/v5/plumbing/transport/http"
	gitssh "github.com/go-git/go-git/v5/plumbing/transport/ssh"
	"golang.org/x/crypto/ssh"

	"github.com/preflightvcs/preflight/pkg/vcs"
)

// buildAuth picks an authentication method for url from creds. A nil
// method with a nil error means anonymous access, which is fine for
// public HTTPS remotes.
func buildAuth(url string, creds vcs.Credentials) (transport.AuthMethod, error) {
	if isSSHURL(url) {
		return sshAuth(creds)
	}
	switch {
	case creds.Token != "":
		// Token auth over HTTPS wants a non-empty username; the value
		// itself is ignored by the common hosts.
		user := creds.Username
		if user == "" {
			user = "token"
		}
		return &githttp.BasicAuth{Username: user, Password: creds.Token}, nil
	case creds.Username != "":
		return &githttp.BasicAuth{Username: creds.Username, Password: creds.Password}, nil
	default:
		return nil, nil
	}
}

func isSSHURL(url string) bool {
	return strings.HasPrefix(url, "ssh://") ||
		(strings.Contains(url, "@") && strings.Contains(url, ":") && !strings.Contains(url, "://"))
}

// sshAuth loads the configured key, validating it before handing it to the
// transport so a bad key or passphrase surfaces as an auth failure rather
// than a connection error mid-fetch. Without a key path it falls back to
// the SSH agent.
func sshAuth(creds vcs.Credentials) (transport.AuthMethod, error) {
	user := creds.Username
	if user == "" {
		user = "git"
	}
	if creds.SSHKeyPath != "" {
		pem, err := os.ReadFile(creds.SSHKeyPath)
		if err != nil {
			return nil, fmt.Errorf("read ssh key %s: %w", creds.SSHKeyPath, err)
		}
		if creds.SSHPassphrase != "" {
			if _, err := ssh.ParsePrivateKeyWithPassphrase(pem, []byte(creds.SSHPassphrase)); err != nil {
				return nil, fmt.Errorf("parse ssh key %s: %w", creds.SSHKeyPath, err)
			}
			return gitssh.NewPublicKeys(user, pem, creds.SSHPassphrase)
		}
		if _, err := ssh.ParsePrivateKey(pem); err != nil {
			return nil, fmt.Errorf("parse ssh key %s: %w", creds.SSHKeyPath, err)
		}
		return gitssh.NewPublicKeys(user, pem, "")
	}
	auth, err := gitssh.NewSSHAgentAuth(user)
	if err != nil {
		return nil, fmt.Errorf("ssh agent: %w", err)
	}
	return auth, nil
}
