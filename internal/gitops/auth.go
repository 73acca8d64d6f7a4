package gitops

import (
	"fmt"

	"github.com/go-git/go-git/v5/plumbing/transport"
	"github.com/go-git/go-git/v5/plumbing/transport/http"
	"github.com/go-git/go-git/v5/plumbing/transport/ssh"
	cryptossh "golang.org/x/crypto/ssh"
)

// AuthType represents the type of authentication to use
type AuthType string

const (
	// AuthTypeNone means no explicit authentication. Credential-augmented
	// fetch addresses carry their token in the URL userinfo instead.
	AuthTypeNone AuthType = "none"

	// AuthTypeToken means token-based authentication (personal access tokens)
	AuthTypeToken AuthType = "token"

	// AuthTypeBasic means basic username/password authentication
	AuthTypeBasic AuthType = "basic"

	// AuthTypeSSHKey means SSH private key authentication
	AuthTypeSSHKey AuthType = "ssh-key"
)

// AuthConfig contains authentication configuration for git operations
type AuthConfig struct {
	Type AuthType

	// Token is used for token-based authentication
	Token string

	// Username and Password are used for basic authentication
	Username string
	Password string

	// SSHKey contains SSH private key data, SSHKeyPassword unlocks it
	SSHKey         []byte
	SSHKeyPassword string
}

// PrepareAuth converts an AuthConfig into a go-git transport auth method.
// AuthTypeNone yields nil, which go-git treats as anonymous (or defers to
// URL userinfo).
func PrepareAuth(config AuthConfig) (transport.AuthMethod, error) {
	switch config.Type {
	case AuthTypeNone, "":
		return nil, nil

	case AuthTypeToken:
		if config.Token == "" {
			return nil, fmt.Errorf("token is required for token authentication")
		}
		return &http.BasicAuth{
			Username: "oauth2",
			Password: config.Token,
		}, nil

	case AuthTypeBasic:
		if config.Username == "" || config.Password == "" {
			return nil, fmt.Errorf("username and password are required for basic authentication")
		}
		return &http.BasicAuth{
			Username: config.Username,
			Password: config.Password,
		}, nil

	case AuthTypeSSHKey:
		if len(config.SSHKey) == 0 {
			return nil, fmt.Errorf("SSH key is required for SSH authentication")
		}

		var signer cryptossh.Signer
		var err error

		if config.SSHKeyPassword != "" {
			signer, err = cryptossh.ParsePrivateKeyWithPassphrase(config.SSHKey, []byte(config.SSHKeyPassword))
		} else {
			signer, err = cryptossh.ParsePrivateKey(config.SSHKey)
		}
		if err != nil {
			return nil, fmt.Errorf("failed to parse SSH key: %w", err)
		}

		return &ssh.PublicKeys{
			User:   "git",
			Signer: signer,
		}, nil

	default:
		return nil, fmt.Errorf("unsupported authentication type: %s", config.Type)
	}
}
