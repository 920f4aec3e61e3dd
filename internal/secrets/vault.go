package secrets

import (
	"context"
	"fmt"
	"os"

	vault "github.com/hashicorp/vault/api"
	"github.com/sirupsen/logrus"
)

// Vault retrieves credentials from a HashiCorp Vault KV-v2 mount. It is the
// alternative Store backend for setups where credentials live in a shared
// vault rather than a personal Bitwarden account. Items map to secret paths
// under the configured mount, with `username` and `password` data keys.
type Vault struct {
	client *vault.Client
	mount  string

	authenticated bool
}

// NewVault builds a Vault-backed store. Address and token fall back to the
// standard VAULT_ADDR / VAULT_TOKEN environment variables when empty.
func NewVault(address, token, mount string) (*Vault, error) {
	cfg := vault.DefaultConfig()
	if len(address) > 0 {
		cfg.Address = address
	}

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrToolingUnavailable, err)
	}
	if len(token) > 0 {
		client.SetToken(token)
	}
	if len(mount) == 0 {
		mount = "secret"
	}

	return &Vault{client: client, mount: mount}, nil
}

// CheckAvailable performs a health query against the Vault server.
func (v *Vault) CheckAvailable(ctx context.Context) error {
	health, err := v.client.Sys().HealthWithContext(ctx)
	if err != nil {
		return fmt.Errorf("%w: vault health check failed: %v", ErrToolingUnavailable, err)
	}

	logrus.WithFields(logrus.Fields{
		"version": health.Version,
		"sealed":  health.Sealed,
	}).Debugln("Vault reachable")

	return nil
}

// IsUnlocked reports whether the server is unsealed and our token is valid.
func (v *Vault) IsUnlocked(ctx context.Context) bool {
	health, err := v.client.Sys().HealthWithContext(ctx)
	if err != nil || health.Sealed {
		return false
	}
	_, err = v.client.Auth().Token().LookupSelfWithContext(ctx)
	return err == nil
}

// Authenticate validates the configured token. Vault has no interactive
// unlock we could drive, so a missing or invalid token is ErrVaultLocked.
func (v *Vault) Authenticate(ctx context.Context) error {
	if v.authenticated {
		return nil
	}

	if len(v.client.Token()) == 0 {
		if token := os.Getenv("VAULT_TOKEN"); len(token) > 0 {
			v.client.SetToken(token)
		} else {
			return fmt.Errorf("%w: no vault token configured", ErrVaultLocked)
		}
	}

	if _, err := v.client.Auth().Token().LookupSelfWithContext(ctx); err != nil {
		return fmt.Errorf("%w: vault token rejected", ErrVaultLocked)
	}

	v.authenticated = true
	return nil
}

// GetCredentials reads the KV-v2 secret named by itemName.
func (v *Vault) GetCredentials(ctx context.Context, itemName string) (*Credentials, error) {
	if !v.authenticated {
		return nil, ErrAuthenticationRequired
	}

	secret, err := v.client.KVv2(v.mount).Get(ctx, itemName)
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrItemNotFound, itemName)
	}

	username, _ := secret.Data["username"].(string)
	password, _ := secret.Data["password"].(string)
	if len(username) == 0 || len(password) == 0 {
		return nil, fmt.Errorf("%w: %q is missing a username or password", ErrIncompleteCredential, itemName)
	}

	creds := &Credentials{Username: username, Password: password}
	for key, value := range secret.Data {
		if key == "username" || key == "password" {
			continue
		}
		if s, ok := value.(string); ok {
			if creds.Fields == nil {
				creds.Fields = make(map[string]string)
			}
			creds.Fields[key] = s
		}
	}

	return creds, nil
}

// Logout revokes nothing server side, it only forgets the local token.
func (v *Vault) Logout(ctx context.Context) {
	v.client.ClearToken()
	v.authenticated = false
}
