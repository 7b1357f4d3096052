package credentials

import (
	"fmt"
	"os"

	vault "github.com/hashicorp/vault/api"
)

// VaultSource reads the credential document from a HashiCorp Vault KV-v2
// secret. The document is the same YAML as the file sources, stored as the
// "lvfs.yml" field of the secret.
//
// The client is configured from the environment: VAULT_ADDR (and VAULT_TOKEN
// for token auth) via the standard client defaults, VAULT_NAMESPACE for the
// namespace, and VAULT_ROLE_ID/VAULT_SECRET_ID for AppRole login when both
// are present. Any failure to reach or authenticate to Vault makes this
// source unavailable, not fatal: the registry just moves on.
type VaultSource struct {
	// Mount is the KV-v2 mount point, "secret" when empty.
	Mount string

	// SecretPath is the path of the secret under the mount, "lvfs" when
	// empty.
	SecretPath string

	// Field is the secret field holding the YAML document, "lvfs.yml" when
	// empty.
	Field string
}

func (s VaultSource) Name() string {
	return fmt.Sprintf("vault:%s/%s", s.mount(), s.secretPath())
}

func (s VaultSource) mount() string {
	if s.Mount != "" {
		return s.Mount
	}
	return "secret"
}

func (s VaultSource) secretPath() string {
	if s.SecretPath != "" {
		return s.SecretPath
	}
	return "lvfs"
}

func (s VaultSource) field() string {
	if s.Field != "" {
		return s.Field
	}
	return "lvfs.yml"
}

func (s VaultSource) Load() ([]Entry, error) {
	if os.Getenv(vault.EnvVaultAddress) == "" {
		return nil, fmt.Errorf("%w: vault: %s is not set", ErrSourceUnavailable, vault.EnvVaultAddress)
	}

	client, err := vault.NewClient(vault.DefaultConfig())
	if err != nil {
		return nil, fmt.Errorf("%w: vault: %v", ErrSourceUnavailable, err)
	}
	if ns := os.Getenv("VAULT_NAMESPACE"); ns != "" {
		client.SetNamespace(ns)
	}

	roleID, secretID := os.Getenv("VAULT_ROLE_ID"), os.Getenv("VAULT_SECRET_ID")
	if roleID != "" && secretID != "" {
		auth, err := client.Logical().Write("auth/approle/login", map[string]any{
			"role_id":   roleID,
			"secret_id": secretID,
		})
		if err != nil || auth == nil || auth.Auth == nil {
			return nil, fmt.Errorf("%w: vault approle login: %v", ErrSourceUnavailable, err)
		}
		client.SetToken(auth.Auth.ClientToken)
	}

	secret, err := client.Logical().Read(fmt.Sprintf("%s/data/%s", s.mount(), s.secretPath()))
	if err != nil {
		return nil, fmt.Errorf("%w: vault read: %v", ErrSourceUnavailable, err)
	}
	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("%w: vault: secret %s not found", ErrSourceUnavailable, s.secretPath())
	}

	// KV-v2 nests the fields under "data".
	data, _ := secret.Data["data"].(map[string]any)
	text, _ := data[s.field()].(string)
	if text == "" {
		return nil, fmt.Errorf("%w: vault: secret %s has no %q field",
			ErrSourceUnavailable, s.secretPath(), s.field())
	}

	entries, err := ParseConfig([]byte(text))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.Name(), err)
	}
	return entries, nil
}
