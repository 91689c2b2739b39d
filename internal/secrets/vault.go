// Package secrets stores the AI API key and live-broker credentials
// outside process config, consulted once on daemon start. Reads are
// cache-first; a disabled Vault degrades to an in-memory store so
// paper-mode development never needs a Vault server.
package secrets

import (
	"context"
	"fmt"
	"sync"

	"github.com/hashicorp/vault/api"

	"github.com/followthefloww9/gold-digger/config"
)

// Credentials bundles whichever secret the control plane needs: the
// generative-AI API key, or live-broker API key/secret.
type Credentials struct {
	APIKey    string
	SecretKey string
}

// Client wraps the HashiCorp Vault client, caching reads and falling
// back to an in-memory store when Vault is disabled (local/paper-mode
// development never needs a running Vault).
type Client struct {
	client *api.Client
	config config.VaultConfig

	mu    sync.RWMutex
	cache map[string]Credentials
}

// NewClient builds a Client. When cfg.Enabled is false, it behaves as
// a pure in-memory cache: StoreCredentials/GetCredentials still work,
// they just never touch a Vault server.
func NewClient(cfg config.VaultConfig) (*Client, error) {
	if !cfg.Enabled {
		return &Client{config: cfg, cache: make(map[string]Credentials)}, nil
	}

	vaultConfig := api.DefaultConfig()
	vaultConfig.Address = cfg.Address
	if cfg.TLSEnabled && cfg.CACert != "" {
		if err := vaultConfig.ConfigureTLS(&api.TLSConfig{CACert: cfg.CACert}); err != nil {
			return nil, fmt.Errorf("secrets: configure TLS: %w", err)
		}
	}

	client, err := api.NewClient(vaultConfig)
	if err != nil {
		return nil, fmt.Errorf("secrets: new vault client: %w", err)
	}
	client.SetToken(cfg.Token)

	return &Client{client: client, config: cfg, cache: make(map[string]Credentials)}, nil
}

// StoreCredentials writes name's credentials to Vault (or the local
// cache, if Vault is disabled).
func (c *Client) StoreCredentials(ctx context.Context, name string, creds Credentials) error {
	if !c.config.Enabled {
		c.mu.Lock()
		c.cache[name] = creds
		c.mu.Unlock()
		return nil
	}

	path := c.path(name)
	_, err := c.client.Logical().WriteWithContext(ctx, path, map[string]interface{}{
		"data": map[string]interface{}{
			"api_key":    creds.APIKey,
			"secret_key": creds.SecretKey,
		},
	})
	if err != nil {
		return fmt.Errorf("secrets: store %q: %w", name, err)
	}

	c.mu.Lock()
	c.cache[name] = creds
	c.mu.Unlock()
	return nil
}

// GetCredentials reads name's credentials, checking the local cache
// first.
func (c *Client) GetCredentials(ctx context.Context, name string) (Credentials, error) {
	c.mu.RLock()
	cached, ok := c.cache[name]
	c.mu.RUnlock()
	if ok {
		return cached, nil
	}

	if !c.config.Enabled {
		return Credentials{}, fmt.Errorf("secrets: %q not found and vault is disabled", name)
	}

	secret, err := c.client.Logical().ReadWithContext(ctx, c.path(name))
	if err != nil {
		return Credentials{}, fmt.Errorf("secrets: read %q: %w", name, err)
	}
	if secret == nil || secret.Data == nil {
		return Credentials{}, fmt.Errorf("secrets: %q not found", name)
	}
	data, ok := secret.Data["data"].(map[string]interface{})
	if !ok {
		return Credentials{}, fmt.Errorf("secrets: %q has invalid format", name)
	}

	creds := Credentials{
		APIKey:    asString(data["api_key"]),
		SecretKey: asString(data["secret_key"]),
	}

	c.mu.Lock()
	c.cache[name] = creds
	c.mu.Unlock()
	return creds, nil
}

func (c *Client) path(name string) string {
	return fmt.Sprintf("%s/data/%s/%s", c.config.MountPath, c.config.SecretPath, name)
}

func asString(v interface{}) string {
	s, _ := v.(string)
	return s
}
