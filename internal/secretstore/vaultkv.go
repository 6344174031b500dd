package secretstore

import (
	"context"
	"fmt"

	vault "github.com/hashicorp/vault/api"
	"github.com/mitchellh/mapstructure"

	"credvault/internal/models"
)

// KVClient encapsule l'interaction avec le backend Vault (KV v2).
// Le chiffrement au repos est entièrement délégué à Vault: ce client ne voit
// le plaintext qu'en transit, sur le chemin d'écriture et de révélation.
type KVClient struct {
	client *vault.Client
	config *KVConfig
}

// KVConfig contient la configuration du client Vault
type KVConfig struct {
	Address   string
	Token     string
	Namespace string
	Mount     string
}

// NewKVClient crée un nouveau client Vault
func NewKVClient(config *KVConfig) (*KVClient, error) {
	if config.Address == "" {
		return nil, fmt.Errorf("adresse Vault manquante")
	}

	cfg := vault.DefaultConfig()
	cfg.Address = config.Address

	client, err := vault.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("impossible de créer le client Vault: %w", err)
	}

	client.SetToken(config.Token)
	if config.Namespace != "" {
		client.SetNamespace(config.Namespace)
	}
	if config.Mount == "" {
		config.Mount = "secret"
	}

	return &KVClient{
		client: client,
		config: config,
	}, nil
}

// Put écrit le payload secret d'un identifiant dans Vault
func (c *KVClient) Put(ctx context.Context, path string, payload *models.SecretPayload) error {
	data := map[string]interface{}{
		"senha": payload.Password,
	}
	if len(payload.Secrets) > 0 {
		data["secrets"] = payload.Secrets
	}

	if _, err := c.client.KVv2(c.config.Mount).Put(ctx, path, data); err != nil {
		return fmt.Errorf("impossible d'écrire le secret: %w", err)
	}

	return nil
}

// Get récupère et décode le payload secret d'un identifiant
func (c *KVClient) Get(ctx context.Context, path string) (*models.SecretPayload, error) {
	secret, err := c.client.KVv2(c.config.Mount).Get(ctx, path)
	if err != nil {
		return nil, fmt.Errorf("impossible de récupérer le secret: %w", err)
	}

	if secret == nil || secret.Data == nil {
		return nil, fmt.Errorf("secret non trouvé: %s", path)
	}

	payload := &models.SecretPayload{}
	if err := mapstructure.Decode(secret.Data, payload); err != nil {
		return nil, fmt.Errorf("payload secret illisible: %w", err)
	}

	return payload, nil
}

// Delete supprime le payload secret d'un identifiant
func (c *KVClient) Delete(ctx context.Context, path string) error {
	if err := c.client.KVv2(c.config.Mount).Delete(ctx, path); err != nil {
		return fmt.Errorf("impossible de supprimer le secret: %w", err)
	}

	return nil
}
