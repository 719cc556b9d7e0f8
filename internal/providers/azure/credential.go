// Package azure resolves organizations to Azure storage accounts and signs
// container-scoped SAS tokens for them.
package azure

import (
	"fmt"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"

	"github.com/efs-sdk/accessmanager/internal/config"
)

const Type = "azure"

// NewCredential uses a client secret credential when tenant, client id and
// secret are configured, and the default credential chain otherwise.
func NewCredential(cfg config.StorageConfig) (azcore.TokenCredential, error) {
	if cfg.TenantID != "" && cfg.ClientID != "" && cfg.ClientSecret != "" {
		cred, err := azidentity.NewClientSecretCredential(cfg.TenantID, cfg.ClientID, cfg.ClientSecret, nil)
		if err != nil {
			return nil, fmt.Errorf("creating client secret credential: %w", err)
		}
		return cred, nil
	}
	cred, err := azidentity.NewDefaultAzureCredential(&azidentity.DefaultAzureCredentialOptions{
		TenantID: cfg.TenantID,
	})
	if err != nil {
		return nil, fmt.Errorf("creating default azure credential: %w", err)
	}
	return cred, nil
}
