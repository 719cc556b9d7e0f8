package azure

import (
	"context"
	"fmt"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/storage/armstorage"
	"github.com/rs/zerolog/log"

	"github.com/efs-sdk/accessmanager/internal/core"
)

var _ core.AccountResolver = (*Resolver)(nil)

// Resolver finds the storage account named after an organization inside one
// resource group.
type Resolver struct {
	accounts      *armstorage.AccountsClient
	resourceGroup string
}

func NewResolver(subscriptionID, resourceGroup string, cred azcore.TokenCredential) (*Resolver, error) {
	accounts, err := armstorage.NewAccountsClient(subscriptionID, cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating storage accounts client: %w", err)
	}
	return &Resolver{
		accounts:      accounts,
		resourceGroup: resourceGroup,
	}, nil
}

// Resolve returns the first account whose name equals the organization, ignoring case.
func (r *Resolver) Resolve(ctx context.Context, organization string) (*core.StorageAccount, error) {
	pager := r.accounts.NewListByResourceGroupPager(r.resourceGroup, nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing storage accounts in %s: %w", r.resourceGroup, err)
		}
		for _, acc := range page.Value {
			if acc == nil || acc.Name == nil || !strings.EqualFold(*acc.Name, organization) {
				continue
			}
			account := &core.StorageAccount{
				Name:          *acc.Name,
				ResourceGroup: r.resourceGroup,
			}
			if acc.ID != nil {
				account.ID = *acc.ID
			}
			log.Ctx(ctx).Debug().
				Str("organization", organization).
				Str("account", account.Name).
				Msg("resolved storage account")
			return account, nil
		}
	}
	return nil, core.ErrAccountNotFound.WithDetail("organization '%s'", organization)
}

// Keys returns the access key values of the account in the order Azure lists them.
func (r *Resolver) Keys(ctx context.Context, account *core.StorageAccount) ([]string, error) {
	group := account.ResourceGroup
	if group == "" {
		group = r.resourceGroup
	}
	resp, err := r.accounts.ListKeys(ctx, group, account.Name, nil)
	if err != nil {
		return nil, fmt.Errorf("listing keys of %s: %w", account.Name, err)
	}
	keys := make([]string, 0, len(resp.Keys))
	for _, k := range resp.Keys {
		if k != nil && k.Value != nil {
			keys = append(keys, *k.Value)
		}
	}
	return keys, nil
}
