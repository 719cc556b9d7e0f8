package azure

import (
	"context"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/bloberror"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/container"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/sas"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/singleflight"

	"github.com/efs-sdk/accessmanager/internal/core"
)

var _ core.TokenSigner = (*Signer)(nil)

// KeyLister returns the access keys of a storage account.
type KeyLister interface {
	Keys(ctx context.Context, account *core.StorageAccount) ([]string, error)
}

// Lifetimes holds the validity of each token tier.
type Lifetimes struct {
	Read   time.Duration
	Write  time.Duration
	Delete time.Duration
}

func (l Lifetimes) For(class core.OperationClass) time.Duration {
	switch class {
	case core.ClassWrite:
		return l.Write
	case core.ClassDelete:
		return l.Delete
	default:
		return l.Read
	}
}

// blobContainer is the subset of container operations the signer uses.
type blobContainer interface {
	Exists(ctx context.Context) (bool, error)
	Sign(permissions sas.ContainerPermissions, start, expiry time.Time) (string, error)
	List(ctx context.Context, prefix string) ([]string, error)
}

type containerOpener func(ctx context.Context, account *core.StorageAccount, target core.StorageTarget) (blobContainer, error)

// Signer issues container SAS tokens signed with the account key.
// One container client is kept per target. Clients are opened outside mu,
// concurrent opens of the same target share one call.
type Signer struct {
	lifetimes Lifetimes
	open      containerOpener

	mu         sync.Mutex
	containers map[core.StorageTarget]blobContainer
	opening    singleflight.Group
}

// NewSigner signs with the first key returned by keys.
func NewSigner(keys KeyLister, endpointSuffix string, lifetimes Lifetimes) *Signer {
	return newSigner(lifetimes, sharedKeyOpener(keys, endpointSuffix))
}

func newSigner(lifetimes Lifetimes, open containerOpener) *Signer {
	return &Signer{
		lifetimes:  lifetimes,
		open:       open,
		containers: make(map[core.StorageTarget]blobContainer),
	}
}

func (s *Signer) Sign(ctx context.Context, account *core.StorageAccount, target core.StorageTarget, class core.OperationClass) (*core.AccessToken, error) {
	c, err := s.container(ctx, account, target)
	if err != nil {
		return nil, err
	}

	exists, err := c.Exists(ctx)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, core.ErrContainerNotExists.WithDetail("space '%s' in organization '%s'", target.Space, target.Organization)
	}

	start := time.Now().UTC()
	expiry := start.Add(s.lifetimes.For(class))
	token, err := c.Sign(ContainerPermissions(class), start, expiry)
	if err != nil {
		return nil, fmt.Errorf("signing %s token for %s: %w", class, target, err)
	}

	log.Ctx(ctx).Debug().
		Str("target", target.String()).
		Str("class", class.String()).
		Time("expires_at", expiry).
		Msg("signed container token")

	return &core.AccessToken{
		Class:        class,
		Organization: target.Organization,
		Space:        target.Space,
		Token:        token,
	}, nil
}

// ListFiles lists blob names below rootDir/, or every blob whose full name
// matches pattern when rootDir is empty.
func (s *Signer) ListFiles(ctx context.Context, account *core.StorageAccount, target core.StorageTarget, pattern, rootDir string) ([]string, error) {
	c, err := s.container(ctx, account, target)
	if err != nil {
		return nil, err
	}

	if rootDir != "" {
		return c.List(ctx, rootDir+"/")
	}

	re, err := regexp.Compile("^(?:" + pattern + ")$")
	if err != nil {
		return nil, core.ErrInvalidParameter.WithDetail("pattern: %v", err)
	}
	names, err := c.List(ctx, "")
	if err != nil {
		return nil, err
	}
	matches := make([]string, 0, len(names))
	for _, n := range names {
		if re.MatchString(n) {
			matches = append(matches, n)
		}
	}
	return matches, nil
}

func (s *Signer) container(ctx context.Context, account *core.StorageAccount, target core.StorageTarget) (blobContainer, error) {
	key := target.Key()
	if c, ok := s.cached(key); ok {
		return c, nil
	}

	v, err, _ := s.opening.Do(key.String(), func() (any, error) {
		if c, ok := s.cached(key); ok {
			return c, nil
		}
		c, err := s.open(ctx, account, key)
		if err != nil {
			return nil, err
		}
		s.mu.Lock()
		s.containers[key] = c
		s.mu.Unlock()
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(blobContainer), nil
}

func (s *Signer) cached(key core.StorageTarget) (blobContainer, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.containers[key]
	return c, ok
}

// ContainerPermissions maps the capability envelope of a class to SAS permissions.
func ContainerPermissions(class core.OperationClass) sas.ContainerPermissions {
	var p sas.ContainerPermissions
	for _, c := range core.Envelope(class) {
		switch c {
		case core.CapList:
			p.List = true
		case core.CapRead:
			p.Read = true
		case core.CapAdd:
			p.Add = true
		case core.CapCreate:
			p.Create = true
		case core.CapWrite:
			p.Write = true
		case core.CapDelete:
			p.Delete = true
		}
	}
	return p
}

// sharedKeyOpener builds container clients authenticated with the account key.
// Container names are lower-case in Azure, so the normalized target is used.
func sharedKeyOpener(keys KeyLister, endpointSuffix string) containerOpener {
	return func(ctx context.Context, account *core.StorageAccount, target core.StorageTarget) (blobContainer, error) {
		values, err := keys.Keys(ctx, account)
		if err != nil {
			return nil, err
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("no access key found for storage account %s", account.Name)
		}

		cred, err := azblob.NewSharedKeyCredential(account.Name, values[0])
		if err != nil {
			return nil, fmt.Errorf("creating shared key credential for %s: %w", account.Name, err)
		}
		containerURL := fmt.Sprintf("https://%s.blob.%s/%s", account.Name, endpointSuffix, target.Space)
		client, err := container.NewClientWithSharedKeyCredential(containerURL, cred, nil)
		if err != nil {
			return nil, fmt.Errorf("creating container client for %s: %w", containerURL, err)
		}
		return &sharedKeyContainer{
			client: client,
			cred:   cred,
			name:   target.Space,
		}, nil
	}
}

type sharedKeyContainer struct {
	client *container.Client
	cred   *azblob.SharedKeyCredential
	name   string
}

func (c *sharedKeyContainer) Exists(ctx context.Context) (bool, error) {
	_, err := c.client.GetProperties(ctx, nil)
	if err == nil {
		return true, nil
	}
	if bloberror.HasCode(err, bloberror.ContainerNotFound) {
		return false, nil
	}
	return false, fmt.Errorf("reading properties of container %s: %w", c.name, err)
}

func (c *sharedKeyContainer) Sign(permissions sas.ContainerPermissions, start, expiry time.Time) (string, error) {
	return SignContainerSAS(c.cred, c.name, permissions, start, expiry)
}

// SignContainerSAS returns the encoded query of a container SAS signed with cred.
func SignContainerSAS(cred *azblob.SharedKeyCredential, containerName string, permissions sas.ContainerPermissions, start, expiry time.Time) (string, error) {
	params, err := sas.BlobSignatureValues{
		Protocol:      sas.ProtocolHTTPS,
		StartTime:     start,
		ExpiryTime:    expiry,
		Permissions:   permissions.String(),
		ContainerName: containerName,
	}.SignWithSharedKey(cred)
	if err != nil {
		return "", err
	}
	return params.Encode(), nil
}

func (c *sharedKeyContainer) List(ctx context.Context, prefix string) ([]string, error) {
	opts := &container.ListBlobsFlatOptions{}
	if prefix != "" {
		opts.Prefix = &prefix
	}

	var names []string
	pager := c.client.NewListBlobsFlatPager(opts)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing blobs in %s: %w", c.name, err)
		}
		if page.Segment == nil {
			continue
		}
		for _, item := range page.Segment.BlobItems {
			if item != nil && item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}
