// Package stub is an in-memory storage backend for local development and tests.
// Tokens are real container SAS tokens signed with a random account key.
package stub

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/rs/zerolog/log"

	"github.com/efs-sdk/accessmanager/internal/core"
	"github.com/efs-sdk/accessmanager/internal/providers/azure"
)

const Type = "stub"

var (
	_ core.AccountResolver = (*Backend)(nil)
	_ core.TokenSigner     = (*Backend)(nil)
)

type Backend struct {
	lifetimes azure.Lifetimes
	key       string // base64, as handed out by ListKeys

	mu         sync.RWMutex
	containers map[string]map[string][]string // account -> container -> blobs
	accounts   map[string]string              // lower-case account -> name
}

// New creates a backend holding the given accounts and (empty) containers.
func New(containers map[string][]string, lifetimes azure.Lifetimes) (*Backend, error) {
	key := make([]byte, 32)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generating stub signing key: %w", err)
	}
	b := &Backend{
		lifetimes:  lifetimes,
		key:        base64.StdEncoding.EncodeToString(key),
		containers: make(map[string]map[string][]string),
		accounts:   make(map[string]string),
	}
	for account, names := range containers {
		for _, name := range names {
			b.AddBlob(account, name, "")
		}
	}
	return b, nil
}

// AddBlob registers a container (and a blob in it unless blob is empty).
func (b *Backend) AddBlob(account, container, blob string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	acc := strings.ToLower(account)
	if _, ok := b.accounts[acc]; !ok {
		b.accounts[acc] = account
		b.containers[acc] = make(map[string][]string)
	}
	cont := strings.ToLower(container)
	blobs := b.containers[acc][cont]
	if blob != "" {
		blobs = append(blobs, blob)
		sort.Strings(blobs)
	}
	b.containers[acc][cont] = blobs
}

func (b *Backend) Resolve(ctx context.Context, organization string) (*core.StorageAccount, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	name, ok := b.accounts[strings.ToLower(organization)]
	if !ok {
		return nil, core.ErrAccountNotFound.WithDetail("organization '%s'", organization)
	}
	return &core.StorageAccount{Name: name, ResourceGroup: Type}, nil
}

func (b *Backend) Sign(ctx context.Context, account *core.StorageAccount, target core.StorageTarget, class core.OperationClass) (*core.AccessToken, error) {
	if _, err := b.blobs(account, target); err != nil {
		return nil, err
	}

	cred, err := azblob.NewSharedKeyCredential(account.Name, b.key)
	if err != nil {
		return nil, fmt.Errorf("creating stub credential for %s: %w", account.Name, err)
	}
	start := time.Now().UTC()
	expiry := start.Add(b.lifetimes.For(class))
	token, err := azure.SignContainerSAS(cred, strings.ToLower(target.Space), azure.ContainerPermissions(class), start, expiry)
	if err != nil {
		return nil, fmt.Errorf("signing stub token for %s: %w", target, err)
	}

	log.Ctx(ctx).Info().
		Str("target", target.String()).
		Str("class", class.String()).
		Msg("stub backend issued token")

	return &core.AccessToken{
		Class:        class,
		Organization: target.Organization,
		Space:        target.Space,
		Token:        token,
	}, nil
}

func (b *Backend) ListFiles(ctx context.Context, account *core.StorageAccount, target core.StorageTarget, pattern, rootDir string) ([]string, error) {
	blobs, err := b.blobs(account, target)
	if err != nil {
		return nil, err
	}

	var match func(string) bool
	if rootDir != "" {
		prefix := rootDir + "/"
		match = func(name string) bool { return strings.HasPrefix(name, prefix) }
	} else {
		re, err := regexp.Compile("^(?:" + pattern + ")$")
		if err != nil {
			return nil, core.ErrInvalidParameter.WithDetail("pattern: %v", err)
		}
		match = re.MatchString
	}

	out := make([]string, 0, len(blobs))
	for _, name := range blobs {
		if match(name) {
			out = append(out, name)
		}
	}
	return out, nil
}

func (b *Backend) blobs(account *core.StorageAccount, target core.StorageTarget) ([]string, error) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	containers, ok := b.containers[strings.ToLower(account.Name)]
	if !ok {
		return nil, core.ErrAccountNotFound.WithDetail("account '%s'", account.Name)
	}
	blobs, ok := containers[strings.ToLower(target.Space)]
	if !ok {
		return nil, core.ErrContainerNotExists.WithDetail("space '%s' in organization '%s'", target.Space, target.Organization)
	}
	cpy := make([]string, len(blobs))
	copy(cpy, blobs)
	return cpy, nil
}
