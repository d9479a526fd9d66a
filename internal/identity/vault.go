package identity

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/iconidentify/mediagrab/pkg/secrets"
)

// Vault hands out private working copies of credential bundles. Underlying
// transfer tools mutate cookie files in place during use, so no two attempts
// may ever share one; each checkout is a disposable copy deleted on release.
type Vault struct {
	dir        string
	tempDir    string
	passphrase string
}

// NewVault creates a vault over a directory of credential bundles.
// Bundles may be stored encrypted (pkg/secrets format) or plain.
func NewVault(dir, tempDir, passphrase string) *Vault {
	return &Vault{
		dir:        dir,
		tempDir:    tempDir,
		passphrase: passphrase,
	}
}

// Checkout writes a private plaintext copy of the named bundle and returns
// its path plus a release func that removes the copy. Release is safe to
// call more than once and must run regardless of the attempt's outcome.
func (v *Vault) Checkout(bundle string) (string, func(), error) {
	data, err := os.ReadFile(filepath.Join(v.dir, bundle))
	if err != nil {
		return "", nil, fmt.Errorf("read credential bundle: %w", err)
	}

	if secrets.IsEncrypted(data) {
		data, err = secrets.Decrypt(data, v.passphrase)
		if err != nil {
			return "", nil, fmt.Errorf("decrypt credential bundle %s: %w", bundle, err)
		}
	}

	if err := os.MkdirAll(v.tempDir, 0700); err != nil {
		return "", nil, fmt.Errorf("create checkout dir: %w", err)
	}

	copyPath := filepath.Join(v.tempDir, fmt.Sprintf("%s.%s", bundle, uuid.New().String()[:8]))
	if err := os.WriteFile(copyPath, data, 0600); err != nil {
		return "", nil, fmt.Errorf("write working copy: %w", err)
	}

	release := func() {
		os.Remove(copyPath)
	}
	return copyPath, release, nil
}
