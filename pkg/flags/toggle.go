package flags

import (
	"context"
	"sync"

	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/ports"
)

// toggleMu serializes read-modify-write toggles on stores without FlagToggler.
var toggleMu sync.Mutex

// SetEnabled toggles a modifiable flag in store. Stores implementing
// ports.FlagToggler apply it atomically; for the others the read and the
// write happen under a process-wide lock.
func SetEnabled(ctx context.Context, store ports.FlagStore, id domain.FlagName, enabled bool) (domain.Flag, error) {
	if toggler, ok := store.(ports.FlagToggler); ok {
		return toggler.SetEnabled(ctx, id, enabled)
	}

	toggleMu.Lock()
	defer toggleMu.Unlock()

	flag, err := store.Get(ctx, id)
	if err != nil {
		return domain.Flag{}, err
	}
	if !flag.Modifiable {
		return domain.Flag{}, domain.ErrFlagNotModifiable
	}
	flag.Enabled = enabled
	if err := store.Put(ctx, flag); err != nil {
		return domain.Flag{}, err
	}
	return flag, nil
}
